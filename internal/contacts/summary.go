package contacts

// Summary is the headline figures shown next to the charts.
type Summary struct {
	TotalContacts    int    `json:"totalContacts"`
	UniqueContacts   int    `json:"uniqueContacts"`
	UniqueRecruiters int    `json:"uniqueRecruiters"`
	TopGroup         string `json:"topGroup,omitempty"`
	TopGroupCount    int    `json:"topGroupCount"`
}

// Summarize computes the summary of an upload and its deduplicated view.
// Blank recruiter and group values are not counted as a recruiter or a group.
func Summarize(original, deduped *Table, schema Schema) (Summary, error) {
	recruiters, err := UniqueValues(original, schema.Recruiter)
	if err != nil {
		return Summary{}, err
	}
	groups, err := CountBy(original, schema.GroupName)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		TotalContacts:  original.Len(),
		UniqueContacts: deduped.Len(),
	}
	for _, r := range recruiters {
		if r != "" {
			s.UniqueRecruiters++
		}
	}
	for _, g := range groups {
		if g.Key != "" {
			s.TopGroup = g.Key
			s.TopGroupCount = g.Count
			break
		}
	}
	return s, nil
}
