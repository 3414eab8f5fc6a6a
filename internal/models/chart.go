package models

import (
	"fmt"

	"github.com/recruit-dashboard/backend/internal/contacts"
)

// Chart titles and axis labels shown by the dashboard.
const (
	RecruiterChartTitle = "Total Numbers by Recruiter"
	GroupChartTitle     = "Contacts by WhatsApp Group"

	RecruiterAxisLabel      = "Recruiter"
	GroupAxisLabel          = "WhatsApp Group"
	ContactsAxisLabel       = "Number of Contacts"
	UniqueContactsAxisLabel = "Unique Contacts"
)

// ChartData is a bar chart: one bar per label, in order.
type ChartData struct {
	Title  string   `json:"title"`
	XLabel string   `json:"xLabel"`
	YLabel string   `json:"yLabel"`
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// NewChartData builds a bar chart from grouped counts.
func NewChartData(title, xLabel, yLabel string, gc contacts.GroupCount) ChartData {
	return ChartData{
		Title:  title,
		XLabel: xLabel,
		YLabel: yLabel,
		Labels: gc.Keys(),
		Values: gc.Counts(),
	}
}

// TopRecruiterChartTitle titles the top-n recruiters chart.
func TopRecruiterChartTitle(n int) string {
	return fmt.Sprintf("Top %d Recruiters by Unique Contacts", n)
}
