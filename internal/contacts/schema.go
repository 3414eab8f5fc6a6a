package contacts

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default header names of the semantic columns.
const (
	DefaultPhoneNumberColumn = "phone number"
	DefaultRecruiterColumn   = "recruiter"
	DefaultGroupNameColumn   = "group name"
)

// Schema names the CSV headers that carry the dedup key and the two
// grouping keys. Headers are matched literally.
type Schema struct {
	PhoneNumber string `json:"phoneNumber" yaml:"phone_number"`
	Recruiter   string `json:"recruiter" yaml:"recruiter"`
	GroupName   string `json:"groupName" yaml:"group_name"`
}

// DefaultSchema returns the header names used by the recruitment export.
func DefaultSchema() Schema {
	return Schema{
		PhoneNumber: DefaultPhoneNumberColumn,
		Recruiter:   DefaultRecruiterColumn,
		GroupName:   DefaultGroupNameColumn,
	}
}

// Required lists the header names every upload must declare.
func (s Schema) Required() []string {
	return []string{s.PhoneNumber, s.Recruiter, s.GroupName}
}

// withDefaults fills unset names from DefaultSchema.
func (s Schema) withDefaults() Schema {
	d := DefaultSchema()
	if s.PhoneNumber == "" {
		s.PhoneNumber = d.PhoneNumber
	}
	if s.Recruiter == "" {
		s.Recruiter = d.Recruiter
	}
	if s.GroupName == "" {
		s.GroupName = d.GroupName
	}
	return s
}

// LoadSchema reads a YAML schema file. A missing file yields DefaultSchema.
func LoadSchema(path string) (Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return DefaultSchema(), nil
	}
	if err != nil {
		return Schema{}, fmt.Errorf("opening schema file: %w", err)
	}
	defer file.Close()

	return ParseSchema(file)
}

// ParseSchema reads a schema from YAML such as:
//
//	phone_number: "phone number"
//	recruiter: "recruiter"
//	group_name: "group name"
func ParseSchema(r io.Reader) (Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Schema{}, err
	}

	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("parsing schema: %w", err)
	}
	s = s.withDefaults()

	if s.PhoneNumber == s.Recruiter || s.PhoneNumber == s.GroupName || s.Recruiter == s.GroupName {
		return Schema{}, fmt.Errorf("schema maps two roles to the same column: %+v", s)
	}
	return s, nil
}
