package contacts

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recruit-dashboard/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	t.Run("full mapping", func(t *testing.T) {
		s, err := ParseSchema(strings.NewReader(`
phone_number: "Phone"
recruiter: "Recruiter Name"
group_name: "WhatsApp Group"
`))
		require.NoError(t, err)
		assert.Equal(t, Schema{PhoneNumber: "Phone", Recruiter: "Recruiter Name", GroupName: "WhatsApp Group"}, s)
		assert.Equal(t, []string{"Phone", "Recruiter Name", "WhatsApp Group"}, s.Required())
	})

	t.Run("partial mapping falls back to defaults", func(t *testing.T) {
		s, err := ParseSchema(strings.NewReader(`phone_number: "mobile"`))
		require.NoError(t, err)
		assert.Equal(t, "mobile", s.PhoneNumber)
		assert.Equal(t, DefaultRecruiterColumn, s.Recruiter)
		assert.Equal(t, DefaultGroupNameColumn, s.GroupName)
	})

	t.Run("empty document is the default", func(t *testing.T) {
		s, err := ParseSchema(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, DefaultSchema(), s)
	})

	t.Run("roles must use distinct columns", func(t *testing.T) {
		_, err := ParseSchema(strings.NewReader("recruiter: \"group name\"\n"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseSchema(strings.NewReader("phone_number: [unclosed"))
		assert.Error(t, err)
	})
}

func TestLoadSchema(t *testing.T) {
	t.Run("missing file gives default", func(t *testing.T) {
		s, err := LoadSchema(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultSchema(), s)
	})

	t.Run("empty path gives default", func(t *testing.T) {
		s, err := LoadSchema("")
		require.NoError(t, err)
		assert.Equal(t, DefaultSchema(), s)
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.yaml")
		require.NoError(t, os.WriteFile(path, []byte("group_name: grp\n"), 0644))
		s, err := LoadSchema(path)
		require.NoError(t, err)
		assert.Equal(t, "grp", s.GroupName)
	})
}

func TestSummarize(t *testing.T) {
	original := sampleTable(t)
	deduped, err := Deduplicate(original, phoneCol)
	require.NoError(t, err)

	s, err := Summarize(original, deduped, DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, Summary{
		TotalContacts:    8,
		UniqueContacts:   6,
		UniqueRecruiters: 3,
		TopGroup:         "Jakarta Jobs",
		TopGroupCount:    4,
	}, s)

	t.Run("blank recruiters and groups are ignored", func(t *testing.T) {
		tbl := NewTable([]string{"phone number", "recruiter", "group name"}, [][]string{
			{"1", "", ""}, {"2", "", ""}, {"3", "Ana", "G"},
		})
		s, err := Summarize(tbl, tbl, DefaultSchema())
		require.NoError(t, err)
		assert.Equal(t, 1, s.UniqueRecruiters)
		assert.Equal(t, "G", s.TopGroup)
		assert.Equal(t, 1, s.TopGroupCount)
	})

	t.Run("empty table", func(t *testing.T) {
		tbl, err := Load(bytes.NewReader(testutil.CSV([]string{"phone number", "recruiter", "group name"})))
		require.NoError(t, err)
		s, err := Summarize(tbl, tbl, DefaultSchema())
		require.NoError(t, err)
		assert.Equal(t, Summary{}, s)
	})
}
