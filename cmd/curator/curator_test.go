package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
)

func TestParseRecords_YAML(t *testing.T) {
	input := `
- title: Senior Go Engineer
  company: Acme Labs
  location: Remote
  url: https://acme.example/jobs/1
  source: greenhouse
  postedDate: "2026-05-01"
  deadline: "2026-06-01T12:00:00Z"
  salaryMin: 150000
  backers: [Sequoia, a16z]
- title: Data Engineer
  company: Beta
`
	records, err := parseRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Senior Go Engineer", first.Title)
	assert.Equal(t, "greenhouse", first.Source)
	require.NotNil(t, first.PostedDate)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *first.PostedDate)
	require.NotNil(t, first.Deadline)
	assert.Equal(t, 12, first.Deadline.Hour())
	require.NotNil(t, first.SalaryMin)
	assert.Equal(t, 150000, *first.SalaryMin)
	assert.Equal(t, []string{"Sequoia", "a16z"}, first.Backers)

	assert.Nil(t, records[1].PostedDate)
	assert.False(t, records[1].IsActive)
}

func TestParseRecords_JSON(t *testing.T) {
	input := `[{"title": "Backend Engineer", "company": "Gamma", "url": "https://gamma.example/1", "postedDate": "2026-04-02"}]`

	records, err := parseRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Gamma", records[0].Company)
	require.NotNil(t, records[0].PostedDate)
	assert.Equal(t, 2, records[0].PostedDate.Day())
}

func TestParseRecords_Errors(t *testing.T) {
	_, err := parseRecords(strings.NewReader(`- title: x
  postedDate: "last week"`))
	assert.ErrorContains(t, err, "record 0: postedDate")

	_, err = parseRecords(strings.NewReader(`title: not a list`))
	assert.Error(t, err)

	records, err := parseRecords(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseScope(t *testing.T) {
	for _, s := range []string{"company", "dedupkey"} {
		scope, err := parseScope(s)
		assert.NoError(t, err)
		assert.NotNil(t, scope)
	}
	_, err := parseScope("title")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestPrintResult(t *testing.T) {
	summary := models.NewSweepSummary(types.SweepExpire, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	summary.RunID = "run-7"
	summary.Updated = 3

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, "json", summary))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-7", decoded["runId"])
	assert.Equal(t, float64(3), decoded["updated"])

	buf.Reset()
	require.NoError(t, printResult(&buf, "yaml", summary))
	var fromYAML map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, "run-7", fromYAML["runId"])
	assert.Equal(t, "expire", fromYAML["sweep"])
}
