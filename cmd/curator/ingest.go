package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/job-curator/internal/app"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/service"
)

var flagIngestFile string

// ingestRecord is the file format accepted by the ingest command. JSON files
// parse as YAML too.
type ingestRecord struct {
	Title          string   `yaml:"title"`
	Company        string   `yaml:"company"`
	Location       string   `yaml:"location"`
	URL            string   `yaml:"url"`
	Source         string   `yaml:"source"`
	PostedDate     string   `yaml:"postedDate"`
	Deadline       string   `yaml:"deadline"`
	Description    string   `yaml:"description"`
	Salary         string   `yaml:"salary"`
	SalaryMin      *int     `yaml:"salaryMin"`
	SalaryMax      *int     `yaml:"salaryMax"`
	EmploymentType string   `yaml:"employmentType"`
	Backers        []string `yaml:"backers"`
}

// ingestReport summarizes an ingest batch
type ingestReport struct {
	Results []*service.IngestResult `json:"results" yaml:"results"`
	Failed  int                     `json:"failed" yaml:"failed"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run records from a JSON or YAML file through the duplicate gate",
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if flagIngestFile != "" && flagIngestFile != "-" {
			f, err := os.Open(flagIngestFile)
			if err != nil {
				return fmt.Errorf("opening %s: %w", flagIngestFile, err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}

		records, err := parseRecords(r)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			results, failed := a.Ingest.IngestBatch(ctx, records)
			if err := printResult(cmd.OutOrStdout(), flagOutput, ingestReport{Results: results, Failed: failed}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d records failed", failed, len(records))
			}
			return nil
		})
	},
}

// parseRecords reads a list of records from YAML or JSON
func parseRecords(r io.Reader) ([]*models.JobRecord, error) {
	var raw []ingestRecord
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing records: %w", err)
	}

	records := make([]*models.JobRecord, 0, len(raw))
	for i, in := range raw {
		posted, err := parseDate(in.PostedDate)
		if err != nil {
			return nil, fmt.Errorf("record %d: postedDate: %w", i, err)
		}
		deadline, err := parseDate(in.Deadline)
		if err != nil {
			return nil, fmt.Errorf("record %d: deadline: %w", i, err)
		}
		records = append(records, &models.JobRecord{
			Title:          in.Title,
			Company:        in.Company,
			Location:       in.Location,
			URL:            in.URL,
			Source:         in.Source,
			PostedDate:     posted,
			Deadline:       deadline,
			Description:    in.Description,
			Salary:         in.Salary,
			SalaryMin:      in.SalaryMin,
			SalaryMax:      in.SalaryMax,
			EmploymentType: in.EmploymentType,
			Backers:        in.Backers,
		})
	}
	return records, nil
}

// parseDate accepts a bare date or an RFC 3339 timestamp; empty means unset
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}

func init() {
	ingestCmd.Flags().StringVarP(&flagIngestFile, "file", "f", "-", "JSON or YAML list of records, - for stdin")
}
