package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output file names written by WriteFiles.
const (
	MarkdownFile   = "report.md"
	ChannelCSVFile = "channel_attribution.csv"
	CohortCSVFile  = "cohort_ltv.csv"
)

// WriteFiles writes the Markdown report and both CSV summaries into dir and
// returns the written paths.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	channelCSV, err := RenderChannelCSV(r.Channels)
	if err != nil {
		return nil, fmt.Errorf("render channel csv: %w", err)
	}
	cohortCSV, err := RenderCohortCSV(r.Cohorts)
	if err != nil {
		return nil, fmt.Errorf("render cohort csv: %w", err)
	}

	outputs := []struct {
		name    string
		content string
	}{
		{MarkdownFile, RenderMarkdown(r)},
		{ChannelCSVFile, channelCSV},
		{CohortCSVFile, cohortCSV},
	}
	paths := make([]string, 0, len(outputs))
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := os.WriteFile(path, []byte(o.content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", o.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
