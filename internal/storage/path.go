package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var keyComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildReportPath places one report artifact under a date-partitioned run
// directory, e.g. runs/date=2026-08-25/<run-id>/report.json. Artifacts of
// the same run always share a directory.
func BuildReportPath(runID string, startedAt time.Time, filename string) (string, error) {
	if err := validateKeyComponent(runID, "run id"); err != nil {
		return "", err
	}
	if err := validateKeyComponent(filename, "filename"); err != nil {
		return "", err
	}
	ts := startedAt.UTC()
	return path.Join(
		"runs",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		runID,
		filename,
	), nil
}

func validateKeyComponent(value, field string) error {
	if !keyComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
