package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/pthm-cable/gridnav/config"
)

// OutputManager writes a run's CSV logs and config snapshot to a directory.
type OutputManager struct {
	dir   string
	runID string

	cycleFile *os.File
	statsFile *os.File
	perfFile  *os.File

	cycleHeaderWritten bool
	statsHeaderWritten bool
	perfHeaderWritten  bool
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// NewOutputManager creates dir and opens cycles.csv, stats.csv and perf.csv.
// Returns nil if dir is empty (output disabled); all methods accept a nil receiver.
func NewOutputManager(dir, runID string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, runID: runID}
	files := []struct {
		name string
		dst  **os.File
	}{
		{"cycles.csv", &om.cycleFile},
		{"stats.csv", &om.statsFile},
		{"perf.csv", &om.perfFile},
	}
	for _, f := range files {
		fh, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = fh
	}
	return om, nil
}

// writeRows marshals records, writing the header only on the first call.
func writeRows[T any](f *os.File, headerWritten *bool, records []T) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// WriteConfig saves the configuration as config.yaml.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteCycle appends one row to cycles.csv.
func (om *OutputManager) WriteCycle(r CycleRecord) error {
	if om == nil {
		return nil
	}
	r.RunID = om.runID
	if err := writeRows(om.cycleFile, &om.cycleHeaderWritten, []CycleRecord{r}); err != nil {
		return fmt.Errorf("writing cycle: %w", err)
	}
	return nil
}

// WriteStats appends a window summary to stats.csv.
func (om *OutputManager) WriteStats(s WindowStats) error {
	if om == nil {
		return nil
	}
	s.RunID = om.runID
	if err := writeRows(om.statsFile, &om.statsHeaderWritten, []WindowStats{s}); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WritePerf appends a timing summary to perf.csv.
func (om *OutputManager) WritePerf(s PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}
	row := s.ToCSV(om.runID, windowEnd)
	if err := writeRows(om.perfFile, &om.perfHeaderWritten, []PerfStatsCSV{row}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// RunID returns the run identifier stamped on every row.
func (om *OutputManager) RunID() string {
	if om == nil {
		return ""
	}
	return om.runID
}

// Close closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, f := range []*os.File{om.cycleFile, om.statsFile, om.perfFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
