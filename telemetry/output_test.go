package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/gridnav/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", "run")
	require.NoError(t, err)
	assert.Nil(t, om)
	assert.NoError(t, om.WriteCycle(CycleRecord{}))
	assert.NoError(t, om.Close())
	assert.Equal(t, "", om.Dir())
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	runID := NewRunID()
	_, err := uuid.Parse(runID)
	require.NoError(t, err, "run id should be a uuid")

	om, err := NewOutputManager(dir, runID)
	require.NoError(t, err)

	require.NoError(t, om.WriteConfig(config.Default()))
	for i := 1; i <= 3; i++ {
		require.NoError(t, om.WriteCycle(CycleRecord{Cycle: i, RobotX: float64(i), Cost: 10 - float64(i)}))
	}
	require.NoError(t, om.WriteStats(WindowStats{WindowEndCycle: 3, Cycles: 3}))
	require.NoError(t, om.WritePerf(PerfStats{AvgCycle: 250 * time.Microsecond}, 3))
	require.NoError(t, om.Close())

	var cycles []CycleRecord
	f, err := os.Open(filepath.Join(dir, "cycles.csv"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gocsv.UnmarshalFile(f, &cycles))

	require.Len(t, cycles, 3, "header written once")
	assert.Equal(t, 2, cycles[1].Cycle)
	assert.Equal(t, 8.0, cycles[1].Cost)
	assert.Equal(t, runID, cycles[2].RunID)

	var perf []PerfStatsCSV
	pf, err := os.Open(filepath.Join(dir, "perf.csv"))
	require.NoError(t, err)
	defer pf.Close()
	require.NoError(t, gocsv.UnmarshalFile(pf, &perf))
	require.Len(t, perf, 1)
	assert.Equal(t, int64(250), perf[0].AvgCycleUS)

	_, err = config.Load(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err, "config snapshot should load back")
}
