package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1654.0, cfg.Field.Width)
	assert.Equal(t, 60.0, cfg.Planner.CostThreshold)
	assert.Equal(t, 3, cfg.Planner.MaxRelaxations)
	assert.Equal(t, 5, cfg.Planner.RefreshInterval)

	assert.Equal(t, 414, cfg.Derived.Cols)
	assert.Equal(t, 206, cfg.Derived.Rows)
	assert.InDelta(t, math.Hypot(70, 70)/2, cfg.Derived.RobotRadius, 1e-9)
	assert.Equal(t, 20*time.Millisecond, cfg.Derived.CycleDuration)
	assert.Equal(t, 250, cfg.Derived.StatsCycles)
	assert.Equal(t, cfg.Field.CellSize, cfg.Robot.ArrivalTolerance, "zero tolerance falls back to one cell")

	for i, o := range cfg.Arena.Stationary {
		_, err := o.Shape()
		assert.NoError(t, err, "stationary[%d]", i)
	}
}

func TestLoadOverlaysUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("planner:\n  cost_threshold: 25\nfield:\n  cell_size: 8\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25.0, cfg.Planner.CostThreshold)
	assert.Equal(t, 3, cfg.Planner.MaxRelaxations, "untouched keys keep defaults")
	assert.Equal(t, 207, cfg.Derived.Cols)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Field.CellSize = 0
	cfg.Planner.MaxRelaxations = 0
	cfg.Planner.Inflation = "grow"
	cfg.Arena.Goals = append(cfg.Arena.Goals, PoseConfig{X: 5000, Y: 10})
	cfg.Arena.Stationary = append(cfg.Arena.Stationary, ObstacleConfig{Name: "bad", Kind: "hexagon"})

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"field.cell_size",
		"planner.max_relaxations",
		"planner.inflation",
		"arena.goals[3]",
		`unknown kind "hexagon"`,
	} {
		assert.True(t, strings.Contains(msg, want), "missing %q in:\n%s", want, msg)
	}
}

func TestObstacleConfigShape(t *testing.T) {
	rect, err := ObstacleConfig{Kind: "rect", X: 1, Y: 2, W: 3, H: 4}.Shape()
	require.NoError(t, err)
	assert.True(t, rect.Contains(rect.Bounds().Max))

	_, err = ObstacleConfig{Kind: "polygon", Points: [][2]float64{{0, 0}, {1, 1}}}.Shape()
	assert.Error(t, err)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Planner.CostThreshold = 42

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Planner, back.Planner)
	assert.Equal(t, cfg.Arena.Stationary, back.Arena.Stationary)
}
