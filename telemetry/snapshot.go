package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the arena state at the end of a stats window, enough to
// inspect why the planner behaved as it did.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id,omitempty"`
	Seed    int64  `json:"seed"`

	FieldWidth  float64 `json:"field_width"`
	FieldHeight float64 `json:"field_height"`
	CellSize    float64 `json:"cell_size"`

	Cycle int `json:"cycle"`

	Robot        PoseState `json:"robot"`
	Goal         PoseState `json:"goal"`
	GoalIndex    int       `json:"goal_index"`
	GoalsReached int       `json:"goals_reached"`

	TargetCell [2]int   `json:"target_cell"`
	Cost       *float64 `json:"cost,omitempty"` // nil while the robot's cell is unrelaxed
	Stalled    bool     `json:"stalled"`

	Moving []ObstacleState `json:"moving"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// PoseState is a position and heading in field coordinates.
type PoseState struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// ObstacleState holds one moving obstacle's footprint and velocity.
type ObstacleState struct {
	Kind   string  `json:"kind"` // "circle" or "rect"
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VelX   float64 `json:"vel_x"`
	VelY   float64 `json:"vel_y"`
	Radius float64 `json:"radius,omitempty"`
	HalfW  float64 `json:"half_w,omitempty"`
	HalfH  float64 `json:"half_h,omitempty"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Cycle)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Cycle, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
