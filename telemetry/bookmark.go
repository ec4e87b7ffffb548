package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPlanSpike       BookmarkType = "plan_spike"
	BookmarkRelaxationSpike BookmarkType = "relaxation_spike"
	BookmarkStallOnset      BookmarkType = "stall_onset"
	BookmarkStallRecovery   BookmarkType = "stall_recovery"
	BookmarkSteadyPlanning  BookmarkType = "steady_planning"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType
	Cycle       int
	Description string
}

// LogBookmark logs the bookmark at info level.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("bookmark",
		"type", string(b.Type),
		"cycle", b.Cycle,
		"description", b.Description,
	)
}

// BookmarkDetector flags stats windows where planning behaviour changes
// sharply compared to the recent history.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	stalling      bool
	stallStart    int
	steadyWindows int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for steady planning detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Plan spike: p90 planning time > 3x rolling mean
		if b := bd.checkPlanSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Relaxation spike: largest refresh > 2x rolling mean of maxima
		if b := bd.checkRelaxationSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		if b := bd.checkSteadyPlanning(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	if b := bd.checkStall(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkPlanSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.PlanMeanUS
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.PlanP90US > avg*3.0 && stats.PlanP90US > 100 {
		return &Bookmark{
			Type:        BookmarkPlanSpike,
			Cycle:       stats.WindowEndCycle,
			Description: fmt.Sprintf("Plan p90 %.0fus is %.1fx average (%.0fus)", stats.PlanP90US, stats.PlanP90US/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkRelaxationSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.Refreshes == 0 {
		return nil
	}

	var total float64
	var n int
	for _, h := range history {
		if h.Refreshes > 0 {
			total += h.RelaxMax
			n++
		}
	}
	if n == 0 || total == 0 {
		return nil
	}
	avg := total / float64(n)

	if stats.RelaxMax > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkRelaxationSpike,
			Cycle:       stats.WindowEndCycle,
			Description: fmt.Sprintf("Refresh relaxed %.0f boxes, %.1fx average (%.0f)", stats.RelaxMax, stats.RelaxMax/avg, avg),
		}
	}
	return nil
}

// checkStall reports the first window with stalled cycles, and the first
// clean window after one.
func (bd *BookmarkDetector) checkStall(stats WindowStats) *Bookmark {
	switch {
	case !bd.stalling && stats.StalledCycles > 0:
		bd.stalling = true
		bd.stallStart = stats.WindowEndCycle
		return &Bookmark{
			Type:        BookmarkStallOnset,
			Cycle:       stats.WindowEndCycle,
			Description: fmt.Sprintf("Robot stalled for %d of %d cycles", stats.StalledCycles, stats.Cycles),
		}
	case bd.stalling && stats.StalledCycles == 0:
		bd.stalling = false
		return &Bookmark{
			Type:        BookmarkStallRecovery,
			Cycle:       stats.WindowEndCycle,
			Description: fmt.Sprintf("Robot moving again after stall at cycle %d", bd.stallStart),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSteadyPlanning(stats WindowStats) *Bookmark {
	if stats.StalledCycles > 0 || stats.PlanMeanUS <= 0 {
		bd.steadyWindows = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}
	recent := history[len(history)-4:]
	if bd.historyFull {
		recent = make([]WindowStats, 0, 4)
		for i := 4; i >= 1; i-- {
			recent = append(recent, bd.history[(bd.historyIdx-i+bd.historySize)%bd.historySize])
		}
	}

	var sum float64
	for _, h := range recent {
		sum += h.PlanMeanUS
	}
	mean := sum / 4
	var variance float64
	for _, h := range recent {
		d := h.PlanMeanUS - mean
		variance += d * d
	}
	variance /= 4

	if mean > 0 && variance/(mean*mean) < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.steadyWindows++
	} else {
		bd.steadyWindows = 0
	}

	if bd.steadyWindows == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkSteadyPlanning,
			Cycle:       stats.WindowEndCycle,
			Description: fmt.Sprintf("Planning steady at %.0fus per cycle over 5+ windows", mean),
		}
	}
	return nil
}
