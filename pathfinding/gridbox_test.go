package pathfinding

import (
	"math"
	"testing"
)

// relaxStep is one relax call against a box.
type relaxStep struct {
	src      Cell
	proposed float64
	want     bool
}

func TestGridBoxRelax(t *testing.T) {
	tests := []struct {
		name            string
		obstructed      bool
		max             int
		steps           []relaxStep
		wantCost        float64
		wantRelaxations int
	}{
		{
			name:            "first relaxation from infinity",
			max:             3,
			steps:           []relaxStep{{Cell{1, 0}, 4, true}},
			wantCost:        4,
			wantRelaxations: 1,
		},
		{
			name: "only improvements count",
			max:  3,
			steps: []relaxStep{
				{Cell{1, 0}, 4, true},
				{Cell{0, 1}, 4, false},
				{Cell{2, 0}, 5, false},
				{Cell{0, 1}, 3.5, true},
			},
			wantCost:        3.5,
			wantRelaxations: 2,
		},
		{
			name: "frozen after max plus one",
			max:  2,
			steps: []relaxStep{
				{Cell{1, 0}, 9, true},
				{Cell{2, 0}, 8, true},
				{Cell{3, 0}, 7, true},
				{Cell{4, 0}, 1, false},
			},
			wantCost:        7,
			wantRelaxations: 3,
		},
		{
			name:            "obstructed refuses everything",
			obstructed:      true,
			max:             3,
			steps:           []relaxStep{{Cell{1, 0}, 1, false}},
			wantCost:        math.Inf(1),
			wantRelaxations: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newGridBox()
			b.obstructed = tt.obstructed
			for i, st := range tt.steps {
				if got := b.relax(st.src, st.proposed, tt.max); got != st.want {
					t.Errorf("step %d: relax(%v, %v) = %v, want %v", i, st.src, st.proposed, got, st.want)
				}
			}
			if b.Cost() != tt.wantCost {
				t.Errorf("cost = %v, want %v", b.Cost(), tt.wantCost)
			}
			if b.Relaxations() != tt.wantRelaxations {
				t.Errorf("relaxations = %d, want %d", b.Relaxations(), tt.wantRelaxations)
			}
		})
	}
}

func TestGridBoxAssignable(t *testing.T) {
	tests := []struct {
		name    string
		sources []Cell // relaxed in order with falling costs
		max     int
		from    Cell
		want    bool
	}{
		{"fresh box", nil, 3, Cell{1, 0}, true},
		{"recent source excluded", []Cell{{1, 0}}, 3, Cell{1, 0}, false},
		{"other source allowed", []Cell{{1, 0}}, 3, Cell{0, 1}, true},
		{"ring holds four", []Cell{{1, 0}, {2, 0}, {3, 0}, {4, 0}}, 10, Cell{1, 0}, false},
		{"oldest evicted on wrap", []Cell{{1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}}, 10, Cell{1, 0}, true},
		{"newest kept on wrap", []Cell{{1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}}, 10, Cell{5, 0}, false},
		{"second oldest kept on wrap", []Cell{{1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}}, 10, Cell{2, 0}, false},
		{"frozen box", []Cell{{1, 0}, {2, 0}, {3, 0}}, 2, Cell{9, 9}, false},
		{"at the limit still accepts", []Cell{{1, 0}, {2, 0}}, 2, Cell{9, 9}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newGridBox()
			for i, src := range tt.sources {
				if !b.relax(src, float64(100-i), tt.max) {
					t.Fatalf("setup relax %d from %v refused", i, src)
				}
			}
			if got := b.assignable(tt.from, tt.max); got != tt.want {
				t.Errorf("assignable(%v) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestGridBoxAssignableObstructed(t *testing.T) {
	b := newGridBox()
	b.obstructed = true
	if b.assignable(Cell{1, 0}, 3) {
		t.Error("obstructed box should not be assignable")
	}
}

func TestGridBoxSeedBypassesMinRule(t *testing.T) {
	b := newGridBox()
	if !b.relax(Cell{1, 0}, 3, 3) {
		t.Fatal("setup relax refused")
	}
	b.seed(10)
	if b.Cost() != 10 {
		t.Errorf("cost after seed = %v, want 10", b.Cost())
	}
	if b.Relaxations() != 2 {
		t.Errorf("relaxations after seed = %d, want 2", b.Relaxations())
	}

	b.seed(0)
	if b.Cost() != 0 {
		t.Errorf("cost after seed = %v, want exactly 0", b.Cost())
	}
}

func TestGridBoxResetKeepsObstruction(t *testing.T) {
	b := newGridBox()
	b.relax(Cell{1, 0}, 3, 3)
	b.obstructed = true
	b.reset()

	if b.Relaxed() || b.Relaxations() != 0 {
		t.Errorf("reset left cost %v, relaxations %d", b.Cost(), b.Relaxations())
	}
	if !b.Obstructed() {
		t.Error("reset cleared the obstruction flag")
	}
	b.obstructed = false
	if !b.assignable(Cell{1, 0}, 3) {
		t.Error("reset should forget recent sources")
	}
}
