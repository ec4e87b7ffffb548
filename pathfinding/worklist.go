package pathfinding

import "container/heap"

// frontierItem is a queued cell and the cost it had when pushed.
// Items whose cost is above the box's current cost are stale and skipped.
type frontierItem struct {
	cell Cell
	cost float64
}

// frontier implements heap.Interface as a min-heap on cost.
type frontier []frontierItem

func (h frontier) Len() int           { return len(h) }
func (h frontier) Less(i, j int) bool { return h[i].cost < h[j].cost }
func (h frontier) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *frontier) Push(x any) {
	*h = append(*h, x.(frontierItem))
}

func (h *frontier) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *frontier) push(c Cell, cost float64) {
	heap.Push(h, frontierItem{cell: c, cost: cost})
}

func (h *frontier) pop() frontierItem {
	return heap.Pop(h).(frontierItem)
}

func (h *frontier) clear() {
	*h = (*h)[:0]
}
