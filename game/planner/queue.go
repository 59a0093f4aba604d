package planner

import (
	"container/heap"

	"github.com/wricardo/knightboard/game/board"
)

// frontier holds cells waiting to have their neighbours relaxed.
type frontier interface {
	Push(pos board.Coord, cost Cost)
	// Pop removes the next cell together with the cost it was queued at.
	Pop() (board.Coord, Cost)
	Len() int
}

type queued struct {
	pos  board.Coord
	cost Cost
	seq  int
}

// fifo is a first-in first-out frontier. The backing slice is compacted once
// the consumed prefix dominates it.
type fifo struct {
	items []queued
	head  int
}

func (q *fifo) Push(pos board.Coord, cost Cost) {
	q.items = append(q.items, queued{pos: pos, cost: cost})
}

func (q *fifo) Pop() (board.Coord, Cost) {
	it := q.items[q.head]
	q.head++
	if q.head > 64 && q.head*2 > len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return it.pos, it.cost
}

func (q *fifo) Len() int {
	return len(q.items) - q.head
}

// costHeap orders entries by cost, then by insertion order so ties pop
// deterministically.
type costHeap []queued

func (h costHeap) Len() int { return len(h) }

func (h costHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].seq < h[j].seq
}

func (h costHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *costHeap) Push(x any) { *h = append(*h, x.(queued)) }

func (h *costHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// costQueue is a min-cost frontier. Entries are never updated in place; a
// cell improved after being queued is pushed again and the stale entry is
// skipped by the caller.
type costQueue struct {
	h   costHeap
	seq int
}

func newCostQueue() *costQueue {
	return &costQueue{}
}

func (q *costQueue) Push(pos board.Coord, cost Cost) {
	q.seq++
	heap.Push(&q.h, queued{pos: pos, cost: cost, seq: q.seq})
}

func (q *costQueue) Pop() (board.Coord, Cost) {
	it := heap.Pop(&q.h).(queued)
	return it.pos, it.cost
}

func (q *costQueue) Len() int {
	return q.h.Len()
}
