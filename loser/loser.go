package loser

import (
	"iter"
)

// New builds a tree merging the given sorted sequences under cmp. Each input
// must be non-decreasing under cmp for the merged output to be sorted.
func New[E any](sequences []iter.Seq[E], cmp func(a, b E) int) *Tree[E] {
	return &Tree[E]{
		nodes:     make([]node[E], len(sequences)*2),
		sequences: sequences,
		cmp:       cmp,
	}
}

// A loser tree is a binary tree laid out such that nodes N and N+1 have
// parent N/2. We store M leaf nodes in positions M...2M-1, and M-1 internal
// nodes in positions 1..M-1. Node 0 is a special node, containing the winner
// of the contest.
type Tree[E any] struct {
	nodes     []node[E]
	sequences []iter.Seq[E]
	cmp       func(a, b E) int
}

type node[E any] struct {
	index int              // This is the loser for all nodes except the 0th, where it is the winner.
	value E                // Value copied from the loser node, or winner for node 0.
	done  bool             // The sequence behind this node is exhausted.
	next  func() (E, bool) // Only populated for leaf nodes.
}

func (t *Tree[E]) moveNext(index int) bool {
	n := &t.nodes[index]
	if v, ok := n.next(); ok {
		n.value = v
		return true
	}
	n.done = true
	return false
}

// All returns the merged sequence. It may be consumed at most once and can
// be abandoned early; all input cursors are released when the range loop
// ends.
func (t *Tree[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		if len(t.nodes) == 0 {
			return
		}
		for i, s := range t.sequences {
			next, stop := iter.Pull(s)
			t.nodes[i+len(t.sequences)].next = next
			//nolint:gocritic // is not a leak.
			defer stop()
			t.moveNext(i + len(t.sequences)) // Call next() on each item to get the first value.
		}
		t.initialize()
		for !t.nodes[t.nodes[0].index].done &&
			yield(t.nodes[0].value) {
			t.moveNext(t.nodes[0].index)
			t.replayGames(t.nodes[0].index)
		}
	}
}

// beats reports whether node a wins the contest against node b. Exhausted
// nodes lose every game.
func (t *Tree[E]) beats(a, b *node[E]) bool {
	if a.done {
		return false
	}
	if b.done {
		return true
	}
	return t.cmp(a.value, b.value) < 0
}

func (t *Tree[E]) initialize() {
	winner := t.playGame(1)
	t.nodes[0].index = winner
	t.nodes[0].value = t.nodes[winner].value
	t.nodes[0].done = t.nodes[winner].done
}

// Find the winner at position pos; if it is a non-leaf node, store the loser.
// pos must be >= 1 and < len(t.nodes).
func (t *Tree[E]) playGame(pos int) int {
	nodes := t.nodes
	if pos >= len(nodes)/2 {
		return pos
	}
	left := t.playGame(pos * 2)
	right := t.playGame(pos*2 + 1)
	var loser, winner int
	if t.beats(&nodes[left], &nodes[right]) {
		loser, winner = right, left
	} else {
		loser, winner = left, right
	}
	nodes[pos].index = loser
	nodes[pos].value = nodes[loser].value
	nodes[pos].done = nodes[loser].done
	return winner
}

// Starting at pos, which is a winner, re-consider all values up to the root.
func (t *Tree[E]) replayGames(pos int) {
	nodes := t.nodes
	winning := node[E]{value: nodes[pos].value, done: nodes[pos].done}
	for n := parent(pos); n != 0; n = parent(n) {
		challenger := &nodes[n]
		if t.beats(challenger, &winning) {
			// Record pos as the loser here, and the old loser is the new winner.
			challenger.index, pos = pos, challenger.index
			challenger.value, winning.value = winning.value, challenger.value
			challenger.done, winning.done = winning.done, challenger.done
		}
	}
	// pos is now the winner; store it in node 0.
	nodes[0].index = pos
	nodes[0].value = winning.value
	nodes[0].done = winning.done
}

func parent(i int) int { return i / 2 }
