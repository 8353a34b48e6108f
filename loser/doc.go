// Package loser implements a tournament tree (also known as a loser tree)
// for merging any number of sorted lazy sequences into one sorted sequence.
// The implementation is adapted from the work by Bryan Boreham
// (https://github.com/bboreham/go-loser), reworked to take iter.Seq inputs
// and a three-way comparison function, and to track sequence exhaustion with
// an explicit flag instead of a caller-supplied maximum value.
//
// Each internal node holds the "loser" of a comparison between its children
// and the root holds the overall winner, so producing the next merged
// element costs O(log n) comparisons for n input sequences.
//
// Basic usage:
//
//	tree := loser.New(
//	    []iter.Seq[int]{seq1, seq2, seq3},
//	    func(a, b int) int { return a - b },
//	)
//	for v := range tree.All() {
//	    fmt.Println(v)
//	}
//
// The merge is lazy: input sequences are only pulled as the output is
// consumed, and abandoning the output early releases every input cursor.
package loser
