// Package ntuple implements the n-tuple value network used to score afterstates.
//
// A pattern is an ordered set of board cells whose ranks are folded into a
// base-16 key. Each family is one canonical pattern plus its eight rotations
// and reflections; all instances of a family index into the same weight table,
// which shares what is learned across symmetric boards. The value of a board
// is the sum of one table lookup per instance.
package ntuple

import (
	"fmt"

	"github.com/threestd/threes/internal/board"
	"github.com/threestd/threes/internal/weights"
)

// Symmetries is the number of instances generated for each family
const Symmetries = 8

// Pattern is an ordered list of cell positions, most significant first
type Pattern []int

// Family is a canonical pattern together with its symmetric instances
type Family struct {
	Canonical Pattern
	Instances []Pattern
}

// NewFamily builds a family from its canonical pattern
func NewFamily(p Pattern) Family {
	return Family{Canonical: p, Instances: Isomorphisms(p)}
}

// TableSize returns the number of distinct keys of a pattern
func (f Family) TableSize() int {
	return 1 << (4 * len(f.Canonical))
}

// DefaultPatterns are the four 6-tuples of the standard network
var DefaultPatterns = []Pattern{
	{0, 1, 2, 3, 4, 5},
	{4, 5, 6, 7, 8, 9},
	{0, 1, 2, 4, 5, 6},
	{4, 5, 6, 8, 9, 10},
}

// DefaultFamilies returns the families of DefaultPatterns
func DefaultFamilies() []Family {
	fams := make([]Family, len(DefaultPatterns))
	for i, p := range DefaultPatterns {
		fams[i] = NewFamily(p)
	}
	return fams
}

// Isomorphisms returns the 8 images of p under the rotations and reflections
// of the board. The first image is p itself.
func Isomorphisms(p Pattern) []Pattern {
	out := make([]Pattern, Symmetries)
	for i := 0; i < Symmetries; i++ {
		img := make(Pattern, len(p))
		for k, pos := range p {
			r, c := pos/board.Size, pos%board.Size
			if i >= 4 {
				c = board.Size - 1 - c
			}
			for n := 0; n < i%4; n++ {
				r, c = c, board.Size-1-r
			}
			img[k] = r*board.Size + c
		}
		out[i] = img
	}
	return out
}

// Key folds the ranks under p into one base-16 integer, first cell most significant
func Key(p Pattern, b board.Board) int {
	key := 0
	for _, pos := range p {
		key = key<<4 | int(b[pos])
	}
	return key
}

// Network sums table lookups over every instance of every family
type Network struct {
	store    *weights.Store
	families []Family
}

// New binds families to the tables of store. Table i serves family i.
func New(store *weights.Store, families []Family) (*Network, error) {
	if store.Len() != len(families) {
		return nil, fmt.Errorf("store has %d tables, network needs %d", store.Len(), len(families))
	}
	for i, f := range families {
		if len(f.Instances) == 0 {
			return nil, fmt.Errorf("family %d has no instances", i)
		}
		if got := len(store.Table(i)); got != f.TableSize() {
			return nil, fmt.Errorf("table %d has %d entries, family needs %d", i, got, f.TableSize())
		}
	}
	return &Network{store: store, families: families}, nil
}

// Default binds the standard four 6-tuple families to store
func Default(store *weights.Store) (*Network, error) {
	return New(store, DefaultFamilies())
}

// NewDefaultStore allocates zeroed tables sized for DefaultFamilies
func NewDefaultStore() *weights.Store {
	return weights.New(len(DefaultPatterns), NewFamily(DefaultPatterns[0]).TableSize())
}

// Store returns the backing weight store
func (n *Network) Store() *weights.Store { return n.store }

// Families returns the pattern families of the network
func (n *Network) Families() []Family { return n.families }

// Instances returns the number of lookups summed by Value
func (n *Network) Instances() int {
	total := 0
	for _, f := range n.families {
		total += len(f.Instances)
	}
	return total
}

// Value estimates b as the sum of every instance's table entry
func (n *Network) Value(b board.Board) float32 {
	var v float32
	for i, f := range n.families {
		t := n.store.Table(i)
		for _, p := range f.Instances {
			v += t[Key(p, b)]
		}
	}
	return v
}

// Adjust adds delta to every entry addressed by b. Instances that map to the
// same key receive delta once per instance.
func (n *Network) Adjust(b board.Board, delta float32) {
	for i, f := range n.families {
		t := n.store.Table(i)
		for _, p := range f.Instances {
			t[Key(p, b)] += delta
		}
	}
}
