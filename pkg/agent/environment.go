package agent

import (
	"math/rand"

	"github.com/threestd/threes/internal/action"
	"github.com/threestd/threes/internal/board"
)

// BagSize is the number of tiles drawn before the bag is refilled
const BagSize = 3

// Bag hands out the tiles 1, 2 and 3 once each in a shuffled order,
// then refills and reshuffles.
type Bag struct {
	rng    *rand.Rand
	values [BagSize]board.Cell
	order  [BagSize]int
	cursor int
}

// NewBag returns a freshly shuffled bag
func NewBag(rng *rand.Rand) *Bag {
	b := &Bag{rng: rng}
	b.refill()
	return b
}

// Draw returns the next tile of the bag
func (b *Bag) Draw() board.Cell {
	tile := b.values[b.order[b.cursor]]
	b.cursor++
	if b.cursor == BagSize {
		b.refill()
	}
	return tile
}

// Remaining returns how many tiles are left before the next refill
func (b *Bag) Remaining() int { return BagSize - b.cursor }

func (b *Bag) refill() {
	for i := range b.values {
		b.values[i] = board.Cell(i + 1)
		b.order[i] = i
	}
	b.rng.Shuffle(BagSize, func(i, j int) { b.order[i], b.order[j] = b.order[j], b.order[i] })
	b.cursor = 0
}

// oppositeEdge lists, per slide direction, the edge the tiles moved away from
var oppositeEdge = [4][board.Size]int{
	board.Up:    {12, 13, 14, 15},
	board.Right: {0, 4, 8, 12},
	board.Down:  {0, 1, 2, 3},
	board.Left:  {3, 7, 11, 15},
}

// OppositeEdge returns the cells a tile may appear on after sliding in d.
// d must be one of the four slide directions.
func OppositeEdge(d board.Direction) [board.Size]int {
	return oppositeEdge[d]
}

// Environment drops a tile from the bag after every slide, on the edge
// opposite the slide. At the start of an episode any cell may be used.
type Environment struct {
	meta
	rng   *rand.Rand
	space [board.Cells]int
	bag   *Bag
}

// NewEnvironment builds an environment shuffling with cfg's seed
func NewEnvironment(cfg Config) *Environment {
	rng := newRand(cfg)
	e := &Environment{
		meta: newMeta(cfg, "random", "environment"),
		rng:  rng,
		bag:  NewBag(rng),
	}
	for i := range e.space {
		e.space[i] = i
	}
	return e
}

// Kind implements Agent
func (e *Environment) Kind() Kind { return KindEnvironment }

// Bag returns the tile bag
func (e *Environment) Bag() *Bag { return e.bag }

func (e *Environment) OpenEpisode() {}
func (e *Environment) CloseEpisode() {}
func (e *Environment) Close() error { return nil }

// TakeAction implements Agent
func (e *Environment) TakeAction(b board.Board, last board.Direction) action.Action {
	return e.PlaceTile(b, last)
}

// PlaceTile picks the first empty cell of the shuffled candidates for last
// and a tile from the bag. It returns None when every candidate is occupied,
// even if other cells of the board are free. The board is not modified.
func (e *Environment) PlaceTile(after board.Board, last board.Direction) action.Action {
	var candidates []int
	switch {
	case last == board.NoDirection:
		candidates = e.space[:]
	case last.Valid():
		edge := oppositeEdge[last]
		candidates = edge[:]
	default:
		return action.None()
	}

	e.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, pos := range candidates {
		if after.At(pos) != 0 {
			continue
		}
		return action.Place(pos, e.bag.Draw())
	}
	return action.None()
}
