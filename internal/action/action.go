// Package action defines the moves exchanged between agents and the episode loop.
package action

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/threestd/threes/internal/board"
)

// Kind tags the variant held by an Action
type Kind uint8

const (
	KindNone  Kind = iota // no action available
	KindSlide             // slide every tile in a direction
	KindPlace             // put a new tile on an empty cell
)

// Action is either a slide, a tile placement, or nothing
type Action struct {
	kind Kind
	dir  board.Direction
	pos  int
	tile board.Cell
}

// None returns the empty action
func None() Action {
	return Action{kind: KindNone, dir: board.NoDirection}
}

// Slide returns a slide action in direction d
func Slide(d board.Direction) Action {
	return Action{kind: KindSlide, dir: d}
}

// Place returns an action placing tile at pos
func Place(pos int, tile board.Cell) Action {
	return Action{kind: KindPlace, dir: board.NoDirection, pos: pos, tile: tile}
}

// Kind returns the variant tag
func (a Action) Kind() Kind { return a.kind }

// IsNone reports whether a carries no move
func (a Action) IsNone() bool { return a.kind == KindNone }

// Direction returns the slide direction, or NoDirection for other kinds
func (a Action) Direction() board.Direction {
	if a.kind != KindSlide {
		return board.NoDirection
	}
	return a.dir
}

// Position returns the target cell of a placement
func (a Action) Position() int { return a.pos }

// Tile returns the rank of a placed tile
func (a Action) Tile() board.Cell { return a.tile }

// Apply performs the action on b and returns the reward.
// A None action is always illegal.
func (a Action) Apply(b *board.Board) board.Reward {
	switch a.kind {
	case KindSlide:
		return b.Slide(a.dir)
	case KindPlace:
		return b.Place(a.pos, a.tile)
	}
	return board.Illegal
}

// String encodes the action: "#U" style for slides, hex position followed by
// the tile rank for placements (e.g. "A2"), and "??" for None.
func (a Action) String() string {
	switch a.kind {
	case KindSlide:
		return "#" + a.dir.String()
	case KindPlace:
		return fmt.Sprintf("%X%d", a.pos, a.tile)
	}
	return "??"
}

// ErrSyntax is returned by Parse for text that names no action
var ErrSyntax = errors.New("invalid action")

// Parse decodes the text produced by String
func Parse(s string) (Action, error) {
	if s == "??" {
		return None(), nil
	}
	if len(s) == 2 && s[0] == '#' {
		for _, d := range board.Directions {
			if d.String() == s[1:] {
				return Slide(d), nil
			}
		}
		return None(), fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	if len(s) < 2 {
		return None(), fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	pos, err := strconv.ParseUint(s[:1], 16, 8)
	if err != nil {
		return None(), fmt.Errorf("%w: position in %q", ErrSyntax, s)
	}
	tile, err := strconv.ParseUint(s[1:], 10, 8)
	if err != nil || tile == 0 || tile > uint64(board.MaxRank) {
		return None(), fmt.Errorf("%w: tile in %q", ErrSyntax, s)
	}
	return Place(int(pos), board.Cell(tile)), nil
}
