// Package board implements the 4x4 Threes board.
//
// Cells hold tile ranks rather than face values: rank 0 is an empty cell,
// ranks 1 and 2 are the "1" and "2" tiles, and rank k >= 3 is the tile with
// face value 3*2^(k-3). Boards are plain values, so assigning one copies it.
package board

import (
	"fmt"
	"strings"
)

const (
	// Size is the number of rows and columns
	Size = 4
	// Cells is the number of cells on the board
	Cells = Size * Size
	// MaxRank is the largest rank a cell can hold
	MaxRank Cell = 15
)

// Cell is the rank of the tile in one board position
type Cell uint8

// Reward is the score delta returned by Slide and Place.
// A reward of -1 means the operation was illegal and the board is unchanged.
type Reward int

// Illegal is the reward reported for a move that changes nothing
const Illegal Reward = -1

// Direction is a slide direction
type Direction int

// Direction codes
const (
	NoDirection Direction = -1 // no previous move in this episode
	Up          Direction = 0
	Right       Direction = 1
	Down        Direction = 2
	Left        Direction = 3
)

// Directions lists all slide directions by code
var Directions = [4]Direction{Up, Right, Down, Left}

// String returns the single-letter name of the direction
func (d Direction) String() string {
	switch d {
	case Up:
		return "U"
	case Right:
		return "R"
	case Down:
		return "D"
	case Left:
		return "L"
	}
	return "?"
}

// Valid reports whether d is one of the four slide directions
func (d Direction) Valid() bool {
	return d >= Up && d <= Left
}

// Board is a row-major 4x4 grid of ranks (index = row*4 + col)
type Board [Cells]Cell

// FromRows builds a board from face values laid out by row.
// It panics on a face value that has no rank, so it is meant for tests and fixtures.
func FromRows(rows [Size][Size]int) Board {
	var b Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			rank, ok := RankOf(rows[r][c])
			if !ok {
				panic(fmt.Sprintf("board: no rank for face value %d", rows[r][c]))
			}
			b[r*Size+c] = rank
		}
	}
	return b
}

// At returns the rank at position pos
func (b Board) At(pos int) Cell {
	return b[pos]
}

// Slide moves every tile one step in direction d, merging where the rules allow.
// It returns the merge reward, or Illegal if nothing moved.
func (b *Board) Slide(d Direction) Reward {
	switch d {
	case Left:
		return b.slideLeft()
	case Right:
		return b.slideRight()
	case Up:
		return b.slideUp()
	case Down:
		return b.slideDown()
	}
	return Illegal
}

// Place puts tile on the empty cell at pos.
// It returns 0 on success and Illegal on an occupied or out-of-range cell.
func (b *Board) Place(pos int, tile Cell) Reward {
	if pos < 0 || pos >= Cells || b[pos] != 0 || tile == 0 || tile > MaxRank {
		return Illegal
	}
	b[pos] = tile
	return 0
}

func (b *Board) slideLeft() Reward {
	var reward Reward
	moved := false
	for r := 0; r < Size; r++ {
		row := b[r*Size : r*Size+Size]
		for c := 1; c < Size; c++ {
			tile, head := row[c], row[c-1]
			if tile == 0 {
				continue
			}
			switch {
			case head == 0:
				row[c-1], row[c] = tile, 0
				moved = true
			case head+tile == 3 && head != tile:
				row[c-1], row[c] = 3, 0
				reward += Reward(FaceValue(3))
				moved = true
			case head == tile && tile >= 3 && tile < MaxRank:
				row[c-1], row[c] = tile+1, 0
				reward += Reward(FaceValue(tile + 1))
				moved = true
			}
		}
	}
	if !moved {
		return Illegal
	}
	return reward
}

func (b *Board) slideRight() Reward {
	b.reflectHorizontal()
	reward := b.slideLeft()
	b.reflectHorizontal()
	return reward
}

func (b *Board) slideUp() Reward {
	b.transpose()
	reward := b.slideLeft()
	b.transpose()
	return reward
}

func (b *Board) slideDown() Reward {
	b.transpose()
	reward := b.slideRight()
	b.transpose()
	return reward
}

func (b *Board) transpose() {
	for r := 0; r < Size; r++ {
		for c := r + 1; c < Size; c++ {
			b[r*Size+c], b[c*Size+r] = b[c*Size+r], b[r*Size+c]
		}
	}
}

func (b *Board) reflectHorizontal() {
	for r := 0; r < Size; r++ {
		row := b[r*Size : r*Size+Size]
		row[0], row[3] = row[3], row[0]
		row[1], row[2] = row[2], row[1]
	}
}

// Empty returns the number of empty cells
func (b Board) Empty() int {
	n := 0
	for _, c := range b {
		if c == 0 {
			n++
		}
	}
	return n
}

// Max returns the highest rank on the board
func (b Board) Max() Cell {
	var m Cell
	for _, c := range b {
		if c > m {
			m = c
		}
	}
	return m
}

// Score returns the Threes score of the board: each tile of rank k >= 3 scores 3^(k-2)
func (b Board) Score() int {
	total := 0
	for _, c := range b {
		if c < 3 {
			continue
		}
		s := 1
		for i := Cell(2); i < c; i++ {
			s *= 3
		}
		total += s
	}
	return total
}

// FaceValue converts a rank to the number printed on the tile
func FaceValue(rank Cell) int {
	if rank < 3 {
		return int(rank)
	}
	return 3 << (rank - 3)
}

// RankOf converts a face value back to its rank
func RankOf(face int) (Cell, bool) {
	if face >= 0 && face < 3 {
		return Cell(face), true
	}
	for r := Cell(3); r <= MaxRank; r++ {
		if FaceValue(r) == face {
			return r, true
		}
	}
	return 0, false
}

// String renders the board as four rows of face values
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("+------------------------+\n")
	for r := 0; r < Size; r++ {
		sb.WriteString("|")
		for c := 0; c < Size; c++ {
			fmt.Fprintf(&sb, "%6d", FaceValue(b[r*Size+c]))
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("+------------------------+\n")
	return sb.String()
}
