package agent

import (
	"github.com/threestd/threes/internal/action"
	"github.com/threestd/threes/internal/board"
)

// Dummy plays the first legal slide in EvaluationOrder. It is a baseline
// for the learning player and keeps no state between moves.
type Dummy struct {
	meta
}

// NewDummy builds a dummy player
func NewDummy(cfg Config) *Dummy {
	return &Dummy{meta: newMeta(cfg, "dummy", "player")}
}

func (d *Dummy) Kind() Kind { return KindDummy }
func (d *Dummy) OpenEpisode() {}
func (d *Dummy) CloseEpisode() {}
func (d *Dummy) Close() error { return nil }

// TakeAction implements Agent
func (d *Dummy) TakeAction(b board.Board, _ board.Direction) action.Action {
	for _, dir := range EvaluationOrder {
		after := b
		if after.Slide(dir) != board.Illegal {
			return action.Slide(dir)
		}
	}
	return action.None()
}
