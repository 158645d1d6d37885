// Package episode drives Threes games between a player and an environment
// and aggregates their results.
package episode

import (
	"context"
	"fmt"
	"time"

	"github.com/threestd/threes/internal/action"
	"github.com/threestd/threes/internal/board"
	"github.com/threestd/threes/pkg/agent"
)

// InitialTiles is the number of tiles the environment places before the first slide
const InitialTiles = 9

// Move is one applied action
type Move struct {
	Action  action.Action
	Reward  board.Reward
	Elapsed time.Duration // time the agent took to choose
}

// Record is the history of a finished episode
type Record struct {
	Moves []Move
	Final board.Board
	Score int // sum of slide rewards
	Steps int // number of slides
	Start time.Time
	End   time.Time
}

// Duration returns the wall time of the episode
func (r *Record) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// MaxTile returns the highest rank reached
func (r *Record) MaxTile() board.Cell {
	return r.Final.Max()
}

// Run plays one episode from an empty board.
//
// The environment fills the opening tiles, then player and environment
// alternate until one of them has no action. The direction of each slide is
// handed to the environment for the placement that follows it. Both agents'
// CloseEpisode hooks run when the game ends, which is where the player learns.
// A cancelled context stops the episode without closing it.
func Run(ctx context.Context, player, env agent.Agent) (*Record, error) {
	player.OpenEpisode()
	env.OpenEpisode()

	rec := &Record{Start: time.Now()}
	var b board.Board
	last := board.NoDirection

	apply := func(who agent.Agent, a action.Action, started time.Time) error {
		r := a.Apply(&b)
		if r == board.Illegal {
			return fmt.Errorf("%s played illegal action %v on\n%v", who.Name(), a, b)
		}
		rec.Moves = append(rec.Moves, Move{Action: a, Reward: r, Elapsed: time.Since(started)})
		return nil
	}

	for i := 0; i < InitialTiles; i++ {
		started := time.Now()
		a := env.TakeAction(b, board.NoDirection)
		if a.IsNone() {
			break
		}
		if err := apply(env, a, started); err != nil {
			return rec, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			rec.Final, rec.End = b, time.Now()
			return rec, err
		}

		started := time.Now()
		a := player.TakeAction(b, last)
		if a.IsNone() {
			break
		}
		if err := apply(player, a, started); err != nil {
			return rec, err
		}
		rec.Score += int(rec.Moves[len(rec.Moves)-1].Reward)
		rec.Steps++
		last = a.Direction()

		started = time.Now()
		p := env.TakeAction(b, last)
		if p.IsNone() {
			break
		}
		if err := apply(env, p, started); err != nil {
			return rec, err
		}
	}

	rec.Final, rec.End = b, time.Now()
	player.CloseEpisode()
	env.CloseEpisode()
	return rec, nil
}
