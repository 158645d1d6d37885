package agent

import (
	"fmt"
	"log"

	"github.com/threestd/threes/internal/action"
	"github.com/threestd/threes/internal/board"
	"github.com/threestd/threes/internal/ntuple"
	"github.com/threestd/threes/internal/weights"
)

// EvaluationOrder is the order in which candidate slides are scored.
// Ties keep the earliest direction.
var EvaluationOrder = [4]board.Direction{board.Down, board.Left, board.Right, board.Up}

// Step is one move of the trajectory: the afterstate and the reward of reaching it
type Step struct {
	After  board.Board
	Reward board.Reward
}

// Player picks the slide with the best reward plus afterstate value and
// learns the afterstate values by TD(0) at the end of every episode.
type Player struct {
	meta
	net        *ntuple.Network
	alpha      float32
	save       string
	trajectory []Step
}

// NewPlayer builds a player on the default 6-tuple network.
// Weights come from cfg.Load when set, and start at zero otherwise.
func NewPlayer(cfg Config) (*Player, error) {
	var store *weights.Store
	if cfg.Load != "" {
		s, err := weights.Load(cfg.Load, ntuple.NewFamily(ntuple.DefaultPatterns[0]).TableSize())
		if err != nil {
			return nil, fmt.Errorf("loading player weights: %w", err)
		}
		store = s
		log.Printf("Loaded weights from %s: %v", cfg.Load, store.Stats())
	} else {
		store = ntuple.NewDefaultStore()
	}

	net, err := ntuple.Default(store)
	if err != nil {
		return nil, fmt.Errorf("building tuple network: %w", err)
	}
	return NewPlayerWithNetwork(cfg, net), nil
}

// NewPlayerWithNetwork builds a player on an existing network
func NewPlayerWithNetwork(cfg Config, net *ntuple.Network) *Player {
	return &Player{
		meta:  newMeta(cfg, "weight", "player"),
		net:   net,
		alpha: cfg.Alpha,
		save:  cfg.Save,
	}
}

// Kind implements Agent
func (p *Player) Kind() Kind { return KindPlayer }

// Network returns the value network of the player
func (p *Player) Network() *ntuple.Network { return p.net }

// Trajectory returns the moves recorded since the episode opened
func (p *Player) Trajectory() []Step { return p.trajectory }

// OpenEpisode drops any trajectory left from an unfinished episode
func (p *Player) OpenEpisode() {
	p.trajectory = p.trajectory[:0]
}

// CloseEpisode trains on the episode's trajectory
func (p *Player) CloseEpisode() {
	if len(p.trajectory) == 0 {
		return
	}
	p.Train()
}

// TakeAction implements Agent
func (p *Player) TakeAction(b board.Board, _ board.Direction) action.Action {
	a, _ := p.SelectMove(b)
	return a
}

// SelectMove scores every legal slide of b as reward + Value(afterstate)
// and records the best one in the trajectory. With no legal slide it
// returns a None action and leaves the trajectory alone.
func (p *Player) SelectMove(b board.Board) (action.Action, board.Direction) {
	var (
		best      Step
		bestDir   = board.NoDirection
		bestValue float32
	)
	for _, d := range EvaluationOrder {
		after := b
		reward := after.Slide(d)
		if reward == board.Illegal {
			continue
		}
		v := float32(reward) + p.net.Value(after)
		if bestDir == board.NoDirection || v > bestValue {
			best = Step{After: after, Reward: reward}
			bestDir, bestValue = d, v
		}
	}
	if bestDir == board.NoDirection {
		return action.None(), board.NoDirection
	}
	p.trajectory = append(p.trajectory, best)
	return action.Slide(bestDir), bestDir
}

// Train runs one backward TD(0) pass over the trajectory and empties it.
//
// The last afterstate is pulled toward 0, the value after the game ends.
// Walking back, each earlier afterstate is pulled toward the reward of the
// following move plus the following afterstate's value, which has already
// been updated in this pass. The error is spread evenly over the entries
// addressed by the updated state.
//
// The trajectory must not be empty.
func (p *Player) Train() {
	if len(p.trajectory) == 0 {
		panic("agent: Train called with an empty trajectory")
	}
	scale := p.alpha / float32(p.net.Instances())

	last := p.trajectory[len(p.trajectory)-1].After
	p.net.Adjust(last, (0-p.net.Value(last))*scale)

	for i := len(p.trajectory) - 1; i > 0; i-- {
		next, prev := p.trajectory[i], p.trajectory[i-1]
		delta := (p.net.Value(next.After) - p.net.Value(prev.After) + float32(next.Reward)) * scale
		p.net.Adjust(prev.After, delta)
		p.trajectory = p.trajectory[:i]
	}
	p.trajectory = p.trajectory[:0]
}

// Close saves the weights when a save path was configured
func (p *Player) Close() error {
	if p.save == "" {
		return nil
	}
	if err := p.net.Store().Save(p.save); err != nil {
		return fmt.Errorf("saving player weights: %w", err)
	}
	log.Printf("Saved weights to %s", p.save)
	return nil
}
