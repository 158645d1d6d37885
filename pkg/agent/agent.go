// Package agent implements the participants of a Threes episode.
//
// A Player slides tiles and learns from its episodes, an Environment drops
// new tiles after every slide, and a Dummy plays the first legal slide.
// All of them satisfy Agent, and New builds one from its Kind tag.
package agent

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/threestd/threes/internal/action"
	"github.com/threestd/threes/internal/board"
)

// Kind tags the closed set of agent variants
type Kind int

const (
	KindPlayer      Kind = iota // tuple-network TD learner
	KindEnvironment             // biased tile placer
	KindDummy                   // first legal slide in a fixed order
)

// String returns the name used on the command line
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnvironment:
		return "environment"
	case KindDummy:
		return "dummy"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindPlayer, KindEnvironment, KindDummy} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown agent kind %q", s)
}

// Agent is anything that takes part in an episode.
type Agent interface {
	Kind() Kind
	Name() string
	Role() string

	// OpenEpisode and CloseEpisode bracket every episode.
	OpenEpisode()
	CloseEpisode()

	// TakeAction picks the next action for b. last is the direction of the
	// player's most recent slide, or board.NoDirection at the start of an episode.
	TakeAction(b board.Board, last board.Direction) action.Action

	// Close releases the agent, persisting anything it was asked to save.
	Close() error
}

// New builds the agent variant named by kind
func New(kind Kind, cfg Config) (Agent, error) {
	switch kind {
	case KindPlayer:
		p, err := NewPlayer(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindEnvironment:
		return NewEnvironment(cfg), nil
	case KindDummy:
		return NewDummy(cfg), nil
	}
	return nil, fmt.Errorf("unknown agent kind %d", int(kind))
}

// meta carries the name and role shared by every variant
type meta struct {
	name string
	role string
}

func newMeta(cfg Config, name, role string) meta {
	m := meta{name: cfg.Name, role: cfg.Role}
	if m.name == "" {
		m.name = name
	}
	if m.role == "" {
		m.role = role
	}
	return m
}

func (m meta) Name() string { return m.name }
func (m meta) Role() string { return m.role }

// newRand seeds from the config, or from the clock when no seed was given
func newRand(cfg Config) *rand.Rand {
	seed := cfg.Seed
	if !cfg.HasSeed {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
