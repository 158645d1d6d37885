package episode

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/threestd/threes/internal/board"
	"github.com/threestd/threes/pkg/agent"
)

// TileRate is the share of episodes whose largest tile is Tile
type TileRate struct {
	Tile  int     `json:"tile"`  // face value
	Reach float64 `json:"reach"` // fraction reaching at least this tile
	Exact float64 `json:"exact"` // fraction ending with exactly this tile as max
}

// Summary aggregates a block of episodes
type Summary struct {
	Index       int        `json:"index"`    // total episodes played when the block closed
	Episodes    int        `json:"episodes"` // episodes in the block
	MeanScore   float64    `json:"mean_score"`
	StdDevScore float64    `json:"stddev_score"`
	MaxScore    float64    `json:"max_score"`
	MeanSteps   float64    `json:"mean_steps"`
	OpsPerSec   float64    `json:"ops_per_sec"`
	Tiles       []TileRate `json:"tiles"`
}

// Summarize computes the statistics of records
func Summarize(index int, records []*Record) Summary {
	s := Summary{Index: index, Episodes: len(records)}
	if len(records) == 0 {
		return s
	}

	scores := make([]float64, len(records))
	steps := make([]float64, len(records))
	var counts [board.MaxRank + 1]int
	var ops int
	var elapsed time.Duration
	for i, r := range records {
		scores[i] = float64(r.Score)
		steps[i] = float64(r.Steps)
		counts[r.MaxTile()]++
		ops += len(r.Moves)
		elapsed += r.Duration()
	}

	s.MeanScore, s.StdDevScore = stat.MeanStdDev(scores, nil)
	if len(records) == 1 {
		s.StdDevScore = 0
	}
	s.MaxScore = floats.Max(scores)
	s.MeanSteps = stat.Mean(steps, nil)
	if elapsed > 0 {
		s.OpsPerSec = float64(ops) / elapsed.Seconds()
	}

	n := float64(len(records))
	reached := 0
	for rank := int(board.MaxRank); rank > 0; rank-- {
		reached += counts[rank]
		if counts[rank] == 0 {
			continue
		}
		s.Tiles = append(s.Tiles, TileRate{
			Tile:  board.FaceValue(board.Cell(rank)),
			Reach: float64(reached) / n,
			Exact: float64(counts[rank]) / n,
		})
	}
	// lowest tile first
	for i, j := 0, len(s.Tiles)-1; i < j; i, j = i+1, j-1 {
		s.Tiles[i], s.Tiles[j] = s.Tiles[j], s.Tiles[i]
	}
	return s
}

// String renders the block in the usual training-log layout
func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\tavg = %.0f, max = %.0f, ops = %.0f\n", s.Index, s.MeanScore, s.MaxScore, s.OpsPerSec)
	for _, t := range s.Tiles {
		fmt.Fprintf(&sb, "\t%d\t%.1f%%\t(%.1f%%)\n", t.Tile, t.Reach*100, t.Exact*100)
	}
	return sb.String()
}

// TrainOptions controls a training run
type TrainOptions struct {
	Total int // episodes to play (default 1000)
	Block int // episodes per summary (default 100)
}

// DefaultTrainOptions returns sensible defaults
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Total: 1000, Block: 100}
}

// SummaryCallback receives every completed block
type SummaryCallback func(Summary)

// Train plays opts.Total episodes and reports a Summary after every block.
// Learning happens in the player's CloseEpisode hook.
func Train(ctx context.Context, player, env agent.Agent, opts TrainOptions, callback SummaryCallback) error {
	if opts.Total <= 0 {
		opts.Total = 1000
	}
	if opts.Block <= 0 || opts.Block > opts.Total {
		opts.Block = opts.Total
	}

	block := make([]*Record, 0, opts.Block)
	for i := 1; i <= opts.Total; i++ {
		rec, err := Run(ctx, player, env)
		if err != nil {
			return fmt.Errorf("episode %d: %w", i, err)
		}
		block = append(block, rec)

		if len(block) == opts.Block || i == opts.Total {
			s := Summarize(i, block)
			if callback != nil {
				callback(s)
			} else {
				log.Printf("episodes %d-%d:\n%s", i-len(block)+1, i, s)
			}
			block = block[:0]
		}
	}
	return nil
}
