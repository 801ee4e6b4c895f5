// Package store archives maze episodes as parquet batches.
//
// One row per (episode, step). Rows are self-contained: they carry the
// observation the action was chosen from plus the reward signal, so a
// trainer can consume them without re-simulating the maze.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// EpisodeRow is a single recorded environment transition.
//
// Obs is the 18-float observation before the action. Action indexes the
// fixed direction order +X,-X,+Y,-Y,+Z,-Z. Outcome fields are repeated
// on every row of an episode so row groups stay filterable without a
// join.
type EpisodeRow struct {
	EpisodeID string `parquet:"episode_id,dict"`
	Step      int32  `parquet:"step"`

	SX int32 `parquet:"sx"`
	SY int32 `parquet:"sy"`
	SZ int32 `parquet:"sz"`

	// Seed is the maze seed, or -1 when the episode ran unseeded.
	Seed int64 `parquet:"seed"`

	Obs    []float32 `parquet:"obs"`
	Action int32     `parquet:"action"`
	Reward float32   `parquet:"reward"`
	Done   bool      `parquet:"done"`

	ReachedGoal bool    `parquet:"reached_goal"`
	TotalReward float32 `parquet:"total_reward"`

	// Source identifies the producer, e.g. "rollout" or "debug".
	Source string `parquet:"source,dict"`
	// ModelPath is the ONNX model that drove the policy, empty for
	// random baselines.
	ModelPath string `parquet:"model_path,dict,optional"`
}

// ReadEpisodeRows loads every row of one parquet batch.
func ReadEpisodeRows(path string) ([]EpisodeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[EpisodeRow](f)
	defer reader.Close()

	var out []EpisodeRow
	buf := make([]EpisodeRow, 256)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
}
