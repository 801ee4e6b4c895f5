package rollout

import (
	"github.com/brensch/maze3d/env"
	"github.com/brensch/maze3d/store"
)

// BuildRows converts a recorded episode into parquet rows.
func BuildRows(episodeID string, cfg env.Config, result EpisodeResult, source, modelPath string) []store.EpisodeRow {
	seed := int64(-1)
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	rows := make([]store.EpisodeRow, 0, len(result.Transitions))
	for i, tr := range result.Transitions {
		rows = append(rows, store.EpisodeRow{
			EpisodeID:   episodeID,
			Step:        int32(i + 1),
			SX:          int32(cfg.SX),
			SY:          int32(cfg.SY),
			SZ:          int32(cfg.SZ),
			Seed:        seed,
			Obs:         tr.Obs,
			Action:      int32(tr.Action),
			Reward:      tr.Reward,
			Done:        tr.Done,
			ReachedGoal: result.ReachedGoal,
			TotalReward: result.TotalReward,
			Source:      source,
			ModelPath:   modelPath,
		})
	}
	return rows
}
