package rollout

import (
	"context"
	"fmt"

	"github.com/brensch/maze3d/env"
)

// Transition is one recorded step of an episode.
type Transition struct {
	Obs    []float32
	Action int
	Reward float32
	Done   bool
}

// EpisodeResult summarizes one finished episode.
type EpisodeResult struct {
	Steps       int
	TotalReward float32
	ReachedGoal bool

	// Transitions is populated only when Options.Record is set.
	Transitions []Transition
}

// Progress is delivered to Options.OnStep after each step.
type Progress struct {
	Step   int
	Action int
	Reward float32
	Done   bool
}

// Options controls episode playback.
type Options struct {
	// Record keeps every transition in the result, for archiving.
	Record bool
	// OnStep, if set, is called after each step. Used by the debug
	// harness to render slices as the episode unfolds.
	OnStep func(Progress)
}

// PlayEpisode resets e and steps it with actions from policy until the
// episode terminates or ctx is cancelled. The environment is owned by
// the calling worker; PlayEpisode never shares it.
func PlayEpisode(ctx context.Context, e *env.Env, policy Policy, opts Options) (EpisodeResult, error) {
	obs := e.Reset()

	var result EpisodeResult
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		action, err := policy.SelectAction(obs)
		if err != nil {
			return result, fmt.Errorf("select action at step %d: %w", result.Steps, err)
		}

		res := e.Step(action)
		result.Steps++
		result.TotalReward += res.Reward

		if opts.Record {
			// Record the observation the action was chosen from.
			recorded := make([]float32, len(obs))
			copy(recorded, obs)
			result.Transitions = append(result.Transitions, Transition{
				Obs:    recorded,
				Action: action,
				Reward: res.Reward,
				Done:   res.Done,
			})
		}
		if opts.OnStep != nil {
			opts.OnStep(Progress{Step: result.Steps, Action: action, Reward: res.Reward, Done: res.Done})
		}

		obs = res.Obs
		if res.Done {
			result.ReachedGoal = e.Agent() == e.Goal()
			return result, nil
		}
	}
}
