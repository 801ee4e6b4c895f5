package rollout

import (
	"context"
	"testing"

	"github.com/brensch/maze3d/env"
)

func seedPtr(s int64) *int64 { return &s }

func TestPlayEpisodeTerminates(t *testing.T) {
	e, err := env.New(env.Config{SX: 7, SY: 7, SZ: 3, MaxSteps: 200, Seed: seedPtr(3)})
	if err != nil {
		t.Fatal(err)
	}

	result, err := PlayEpisode(context.Background(), e, NewRandomPolicy(1), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Steps < 1 || result.Steps > 200 {
		t.Fatalf("episode ran %d steps, want 1..200", result.Steps)
	}
	if result.ReachedGoal && e.Agent() != e.Goal() {
		t.Fatal("reached-goal flag set but agent is not at goal")
	}
}

func TestPlayEpisodeRecordsTransitions(t *testing.T) {
	e, err := env.New(env.Config{SX: 5, SY: 5, SZ: 3, MaxSteps: 50, Seed: seedPtr(42)})
	if err != nil {
		t.Fatal(err)
	}

	result, err := PlayEpisode(context.Background(), e, NewRandomPolicy(7), Options{Record: true})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Transitions) != result.Steps {
		t.Fatalf("recorded %d transitions for %d steps", len(result.Transitions), result.Steps)
	}

	var total float32
	for i, tr := range result.Transitions {
		if len(tr.Obs) != env.ObsSize {
			t.Fatalf("transition %d obs length %d, want %d", i, len(tr.Obs), env.ObsSize)
		}
		if tr.Action < 0 || tr.Action >= env.NumActions {
			t.Fatalf("transition %d action %d out of range", i, tr.Action)
		}
		if tr.Done != (i == len(result.Transitions)-1) {
			t.Fatalf("done flag set mid-episode at transition %d", i)
		}
		total += tr.Reward
	}
	if total != result.TotalReward {
		t.Fatalf("transition rewards sum to %v, result says %v", total, result.TotalReward)
	}
}

func TestPlayEpisodeDeterministicWithSeeds(t *testing.T) {
	run := func() EpisodeResult {
		e, err := env.New(env.Config{SX: 7, SY: 7, SZ: 3, MaxSteps: 100, Seed: seedPtr(5)})
		if err != nil {
			t.Fatal(err)
		}
		result, err := PlayEpisode(context.Background(), e, NewRandomPolicy(5), Options{})
		if err != nil {
			t.Fatal(err)
		}
		return result
	}

	a, b := run(), run()
	if a.Steps != b.Steps || a.TotalReward != b.TotalReward || a.ReachedGoal != b.ReachedGoal {
		t.Fatalf("seeded runs differ: %+v vs %+v", a, b)
	}
}

func TestPlayEpisodeHonorsContext(t *testing.T) {
	e, err := env.New(env.Config{SX: 11, SY: 11, SZ: 5, MaxSteps: 100000, Seed: seedPtr(1)})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := PlayEpisode(ctx, e, NewRandomPolicy(1), Options{}); err == nil {
		t.Fatal("cancelled context did not abort the episode")
	}
}

type fixedPredictor struct{ q []float32 }

func (p fixedPredictor) Predict(_ []float32) ([]float32, error) { return p.q, nil }

func TestGreedyPolicyArgmax(t *testing.T) {
	p := &GreedyPolicy{Client: fixedPredictor{q: []float32{-1, 0.5, 3, 3, -2, 0}}}
	action, err := p.SelectAction(make([]float32, env.ObsSize))
	if err != nil {
		t.Fatal(err)
	}
	// Ties break toward the lower index.
	if action != 2 {
		t.Fatalf("action = %d, want 2", action)
	}
}

func TestGreedyPolicyRejectsBadWidth(t *testing.T) {
	p := &GreedyPolicy{Client: fixedPredictor{q: []float32{1, 2}}}
	if _, err := p.SelectAction(make([]float32, env.ObsSize)); err == nil {
		t.Fatal("accepted wrong q-value width")
	}
}
