// Package env implements the 3D maze reinforcement-learning environment.
//
// An Env owns one maze episode at a time: a grid from the maze package,
// the agent and goal positions, the last move taken, and a bounded step
// counter. Reset replaces the whole episode; Step advances it. The
// environment is single-threaded by design — a training loop running
// parallel episodes holds one Env per worker, each with its own seed
// stream.
package env

import (
	"fmt"

	"github.com/brensch/maze3d/maze"
)

// Action indices, matching maze.Dirs ordering.
const (
	ActionPosX = 0
	ActionNegX = 1
	ActionPosY = 2
	ActionNegY = 3
	ActionPosZ = 4
	ActionNegZ = 5

	NumActions = 6
)

// Reward terms. The per-step cost biases the agent toward short
// solutions, the shaping term rewards net progress toward the goal, and
// the wall penalty discourages bumping.
const (
	stepCost     float32 = -0.01
	wallPenalty  float32 = -0.20
	shapingScale float32 = 0.10
	goalBonus    float32 = 10.0
)

// Config holds the process-wide environment configuration. Seed is
// optional; when set, every Reset replays the identical maze so a run is
// fully reproducible.
type Config struct {
	SX       int
	SY       int
	SZ       int
	MaxSteps int
	Seed     *int64
}

func (c Config) validate() error {
	if c.SX < 1 || c.SY < 1 || c.SZ < 1 {
		return fmt.Errorf("env: grid dimensions must be positive, got %dx%dx%d", c.SX, c.SY, c.SZ)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("env: max steps must be positive, got %d", c.MaxSteps)
	}
	return nil
}

// StepResult is the outcome of one Step call.
type StepResult struct {
	Obs    []float32
	Reward float32
	Done   bool
}

// Env is a single maze episode state machine.
type Env struct {
	cfg Config

	grid     *maze.Grid
	agent    maze.Vec3
	goal     maze.Vec3
	lastMove maze.Vec3
	steps    int
}

// New validates cfg and returns an environment with its first episode
// already generated, so the zero observation is available immediately
// via Reset or Observation.
func New(cfg Config) (*Env, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Env{cfg: cfg}
	e.Reset()
	return e, nil
}

// Reset discards the current episode wholesale: a fresh maze is carved,
// the agent returns to the generated start, the goal is re-selected, and
// counters clear. Returns the initial observation.
func (e *Env) Reset() []float32 {
	e.grid, e.agent, e.goal = maze.Generate(e.cfg.SX, e.cfg.SY, e.cfg.SZ, e.cfg.Seed)
	e.steps = 0
	e.lastMove = maze.Vec3{}
	return e.Observation()
}

// Step applies one action and returns the resulting observation, reward,
// and done flag.
//
// Out-of-range actions are coerced to action 0 rather than rejected.
// This permissive default is a compatibility contract with existing
// callers, not an oversight; harden it only deliberately. Wall bumps are
// likewise a normal outcome, not an error: the agent stays put, the wall
// penalty applies, and the last-move vector zeroes.
func (e *Env) Step(action int) StepResult {
	e.steps++

	reward := stepCost
	done := false

	prevDist := maze.Manhattan(e.agent, e.goal)

	if action < 0 || action >= NumActions {
		action = 0
	}

	next := e.agent.Add(maze.Dirs[action])
	if e.grid.Wall(next) {
		reward += wallPenalty
		e.lastMove = maze.Vec3{}
	} else {
		e.agent = next
		e.lastMove = maze.Dirs[action]
	}

	// Zero for a wall bump since the position did not change.
	newDist := maze.Manhattan(e.agent, e.goal)
	reward += float32(prevDist-newDist) * shapingScale

	if e.agent == e.goal {
		reward += goalBonus
		done = true
	}

	// Truncation is independent of the goal check; both can fire on the
	// same step.
	if e.steps >= e.cfg.MaxSteps {
		done = true
	}

	return StepResult{Obs: e.Observation(), Reward: reward, Done: done}
}

// Agent returns the current agent position.
func (e *Env) Agent() maze.Vec3 { return e.agent }

// Goal returns the current goal position.
func (e *Env) Goal() maze.Vec3 { return e.goal }

// Grid returns the current episode's grid.
func (e *Env) Grid() *maze.Grid { return e.grid }

// Steps returns the number of steps taken this episode.
func (e *Env) Steps() int { return e.steps }

// MaxSteps returns the configured episode length bound.
func (e *Env) MaxSteps() int { return e.cfg.MaxSteps }
