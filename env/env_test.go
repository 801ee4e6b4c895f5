package env

import (
	"math"
	"math/rand"
	"testing"

	"github.com/brensch/maze3d/maze"
)

func seedPtr(s int64) *int64 { return &s }

func mustEnv(t *testing.T, cfg Config) *Env {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%+v): %v", cfg, err)
	}
	return e
}

func approx(t *testing.T, got, want float32, label string) {
	t.Helper()
	if math.Abs(float64(got-want)) > 1e-5 {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{SX: 0, SY: 5, SZ: 5, MaxSteps: 10},
		{SX: 5, SY: -1, SZ: 5, MaxSteps: 10},
		{SX: 5, SY: 5, SZ: 0, MaxSteps: 10},
		{SX: 5, SY: 5, SZ: 5, MaxSteps: 0},
	}
	for _, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) accepted invalid config", cfg)
		}
	}
}

func TestResetReturnsInitialObservation(t *testing.T) {
	e := mustEnv(t, Config{SX: 11, SY: 11, SZ: 5, MaxSteps: 100, Seed: seedPtr(42)})
	obs := e.Reset()
	if len(obs) != ObsSize {
		t.Fatalf("observation length %d, want %d", len(obs), ObsSize)
	}
	if e.Agent() != (maze.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Fatalf("agent after reset = %v, want (1,1,1)", e.Agent())
	}
	if e.Steps() != 0 {
		t.Fatalf("steps after reset = %d, want 0", e.Steps())
	}
	// Last move starts zeroed.
	if obs[15] != 0 || obs[16] != 0 || obs[17] != 0 {
		t.Fatalf("last-move slots not zero after reset: %v", obs[15:18])
	}
}

func TestResetWithSeedReplaysSameMaze(t *testing.T) {
	e := mustEnv(t, Config{SX: 11, SY: 11, SZ: 5, MaxSteps: 100, Seed: seedPtr(9)})
	goal1 := e.Goal()
	grid1 := e.Grid()
	e.Reset()
	if e.Goal() != goal1 {
		t.Fatalf("seeded reset changed goal: %v vs %v", goal1, e.Goal())
	}
	grid2 := e.Grid()
	for x := 0; x < grid1.SX(); x++ {
		for y := 0; y < grid1.SY(); y++ {
			for z := 0; z < grid1.SZ(); z++ {
				p := maze.Vec3{X: x, Y: y, Z: z}
				if grid1.Wall(p) != grid2.Wall(p) {
					t.Fatalf("seeded reset changed grid at %v", p)
				}
			}
		}
	}
}

// At the (1,1,1) start corner the -X, -Y, and -Z neighbors are always
// boundary walls, so a blocked step is available in every maze.
func TestStepWallBumpReward(t *testing.T) {
	e := mustEnv(t, Config{SX: 5, SY: 5, SZ: 3, MaxSteps: 100, Seed: seedPtr(42)})

	res := e.Step(ActionNegX)
	approx(t, res.Reward, -0.21, "wall bump reward")
	if e.Agent() != (maze.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Fatalf("agent moved into wall: %v", e.Agent())
	}
	if res.Obs[15] != 0 || res.Obs[16] != 0 || res.Obs[17] != 0 {
		t.Fatalf("last move not zeroed after bump: %v", res.Obs[15:18])
	}
	if res.Done {
		t.Fatal("wall bump ended the episode")
	}
}

func TestStepMoveRewardAndLastMove(t *testing.T) {
	e := mustEnv(t, Config{SX: 5, SY: 5, SZ: 3, MaxSteps: 100, Seed: seedPtr(42)})

	// Find any open direction from the start.
	action := -1
	for i, d := range maze.Dirs {
		if e.Grid().Free(e.Agent().Add(d)) {
			action = i
			break
		}
	}
	if action == -1 {
		t.Fatalf("no open direction from start:\n%s", e.RenderSlice(1))
	}

	prevDist := maze.Manhattan(e.Agent(), e.Goal())
	res := e.Step(action)
	newDist := maze.Manhattan(e.Agent(), e.Goal())

	want := float32(-0.01) + float32(prevDist-newDist)*0.10
	approx(t, res.Reward, want, "move reward")

	d := maze.Dirs[action]
	if res.Obs[15] != float32(d.X) || res.Obs[16] != float32(d.Y) || res.Obs[17] != float32(d.Z) {
		t.Fatalf("last move %v does not match action %d (%v)", res.Obs[15:18], action, d)
	}
}

func TestStepOutOfRangeActionClampsToZero(t *testing.T) {
	cfg := Config{SX: 5, SY: 5, SZ: 3, MaxSteps: 100, Seed: seedPtr(42)}
	a := mustEnv(t, cfg)
	b := mustEnv(t, cfg)

	ra := a.Step(99)
	rb := b.Step(ActionPosX)

	approx(t, ra.Reward, rb.Reward, "clamped action reward")
	if a.Agent() != b.Agent() {
		t.Fatalf("clamped action agent %v, action 0 agent %v", a.Agent(), b.Agent())
	}

	rc := a.Step(-3)
	rd := b.Step(ActionPosX)
	approx(t, rc.Reward, rd.Reward, "negative action reward")
}

// Walking a shortest free path to the goal must terminate with the goal
// bonus applied on the final step.
func TestStepReachGoal(t *testing.T) {
	e := mustEnv(t, Config{SX: 5, SY: 5, SZ: 3, MaxSteps: 1000, Seed: seedPtr(42)})

	path := findPath(e.Grid(), e.Agent(), e.Goal())
	if path == nil {
		t.Fatalf("no path from %v to %v", e.Agent(), e.Goal())
	}

	var res StepResult
	for i, action := range path {
		prevDist := maze.Manhattan(e.Agent(), e.Goal())
		res = e.Step(action)
		newDist := maze.Manhattan(e.Agent(), e.Goal())

		want := float32(-0.01) + float32(prevDist-newDist)*0.10
		if i == len(path)-1 {
			want += 10.0
		}
		approx(t, res.Reward, want, "path step reward")
	}

	if !res.Done {
		t.Fatal("episode not done after reaching goal")
	}
	if e.Agent() != e.Goal() {
		t.Fatalf("agent %v != goal %v after path", e.Agent(), e.Goal())
	}
}

// End-to-end sanity scenario on a small fixed maze.
func TestStepFirstMoveScenario(t *testing.T) {
	e := mustEnv(t, Config{SX: 5, SY: 5, SZ: 3, MaxSteps: 100, Seed: seedPtr(42)})

	start := maze.Vec3{X: 1, Y: 1, Z: 1}
	if e.Agent() != start {
		t.Fatalf("agent = %v, want %v", e.Agent(), start)
	}

	next := maze.Vec3{X: 2, Y: 1, Z: 1}
	free := e.Grid().Free(next)
	prevDist := maze.Manhattan(e.Agent(), e.Goal())

	res := e.Step(ActionPosX)
	if free {
		if e.Agent() != next {
			t.Fatalf("agent = %v, want %v", e.Agent(), next)
		}
		newDist := maze.Manhattan(e.Agent(), e.Goal())
		approx(t, res.Reward, -0.01+float32(prevDist-newDist)*0.10, "open move reward")
	} else {
		if e.Agent() != start {
			t.Fatalf("agent = %v, want %v", e.Agent(), start)
		}
		approx(t, res.Reward, -0.21, "blocked move reward")
	}
}

func TestStepTimeout(t *testing.T) {
	e := mustEnv(t, Config{SX: 5, SY: 5, SZ: 3, MaxSteps: 3, Seed: seedPtr(42)})

	// Bump the always-walled -X direction so the agent never reaches the
	// goal before the step budget runs out.
	for i := 1; i <= 3; i++ {
		res := e.Step(ActionNegX)
		if i < 3 && res.Done {
			t.Fatalf("done at step %d, before max steps", i)
		}
		if i == 3 && !res.Done {
			t.Fatal("not done at max steps")
		}
	}
	if e.Steps() != 3 {
		t.Fatalf("steps = %d, want 3", e.Steps())
	}
}

func TestStepBoundsSafety(t *testing.T) {
	e := mustEnv(t, Config{SX: 7, SY: 7, SZ: 3, MaxSteps: 500, Seed: seedPtr(5)})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		res := e.Step(rng.Intn(NumActions))
		p := e.Agent()
		g := e.Grid()
		if p.X < 0 || p.X >= g.SX() || p.Y < 0 || p.Y >= g.SY() || p.Z < 0 || p.Z >= g.SZ() {
			t.Fatalf("agent out of bounds at %v after step %d", p, i)
		}
		if g.Wall(p) {
			t.Fatalf("agent inside wall at %v", p)
		}
		if res.Done {
			e.Reset()
		}
	}
}

func TestObservationShapeAndRange(t *testing.T) {
	e := mustEnv(t, Config{SX: 9, SY: 9, SZ: 5, MaxSteps: 200, Seed: seedPtr(11)})
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 200; i++ {
		res := e.Step(rng.Intn(NumActions))
		obs := res.Obs
		if len(obs) != ObsSize {
			t.Fatalf("observation length %d, want %d", len(obs), ObsSize)
		}
		for j := 0; j < 12; j++ {
			if obs[j] != 0 && obs[j] != 1 {
				t.Fatalf("obs[%d] = %v, want 0 or 1", j, obs[j])
			}
		}
		for j := 15; j < 18; j++ {
			if obs[j] != -1 && obs[j] != 0 && obs[j] != 1 {
				t.Fatalf("obs[%d] = %v, want -1, 0 or 1", j, obs[j])
			}
		}
		if res.Done {
			e.Reset()
		}
	}
}

func TestObservationGoalFlags(t *testing.T) {
	e := mustEnv(t, Config{SX: 9, SY: 9, SZ: 5, MaxSteps: 200, Seed: seedPtr(11)})
	obs := e.Observation()

	g, a := e.Goal(), e.Agent()
	checks := []struct {
		idx  int
		want bool
	}{
		{6, g.X > a.X}, {7, g.X < a.X},
		{8, g.Y > a.Y}, {9, g.Y < a.Y},
		{10, g.Z > a.Z}, {11, g.Z < a.Z},
	}
	for _, c := range checks {
		want := float32(0)
		if c.want {
			want = 1
		}
		if obs[c.idx] != want {
			t.Errorf("obs[%d] = %v, want %v (goal %v agent %v)", c.idx, obs[c.idx], want, g, a)
		}
	}
}

func TestRenderSliceMarksAgentAndGoal(t *testing.T) {
	e := mustEnv(t, Config{SX: 5, SY: 5, SZ: 3, MaxSteps: 100, Seed: seedPtr(42)})

	out := e.RenderSlice(e.Agent().Z)
	if !containsByte(out, 'A') {
		t.Fatalf("agent marker missing:\n%s", out)
	}
	goalSlice := e.RenderSlice(e.Goal().Z)
	if !containsByte(goalSlice, 'G') {
		t.Fatalf("goal marker missing:\n%s", goalSlice)
	}

	// Out-of-range z is clamped, not an error.
	_ = e.RenderSlice(-1)
	_ = e.RenderSlice(999)
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

// findPath BFSes the free cells and returns the action sequence from
// 'from' to 'to', or nil if unreachable.
func findPath(g *maze.Grid, from, to maze.Vec3) []int {
	type node struct {
		pos    maze.Vec3
		parent maze.Vec3
		action int
	}
	prev := map[maze.Vec3]node{from: {pos: from, action: -1}}
	queue := []maze.Vec3{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			var actions []int
			for p := cur; p != from; p = prev[p].parent {
				actions = append([]int{prev[p].action}, actions...)
			}
			return actions
		}
		for i, d := range maze.Dirs {
			n := cur.Add(d)
			if g.Wall(n) {
				continue
			}
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = node{pos: n, parent: cur, action: i}
			queue = append(queue, n)
		}
	}
	return nil
}
