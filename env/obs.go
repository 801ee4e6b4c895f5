package env

import "github.com/brensch/maze3d/maze"

// ObsSize is the fixed observation width. The layout below is the
// interface trained models are built against; order and sign
// conventions must never change.
//
//	[0..5]   danger flags per direction (+X,-X,+Y,-Y,+Z,-Z): 1 if that
//	         step hits a wall or leaves the grid
//	[6..11]  goal-relative flags: goal>agent then goal<agent, per axis
//	[12..14] signed goal offset per axis, scaled by 1/(dim-1)
//	[15..17] last-move vector components
const ObsSize = 18

// Observation encodes the current state into a fresh 18-float slice.
// It is a pure function of grid, agent, goal, and last move, recomputed
// on every call.
func (e *Env) Observation() []float32 {
	obs := make([]float32, ObsSize)

	for i, d := range maze.Dirs {
		if e.grid.Wall(e.agent.Add(d)) {
			obs[i] = 1.0
		}
	}

	g, a := e.goal, e.agent
	rel := [6]bool{g.X > a.X, g.X < a.X, g.Y > a.Y, g.Y < a.Y, g.Z > a.Z, g.Z < a.Z}
	for i, v := range rel {
		if v {
			obs[6+i] = 1.0
		}
	}

	// Unclamped linear scaling; the max(1, dim-1) divisor guards the
	// degenerate single-layer axis.
	obs[12] = float32(g.X-a.X) / float32(max(1, e.grid.SX()-1))
	obs[13] = float32(g.Y-a.Y) / float32(max(1, e.grid.SY()-1))
	obs[14] = float32(g.Z-a.Z) / float32(max(1, e.grid.SZ()-1))

	obs[15] = float32(e.lastMove.X)
	obs[16] = float32(e.lastMove.Y)
	obs[17] = float32(e.lastMove.Z)

	return obs
}
