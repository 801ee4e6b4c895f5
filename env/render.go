package env

import (
	"strings"

	"github.com/brensch/maze3d/maze"
)

// RenderSlice returns a debug ASCII view of one Z-slice: 'A' agent,
// 'G' goal, '#' wall, '.' free. Diagnostic only; the exact layout
// carries no compatibility guarantee. z is clamped into range.
func (e *Env) RenderSlice(z int) string {
	if z < 0 {
		z = 0
	}
	if z >= e.grid.SZ() {
		z = e.grid.SZ() - 1
	}

	var sb strings.Builder
	for y := 0; y < e.grid.SY(); y++ {
		for x := 0; x < e.grid.SX(); x++ {
			p := maze.Vec3{X: x, Y: y, Z: z}
			switch {
			case p == e.agent:
				sb.WriteByte('A')
			case p == e.goal:
				sb.WriteByte('G')
			case e.grid.Wall(p):
				sb.WriteByte('#')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
