// Package maze generates perfect 3D mazes on a voxel grid.
//
// Mazes are carved with randomized depth-first search over odd-parity
// cells: odd coordinates are rooms, the even coordinate between two
// adjacent rooms is a wall that can be opened. The result is acyclic and
// fully connected, so exactly one simple path exists between any two
// carved cells.
package maze

// Vec3 is an integer grid coordinate or axis-aligned offset.
type Vec3 struct {
	X int
	Y int
	Z int
}

// Dirs is the fixed action/direction ordering: +X, -X, +Y, -Y, +Z, -Z.
// Observation encoding and the action space both index into this order,
// so it is a compatibility contract with trained models.
var Dirs = [6]Vec3{
	{1, 0, 0},
	{-1, 0, 0},
	{0, 1, 0},
	{0, -1, 0},
	{0, 0, 1},
	{0, 0, -1},
}

// Add returns a + b.
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

// Manhattan returns the L1 distance between a and b.
func Manhattan(a, b Vec3) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y) + abs(a.Z-b.Z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
