package maze

// Grid is a dense 3D voxel volume. Cells are either wall or free.
// Storage is a flat slice indexed by linearized (x,y,z) which keeps the
// carving loop allocation-free and makes bounds checks trivial.
//
// A Grid is immutable once returned by Generate; only the generator
// carves cells.
type Grid struct {
	sx, sy, sz int
	walls      []bool
}

func newGrid(sx, sy, sz int) *Grid {
	g := &Grid{
		sx:    sx,
		sy:    sy,
		sz:    sz,
		walls: make([]bool, sx*sy*sz),
	}
	for i := range g.walls {
		g.walls[i] = true
	}
	return g
}

// SX returns the grid extent along X.
func (g *Grid) SX() int { return g.sx }

// SY returns the grid extent along Y.
func (g *Grid) SY() int { return g.sy }

// SZ returns the grid extent along Z.
func (g *Grid) SZ() int { return g.sz }

func (g *Grid) idx(x, y, z int) int {
	return (x*g.sy+y)*g.sz + z
}

// InBounds reports whether p lies inside the volume.
func (g *Grid) InBounds(p Vec3) bool {
	return p.X >= 0 && p.X < g.sx &&
		p.Y >= 0 && p.Y < g.sy &&
		p.Z >= 0 && p.Z < g.sz
}

// Wall reports whether p is a wall cell. Positions outside the volume
// are treated as wall, so callers never need a separate bounds check.
func (g *Grid) Wall(p Vec3) bool {
	if !g.InBounds(p) {
		return true
	}
	return g.walls[g.idx(p.X, p.Y, p.Z)]
}

// Free reports whether p is a carved, in-bounds cell.
func (g *Grid) Free(p Vec3) bool {
	return !g.Wall(p)
}

// FreeCount returns the number of carved cells.
func (g *Grid) FreeCount() int {
	n := 0
	for _, w := range g.walls {
		if !w {
			n++
		}
	}
	return n
}

func (g *Grid) carve(p Vec3) {
	g.walls[g.idx(p.X, p.Y, p.Z)] = false
}
