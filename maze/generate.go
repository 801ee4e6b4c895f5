package maze

import (
	"fmt"
	"math/rand"
	"time"
)

// Generate carves a perfect maze into a fresh grid and returns it along
// with the start cell and a goal cell.
//
// Even dimensions are incremented by one before carving; odd-cell carving
// needs every room on odd coordinates with a wall slot between any two
// rooms. The start is always (1,1,1). The goal is the first interior free
// cell, in x-outer scan order, that maximizes Manhattan distance from the
// start. The scan-order tie-break is load-bearing for trained models and
// must not change.
//
// A non-nil seed makes the output fully reproducible: the same seed
// always yields an identical grid, start, and goal. Randomness is scoped
// to this call, never to package or process state, so concurrent
// generators do not perturb each other's sequences.
//
// Non-positive dimensions are a programmer error and panic; validate
// configuration before calling.
func Generate(sx, sy, sz int, seed *int64) (*Grid, Vec3, Vec3) {
	if sx < 1 || sy < 1 || sz < 1 {
		panic(fmt.Sprintf("maze: dimensions must be positive, got %dx%dx%d", sx, sy, sz))
	}

	if sx%2 == 0 {
		sx++
	}
	if sy%2 == 0 {
		sy++
	}
	if sz%2 == 0 {
		sz++
	}

	var src rand.Source
	if seed != nil {
		src = rand.NewSource(*seed)
	} else {
		src = rand.NewSource(time.Now().UnixNano())
	}
	rng := rand.New(src)

	g := newGrid(sx, sy, sz)
	start := Vec3{1, 1, 1}

	visited := make([]bool, sx*sy*sz)
	stack := []Vec3{start}
	g.carve(start)
	visited[g.idx(start.X, start.Y, start.Z)] = true

	// Scratch neighbor list reused across iterations.
	nbrs := make([]Vec3, 0, 6)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]

		nbrs = nbrs[:0]
		for _, d := range Dirs {
			n := Vec3{cur.X + 2*d.X, cur.Y + 2*d.Y, cur.Z + 2*d.Z}
			if n.X >= 1 && n.X < sx-1 && n.Y >= 1 && n.Y < sy-1 && n.Z >= 1 && n.Z < sz-1 {
				nbrs = append(nbrs, n)
			}
		}
		rng.Shuffle(len(nbrs), func(i, j int) {
			nbrs[i], nbrs[j] = nbrs[j], nbrs[i]
		})

		moved := false
		for _, n := range nbrs {
			if visited[g.idx(n.X, n.Y, n.Z)] {
				continue
			}
			// Open the wall halfway between cur and n, then the room itself.
			g.carve(Vec3{(cur.X + n.X) / 2, (cur.Y + n.Y) / 2, (cur.Z + n.Z) / 2})
			g.carve(n)
			visited[g.idx(n.X, n.Y, n.Z)] = true
			stack = append(stack, n)
			moved = true
			break
		}

		if !moved {
			stack = stack[:len(stack)-1]
		}
	}

	goal := farthestFreeCell(g, start)
	return g, start, goal
}

// farthestFreeCell scans interior cells for the first free cell with
// maximal Manhattan distance from start.
func farthestFreeCell(g *Grid, start Vec3) Vec3 {
	best := start
	bestDist := -1
	for x := 1; x < g.sx-1; x++ {
		for y := 1; y < g.sy-1; y++ {
			for z := 1; z < g.sz-1; z++ {
				p := Vec3{x, y, z}
				if g.Wall(p) {
					continue
				}
				if d := Manhattan(p, start); d > bestDist {
					bestDist = d
					best = p
				}
			}
		}
	}
	return best
}
