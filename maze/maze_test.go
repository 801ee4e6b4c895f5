package maze

import (
	"strings"
	"testing"
)

// dumpSlice renders one Z-slice for failure output.
func dumpSlice(g *Grid, z int) string {
	var sb strings.Builder
	for y := 0; y < g.SY(); y++ {
		for x := 0; x < g.SX(); x++ {
			if g.Wall(Vec3{x, y, z}) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func seedPtr(s int64) *int64 { return &s }

func TestGenerateNormalizesEvenDimensions(t *testing.T) {
	g, _, _ := Generate(10, 8, 4, seedPtr(1))
	if g.SX() != 11 || g.SY() != 9 || g.SZ() != 5 {
		t.Fatalf("expected odd-normalized 11x9x5, got %dx%dx%d", g.SX(), g.SY(), g.SZ())
	}
}

func TestGenerateStartIsFree(t *testing.T) {
	g, start, _ := Generate(11, 11, 5, seedPtr(7))
	if start != (Vec3{1, 1, 1}) {
		t.Fatalf("start = %v, want (1,1,1)", start)
	}
	if g.Wall(start) {
		t.Fatalf("start cell is a wall:\n%s", dumpSlice(g, 1))
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	g1, s1, e1 := Generate(11, 11, 5, seedPtr(42))
	g2, s2, e2 := Generate(11, 11, 5, seedPtr(42))

	if s1 != s2 || e1 != e2 {
		t.Fatalf("start/goal differ: (%v,%v) vs (%v,%v)", s1, e1, s2, e2)
	}
	for x := 0; x < g1.SX(); x++ {
		for y := 0; y < g1.SY(); y++ {
			for z := 0; z < g1.SZ(); z++ {
				p := Vec3{x, y, z}
				if g1.Wall(p) != g2.Wall(p) {
					t.Fatalf("grids differ at %v", p)
				}
			}
		}
	}
}

func TestGenerateDifferentSeedsDiffer(t *testing.T) {
	g1, _, _ := Generate(11, 11, 5, seedPtr(1))
	g2, _, _ := Generate(11, 11, 5, seedPtr(2))

	same := true
	for x := 0; x < g1.SX() && same; x++ {
		for y := 0; y < g1.SY() && same; y++ {
			for z := 0; z < g1.SZ(); z++ {
				p := Vec3{x, y, z}
				if g1.Wall(p) != g2.Wall(p) {
					same = false
					break
				}
			}
		}
	}
	if same {
		t.Fatal("seeds 1 and 2 produced identical grids")
	}
}

// freeNeighbors lists the free 6-adjacent cells of p.
func freeNeighbors(g *Grid, p Vec3) []Vec3 {
	var out []Vec3
	for _, d := range Dirs {
		n := p.Add(d)
		if g.Free(n) {
			out = append(out, n)
		}
	}
	return out
}

// TestGenerateMazeIsPerfect checks the spanning-tree property: every
// free cell is reachable from the start, and the number of free-to-free
// adjacencies is exactly freeCells-1 (no cycles).
func TestGenerateMazeIsPerfect(t *testing.T) {
	for _, seed := range []int64{0, 3, 42, 1234} {
		g, start, _ := Generate(11, 9, 5, seedPtr(seed))

		reached := map[Vec3]bool{start: true}
		queue := []Vec3{start}
		edges := 0
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range freeNeighbors(g, cur) {
				edges++ // counted once per direction; halved below
				if !reached[n] {
					reached[n] = true
					queue = append(queue, n)
				}
			}
		}

		free := g.FreeCount()
		if len(reached) != free {
			t.Fatalf("seed %d: %d free cells but only %d reachable from start",
				seed, free, len(reached))
		}
		if edges%2 != 0 {
			t.Fatalf("seed %d: odd directed edge count %d", seed, edges)
		}
		if undirected := edges / 2; undirected != free-1 {
			t.Fatalf("seed %d: %d adjacencies for %d free cells, want %d (tree)",
				seed, undirected, free, free-1)
		}
	}
}

func TestGenerateGoalReachableAndDistinct(t *testing.T) {
	g, start, goal := Generate(5, 5, 3, seedPtr(42))

	if g.Wall(goal) {
		t.Fatalf("goal %v is a wall", goal)
	}
	if goal == start {
		t.Fatalf("goal equals start %v", start)
	}

	reached := map[Vec3]bool{start: true}
	queue := []Vec3{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range freeNeighbors(g, cur) {
			if !reached[n] {
				reached[n] = true
				queue = append(queue, n)
			}
		}
	}
	if !reached[goal] {
		t.Fatalf("goal %v not reachable from start:\n%s", goal, dumpSlice(g, goal.Z))
	}
}

func TestWallOutOfBounds(t *testing.T) {
	g, _, _ := Generate(5, 5, 3, seedPtr(1))
	for _, p := range []Vec3{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}, {g.SX(), 0, 0}, {0, g.SY(), 0}, {0, 0, g.SZ()}} {
		if !g.Wall(p) {
			t.Errorf("out-of-bounds %v not reported as wall", p)
		}
	}
}

func TestManhattan(t *testing.T) {
	if d := Manhattan(Vec3{1, 2, 3}, Vec3{4, 0, 3}); d != 5 {
		t.Fatalf("Manhattan = %d, want 5", d)
	}
}
