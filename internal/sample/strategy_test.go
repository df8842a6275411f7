package sample

import (
	"math"
	"math/rand/v2"
	"testing"

	"sampsim/internal/geo"
	"sampsim/internal/spatial"
)

func scatter(n int, w, h float64, seed uint64) []geo.Point {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]geo.Point, n)
	for k := range out {
		out[k] = geo.Pt(rng.Float64()*w, rng.Float64()*h)
	}
	return out
}

func nearestTo(tree *spatial.BuildingTree, p geo.Point) float64 {
	best := math.Inf(1)
	for _, it := range tree.Items() {
		best = math.Min(best, it.P.Distance(p))
	}
	return best
}

func TestInArc(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, start, arc float64
		want          bool
	}{
		{0, 0, 1, true},
		{-0.5, 0, 1, true},
		{0.5, 0, 1, false},
		{math.Pi, math.Pi, 1, true},
		{-math.Pi + 0.2, math.Pi, 1, true},
		{math.Pi - 0.6, math.Pi, 1, false},
		{1, 2, 2 * math.Pi, true},
	}
	for _, tt := range tests {
		if got := inArc(tt.a, tt.start, tt.arc); got != tt.want {
			t.Fatalf("inArc(%v, %v, %v) = %v, want %v", tt.a, tt.start, tt.arc, got, tt.want)
		}
	}
}

func TestInStrip(t *testing.T) {
	t.Parallel()
	c := geo.Pt(5, 5)
	tests := []struct {
		name  string
		p     geo.Point
		theta float64
		want  bool
	}{
		{"ahead inside", geo.Pt(8, 5.5), 0, true},
		{"behind", geo.Pt(2, 5), 0, false},
		{"too far sideways", geo.Pt(8, 6.5), 0, false},
		{"origin", geo.Pt(5, 5), 0, true},
		{"lower edge closed", geo.Pt(8, 4), 0, true},
		{"upper edge open", geo.Pt(8, 6), 0, false},
		{"reverse direction", geo.Pt(2, 5), math.Pi, true},
		{"diagonal", geo.Pt(7, 7), math.Pi / 4, true},
		{"diagonal behind", geo.Pt(3, 3), math.Pi / 4, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := inStrip(tt.p, c, tt.theta, 2); got != tt.want {
				t.Fatalf("inStrip(%v, theta=%v) = %v, want %v", tt.p, tt.theta, got, tt.want)
			}
		})
	}
}

func TestSquareGrid(t *testing.T) {
	t.Parallel()
	pop := pointsPop(10, 10, nil, 1)
	g := newSquareGrid(&pop.Towns[0], 2)
	tests := []struct {
		x, y   float64
		wi, wj int
	}{
		{0, 0, 0, 0},
		{4.999, 0, 0, 0},
		{5, 0, 1, 0},
		{10, 10, 1, 1},
		{2, 7, 0, 1},
	}
	for _, tt := range tests {
		if i, j := g.index(tt.x, tt.y); i != tt.wi || j != tt.wj {
			t.Fatalf("index(%v,%v) = %d,%d, want %d,%d", tt.x, tt.y, i, j, tt.wi, tt.wj)
		}
	}
	items := []spatial.Item{
		{ID: 0, P: geo.Pt(5, 5)},
		{ID: 1, P: geo.Pt(10, 10)},
		{ID: 2, P: geo.Pt(4.9, 4.9)},
		{ID: 3, P: geo.Pt(10, 2)},
	}
	want := map[[2]int][]int{
		{0, 0}: {2},
		{1, 1}: {0, 1},
		{1, 0}: {3},
		{0, 1}: nil,
	}
	for k, ids := range want {
		got := g.members(items, k[0], k[1])
		if len(got) != len(ids) {
			t.Fatalf("members(%d,%d) = %v, want %v", k[0], k[1], got, ids)
		}
		for n := range got {
			if got[n] != ids[n] {
				t.Fatalf("members(%d,%d) = %v, want %v", k[0], k[1], got, ids)
			}
		}
	}
}

func TestWalkVisitsNearest(t *testing.T) {
	t.Parallel()
	pop := pointsPop(10, 10, scatter(80, 10, 10, 11), 1)
	run := newRun(pop, GridEPI, 1000, 5)
	g := &gridEPI{walker: newWalker(params{}), squares: 1}
	if err := g.Begin(run); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	prev, err := g.Next(run, run.Tree)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	run.Tree.Remove(prev)
	for !run.Tree.Empty() {
		want := nearestTo(run.Tree, pop.Buildings[prev].Pos)
		b, err := g.Next(run, run.Tree)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if got := pop.Buildings[b].Pos.Distance(pop.Buildings[prev].Pos); math.Abs(got-want) > 1e-12 {
			t.Fatalf("walk from %d went %v away, nearest is %v", prev, got, want)
		}
		run.Tree.Remove(b)
		prev = b
	}
}

func TestPeriphery(t *testing.T) {
	t.Parallel()
	pop := pointsPop(10, 10, scatter(60, 10, 10, 21), 1)
	run := newRun(pop, DirectionEPI, 1000, 3)
	start := 0.3
	d := newDirectionEPI(DirectionEPI, halfTurn, params{startAngle: &start, periphery: true}, defaultDirectionAttempts)

	c := pop.Towns[0].Centroid()
	var cand []int
	for _, it := range run.Tree.Items() {
		if inArc(it.P.WithCentroid(c).A(), start, halfTurn) {
			cand = append(cand, it.ID)
		}
	}
	if len(cand) < 2 {
		t.Fatalf("test population has %d candidates in the half plane", len(cand))
	}
	closest, farthest := cand[0], cand[0]
	for _, b := range cand {
		if pop.Buildings[b].Pos.Distance(c) < pop.Buildings[closest].Pos.Distance(c) {
			closest = b
		}
		if pop.Buildings[b].Pos.Distance(c) > pop.Buildings[farthest].Pos.Distance(c) {
			farthest = b
		}
	}

	first, err := d.Next(run, run.Tree)
	if err != nil || first != closest {
		t.Fatalf("first Next() = %d, %v, want closest %d", first, err, closest)
	}
	run.Tree.Remove(first)
	second, err := d.Next(run, run.Tree)
	if err != nil || second != farthest {
		t.Fatalf("second Next() = %d, %v, want farthest %d", second, err, farthest)
	}
	run.Tree.Remove(second)
	want := nearestTo(run.Tree, pop.Buildings[second].Pos)
	third, err := d.Next(run, run.Tree)
	if err != nil {
		t.Fatalf("third Next() error = %v", err)
	}
	if got := pop.Buildings[third].Pos.Distance(pop.Buildings[second].Pos); math.Abs(got-want) > 1e-12 {
		t.Fatalf("third Next() is %v from the farthest building, nearest is %v", got, want)
	}
}

func TestQuadrantInitialBuilding(t *testing.T) {
	t.Parallel()
	pop := pointsPop(10, 10, scatter(120, 10, 10, 31), 1)
	run := newRun(pop, DirectionEPI, 8, 9)
	d := newDirectionEPI(DirectionEPI, halfTurn, params{quadrants: true}, defaultDirectionAttempts)
	seen := map[int]bool{}
	for q := 0; q < 4; q++ {
		// 每个象限承担 Size/4 = 2 个个体
		run.CurrentTownSize = 2 * q
		d.current = -1
		b, err := d.Next(run, run.Tree)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if !d.inQuadrant(run.Town, pop.Buildings[b].Pos) {
			t.Fatalf("initial building %v is outside quadrant %d", pop.Buildings[b].Pos, d.quadrant)
		}
		seen[d.quadrant] = true
		run.Tree.Remove(b)
	}
	if len(seen) != 4 {
		t.Fatalf("visited quadrants %v, want all four", seen)
	}
}

func TestEnumerationDrainsArea(t *testing.T) {
	t.Parallel()
	var pts []geo.Point
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			pts = append(pts, geo.Pt(0.25+0.5*float64(i), 0.25+0.5*float64(j)))
		}
	}
	pop := pointsPop(10, 10, pts, 1)
	run := newRun(pop, Enumeration, len(pts), 17)
	e := &enumerationStrategy{threshold: 10, area: -1}
	if err := e.Begin(run); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	areaOf := map[int]int{}
	for k, a := range e.cat.Areas() {
		for _, it := range a.Items {
			areaOf[it.ID] = k
		}
	}
	if len(areaOf) != len(pts) {
		t.Fatalf("catalogue covers %d buildings, want %d", len(areaOf), len(pts))
	}

	done := map[int]bool{}
	cur, picks := -1, 0
	for !run.Tree.Empty() {
		b, err := e.Next(run, run.Tree)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if a := areaOf[b]; a != cur {
			if done[a] {
				t.Fatalf("returned to area %d after leaving it", a)
			}
			if cur >= 0 {
				done[cur] = true
			}
			cur = a
		}
		run.Tree.Remove(b)
		picks++
	}
	if picks != len(pts) {
		t.Fatalf("picked %d buildings, want %d", picks, len(pts))
	}
}
