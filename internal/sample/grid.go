package sample

import (
	"fmt"

	"github.com/paulmach/orb"

	"sampsim/internal/geo"
	"sampsim/internal/population"
	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

// squareGrid：把城镇划为 n×n 个方格；最右/最上一列方格的上边界包含城镇外沿
type squareGrid struct {
	n      int
	wx, wy float64
}

func newSquareGrid(t *population.Town, n int) squareGrid {
	return squareGrid{n: n, wx: t.Width() / float64(n), wy: t.Height() / float64(n)}
}

func (g squareGrid) bound(i, j int) orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(i) * g.wx, float64(j) * g.wy},
		Max: orb.Point{float64(i+1) * g.wx, float64(j+1) * g.wy},
	}
}

// index：点所在方格，越界时夹到最后一格
func (g squareGrid) index(x, y float64) (int, int) {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v >= g.n {
			return g.n - 1
		}
		return v
	}
	return clamp(int(x / g.wx)), clamp(int(y / g.wy))
}

func (g squareGrid) members(items []spatial.Item, i, j int) []int {
	b := g.bound(i, j)
	var out []int
	for _, it := range items {
		if geo.InBound(b, it.P, i == g.n-1, j == g.n-1) {
			out = append(out, it.ID)
		}
	}
	return out
}

// 文档注释：网格 EPI
// 背景：随机抽一个方格，方格内的剩余建筑为初始候选，之后 EPI 游走。
// 约束：方格数必须为正；连续 retry 次抽到空方格返回 ErrExhausted。
type gridEPI struct {
	walker
	squares int
	retry   RetryPolicy
	grid    squareGrid
	initial []int
}

func (g *gridEPI) Kind() Kind { return GridEPI }

func (g *gridEPI) Validate() error {
	if g.squares <= 0 {
		return fmt.Errorf("%w: tried to sample without first setting the number of squares", simerr.ErrInvalidState)
	}
	return nil
}

func (g *gridEPI) Reset(bool) { g.walker.reset() }

func (g *gridEPI) Begin(run *Run) error {
	g.grid = newSquareGrid(run.Town, g.squares)
	return nil
}

func (g *gridEPI) ImmediateWeight() float64 { return 1 }

func (g *gridEPI) PostWeightFactor(*Run) float64 { return 1 }

func (g *gridEPI) Params() map[string]any {
	return map[string]any{
		"number_of_squares": g.squares,
		"square_width_x":    g.grid.wx,
		"square_width_y":    g.grid.wy,
		"max_attempts":      g.retry.attempts(defaultGridAttempts),
	}
}

func (g *gridEPI) Next(run *Run, tree *spatial.BuildingTree) (int, error) {
	if g.current >= 0 {
		return g.walk(run, tree)
	}
	items := tree.Items()
	budget := g.retry.attempts(defaultGridAttempts)
	for attempt := 1; attempt <= budget; attempt++ {
		i, j := run.Rng.IntN(g.squares), run.Rng.IntN(g.squares)
		g.initial = g.grid.members(items, i, j)
		if len(g.initial) == 0 {
			continue
		}
		observeAttempts(run, attempt)
		b, k := pick(run, g.initial)
		g.current, g.firstIndex = b, k
		run.log.Debug("initial_building_selected",
			"type", GridEPI.String(),
			"building", b,
			"candidates", len(g.initial),
			"square_x", i,
			"square_y", j,
		)
		return b, nil
	}
	observeAttempts(run, budget)
	return -1, fmt.Errorf("%w: unable to find initial building after %d attempts; lower the sample size or increase the initial selection area",
		simerr.ErrExhausted, budget)
}
