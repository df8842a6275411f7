package sample

import (
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"

	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

// buildingPoint：四叉树中的建筑
type buildingPoint struct {
	id int
	p  orb.Point
}

func (b buildingPoint) Point() orb.Point { return b.p }

// 文档注释：GPS 圆形抽样
// 背景：每次在城镇包围盒内随机取点，取半径 r 内的剩余建筑，均匀选一栋；各次选取互相独立。
// 城镇建筑放入四叉树，按圆的外接矩形查询后再按距离过滤。
// 约束：即时权重为圆内建筑数；样本结束后权重乘以 城镇面积/(πr²·取点次数)。
type circleGPS struct {
	radius  float64
	retry   RetryPolicy
	circles int
	found   int
	qt      *quadtree.Quadtree
	buf     []orb.Pointer
}

func (c *circleGPS) Kind() Kind { return CircleGPS }

func (c *circleGPS) Validate() error {
	if c.radius <= 0 {
		return fmt.Errorf("%w: tried to sample without first setting the sampling radius", simerr.ErrInvalidState)
	}
	return nil
}

func (c *circleGPS) Reset(full bool) {
	if full {
		c.circles = 0
	}
	c.found = 0
}

func (c *circleGPS) Begin(run *Run) error {
	c.qt = quadtree.New(run.Town.Extent())
	for _, it := range run.Tree.Items() {
		if err := c.qt.Add(buildingPoint{id: it.ID, p: it.P.Orb()}); err != nil {
			return fmt.Errorf("%w: building %d at %v: %v", simerr.ErrDataInconsistency, it.ID, it.P, err)
		}
	}
	return nil
}

func (c *circleGPS) ImmediateWeight() float64 { return float64(c.found) }

func (c *circleGPS) PostWeightFactor(run *Run) float64 {
	if c.circles == 0 || run == nil || run.Town == nil {
		return 1
	}
	return run.Town.Area() / (math.Pi * c.radius * c.radius * float64(c.circles))
}

func (c *circleGPS) Params() map[string]any {
	return map[string]any{
		"radius":            c.radius,
		"number_of_circles": c.circles,
		"max_attempts":      c.retry.attempts(defaultCircleAttempts),
	}
}

func (c *circleGPS) Next(run *Run, tree *spatial.BuildingTree) (int, error) {
	budget := c.retry.attempts(defaultCircleAttempts)
	for attempt := 1; attempt <= budget; attempt++ {
		c.circles++
		x, y := run.randomPoint()
		centre := orb.Point{x, y}
		box := orb.Bound{Min: centre, Max: centre}.Pad(c.radius)
		c.buf = c.qt.InBound(c.buf[:0], box)
		ids := make([]int, 0, len(c.buf))
		for _, p := range c.buf {
			bp := p.(buildingPoint)
			if tree.Contains(bp.id) && planar.Distance(bp.p, centre) <= c.radius {
				ids = append(ids, bp.id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		slices.Sort(ids)
		c.found = len(ids)
		b, _ := pick(run, ids)
		run.log.Debug("gps_building_selected", "type", CircleGPS.String(), "building", b, "candidates", len(ids), "attempts", attempt)
		return b, nil
	}
	return -1, fmt.Errorf("%w: unable to find building in GPS circle after %d attempts; lower the sample size or increase the radius",
		simerr.ErrExhausted, budget)
}

// 文档注释：GPS 方格抽样
// 背景：城镇划为 n×n 方格，随机点落入的方格若未被抽过则标记为已抽并在其中选一栋建筑。
// 约束：抽到已用方格也计入尝试次数；所有方格用完仍未找到返回 ErrExhausted（提示增加方格数），
// 否则在 retry 次后返回 ErrExhausted（提示减小样本量或方格数）。已用方格每个城镇重置。
type squareGPS struct {
	squares int
	retry   RetryPolicy
	grid    squareGrid
	used    []bool
	found   int
}

func (s *squareGPS) Kind() Kind { return SquareGPS }

func (s *squareGPS) Validate() error {
	if s.squares <= 0 {
		return fmt.Errorf("%w: tried to sample without first setting the number of squares", simerr.ErrInvalidState)
	}
	return nil
}

func (s *squareGPS) Reset(bool) {
	clear(s.used)
	s.found = 0
}

func (s *squareGPS) Begin(run *Run) error {
	s.grid = newSquareGrid(run.Town, s.squares)
	if len(s.used) != s.squares*s.squares {
		s.used = make([]bool, s.squares*s.squares)
	}
	clear(s.used)
	return nil
}

func (s *squareGPS) ImmediateWeight() float64 { return float64(s.found) }

func (s *squareGPS) PostWeightFactor(*Run) float64 { return 1 }

func (s *squareGPS) Params() map[string]any {
	n := 0
	for _, u := range s.used {
		if u {
			n++
		}
	}
	return map[string]any{
		"number_of_squares": s.squares,
		"square_width_x":    s.grid.wx,
		"square_width_y":    s.grid.wy,
		"selected_squares":  n,
		"max_attempts":      s.retry.attempts(defaultSquareAttempts),
	}
}

func (s *squareGPS) allUsed() bool {
	for _, u := range s.used {
		if !u {
			return false
		}
	}
	return true
}

func (s *squareGPS) Next(run *Run, tree *spatial.BuildingTree) (int, error) {
	items := tree.Items()
	budget := s.retry.attempts(defaultSquareAttempts)
	for attempt := 1; attempt <= budget; attempt++ {
		if s.allUsed() {
			break
		}
		i, j := s.grid.index(run.randomPoint())
		k := i*s.squares + j
		if s.used[k] {
			continue
		}
		s.used[k] = true
		ids := s.grid.members(items, i, j)
		if len(ids) == 0 {
			continue
		}
		s.found = len(ids)
		b, _ := pick(run, ids)
		run.log.Debug("gps_building_selected", "type", SquareGPS.String(), "building", b, "candidates", len(ids), "square_x", i, "square_y", j)
		return b, nil
	}
	if s.allUsed() {
		return -1, fmt.Errorf("%w: no more unselected squares left before completing sample; increase the number of squares",
			simerr.ErrExhausted)
	}
	return -1, fmt.Errorf("%w: unable to find building in GPS square after %d attempts; lower the sample size or decrease the number of squares",
		simerr.ErrExhausted, budget)
}
