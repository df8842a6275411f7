package sample

import (
	"fmt"
	"math"

	"sampsim/internal/geo"
	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

// 文档注释：条带 EPI
// 背景：从城镇中心沿起始角画一条射线，加宽为宽度 StripWidth 的条带，条带内（且在射线正方向一侧）的建筑为初始候选。
// 可把城镇分为 N 个扇区，每个扇区承担 Size/N，进入新扇区时重新选初始建筑，起始角在该扇区角度范围内均匀。
// 约束：固定起始角时只尝试一次（多扇区时依次旋转一个扇区角）；随机起始角时最多重试 retry 次。
type stripEPI struct {
	walker
	width   float64
	sectors int
	retry   RetryPolicy
	sector  int
	initial []int
}

func newStripEPI(p params) *stripEPI {
	n := p.sectors
	if n <= 0 {
		n = 1
	}
	return &stripEPI{walker: newWalker(p), width: p.stripWidth, sectors: n, retry: p.retry, sector: -1}
}

func (s *stripEPI) Kind() Kind { return StripEPI }

func (s *stripEPI) Validate() error {
	if s.width <= 0 {
		return fmt.Errorf("%w: tried to sample without first setting the strip width parameter", simerr.ErrInvalidState)
	}
	return nil
}

// Reset：扇区按城镇计，每个城镇从第一个扇区重新开始
func (s *stripEPI) Reset(bool) {
	s.walker.reset()
	s.sector = -1
	s.initial = s.initial[:0]
}

func (s *stripEPI) Begin(*Run) error { return nil }

func (s *stripEPI) ImmediateWeight() float64 { return 1 }

func (s *stripEPI) PostWeightFactor(*Run) float64 { return 1 }

func (s *stripEPI) Params() map[string]any {
	return map[string]any{
		"strip_width":       s.width,
		"number_of_sectors": s.sectors,
		"start_angle":       s.startAngle,
		"max_attempts":      s.retry.attempts(defaultStripAttempts),
	}
}

func (s *stripEPI) Next(run *Run, tree *spatial.BuildingTree) (int, error) {
	if s.current >= 0 && float64(run.CurrentTownSize) > float64(run.Size)/float64(s.sectors)*float64(s.sector+1) {
		s.current = -1
	}
	if s.current >= 0 {
		return s.walk(run, tree)
	}

	s.sector = (s.sector + 1) % s.sectors
	lo := 2 * math.Pi * float64(s.sector) / float64(s.sectors)
	hi := 2 * math.Pi * float64(s.sector+1) / float64(s.sectors)
	c := run.Town.Centroid()
	items := tree.Items()

	budget := s.retry.attempts(defaultStripAttempts)
	if s.fixed != nil {
		budget = 1
	}
	for attempt := 1; attempt <= budget; attempt++ {
		if s.fixed != nil {
			s.startAngle = geo.WrapAngle(*s.fixed + lo)
		} else {
			s.startAngle = geo.WrapAngle(lo + run.Rng.Float64()*(hi-lo))
		}
		s.initial = s.initial[:0]
		for _, it := range items {
			if inStrip(it.P, c, s.startAngle, s.width) {
				s.initial = append(s.initial, it.ID)
			}
		}
		if len(s.initial) > 0 {
			observeAttempts(run, attempt)
			b, k := pick(run, s.initial)
			s.current, s.firstIndex = b, k
			run.log.Debug("initial_building_selected",
				"type", StripEPI.String(),
				"building", b,
				"candidates", len(s.initial),
				"start_angle", s.startAngle,
				"sector", s.sector,
			)
			return b, nil
		}
	}
	observeAttempts(run, budget)
	return -1, fmt.Errorf("%w: unable to find initial building after %d attempts; try widening the strip width",
		simerr.ErrExhausted, budget)
}

// inStrip：点在以 c 为起点、方向为 theta 的条带内
// 约束：横向按过该点、与条带同方向直线的截距判断 [coef-w/2, coef+w/2)；纵向要求点在起点的正方向一侧
func inStrip(p, c geo.Point, theta, width float64) bool {
	t := math.Tan(theta)
	coef := c.Y - c.X*t
	house := p.Y - p.X*t
	if house < coef-width/2 || house >= coef+width/2 {
		return false
	}
	rx := (p.X-c.X)*math.Cos(-theta) - (p.Y-c.Y)*math.Sin(-theta) + c.X
	return rx >= c.X
}
