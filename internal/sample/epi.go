package sample

import (
	"fmt"
	"math"

	"sampsim/internal/geo"
	"sampsim/internal/metrics"
	"sampsim/internal/population"
	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

const halfTurn = math.Pi

// 文档注释：EPI 游走的公共状态
// 背景：选定初始建筑后，每次都走到距上一栋最近的剩余建筑（直线距离）；同一建筑内的其余住户
// 由驱动循环先行处理，因此这里只需在树中查询最近邻。
type walker struct {
	current    int
	startAngle float64
	fixed      *float64
	firstIndex int
}

func newWalker(p params) walker {
	w := walker{current: -1, fixed: p.startAngle}
	if p.startAngle != nil {
		w.startAngle = *p.startAngle
	}
	return w
}

func (w *walker) reset() {
	w.current = -1
	w.firstIndex = 0
	if w.fixed != nil {
		w.startAngle = *w.fixed
	}
}

// walk：最近邻一步；已删除的建筑不会被返回
func (w *walker) walk(run *Run, tree *spatial.BuildingTree) (int, error) {
	it, err := tree.FindNearest(run.Pop.Buildings[w.current].Pos)
	if err != nil {
		return -1, err
	}
	w.current = it.ID
	return it.ID, nil
}

// drawAngle：[-π, π) 内均匀
func drawAngle(run *Run) float64 { return -math.Pi + 2*math.Pi*run.Rng.Float64() }

func observeAttempts(run *Run, n int) {
	metrics.InitialAttempts.WithLabelValues(run.kind.String()).Observe(float64(n))
}

// 文档注释：方向型 EPI（arc_epi 与 direction_epi）
// 背景：选一个起始方向，取该方向张角内的建筑作为初始候选；direction_epi 的张角固定为 π（朝向起始方向的半个城镇）。
// 可选象限模式：样本按 Size/4 分配到四个象限，每个象限重新选初始建筑，角度以象限中心为原点；
// 可选外围模式：初始建筑取候选中离城镇中心最近的，（非象限模式下）第二栋取最远的，之后 EPI 游走。
// 约束：候选为空时起始角加一个张角后重试，超过重试次数返回 ErrExhausted。
type directionEPI struct {
	walker
	kind      Kind
	arc       float64
	quadrants bool
	periphery bool
	retry     RetryPolicy
	defRetry  int

	quadrant      int
	completed     int
	peripheryDone bool
	initial       []int
}

func newDirectionEPI(kind Kind, arc float64, p params, defRetry int) *directionEPI {
	return &directionEPI{
		walker:    newWalker(p),
		kind:      kind,
		arc:       arc,
		quadrants: p.quadrants,
		periphery: p.periphery,
		retry:     p.retry,
		defRetry:  defRetry,
		quadrant:  -1,
	}
}

func (d *directionEPI) Kind() Kind { return d.kind }

func (d *directionEPI) Validate() error {
	if d.arc <= 0 {
		return fmt.Errorf("%w: tried to sample without first setting the arc angle parameter", simerr.ErrInvalidState)
	}
	return nil
}

func (d *directionEPI) Reset(bool) {
	d.walker.reset()
	d.quadrant = -1
	d.completed = 0
	d.peripheryDone = false
	d.initial = d.initial[:0]
}

func (d *directionEPI) Begin(*Run) error { return nil }

func (d *directionEPI) ImmediateWeight() float64 { return 1 }

func (d *directionEPI) PostWeightFactor(*Run) float64 { return 1 }

func (d *directionEPI) Params() map[string]any {
	m := map[string]any{
		"start_angle":   d.startAngle,
		"use_quadrants": d.quadrants,
		"periphery":     d.periphery,
		"max_attempts":  d.retry.attempts(d.defRetry),
	}
	if d.kind == ArcEPI {
		m["arc_angle"] = d.arc
	}
	return m
}

func (d *directionEPI) Next(run *Run, tree *spatial.BuildingTree) (int, error) {
	if d.quadrants && d.current >= 0 {
		if float64(run.CurrentTownSize) >= float64(run.Size)/4*float64(d.completed+1) {
			d.current = -1
		}
	}

	if !d.quadrants && d.periphery && !d.peripheryDone && d.current >= 0 {
		d.peripheryDone = true
		if b, ok := d.farthest(run, tree); ok {
			d.current = b
			run.log.Debug("periphery_building_selected", "type", d.kind.String(), "building", b, "candidates", len(d.initial))
			return b, nil
		}
	}

	if d.current >= 0 {
		return d.walk(run, tree)
	}

	d.nextStartAngle(run)
	if err := d.collect(run, tree); err != nil {
		return -1, err
	}
	var b int
	if d.periphery {
		b = d.closest(run)
		d.peripheryDone = false
	} else {
		b, d.firstIndex = pick(run, d.initial)
	}
	d.current = b
	run.log.Debug("initial_building_selected",
		"type", d.kind.String(),
		"building", b,
		"candidates", len(d.initial),
		"start_angle", d.startAngle,
		"quadrant", d.quadrant,
	)
	return b, nil
}

// nextStartAngle：象限模式下首次随机选象限，之后依次轮转
func (d *directionEPI) nextStartAngle(run *Run) {
	if d.quadrants {
		if d.quadrant < 0 {
			d.quadrant = run.Rng.IntN(4)
		} else {
			d.completed++
			d.quadrant = (d.quadrant + 1) % 4
		}
	}
	if d.fixed == nil {
		d.startAngle = drawAngle(run)
	} else {
		d.startAngle = *d.fixed
	}
}

// angleCentroid：象限模式下移到当前象限的中心
func (d *directionEPI) angleCentroid(t *population.Town) geo.Point {
	c := t.Centroid()
	if !d.quadrants {
		return c
	}
	switch d.quadrant {
	case 0:
		return geo.Pt(c.X*1.5, c.Y*1.5)
	case 1:
		return geo.Pt(c.X/2, c.Y*1.5)
	case 2:
		return geo.Pt(c.X/2, c.Y/2)
	case 3:
		return geo.Pt(c.X*1.5, c.Y/2)
	}
	return c
}

func (d *directionEPI) inQuadrant(t *population.Town, p geo.Point) bool {
	if !d.quadrants {
		return true
	}
	c := t.Centroid()
	switch d.quadrant {
	case 0:
		return p.X >= c.X && p.Y >= c.Y
	case 1:
		return p.X < c.X && p.Y >= c.Y
	case 2:
		return p.X < c.X && p.Y < c.Y
	case 3:
		return p.X >= c.X && p.Y < c.Y
	}
	return false
}

func (d *directionEPI) collect(run *Run, tree *spatial.BuildingTree) error {
	c := d.angleCentroid(run.Town)
	items := tree.Items()
	budget := d.retry.attempts(d.defRetry)
	for attempt := 1; attempt <= budget; attempt++ {
		d.initial = d.initial[:0]
		for _, it := range items {
			if d.inQuadrant(run.Town, it.P) && inArc(it.P.WithCentroid(c).A(), d.startAngle, d.arc) {
				d.initial = append(d.initial, it.ID)
			}
		}
		if len(d.initial) > 0 {
			observeAttempts(run, attempt)
			return nil
		}
		d.startAngle = geo.WrapAngle(d.startAngle + d.arc)
	}
	observeAttempts(run, budget)
	return fmt.Errorf("%w: unable to find initial building after %d attempts; lower the sample size or increase the initial selection area",
		simerr.ErrExhausted, budget)
}

// inArc：a 是否落在以 start 为中心、张角为 arc 的扇区内（下界含、上界不含），跨越 ±π 时拆成两段
func inArc(a, start, arc float64) bool {
	if arc >= 2*math.Pi {
		return true
	}
	a1 := geo.WrapAngle(start - arc/2)
	a2 := geo.WrapAngle(start + arc/2)
	if a1 > a2 {
		return (a1 <= a && a <= math.Pi) || (-math.Pi <= a && a < a2)
	}
	return a1 <= a && a < a2
}

// closest / farthest：按到城镇中心的距离；相同距离取候选中靠前的
func (d *directionEPI) closest(run *Run) int {
	c := run.Town.Centroid()
	best, bd := d.initial[0], math.Inf(1)
	for _, b := range d.initial {
		if dist := run.Pop.Buildings[b].Pos.Distance(c); dist < bd {
			best, bd = b, dist
		}
	}
	return best
}

func (d *directionEPI) farthest(run *Run, tree *spatial.BuildingTree) (int, bool) {
	c := run.Town.Centroid()
	best, bd := -1, -1.0
	for _, b := range d.initial {
		if !tree.Contains(b) {
			continue
		}
		if dist := run.Pop.Buildings[b].Pos.Distance(c); dist > bd {
			best, bd = b, dist
		}
	}
	return best, best >= 0
}
