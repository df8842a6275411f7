package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// 文档注释：过定点、给定倾角的直线
// 背景：用于河岸建模与条带判定；倾角为弧度，垂直线（tan 无穷大）不在支持范围。
type Line struct {
	Intercept Point
	Angle     float64
}

// DistanceFromPoint：点到直线的垂直距离
func (l Line) DistanceFromPoint(p Point) float64 {
	t := math.Tan(l.Angle)
	return math.Abs(t*(p.X-l.Intercept.X)-(p.Y-l.Intercept.Y)) / math.Sqrt(t*t+1)
}

// InsideBounds：直线是否穿过矩形范围（只检查左右两条边上的 y 值）
func (l Line) InsideBounds(b orb.Bound) bool {
	t := math.Tan(l.Angle)
	c := l.Intercept.Y - l.Intercept.X*t
	y1 := t*b.Min[0] + c
	y2 := t*b.Max[0] + c
	return (y1 > b.Min[1] || y2 > b.Min[1]) && (y1 < b.Max[1] || y2 < b.Max[1])
}

// PointInsideStrip：点到两条平行线的距离都小于两线间距时，点位于条带内
func PointInsideStrip(p Point, l1, l2 Line) bool {
	w := l1.DistanceFromPoint(l2.Intercept)
	return l1.DistanceFromPoint(p) < w && l2.DistanceFromPoint(p) < w
}

// Project：点在直线上的垂足
func (l Line) Project(p Point) Point {
	t := math.Tan(l.Angle)
	t2 := t * t
	ix, iy := l.Intercept.X, l.Intercept.Y
	x := (p.X + t*p.Y - t*iy + t2*ix) / (t2 + 1)
	y := (p.X*t + t2*p.Y + iy - t*ix) / (t2 + 1)
	return Point{X: x, Y: y, CX: p.CX, CY: p.CY}
}
