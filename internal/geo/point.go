// 包 geo：平面坐标、极坐标与直线/条带判定，供空间索引与抽样策略共用
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// 文档注释：二维坐标点（含可设置的质心）
// 背景：EPI 类策略以城镇质心为原点计算极角；质心随值复制，不影响其他点。
// 约束：值类型，创建后不修改位置；角度范围为 (-π, π]。
type Point struct {
	X, Y   float64
	CX, CY float64
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// WithCentroid：返回以 c 为质心的副本
func (p Point) WithCentroid(c Point) Point {
	p.CX, p.CY = c.X, c.Y
	return p
}

func (p Point) Centroid() Point { return Point{X: p.CX, Y: p.CY} }

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y, CX: p.CX, CY: p.CY} }

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y, CX: p.CX, CY: p.CY} }

func (p Point) Scale(a float64) Point { return Point{X: p.X * a, Y: p.Y * a, CX: p.CX, CY: p.CY} }

func (p Point) Distance(q Point) float64 { return math.Sqrt(p.SquaredDistance(q)) }

// SquaredDistance：比较远近时使用，省去开方
func (p Point) SquaredDistance(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Length：到质心的距离
func (p Point) Length() float64 { return p.Distance(p.Centroid()) }

func (p Point) R() float64 { return p.Length() }

// A：相对质心的极角
func (p Point) A() float64 { return math.Atan2(p.Y-p.CY, p.X-p.CX) }

// Axis：按轴取值，0 为 X，1 为 Y
func (p Point) Axis(ax int) float64 {
	if ax == 0 {
		return p.X
	}
	return p.Y
}

func (p Point) Orb() orb.Point { return orb.Point{p.X, p.Y} }

func FromOrb(o orb.Point) Point { return Point{X: o[0], Y: o[1]} }

func (p Point) String() string { return fmt.Sprintf("(%g,%g)", p.X, p.Y) }

// WrapAngle：把任意弧度折回 (-π, π]
func WrapAngle(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
