package geo

import "github.com/paulmach/orb"

// Extent：以原点为左下角、宽高为 w×h 的城镇范围
func Extent(w, h float64) orb.Bound {
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{w, h}}
}

// InHalfOpen：lower <= p < upper（两个轴）
func InHalfOpen(b orb.Bound, p Point) bool {
	return b.Min[0] <= p.X && p.X < b.Max[0] && b.Min[1] <= p.Y && p.Y < b.Max[1]
}

// InBound：上边界按 closedX/closedY 决定是否包含
// 约束：下边界始终包含；用于递归二分时让城镇外沿上的建筑仍有归属
func InBound(b orb.Bound, p Point, closedX, closedY bool) bool {
	if p.X < b.Min[0] || p.Y < b.Min[1] {
		return false
	}
	if closedX {
		if p.X > b.Max[0] {
			return false
		}
	} else if p.X >= b.Max[0] {
		return false
	}
	if closedY {
		return p.Y <= b.Max[1]
	}
	return p.Y < b.Max[1]
}

// Area：矩形面积
func Area(b orb.Bound) float64 {
	return (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1])
}
