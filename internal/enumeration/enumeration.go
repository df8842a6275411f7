// 包 enumeration：矩形区域递归二分，生成规模受限的枚举区（enumeration area）
package enumeration

import (
	"fmt"

	"github.com/paulmach/orb"

	"sampsim/internal/geo"
	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

// 文档注释：枚举区
// 背景：范围 + 落在范围内的建筑；Horizontal 表示下一次分割沿 X 二分（否则沿 Y），每次分割后取反。
// 约束：下边界包含；上边界默认不包含，但城镇外沿（closedX/closedY）包含，保证外沿上的建筑有归属。
type Area struct {
	Bound      orb.Bound
	Horizontal bool
	Items      []spatial.Item

	closedX bool
	closedY bool
}

// NewArea：根区域，两个上边界均包含
func NewArea(b orb.Bound, horizontal bool, items []spatial.Item) Area {
	return Area{Bound: b, Horizontal: horizontal, Items: items, closedX: true, closedY: true}
}

func (a Area) Len() int { return len(a.Items) }

// Contains：按本区域的边界开闭规则判断
func (a Area) Contains(p geo.Point) bool { return geo.InBound(a.Bound, p, a.closedX, a.closedY) }

// Split：按 Horizontal 沿 X 或 Y 对半分割，返回（下半，上半）
// 约束：恰在分割线上的建筑归上半；不落入任何子区域的建筑返回 ErrDataInconsistency
func (a Area) Split() (Area, Area, error) {
	lower := Area{Bound: a.Bound, Horizontal: !a.Horizontal, closedX: a.closedX, closedY: a.closedY}
	upper := lower
	if a.Horizontal {
		mid := (a.Bound.Min[0] + a.Bound.Max[0]) / 2
		lower.Bound.Max[0] = mid
		lower.closedX = false
		upper.Bound.Min[0] = mid
	} else {
		mid := (a.Bound.Min[1] + a.Bound.Max[1]) / 2
		lower.Bound.Max[1] = mid
		lower.closedY = false
		upper.Bound.Min[1] = mid
	}

	for _, it := range a.Items {
		switch {
		case lower.Contains(it.P):
			lower.Items = append(lower.Items, it)
		case upper.Contains(it.P):
			upper.Items = append(upper.Items, it)
		default:
			return Area{}, Area{}, fmt.Errorf("%w: building %d at %v is outside both halves of area [%v, %v]",
				simerr.ErrDataInconsistency, it.ID, it.P, a.Bound.Min, a.Bound.Max)
		}
	}
	return lower, upper, nil
}
