package enumeration

import (
	"fmt"

	"github.com/paulmach/orb"

	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

const (
	// DefaultThreshold：枚举区建筑数上限（严格小于）
	DefaultThreshold = 100
	// MaxDepth：递归深度上限；所有建筑重合时分割不再减少数量，到达上限后直接收录
	MaxDepth = 64
)

// 文档注释：建筑目录（枚举区列表）
// 背景：从城镇全范围开始，建筑数达到阈值的区域持续二分，低于阈值的区域作为终端枚举区收录。
// 约束：终端区域的并集恰好覆盖全部输入建筑，每个建筑只出现一次；顺序为深度优先、下半优先。
type Catalogue struct {
	threshold int
	areas     []Area
}

// NewCatalogue：首次分割沿 X 进行
func NewCatalogue(items []spatial.Item, b orb.Bound, threshold int) (*Catalogue, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cannot build a catalogue from an empty building list", simerr.ErrInvalidState)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: catalogue threshold must be positive", simerr.ErrInvalidState)
	}
	c := &Catalogue{threshold: threshold}
	if err := c.build(NewArea(b, true, items), 0); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalogue) build(a Area, depth int) error {
	if a.Len() < c.threshold || depth >= MaxDepth {
		c.areas = append(c.areas, a)
		return nil
	}
	lower, upper, err := a.Split()
	if err != nil {
		return err
	}
	if err := c.build(lower, depth+1); err != nil {
		return err
	}
	return c.build(upper, depth+1)
}

func (c *Catalogue) Threshold() int { return c.threshold }

func (c *Catalogue) Areas() []Area { return c.areas }

func (c *Catalogue) Len() int { return len(c.areas) }
