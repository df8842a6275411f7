package spatial

import (
	"fmt"

	"sampsim/internal/geo"
	"sampsim/internal/simerr"
)

// 文档注释：只读 KD-Tree
// 背景：建好后只做最近邻查询；需要删除时使用 BuildingTree。
type KDTree struct {
	t tree
}

func NewKDTree(items []Item) *KDTree { return &KDTree{t: build(items)} }

// FindNearest：返回距 q 最近的记录；空树返回 ErrInvalidState
func (k *KDTree) FindNearest(q geo.Point) (Item, error) {
	it, ok := k.t.nearest(q)
	if !ok {
		return Item{}, fmt.Errorf("%w: nearest-neighbour query on an empty tree", simerr.ErrInvalidState)
	}
	return it, nil
}

func (k *KDTree) Len() int { return k.t.size() }

func (k *KDTree) Items() []Item { return k.t.liveItems() }
