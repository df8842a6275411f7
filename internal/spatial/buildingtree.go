package spatial

import (
	"fmt"

	"sampsim/internal/geo"
	"sampsim/internal/simerr"
)

// 文档注释：支持删除的建筑 KD-Tree
// 背景：抽样过程中逐个消耗建筑；删除采用惰性墓碑，不重建树，查询时跳过已清空的子树。
// 约束：删除后 FindNearest 不会再返回该建筑；全部删除后 Empty 为真。
type BuildingTree struct {
	t tree
}

func NewBuildingTree(items []Item) *BuildingTree { return &BuildingTree{t: build(items)} }

func (b *BuildingTree) FindNearest(q geo.Point) (Item, error) {
	it, ok := b.t.nearest(q)
	if !ok {
		return Item{}, fmt.Errorf("%w: nearest-neighbour query on an empty building tree", simerr.ErrInvalidState)
	}
	return it, nil
}

// Remove：删除 ID 对应的建筑；不存在或已删除时返回 false
func (b *BuildingTree) Remove(id int) bool { return b.t.remove(id) }

func (b *BuildingTree) Contains(id int) bool { return b.t.contains(id) }

func (b *BuildingTree) Empty() bool { return b.t.empty() }

func (b *BuildingTree) Len() int { return b.t.size() }

// Items：未删除的记录，按建树时的输入顺序
func (b *BuildingTree) Items() []Item { return b.t.liveItems() }

// Get：按 ID 取记录（含已删除的）
func (b *BuildingTree) Get(id int) (Item, bool) {
	n, ok := b.t.leafOf[id]
	if !ok {
		return Item{}, false
	}
	return b.t.items[b.t.nodes[n].item], true
}
