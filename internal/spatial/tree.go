// 包 spatial：建筑的二维 KD-Tree；节点存放在数组中，父子以下标互指
package spatial

import (
	"math"

	"sampsim/internal/geo"
)

// Item：树中的一条记录；ID 为建筑在人口数组中的下标，需在同一棵树中唯一
type Item struct {
	ID int
	P  geo.Point
}

// 文档注释：KD-Tree 节点（数组槽位）
// 背景：按深度交替轴分割（偶数 X，奇数 Y）；内部节点只保存中位值，叶子保存一条记录。
// 约束：节点要么有两个子节点，要么是叶子；live 为子树中未删除的记录数。
type node struct {
	axis   int
	median float64
	left   int
	right  int
	parent int
	item   int // 叶子对应 items 下标，内部节点为 -1
	live   int
}

type tree struct {
	nodes  []node
	items  []Item
	leafOf map[int]int
	root   int
}

func build(items []Item) tree {
	t := tree{root: -1, leafOf: make(map[int]int, len(items))}
	if len(items) == 0 {
		return t
	}
	t.items = append([]Item(nil), items...)
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	t.nodes = make([]node, 0, 2*len(items))
	t.root = t.buildNode(idx, 0, -1)
	return t
}

// buildNode：中位数取 floor(n/2)，左子树为 [0,mid)，右子树为 [mid,n)
func (t *tree) buildNode(idx []int, depth, parent int) int {
	if len(idx) == 0 {
		return -1
	}
	n := len(t.nodes)
	ax := depth % 2
	t.nodes = append(t.nodes, node{axis: ax, left: -1, right: -1, parent: parent, item: -1, live: len(idx)})
	if len(idx) == 1 {
		t.nodes[n].item = idx[0]
		t.leafOf[t.items[idx[0]].ID] = n
		return n
	}
	mid := len(idx) / 2
	t.selectNth(idx, mid, ax)
	t.nodes[n].median = t.items[idx[mid]].P.Axis(ax)
	l := t.buildNode(idx[:mid], depth+1, n)
	r := t.buildNode(idx[mid:], depth+1, n)
	t.nodes[n].left = l
	t.nodes[n].right = r
	return n
}

// 原地 nth 元素选择：结束后 a[:n] 在该轴上不大于 a[n]，a[n+1:] 不小于 a[n]
func (t *tree) selectNth(a []int, n int, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := t.partition(a, lo, hi, (lo+hi)/2, ax)
		if p == n {
			return
		}
		if n < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func (t *tree) partition(a []int, lo, hi, pivot, ax int) int {
	pv := t.items[a[pivot]].P.Axis(ax)
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if t.items[a[j]].P.Axis(ax) < pv {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func (t *tree) empty() bool { return t.root < 0 || t.nodes[t.root].live == 0 }

func (t *tree) size() int {
	if t.root < 0 {
		return 0
	}
	return t.nodes[t.root].live
}

// nearest：先沿分割面下降到叶子，再沿父链回溯；
// 分割面距离的平方小于当前最优时才搜索另一侧子树
func (t *tree) nearest(q geo.Point) (Item, bool) {
	if t.empty() {
		return Item{}, false
	}
	n := t.root
	for t.nodes[n].item < 0 {
		nd := &t.nodes[n]
		if q.Axis(nd.axis) < nd.median {
			n = nd.left
		} else {
			n = nd.right
		}
	}
	best, bestD := -1, math.Inf(1)
	t.visit(n, q, &best, &bestD)

	child := n
	for p := t.nodes[n].parent; p >= 0; child, p = p, t.nodes[p].parent {
		nd := &t.nodes[p]
		other := nd.left
		if other == child {
			other = nd.right
		}
		d := q.Axis(nd.axis) - nd.median
		if d*d < bestD {
			t.search(other, q, &best, &bestD)
		}
	}
	if best < 0 {
		return Item{}, false
	}
	return t.items[best], true
}

func (t *tree) search(n int, q geo.Point, best *int, bestD *float64) {
	if n < 0 || t.nodes[n].live == 0 {
		return
	}
	nd := &t.nodes[n]
	if nd.item >= 0 {
		t.visit(n, q, best, bestD)
		return
	}
	d := q.Axis(nd.axis) - nd.median
	near, far := nd.left, nd.right
	if d >= 0 {
		near, far = far, near
	}
	t.search(near, q, best, bestD)
	if d*d < *bestD {
		t.search(far, q, best, bestD)
	}
}

func (t *tree) visit(n int, q geo.Point, best *int, bestD *float64) {
	nd := &t.nodes[n]
	if nd.live == 0 {
		return
	}
	if d := t.items[nd.item].P.SquaredDistance(q); d < *bestD {
		*bestD = d
		*best = nd.item
	}
}

func (t *tree) contains(id int) bool {
	n, ok := t.leafOf[id]
	return ok && t.nodes[n].live > 0
}

// remove：叶子置为已删除，沿父链递减 live；子树 live 归零后查询直接跳过
func (t *tree) remove(id int) bool {
	n, ok := t.leafOf[id]
	if !ok || t.nodes[n].live == 0 {
		return false
	}
	for p := n; p >= 0; p = t.nodes[p].parent {
		t.nodes[p].live--
	}
	return true
}

func (t *tree) liveItems() []Item {
	out := make([]Item, 0, t.size())
	for _, it := range t.items {
		if t.contains(it.ID) {
			out = append(out, it)
		}
	}
	return out
}
