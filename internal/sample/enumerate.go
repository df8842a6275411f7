package sample

import (
	"fmt"

	"sampsim/internal/enumeration"
	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

// 文档注释：枚举区抽样
// 背景：每个城镇建一次建筑目录；随机选一个未用过的枚举区，在区内均匀选剩余建筑，直到该区取尽再换区。
// 约束：所有枚举区都已用过且没有剩余建筑时返回 ErrExhausted；权重恒为 1。
type enumerationStrategy struct {
	threshold int
	cat       *enumeration.Catalogue
	used      []bool
	area      int
}

func (e *enumerationStrategy) Kind() Kind { return Enumeration }

func (e *enumerationStrategy) Validate() error {
	if e.threshold <= 0 {
		return fmt.Errorf("%w: tried to sample without first setting the enumeration threshold", simerr.ErrInvalidState)
	}
	return nil
}

func (e *enumerationStrategy) Reset(bool) { e.area = -1 }

func (e *enumerationStrategy) Begin(run *Run) error {
	if run.Tree.Empty() {
		// 城镇已被之前的轮次取尽：不建目录，由驱动循环记为不完整样本
		e.cat, e.used, e.area = nil, nil, -1
		return nil
	}
	cat, err := enumeration.NewCatalogue(run.Tree.Items(), run.Town.Extent(), e.threshold)
	if err != nil {
		return err
	}
	e.cat = cat
	e.used = make([]bool, cat.Len())
	e.area = -1
	run.log.Debug("catalogue_built", "town", run.Town.Index, "areas", cat.Len(), "threshold", e.threshold)
	return nil
}

func (e *enumerationStrategy) ImmediateWeight() float64 { return 1 }

func (e *enumerationStrategy) PostWeightFactor(*Run) float64 { return 1 }

func (e *enumerationStrategy) Params() map[string]any {
	m := map[string]any{"threshold": e.threshold}
	if e.cat != nil {
		m["number_of_areas"] = e.cat.Len()
	}
	return m
}

// remaining：枚举区内仍在树中的建筑
func (e *enumerationStrategy) remaining(k int, tree *spatial.BuildingTree) []int {
	var out []int
	for _, it := range e.cat.Areas()[k].Items {
		if tree.Contains(it.ID) {
			out = append(out, it.ID)
		}
	}
	return out
}

func (e *enumerationStrategy) Next(run *Run, tree *spatial.BuildingTree) (int, error) {
	if e.cat == nil {
		return -1, fmt.Errorf("%w: no enumeration catalogue for town %d", simerr.ErrInvalidState, run.Town.Index)
	}
	if e.area >= 0 {
		if ids := e.remaining(e.area, tree); len(ids) > 0 {
			b, _ := pick(run, ids)
			return b, nil
		}
	}
	for {
		var unused []int
		for k, u := range e.used {
			if !u {
				unused = append(unused, k)
			}
		}
		if len(unused) == 0 {
			return -1, fmt.Errorf("%w: all enumeration areas have been used before completing sample; lower the sample size",
				simerr.ErrExhausted)
		}
		k, _ := pick(run, unused)
		e.used[k] = true
		if ids := e.remaining(k, tree); len(ids) > 0 {
			e.area = k
			b, _ := pick(run, ids)
			run.log.Debug("enumeration_area_selected", "area", k, "buildings", len(ids))
			return b, nil
		}
	}
}
