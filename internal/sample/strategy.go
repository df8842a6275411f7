package sample

import (
	"fmt"

	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

// 文档注释：抽样策略
// 背景：Sampler 在每个样本开始时调用 Reset(true)，每换一个城镇调用 Reset(false)，建树后调用 Begin；
// Next 返回下一栋建筑的下标，返回后由 Sampler 标记个体并从树中删除该建筑。
// 约束：Validate 在任何搜索开始之前检查必需参数，未设置时返回 ErrInvalidState。
type Strategy interface {
	Kind() Kind
	Validate() error
	Reset(full bool)
	Begin(run *Run) error
	Next(run *Run, tree *spatial.BuildingTree) (int, error)
	ImmediateWeight() float64
	PostWeightFactor(run *Run) float64
	Params() map[string]any
}

func newStrategy(kind Kind, p params) (Strategy, error) {
	switch kind {
	case Random:
		return &randomStrategy{}, nil
	case ArcEPI:
		return newDirectionEPI(ArcEPI, p.arcAngle, p, defaultArcAttempts), nil
	case DirectionEPI:
		return newDirectionEPI(DirectionEPI, halfTurn, p, defaultDirectionAttempts), nil
	case StripEPI:
		return newStripEPI(p), nil
	case GridEPI:
		return &gridEPI{walker: newWalker(p), squares: p.squares, retry: p.retry}, nil
	case CircleGPS:
		return &circleGPS{radius: p.radius, retry: p.retry}, nil
	case SquareGPS:
		return &squareGPS{squares: p.squares, retry: p.retry}, nil
	case Enumeration:
		return &enumerationStrategy{threshold: p.threshold, area: -1}, nil
	}
	return nil, fmt.Errorf("%w: unknown sample type %d", simerr.ErrInvalidState, int(kind))
}

// pick：从候选中均匀取一个
func pick(run *Run, ids []int) (int, int) {
	k := run.Rng.IntN(len(ids))
	return ids[k], k
}

// randomStrategy：在剩余建筑中均匀随机选取，权重恒为 1
type randomStrategy struct{}

func (*randomStrategy) Kind() Kind { return Random }
func (*randomStrategy) Validate() error { return nil }
func (*randomStrategy) Reset(bool) {}
func (*randomStrategy) Begin(*Run) error { return nil }
func (*randomStrategy) ImmediateWeight() float64 { return 1 }
func (*randomStrategy) PostWeightFactor(*Run) float64 { return 1 }
func (*randomStrategy) Params() map[string]any { return map[string]any{} }

func (*randomStrategy) Next(run *Run, tree *spatial.BuildingTree) (int, error) {
	items := tree.Items()
	if len(items) == 0 {
		return -1, fmt.Errorf("%w: no buildings left to sample", simerr.ErrInvalidState)
	}
	return items[run.Rng.IntN(len(items))].ID, nil
}
