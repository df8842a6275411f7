// 包 sample：抽样策略框架与驱动循环
// 背景：策略集合是封闭的（Kind 枚举），每种策略只负责"选下一栋建筑"，
// 标记个体、计数、权重与结果快照由 Sampler 统一完成。
package sample

import (
	"fmt"
	"strings"

	"sampsim/internal/simerr"
)

type Kind int

const (
	Random Kind = iota
	ArcEPI
	StripEPI
	DirectionEPI
	GridEPI
	CircleGPS
	SquareGPS
	Enumeration
)

var kindNames = [...]string{
	Random:       "random",
	ArcEPI:       "arc_epi",
	StripEPI:     "strip_epi",
	DirectionEPI: "direction_epi",
	GridEPI:      "grid_epi",
	CircleGPS:    "circle_gps",
	SquareGPS:    "square_gps",
	Enumeration:  "enumeration",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds：全部策略，按枚举顺序
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind：接受 "arc_epi" 与 "arc-epi" 两种写法
func ParseKind(s string) (Kind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown sample type %q", simerr.ErrInvalidState, s)
}

// 各策略的默认重试次数
const (
	defaultArcAttempts       = 100
	defaultStripAttempts     = 100
	defaultDirectionAttempts = 1000
	defaultGridAttempts      = 1000
	defaultCircleAttempts    = 1000
	defaultSquareAttempts    = 100
)

// 文档注释：有界随机搜索的重试策略
// 约束：MaxAttempts <= 0 时使用策略自身的默认值；所有搜索循环都有上限。
type RetryPolicy struct {
	MaxAttempts int `json:"max_attempts"`
}

func (r RetryPolicy) attempts(def int) int {
	if r.MaxAttempts > 0 {
		return r.MaxAttempts
	}
	return def
}
