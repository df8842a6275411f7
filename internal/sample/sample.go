package sample

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"

	"sampsim/internal/logger"
	"sampsim/internal/metrics"
	"sampsim/internal/population"
	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

// 文档注释：抽样配置
// 背景：Size 为每个城镇需要选中的个体数；年龄/性别过滤为 Any 时不限制。
// 约束：Age/Sex 不能是 Unknown；Size、NumberOfSamples、NumberOfTowns 必须为正。
type Config struct {
	Size             int            `json:"size"`
	Age              population.Age `json:"age"`
	Sex              population.Sex `json:"sex"`
	OnePerHousehold  bool           `json:"one_per_household"`
	UseSampleWeights bool           `json:"use_sample_weights"`
	Seed             string         `json:"seed"`
	NumberOfSamples  int            `json:"number_of_samples"`
	NumberOfTowns    int            `json:"number_of_towns"`
	ResampleTowns    bool           `json:"resample_towns"`
}

func DefaultConfig() Config {
	return Config{Age: population.AnyAge, Sex: population.AnySex, NumberOfSamples: 1, NumberOfTowns: 1}
}

func (c Config) validate() error {
	if c.Age == population.UnknownAge {
		return fmt.Errorf("%w: cannot generate sample, age type is unknown", simerr.ErrInvalidState)
	}
	if c.Sex == population.UnknownSex {
		return fmt.Errorf("%w: cannot generate sample, sex type is unknown", simerr.ErrInvalidState)
	}
	if c.Size <= 0 {
		return fmt.Errorf("%w: sample size must be positive", simerr.ErrInvalidState)
	}
	if c.NumberOfSamples <= 0 || c.NumberOfTowns <= 0 {
		return fmt.Errorf("%w: number of samples and towns must be positive", simerr.ErrInvalidState)
	}
	return nil
}

// params：各策略的参数集合，由 Option 设置，New 时交给对应策略
type params struct {
	arcAngle   float64
	stripWidth float64
	sectors    int
	startAngle *float64
	quadrants  bool
	periphery  bool
	squares    int
	radius     float64
	threshold  int
	retry      RetryPolicy
}

type Option func(*Sampler)

func WithArcAngle(a float64) Option { return func(s *Sampler) { s.p.arcAngle = a } }
func WithStripWidth(w float64) Option { return func(s *Sampler) { s.p.stripWidth = w } }
func WithNumberOfSectors(n int) Option { return func(s *Sampler) { s.p.sectors = n } }
func WithQuadrants(on bool) Option { return func(s *Sampler) { s.p.quadrants = on } }
func WithPeriphery(on bool) Option { return func(s *Sampler) { s.p.periphery = on } }
func WithNumberOfSquares(n int) Option { return func(s *Sampler) { s.p.squares = n } }
func WithRadius(r float64) Option { return func(s *Sampler) { s.p.radius = r } }
func WithThreshold(n int) Option { return func(s *Sampler) { s.p.threshold = n } }
func WithRetryPolicy(r RetryPolicy) Option { return func(s *Sampler) { s.p.retry = r } }

// WithStartAngle：固定起始角（弧度），不再随机
func WithStartAngle(a float64) Option {
	return func(s *Sampler) { s.p.startAngle = &a }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// 文档注释：抽样器
// 背景：包装一种策略并执行驱动循环；同一个 Sampler 不能并发调用 Generate。
type Sampler struct {
	kind     Kind
	cfg      Config
	p        params
	strategy Strategy
	log      *slog.Logger
}

// New：构造指定类型的抽样器；参数合法性在 Generate 开始前检查
func New(kind Kind, cfg Config, opts ...Option) (*Sampler, error) {
	s := &Sampler{kind: kind, cfg: cfg, log: logger.L()}
	s.p.sectors = 1
	s.p.threshold = 100
	for _, o := range opts {
		o(s)
	}
	st, err := newStrategy(kind, s.p)
	if err != nil {
		return nil, err
	}
	s.strategy = st
	return s, nil
}

func (s *Sampler) Kind() Kind { return s.kind }

func (s *Sampler) Config() Config { return s.cfg }

// Run：一次抽样过程中策略可见的状态
type Run struct {
	Pop             *population.Population
	Town            *population.Town
	Tree            *spatial.BuildingTree
	Rng             *rand.Rand
	Size            int
	CurrentSize     int
	CurrentTownSize int

	kind Kind
	log  *slog.Logger
}

// randomPoint：城镇包围盒内的均匀随机点
func (r *Run) randomPoint() (x, y float64) {
	c := r.Town.Centroid()
	return 2 * c.X * r.Rng.Float64(), 2 * c.Y * r.Rng.Float64()
}

// Selection：一次样本的选中结果快照
type Selection struct {
	Index         int       `json:"index"`
	Towns         []int     `json:"towns"`
	FirstBuilding int       `json:"first_building"`
	Buildings     []int     `json:"buildings"`
	Households    []int     `json:"households"`
	Individuals   []int     `json:"individuals"`
	Weights       []float64 `json:"weights"`
	TotalWeight   float64   `json:"total_weight"`
	Incomplete    bool      `json:"incomplete,omitempty"`
	Stats         []Stat    `json:"stats"`
}

type Result struct {
	Kind       string         `json:"type"`
	Seed       string         `json:"seed"`
	Params     map[string]any `json:"params"`
	Config     Config         `json:"config"`
	Selections []Selection    `json:"selections"`
	Population []Stat         `json:"population"`
	Summary    Summary        `json:"summary"`
}

// Generate：驱动循环
// 背景：对每个样本：清空选中状态 → 逐城镇建树 → 反复让策略选建筑并标记个体，直到城镇达到 Size。
// 约束：候选耗尽只记 warn 并返回部分样本；策略返回的错误（InvalidState/Exhausted）直接向上返回。
func (s *Sampler) Generate(ctx context.Context, pop *population.Population) (*Result, error) {
	start := time.Now()
	res, err := s.generate(ctx, pop)
	metrics.SampleDurationMs.WithLabelValues(s.kind.String()).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.SampleFailuresTotal.WithLabelValues(s.kind.String(), reason(err)).Inc()
		return nil, err
	}
	metrics.SamplesTotal.WithLabelValues(s.kind.String()).Inc()
	return res, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, simerr.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, simerr.ErrExhausted):
		return "exhausted"
	case errors.Is(err, simerr.ErrDataInconsistency):
		return "data_inconsistency"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}

func (s *Sampler) generate(ctx context.Context, pop *population.Population) (*Result, error) {
	if err := s.cfg.validate(); err != nil {
		return nil, err
	}
	if err := s.strategy.Validate(); err != nil {
		return nil, err
	}
	if pop == nil || len(pop.Towns) == 0 {
		return nil, fmt.Errorf("%w: population has no towns", simerr.ErrInvalidState)
	}

	seed, rng := population.NewRNG(s.cfg.Seed)
	s.log.Info("sample_begin",
		"type", s.kind.String(),
		"seed", seed,
		"size", s.cfg.Size,
		"samples", s.cfg.NumberOfSamples,
		"towns", s.cfg.NumberOfTowns,
	)

	pop.Unselect()
	res := &Result{
		Kind:       s.kind.String(),
		Seed:       seed,
		Config:     s.cfg,
		Population: PopulationStats(pop),
	}
	res.Config.Seed = seed

	popCount := pop.Count(s.cfg.Age, s.cfg.Sex)
	townCounts := make([]int, len(pop.Towns))
	for t := range pop.Towns {
		townCounts[t] = pop.TownCount(t, s.cfg.Age, s.cfg.Sex)
	}
	w := weigher{cfg: s.cfg, popCount: popCount, townCounts: townCounts}

	towns := pickTowns(pop, s.cfg.NumberOfTowns, rng)
	for si := 0; si < s.cfg.NumberOfSamples; si++ {
		if si > 0 && s.cfg.ResampleTowns {
			towns = pickTowns(pop, s.cfg.NumberOfTowns, rng)
		}
		pop.Unselect()
		s.strategy.Reset(true)
		run := &Run{Pop: pop, Rng: rng, Size: s.cfg.Size, kind: s.kind, log: s.log}
		sel := Selection{Index: si, Towns: append([]int(nil), towns...), FirstBuilding: -1}

		for ti, town := range towns {
			if ti > 0 {
				s.strategy.Reset(false)
			}
			run.Town = &pop.Towns[town]
			run.CurrentTownSize = 0
			t0 := time.Now()
			run.Tree = spatial.NewBuildingTree(remainingItems(pop, town))
			metrics.TreeBuildDurationMs.Observe(float64(time.Since(t0).Microseconds()) / 1000)
			s.log.Debug("tree_built", "town", town, "buildings", run.Tree.Len())
			if err := s.strategy.Begin(run); err != nil {
				return nil, err
			}
			complete, err := s.sampleTown(ctx, run, &sel, w)
			if err != nil {
				return nil, err
			}
			if !complete {
				sel.Incomplete = true
			}
		}

		if s.cfg.UseSampleWeights {
			if f := s.strategy.PostWeightFactor(run); f != 1 {
				for _, i := range pop.SelectedIndividuals() {
					pop.Individuals[i].Weight *= f
				}
			}
		}
		s.snapshot(pop, &sel)
		res.Selections = append(res.Selections, sel)
		s.log.Info("sample_done",
			"type", s.kind.String(),
			"sample", si+1,
			"households", len(sel.Households),
			"individuals", len(sel.Individuals),
			"towns", len(towns),
		)
	}
	res.Params = s.strategy.Params()
	res.Summary = Summarize(res)
	return res, nil
}

// sampleTown：单个城镇的选取循环；返回 false 表示候选耗尽未达到 Size
func (s *Sampler) sampleTown(ctx context.Context, run *Run, sel *Selection, w weigher) (bool, error) {
	tree := run.Tree
	last := -1
	for run.CurrentTownSize < s.cfg.Size {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if tree.Empty() {
			s.incomplete(run, "tree_empty")
			return false, nil
		}
		b, err := s.strategy.Next(run, tree)
		if err != nil {
			return false, err
		}
		if b == last || !tree.Contains(b) {
			s.incomplete(run, "repeated_building")
			return false, nil
		}
		last = b
		if sel.FirstBuilding < 0 {
			sel.FirstBuilding = b
		}
		s.selectBuilding(run, b, w)
		tree.Remove(b)
		metrics.BuildingsSelectedTotal.WithLabelValues(s.kind.String()).Inc()
	}
	return true, nil
}

// remainingItems：城镇内尚未选中的建筑；同一样本重复抽到的城镇从剩余建筑继续
func remainingItems(pop *population.Population, town int) []spatial.Item {
	return slices.DeleteFunc(pop.BuildingItems(town), func(it spatial.Item) bool {
		return pop.Buildings[it.ID].Selected
	})
}

func (s *Sampler) incomplete(run *Run, why string) {
	metrics.SampleFailuresTotal.WithLabelValues(s.kind.String(), "incomplete").Inc()
	s.log.Warn("sample_incomplete",
		"type", s.kind.String(),
		"town", run.Town.Index,
		"reason", why,
		"town_size", run.CurrentTownSize,
		"want", s.cfg.Size,
		"buildings_left", run.Tree.Len(),
	)
}

// selectBuilding：按住户顺序标记匹配的个体；城镇达到 Size 后不再继续下一户
func (s *Sampler) selectBuilding(run *Run, b int, w weigher) {
	pop := run.Pop
	imm := s.strategy.ImmediateWeight()
	for _, h := range pop.Buildings[b].Households {
		count := 0
		for _, i := range pop.Households[h].Individuals {
			if !pop.Match(i, s.cfg.Age, s.cfg.Sex) {
				continue
			}
			pop.SelectIndividual(i, w.weight(pop, i, imm))
			count++
			if s.cfg.OnePerHousehold {
				break
			}
		}
		if count == 0 {
			continue
		}
		run.CurrentSize += count
		run.CurrentTownSize += count
		if run.CurrentTownSize >= s.cfg.Size {
			break
		}
	}
}

func (s *Sampler) snapshot(pop *population.Population, sel *Selection) {
	sel.Buildings = pop.SelectedBuildings()
	sel.Households = pop.SelectedHouseholds()
	sel.Individuals = pop.SelectedIndividuals()
	sel.Weights = make([]float64, len(sel.Individuals))
	for k, i := range sel.Individuals {
		sel.Weights[k] = pop.Individuals[i].Weight
	}
	sel.TotalWeight = floats.Sum(sel.Weights)
	sel.Stats = statsOf(pop.Summarize(sel.Individuals))
}

// weigher：抽样权重 = 人口计数/城镇计数 ×（每户一人时）住户匹配数 × 策略即时权重
type weigher struct {
	cfg        Config
	popCount   int
	townCounts []int
}

func (w weigher) weight(pop *population.Population, i int, immediate float64) float64 {
	if !w.cfg.UseSampleWeights {
		return 1
	}
	if w.popCount == 0 {
		return 0
	}
	h := pop.Individuals[i].Household
	town := pop.Buildings[pop.Households[h].Building].Town
	tc := w.townCounts[town]
	if tc == 0 {
		return 0
	}
	v := float64(w.popCount) / float64(tc)
	if w.cfg.OnePerHousehold {
		v *= float64(pop.HouseholdCount(h, w.cfg.Age, w.cfg.Sex))
	}
	return v * immediate
}

// pickTowns：按个体累计数做系统抽样；个体多的城镇被选中的概率更大，可重复
func pickTowns(pop *population.Population, n int, rng *rand.Rand) []int {
	cum := make([]int, len(pop.Towns))
	total := 0
	for t := range pop.Towns {
		total += pop.TownCount(t, population.AnyAge, population.AnySex)
		cum[t] = total
	}
	chunk := total / n
	if chunk < 1 {
		chunk = 1
	}
	sel := 1 + rng.IntN(chunk)
	out := make([]int, 0, n)
	for k := 0; k < n; k++ {
		town := len(pop.Towns) - 1
		for t, c := range cum {
			if sel < c {
				town = t
				break
			}
		}
		out = append(out, town)
		sel += chunk
	}
	return out
}
