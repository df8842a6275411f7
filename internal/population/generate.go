package population

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat/distuv"

	"sampsim/internal/geo"
	"sampsim/internal/logger"
	"sampsim/internal/simerr"
)

// 文档注释：人口生成参数
// 背景：人口拓扑只是抽样核心的输入，分布采用 gonum 实现；参数均可由 CLI/环境变量覆盖。
// 约束：密度为每单位面积个体数；住户人数为 1 + Poisson(MeanHouseholdSize-1)，保证非空。
type Config struct {
	Towns             int     `json:"towns"`
	TilesX            int     `json:"tiles_x"`
	TilesY            int     `json:"tiles_y"`
	TileWidth         float64 `json:"tile_width"`
	PopulationDensity float64 `json:"population_density"`
	DensityJitter     float64 `json:"density_jitter"`
	MeanHouseholdSize float64 `json:"mean_household_size"`
	MeanIncome        float64 `json:"mean_income"`
	SDIncome          float64 `json:"sd_income"`
	MeanRisk          float64 `json:"mean_risk"`
	SDRisk            float64 `json:"sd_risk"`
	Pockets           int     `json:"pockets"`
	PocketSigma       float64 `json:"pocket_sigma"`
	River             bool    `json:"river"`
	RiverWidth        float64 `json:"river_width"`
	Intercept         float64 `json:"intercept"`
	IncomeCoef        float64 `json:"income_coef"`
	RiskCoef          float64 `json:"risk_coef"`
	PocketCoef        float64 `json:"pocket_coef"`
}

func DefaultConfig() Config {
	return Config{
		Towns:             1,
		TilesX:            10,
		TilesY:            10,
		TileWidth:         1,
		PopulationDensity: 100,
		DensityJitter:     0.25,
		MeanHouseholdSize: 4,
		MeanIncome:        1,
		SDIncome:          0.5,
		MeanRisk:          0,
		SDRisk:            1,
		Pockets:           2,
		PocketSigma:       1,
		RiverWidth:        0.2,
		Intercept:         -2,
		IncomeCoef:        -0.5,
		RiskCoef:          0.5,
		PocketCoef:        1.5,
	}
}

func (c Config) validate() error {
	switch {
	case c.Towns <= 0:
		return fmt.Errorf("%w: number of towns must be positive", simerr.ErrInvalidState)
	case c.TilesX <= 0 || c.TilesY <= 0:
		return fmt.Errorf("%w: tile grid must be at least 1x1", simerr.ErrInvalidState)
	case c.TileWidth <= 0:
		return fmt.Errorf("%w: tile width must be positive", simerr.ErrInvalidState)
	case c.PopulationDensity <= 0:
		return fmt.Errorf("%w: population density must be positive", simerr.ErrInvalidState)
	case c.MeanHouseholdSize < 1:
		return fmt.Errorf("%w: mean household size must be at least 1", simerr.ErrInvalidState)
	}
	return nil
}

// Generate：按配置生成人口；所有随机数取自 rng
func Generate(cfg Config, rng *rand.Rand) (*Population, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := &generator{cfg: cfg, rng: rng, p: &Population{}}
	g.size = distuv.Poisson{Lambda: cfg.MeanHouseholdSize - 1, Src: rng}
	g.income = lognormal(cfg.MeanIncome, cfg.SDIncome, rng)
	g.risk = distuv.Normal{Mu: cfg.MeanRisk, Sigma: math.Max(cfg.SDRisk, 1e-9), Src: rng}
	for t := 0; t < cfg.Towns; t++ {
		if err := g.town(t); err != nil {
			return nil, err
		}
	}
	logger.L().Info("population_generated",
		"towns", len(g.p.Towns),
		"buildings", len(g.p.Buildings),
		"households", len(g.p.Households),
		"individuals", len(g.p.Individuals),
	)
	return g.p, nil
}

// lognormal：由均值/标准差换算对数正态的 μ、σ
func lognormal(mean, sd float64, src rand.Source) distuv.LogNormal {
	if mean <= 0 {
		mean = 1
	}
	s2 := math.Log(1 + (sd*sd)/(mean*mean))
	return distuv.LogNormal{Mu: math.Log(mean) - s2/2, Sigma: math.Max(math.Sqrt(s2), 1e-9), Src: src}
}

type generator struct {
	cfg    Config
	rng    *rand.Rand
	p      *Population
	size   distuv.Poisson
	income distuv.LogNormal
	risk   distuv.Normal
}

func (g *generator) town(index int) error {
	g.p.Towns = append(g.p.Towns, Town{Index: index, TilesX: g.cfg.TilesX, TilesY: g.cfg.TilesY, TileWidth: g.cfg.TileWidth})
	t := &g.p.Towns[index]
	c := t.Centroid()
	for k := 0; k < g.cfg.Pockets; k++ {
		t.Pockets = append(t.Pockets, geo.Pt(g.rng.Float64()*t.Width(), g.rng.Float64()*t.Height()))
	}
	if g.cfg.River {
		// 倾角限制在 ±π/3，避免 tan 过大
		angle := (g.rng.Float64()*2 - 1) * math.Pi / 3
		off := g.cfg.RiverWidth / 2
		nx, ny := -math.Sin(angle)*off, math.Cos(angle)*off
		t.HasRiver = true
		t.RiverBanks = [2]geo.Line{
			{Intercept: geo.Pt(c.X+nx, c.Y+ny), Angle: angle},
			{Intercept: geo.Pt(c.X-nx, c.Y-ny), Angle: angle},
		}
	}
	for i := 0; i < g.cfg.TilesX; i++ {
		for j := 0; j < g.cfg.TilesY; j++ {
			if err := g.tile(index, i, j); err != nil {
				return err
			}
		}
	}
	return nil
}

// maxPlacementAttempts：单栋建筑避开河道的取点上限
const maxPlacementAttempts = 1000

// tile：持续添加建筑直到达到密度；(i+j) 为偶数的地块丢弃越过密度的那一栋，使整体密度接近目标
// 约束：河道覆盖整个地块且两岸都在城镇外时，取点 maxPlacementAttempts 次后返回 ErrExhausted
func (g *generator) tile(town, i, j int) error {
	w := g.cfg.TileWidth
	idx := len(g.p.Tiles)
	density := g.cfg.PopulationDensity * (1 + g.cfg.DensityJitter*(2*g.rng.Float64()-1))
	if density <= 0 {
		density = g.cfg.PopulationDensity
	}
	b := orb.Bound{Min: orb.Point{float64(i) * w, float64(j) * w}, Max: orb.Point{float64(i+1) * w, float64(j+1) * w}}
	g.p.Tiles = append(g.p.Tiles, Tile{Index: idx, Town: town, I: i, J: j, Bound: b, Density: density})
	g.p.Towns[town].Tiles = append(g.p.Towns[town].Tiles, idx)

	stopAfter := (i+j)%2 != 0
	area := w * w
	people := 0
	for float64(people)/area < density {
		pos, ok := geo.Point{}, false
		for attempt := 0; !ok; attempt++ {
			if attempt == maxPlacementAttempts {
				return fmt.Errorf("%w: unable to place a building outside the river in tile (%d,%d) of town %d after %d attempts; narrow the river",
					simerr.ErrExhausted, i, j, town, maxPlacementAttempts)
			}
			pos, ok = g.avoidRiver(town, geo.Pt(b.Min[0]+g.rng.Float64()*w, b.Min[1]+g.rng.Float64()*w))
		}
		size := 1 + int(g.size.Rand())
		if !stopAfter && float64(people+size)/area >= density && people > 0 {
			break
		}
		g.building(town, idx, pos, size)
		people += size
	}
	return nil
}

// avoidRiver：河道内的点移到最近的河岸；两岸垂足都落在城镇外时返回 false，由调用方重新抽点
func (g *generator) avoidRiver(town int, p geo.Point) (geo.Point, bool) {
	t := &g.p.Towns[town]
	if !t.HasRiver || !geo.PointInsideStrip(p, t.RiverBanks[0], t.RiverBanks[1]) {
		return p, true
	}
	banks := []geo.Line{t.RiverBanks[0], t.RiverBanks[1]}
	if banks[1].DistanceFromPoint(p) < banks[0].DistanceFromPoint(p) {
		banks[0], banks[1] = banks[1], banks[0]
	}
	ext := t.Extent()
	for _, bank := range banks {
		if q := bank.Project(p); geo.InBound(ext, q, true, true) {
			return q, true
		}
	}
	return p, false
}

// building：目前每栋建筑一户
func (g *generator) building(town, tile int, pos geo.Point, size int) {
	t := &g.p.Towns[town]
	bi := len(g.p.Buildings)
	g.p.Buildings = append(g.p.Buildings, Building{Index: bi, Town: town, Tile: tile, Pos: pos.WithCentroid(t.Centroid())})
	t.Buildings = append(t.Buildings, bi)
	g.p.Tiles[tile].Buildings = append(g.p.Tiles[tile].Buildings, bi)

	hi := len(g.p.Households)
	h := Household{Index: hi, Building: bi, Income: g.income.Rand(), DiseaseRisk: g.risk.Rand()}
	g.p.Buildings[bi].Households = append(g.p.Buildings[bi].Households, hi)

	prob := g.diseaseProbability(town, pos, h)
	sick := distuv.Bernoulli{P: prob, Src: g.rng}
	first := g.rng.IntN(2) == 0
	for k := 0; k < size; k++ {
		ind := Individual{Index: len(g.p.Individuals), Household: hi, Diseased: sick.Rand() == 1}
		switch k {
		case 0:
			ind.Age, ind.Sex = Adult, sexOf(first)
		case 1:
			ind.Age, ind.Sex = Adult, sexOf(!first)
		default:
			ind.Age, ind.Sex = Child, sexOf(g.rng.IntN(2) == 0)
		}
		h.Individuals = append(h.Individuals, ind.Index)
		g.p.Individuals = append(g.p.Individuals, ind)
	}
	g.p.Households = append(g.p.Households, h)
}

func sexOf(male bool) Sex {
	if male {
		return Male
	}
	return Female
}

// diseaseProbability：logistic(b0 + b1·收入/均值 + b2·风险 + b3·Σ 病灶核)
func (g *generator) diseaseProbability(town int, pos geo.Point, h Household) float64 {
	t := &g.p.Towns[town]
	pocket := 0.0
	s2 := 2 * g.cfg.PocketSigma * g.cfg.PocketSigma
	for _, c := range t.Pockets {
		if s2 > 0 {
			pocket += math.Exp(-pos.SquaredDistance(c) / s2)
		}
	}
	income := h.Income
	if g.cfg.MeanIncome > 0 {
		income /= g.cfg.MeanIncome
	}
	z := g.cfg.Intercept + g.cfg.IncomeCoef*income + g.cfg.RiskCoef*h.DiseaseRisk + g.cfg.PocketCoef*pocket
	return 1 / (1 + math.Exp(-z))
}
