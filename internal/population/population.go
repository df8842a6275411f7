// 包 population：城镇 → 地块 → 建筑 → 住户 → 个体 的层级人口模型
// 背景：所有实体存放在 Population 的扁平数组中，父引用为下标，避免指针环；
// 选中状态向上传播（选中个体即选中其住户与建筑），取消选中向下传播。
package population

import (
	"github.com/paulmach/orb"

	"sampsim/internal/geo"
	"sampsim/internal/spatial"
)

type Town struct {
	Index      int         `json:"index"`
	TilesX     int         `json:"tiles_x"`
	TilesY     int         `json:"tiles_y"`
	TileWidth  float64     `json:"tile_width"`
	Tiles      []int       `json:"tiles"`
	Buildings  []int       `json:"buildings"`
	Pockets    []geo.Point `json:"pockets,omitempty"`
	HasRiver   bool        `json:"has_river"`
	RiverBanks [2]geo.Line `json:"river_banks"`
}

func (t *Town) Width() float64 { return float64(t.TilesX) * t.TileWidth }

func (t *Town) Height() float64 { return float64(t.TilesY) * t.TileWidth }

func (t *Town) Extent() orb.Bound { return geo.Extent(t.Width(), t.Height()) }

// Centroid：城镇范围中心，作为极角原点
func (t *Town) Centroid() geo.Point { return geo.Pt(t.Width()/2, t.Height()/2) }

func (t *Town) Area() float64 { return t.Width() * t.Height() }

type Tile struct {
	Index     int       `json:"index"`
	Town      int       `json:"town"`
	I         int       `json:"i"`
	J         int       `json:"j"`
	Bound     orb.Bound `json:"bound"`
	Density   float64   `json:"density"`
	Buildings []int     `json:"buildings"`
}

type Building struct {
	Index      int       `json:"index"`
	Town       int       `json:"town"`
	Tile       int       `json:"tile"`
	Pos        geo.Point `json:"pos"`
	Households []int     `json:"households"`
	Selected   bool      `json:"selected,omitempty"`
}

type Household struct {
	Index       int     `json:"index"`
	Building    int     `json:"building"`
	Individuals []int   `json:"individuals"`
	Income      float64 `json:"income"`
	DiseaseRisk float64 `json:"disease_risk"`
	Selected    bool    `json:"selected,omitempty"`
}

type Individual struct {
	Index     int     `json:"index"`
	Household int     `json:"household"`
	Age       Age     `json:"age"`
	Sex       Sex     `json:"sex"`
	Diseased  bool    `json:"diseased"`
	Selected  bool    `json:"selected,omitempty"`
	Weight    float64 `json:"weight,omitempty"`
}

type Population struct {
	Seed        string       `json:"seed"`
	Towns       []Town       `json:"towns"`
	Tiles       []Tile       `json:"tiles"`
	Buildings   []Building   `json:"buildings"`
	Households  []Household  `json:"households"`
	Individuals []Individual `json:"individuals"`
}

// SelectIndividual：选中个体并记录权重，向上选中住户与建筑
func (p *Population) SelectIndividual(i int, weight float64) {
	ind := &p.Individuals[i]
	ind.Selected = true
	ind.Weight = weight
	h := &p.Households[ind.Household]
	h.Selected = true
	p.Buildings[h.Building].Selected = true
}

// UnselectHousehold：取消住户及其全部个体
func (p *Population) UnselectHousehold(h int) {
	hh := &p.Households[h]
	hh.Selected = false
	for _, i := range hh.Individuals {
		p.Individuals[i].Selected = false
		p.Individuals[i].Weight = 0
	}
}

// UnselectBuilding：取消建筑及其全部住户、个体；不影响城镇
func (p *Population) UnselectBuilding(b int) {
	bb := &p.Buildings[b]
	bb.Selected = false
	for _, h := range bb.Households {
		p.UnselectHousehold(h)
	}
}

// Unselect：清除整个人口的选中状态
func (p *Population) Unselect() {
	for b := range p.Buildings {
		p.UnselectBuilding(b)
	}
}

func (p *Population) TownOf(b int) *Town { return &p.Towns[p.Buildings[b].Town] }

// BuildingItems：城镇内全部建筑的空间记录，ID 为建筑下标
func (p *Population) BuildingItems(town int) []spatial.Item {
	t := &p.Towns[town]
	out := make([]spatial.Item, 0, len(t.Buildings))
	for _, b := range t.Buildings {
		out = append(out, spatial.Item{ID: b, P: p.Buildings[b].Pos})
	}
	return out
}

// Match：个体是否满足年龄/性别过滤
func (p *Population) Match(i int, age Age, sex Sex) bool {
	ind := &p.Individuals[i]
	return MatchAge(age, ind.Age) && MatchSex(sex, ind.Sex)
}

func (p *Population) HouseholdCount(h int, age Age, sex Sex) int {
	n := 0
	for _, i := range p.Households[h].Individuals {
		if p.Match(i, age, sex) {
			n++
		}
	}
	return n
}

func (p *Population) BuildingCount(b int, age Age, sex Sex) int {
	n := 0
	for _, h := range p.Buildings[b].Households {
		n += p.HouseholdCount(h, age, sex)
	}
	return n
}

func (p *Population) TownCount(town int, age Age, sex Sex) int {
	n := 0
	for _, b := range p.Towns[town].Buildings {
		n += p.BuildingCount(b, age, sex)
	}
	return n
}

func (p *Population) Count(age Age, sex Sex) int {
	n := 0
	for t := range p.Towns {
		n += p.TownCount(t, age, sex)
	}
	return n
}

func (p *Population) SelectedBuildings() []int {
	var out []int
	for i := range p.Buildings {
		if p.Buildings[i].Selected {
			out = append(out, i)
		}
	}
	return out
}

func (p *Population) SelectedHouseholds() []int {
	var out []int
	for i := range p.Households {
		if p.Households[i].Selected {
			out = append(out, i)
		}
	}
	return out
}

func (p *Population) SelectedIndividuals() []int {
	var out []int
	for i := range p.Individuals {
		if p.Individuals[i].Selected {
			out = append(out, i)
		}
	}
	return out
}
