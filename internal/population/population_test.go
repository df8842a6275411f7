package population

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"

	"sampsim/internal/geo"
	"sampsim/internal/simerr"
)

// tiny：两栋建筑、三户、六个个体的手工人口
func tiny() *Population {
	p := &Population{Seed: "tiny"}
	p.Towns = []Town{{Index: 0, TilesX: 1, TilesY: 1, TileWidth: 10, Buildings: []int{0, 1}}}
	p.Buildings = []Building{
		{Index: 0, Town: 0, Pos: geo.Pt(1, 1), Households: []int{0, 1}},
		{Index: 1, Town: 0, Pos: geo.Pt(8, 8), Households: []int{2}},
	}
	p.Households = []Household{
		{Index: 0, Building: 0, Individuals: []int{0, 1}},
		{Index: 1, Building: 0, Individuals: []int{2}},
		{Index: 2, Building: 1, Individuals: []int{3, 4, 5}},
	}
	p.Individuals = []Individual{
		{Index: 0, Household: 0, Age: Adult, Sex: Male, Diseased: true},
		{Index: 1, Household: 0, Age: Adult, Sex: Female},
		{Index: 2, Household: 1, Age: Adult, Sex: Female, Diseased: true},
		{Index: 3, Household: 2, Age: Adult, Sex: Male},
		{Index: 4, Household: 2, Age: Adult, Sex: Female},
		{Index: 5, Household: 2, Age: Child, Sex: Male, Diseased: true},
	}
	return p
}

func TestSelectionPropagation(t *testing.T) {
	t.Parallel()
	p := tiny()
	p.SelectIndividual(2, 1.5)
	if !p.Households[1].Selected || !p.Buildings[0].Selected {
		t.Fatalf("SelectIndividual() did not propagate up")
	}
	if p.Households[0].Selected || p.Individuals[0].Selected {
		t.Fatalf("SelectIndividual() propagated down or sideways")
	}
	if got := p.Individuals[2].Weight; got != 1.5 {
		t.Fatalf("Weight = %v, want 1.5", got)
	}

	p.SelectIndividual(0, 1)
	p.UnselectHousehold(0)
	if p.Individuals[0].Selected || p.Households[0].Selected {
		t.Fatalf("UnselectHousehold() left household 0 selected")
	}
	if !p.Buildings[0].Selected {
		t.Fatalf("UnselectHousehold() propagated up to the building")
	}

	p.UnselectBuilding(0)
	if p.Buildings[0].Selected || p.Households[1].Selected || p.Individuals[2].Selected {
		t.Fatalf("UnselectBuilding() left descendants selected")
	}

	p.SelectIndividual(5, 1)
	p.Unselect()
	if got := p.SelectedIndividuals(); len(got) != 0 {
		t.Fatalf("Unselect() left %v selected", got)
	}
}

func TestCounts(t *testing.T) {
	t.Parallel()
	p := tiny()
	tests := []struct {
		age  Age
		sex  Sex
		want int
	}{
		{AnyAge, AnySex, 6},
		{Adult, AnySex, 5},
		{Child, AnySex, 1},
		{AnyAge, Female, 3},
		{Child, Female, 0},
	}
	for _, tt := range tests {
		if got := p.Count(tt.age, tt.sex); got != tt.want {
			t.Fatalf("Count(%v, %v) = %d, want %d", tt.age, tt.sex, got, tt.want)
		}
	}
	if got := p.BuildingCount(0, Adult, Female); got != 2 {
		t.Fatalf("BuildingCount(0, adult, female) = %d, want 2", got)
	}
}

func TestParseFilters(t *testing.T) {
	t.Parallel()
	if a, err := ParseAge("either"); err != nil || a != AnyAge {
		t.Fatalf("ParseAge(either) = %v, %v", a, err)
	}
	if _, err := ParseAge("elder"); err == nil {
		t.Fatalf("ParseAge(elder) error = nil, want error")
	}
	if s, err := ParseSex("Female"); err != nil || s != Female {
		t.Fatalf("ParseSex(Female) = %v, %v", s, err)
	}
	if !MatchSex(AnySex, Male) || MatchSex(Female, Male) {
		t.Fatalf("MatchSex() wrong")
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()
	p := tiny()
	if got := p.Summarize(nil).Count(AnyAge, AnySex); got != 0 {
		t.Fatalf("Summarize(nil).Count() = %d, want 0", got)
	}
	s := p.SummarizeAll()
	if got := s.Prevalence(AnyAge, AnySex); got != 0.5 {
		t.Fatalf("Prevalence(any, any) = %v, want 0.5", got)
	}
	if got := s.Prevalence(Child, Male); got != 1 {
		t.Fatalf("Prevalence(child, male) = %v, want 1", got)
	}
	if got := s.Prevalence(Child, Female); got != 0 {
		t.Fatalf("Prevalence(child, female) = %v, want 0", got)
	}

	p.SelectIndividual(0, 3)
	p.SelectIndividual(1, 1)
	s = p.Summarize(p.SelectedIndividuals())
	if got := s.Count(AnyAge, AnySex); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
	if got := s.WeightedPrevalence(AnyAge, AnySex); got != 0.75 {
		t.Fatalf("WeightedPrevalence() = %v, want 0.75", got)
	}
}

func TestGenerateInvariants(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Towns = 2
	cfg.TilesX, cfg.TilesY = 4, 3
	cfg.PopulationDensity = 40
	cfg.River = true
	p, err := Generate(cfg, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(p.Towns) != 2 || len(p.Tiles) != 24 {
		t.Fatalf("Generate() towns,tiles = %d,%d, want 2,24", len(p.Towns), len(p.Tiles))
	}
	for _, tile := range p.Tiles {
		if len(tile.Buildings) == 0 {
			t.Fatalf("tile %d has no buildings", tile.Index)
		}
	}
	for _, b := range p.Buildings {
		town := &p.Towns[b.Town]
		if !geo.InBound(town.Extent(), b.Pos, true, true) {
			t.Fatalf("building %d at %v outside town extent", b.Index, b.Pos)
		}
		if town.HasRiver && geo.PointInsideStrip(b.Pos, town.RiverBanks[0], town.RiverBanks[1]) {
			// 正好落在河岸上的点允许存在
			d := min(town.RiverBanks[0].DistanceFromPoint(b.Pos), town.RiverBanks[1].DistanceFromPoint(b.Pos))
			if d > 1e-9 {
				t.Fatalf("building %d at %v inside the river", b.Index, b.Pos)
			}
		}
	}
	for _, h := range p.Households {
		if len(h.Individuals) == 0 {
			t.Fatalf("household %d is empty", h.Index)
		}
		first := p.Individuals[h.Individuals[0]]
		if first.Age != Adult {
			t.Fatalf("household %d head age = %v, want adult", h.Index, first.Age)
		}
		if len(h.Individuals) >= 2 {
			second := p.Individuals[h.Individuals[1]]
			if second.Age != Adult || second.Sex == first.Sex {
				t.Fatalf("household %d second member = %v/%v, want adult of opposite sex", h.Index, second.Age, second.Sex)
			}
		}
		for _, i := range h.Individuals[min(2, len(h.Individuals)):] {
			if p.Individuals[i].Age != Child {
				t.Fatalf("household %d member %d age = %v, want child", h.Index, i, p.Individuals[i].Age)
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.TilesX, cfg.TilesY = 3, 3
	a, err := Generate(cfg, rand.New(rand.NewPCG(7, 7)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, err := Generate(cfg, rand.New(rand.NewPCG(7, 7)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Generate() with equal seeds differs")
	}
}

func TestGenerateInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"no towns", func(c *Config) { c.Towns = 0 }},
		{"no tiles", func(c *Config) { c.TilesX = 0 }},
		{"zero width", func(c *Config) { c.TileWidth = 0 }},
		{"zero density", func(c *Config) { c.PopulationDensity = 0 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mut(&cfg)
			if _, err := Generate(cfg, rand.New(rand.NewPCG(1, 1))); err == nil {
				t.Fatalf("Generate() error = nil, want error")
			}
		})
	}
}

func TestGenerateRiverCoversTown(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.TilesX, cfg.TilesY = 1, 1
	cfg.River = true
	cfg.RiverWidth = 100
	_, err := Generate(cfg, rand.New(rand.NewPCG(2, 2)))
	if !errors.Is(err, simerr.ErrExhausted) {
		t.Fatalf("Generate() error = %v, want ErrExhausted", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()
	p := tiny()
	p.SelectIndividual(3, 2)
	var buf bytes.Buffer
	if err := p.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("ReadJSON() = %+v, want %+v", got, p)
	}
}

func TestWriteCSVHeader(t *testing.T) {
	t.Parallel()
	p := tiny()
	p.SelectIndividual(5, 1)
	var hh, ind bytes.Buffer
	if err := p.WriteCSV(&hh, &ind, true); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	for name, buf := range map[string]*bytes.Buffer{"household": &hh, "individual": &ind} {
		first, rest, _ := strings.Cut(buf.String(), "\n")
		if !strings.HasPrefix(first, "# seed: tiny") {
			t.Fatalf("%s header = %q, want comment with seed", name, first)
		}
		r := csv.NewReader(strings.NewReader(rest))
		rows, err := r.ReadAll()
		if err != nil {
			t.Fatalf("%s csv error = %v", name, err)
		}
		if len(rows) != 2 {
			t.Fatalf("%s rows = %d, want header + 1 selected row", name, len(rows))
		}
	}
}

func TestNewRNG(t *testing.T) {
	t.Parallel()
	s1, _ := NewRNG("42")
	if s1 != "42" {
		t.Fatalf("NewRNG(42) seed = %q, want 42", s1)
	}
	s2, r2 := NewRNG("")
	if s2 == "" {
		t.Fatalf("NewRNG(\"\") did not record the effective seed")
	}
	_, r3 := NewRNG(s2)
	if r2.Uint64() != r3.Uint64() {
		t.Fatalf("recorded seed does not reproduce the stream")
	}
	_, a := NewRNG("words")
	_, b := NewRNG("words")
	if a.Uint64() != b.Uint64() {
		t.Fatalf("NewRNG(words) is not deterministic")
	}
}
