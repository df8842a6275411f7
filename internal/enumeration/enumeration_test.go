package enumeration

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"

	"sampsim/internal/geo"
	"sampsim/internal/simerr"
	"sampsim/internal/spatial"
)

func grid(n int, w float64) []spatial.Item {
	var out []spatial.Item
	id := 0
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			out = append(out, spatial.Item{ID: id, P: geo.Pt(w*float64(i)/float64(n), w*float64(j)/float64(n))})
			id++
		}
	}
	return out
}

func ids(items []spatial.Item) map[int]int {
	m := make(map[int]int)
	for _, it := range items {
		m[it.ID]++
	}
	return m
}

func TestSplitPartition(t *testing.T) {
	t.Parallel()
	b := geo.Extent(10, 10)
	items := grid(10, 10) // includes points on the midlines and outer edges
	tests := []struct {
		name       string
		horizontal bool
		lowerMax   orb.Point
		upperMin   orb.Point
	}{
		{"horizontal splits x", true, orb.Point{5, 10}, orb.Point{5, 0}},
		{"vertical splits y", false, orb.Point{10, 5}, orb.Point{0, 5}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := NewArea(b, tt.horizontal, items)
			lo, up, err := a.Split()
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if lo.Horizontal != !tt.horizontal || up.Horizontal != !tt.horizontal {
				t.Fatalf("children Horizontal = %v,%v, want %v", lo.Horizontal, up.Horizontal, !tt.horizontal)
			}
			if lo.Bound.Min != b.Min || lo.Bound.Max != tt.lowerMax {
				t.Fatalf("lower bound = %v, want [%v %v]", lo.Bound, b.Min, tt.lowerMax)
			}
			if up.Bound.Min != tt.upperMin || up.Bound.Max != b.Max {
				t.Fatalf("upper bound = %v, want [%v %v]", up.Bound, tt.upperMin, b.Max)
			}
			if got := lo.Bound.Union(up.Bound); got != b {
				t.Fatalf("union of child bounds = %v, want %v", got, b)
			}
			if lo.Len()+up.Len() != len(items) {
				t.Fatalf("children hold %d items, want %d", lo.Len()+up.Len(), len(items))
			}
			seen := ids(append(append([]spatial.Item(nil), lo.Items...), up.Items...))
			for _, it := range items {
				if seen[it.ID] != 1 {
					t.Fatalf("item %d appears %d times, want 1", it.ID, seen[it.ID])
				}
			}
			for _, it := range lo.Items {
				if !lo.Contains(it.P) {
					t.Fatalf("lower child holds %v outside its extent", it.P)
				}
			}
			for _, it := range up.Items {
				if !up.Contains(it.P) {
					t.Fatalf("upper child holds %v outside its extent", it.P)
				}
			}
		})
	}
}

func TestSplitMidlineGoesUpper(t *testing.T) {
	t.Parallel()
	a := NewArea(geo.Extent(10, 10), true, []spatial.Item{{ID: 1, P: geo.Pt(5, 3)}})
	lo, up, err := a.Split()
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if lo.Len() != 0 || up.Len() != 1 {
		t.Fatalf("Split() sizes = %d,%d, want 0,1", lo.Len(), up.Len())
	}
}

func TestSplitOutOfBounds(t *testing.T) {
	t.Parallel()
	a := NewArea(geo.Extent(10, 10), true, []spatial.Item{{ID: 9, P: geo.Pt(11, 3)}})
	if _, _, err := a.Split(); !errors.Is(err, simerr.ErrDataInconsistency) {
		t.Fatalf("Split() error = %v, want ErrDataInconsistency", err)
	}
}

func TestCatalogueThreshold(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewPCG(11, 12))
	var items []spatial.Item
	for i := 0; i < 2000; i++ {
		items = append(items, spatial.Item{ID: i, P: geo.Pt(r.Float64()*50, r.Float64()*30)})
	}
	tests := []struct {
		name      string
		threshold int
	}{
		{"default", DefaultThreshold},
		{"small", 7},
		{"larger than input", 5000},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewCatalogue(items, geo.Extent(50, 30), tt.threshold)
			if err != nil {
				t.Fatalf("NewCatalogue() error = %v", err)
			}
			seen := make(map[int]int)
			for _, a := range c.Areas() {
				if a.Len() >= tt.threshold {
					t.Fatalf("area holds %d buildings, want < %d", a.Len(), tt.threshold)
				}
				for _, it := range a.Items {
					seen[it.ID]++
					if !a.Contains(it.P) {
						t.Fatalf("area %v holds %v outside its extent", a.Bound, it.P)
					}
				}
			}
			if len(seen) != len(items) {
				t.Fatalf("catalogue covers %d buildings, want %d", len(seen), len(items))
			}
			for id, n := range seen {
				if n != 1 {
					t.Fatalf("building %d appears %d times", id, n)
				}
			}
		})
	}
}

func TestCatalogueEdgeBuildings(t *testing.T) {
	t.Parallel()
	c, err := NewCatalogue(grid(20, 8), geo.Extent(8, 8), 4)
	if err != nil {
		t.Fatalf("NewCatalogue() error = %v", err)
	}
	total := 0
	for _, a := range c.Areas() {
		total += a.Len()
	}
	if total != 21*21 {
		t.Fatalf("catalogue covers %d buildings, want %d", total, 21*21)
	}
}

func TestCatalogueInvalid(t *testing.T) {
	t.Parallel()
	if _, err := NewCatalogue(nil, geo.Extent(1, 1), 10); !errors.Is(err, simerr.ErrInvalidState) {
		t.Fatalf("NewCatalogue(nil) error = %v, want ErrInvalidState", err)
	}
	items := []spatial.Item{{ID: 0, P: geo.Pt(0, 0)}}
	if _, err := NewCatalogue(items, geo.Extent(1, 1), 0); !errors.Is(err, simerr.ErrInvalidState) {
		t.Fatalf("NewCatalogue(threshold=0) error = %v, want ErrInvalidState", err)
	}
}

func TestCatalogueCoincidentBuildings(t *testing.T) {
	t.Parallel()
	items := make([]spatial.Item, 10)
	for i := range items {
		items[i] = spatial.Item{ID: i, P: geo.Pt(1, 1)}
	}
	c, err := NewCatalogue(items, geo.Extent(4, 4), 2)
	if err != nil {
		t.Fatalf("NewCatalogue() error = %v", err)
	}
	total := 0
	for _, a := range c.Areas() {
		total += a.Len()
	}
	if total != len(items) {
		t.Fatalf("catalogue covers %d buildings, want %d", total, len(items))
	}
}
