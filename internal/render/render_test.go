package render

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"sampsim/internal/geo"
	"sampsim/internal/population"
	"sampsim/internal/simerr"
)

func onePoint(diseased bool) *population.Population {
	p := &population.Population{
		Towns:       []population.Town{{TilesX: 10, TilesY: 10, TileWidth: 1, Buildings: []int{0}}},
		Buildings:   []population.Building{{Pos: geo.Pt(5, 5), Households: []int{0}}},
		Households:  []population.Household{{Individuals: []int{0}}},
		Individuals: []population.Individual{{Age: population.Adult, Sex: population.Male, Diseased: diseased}},
	}
	return p
}

func TestDrawSize(t *testing.T) {
	t.Parallel()
	cfg := population.DefaultConfig()
	cfg.TilesX, cfg.TilesY = 4, 2
	cfg.River = true
	pop, err := population.Generate(cfg, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	pop.SelectIndividual(0, 1)
	opt := DefaultOptions()
	opt.Width = 420
	opt.Margin = 10
	opt.FirstBuilding = 0
	img, err := Draw(pop, 0, opt)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if got := img.Bounds().Dx(); got != 420 {
		t.Fatalf("width = %d, want 420", got)
	}
	if got := img.Bounds().Dy(); got != 220 {
		t.Fatalf("height = %d, want 220", got)
	}
}

func TestDrawColours(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		diseased bool
	}{
		{"healthy", false},
		{"diseased", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			img, err := Draw(onePoint(tt.diseased), 0, Options{Width: 220, Margin: 10, PointRadius: 3, FirstBuilding: -1})
			if err != nil {
				t.Fatalf("Draw() error = %v", err)
			}
			r, _, b, _ := img.At(110, 110).RGBA()
			if got := r > b; got != tt.diseased {
				t.Fatalf("building pixel r=%d b=%d, want red dominant = %v", r, b, tt.diseased)
			}
			if r, g, b, _ := img.At(2, 2).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
				t.Fatalf("margin pixel = %d,%d,%d, want white", r, g, b)
			}
		})
	}
}

func TestDrawInvalidTown(t *testing.T) {
	t.Parallel()
	if _, err := Draw(onePoint(false), 3, DefaultOptions()); !errors.Is(err, simerr.ErrInvalidState) {
		t.Fatalf("Draw(town 3) error = %v, want ErrInvalidState", err)
	}
}

func TestSavePNG(t *testing.T) {
	t.Parallel()
	img, err := Draw(onePoint(true), 0, DefaultOptions())
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "town.png")
	if err := SavePNG(path, img); err != nil {
		t.Fatalf("SavePNG() error = %v", err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Fatalf("Stat(%s) = %v, %v, want non-empty file", path, st, err)
	}
}
