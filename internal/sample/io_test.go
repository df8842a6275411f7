package sample

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"sampsim/internal/geo"
	"sampsim/internal/simerr"
)

func TestResultJSONAndApply(t *testing.T) {
	t.Parallel()
	pop := pointsPop(10, 10, ring(10, 3, geo.Pt(5, 5)), 2)
	cfg := cfgOf(6, "io")
	cfg.UseSampleWeights = true
	res, err := mustNew(t, GridEPI, cfg, WithNumberOfSquares(2)).Generate(context.Background(), pop)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	var buf bytes.Buffer
	if err := res.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !reflect.DeepEqual(back.Selections, res.Selections) || back.Config != res.Config {
		t.Fatalf("ReadJSON() does not reproduce the result")
	}

	want := pop.SelectedIndividuals()
	pop.Unselect()
	if err := back.Selections[0].Apply(pop); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := pop.SelectedIndividuals(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Apply() selected %v, want %v", got, want)
	}

	bad := back.Selections[0]
	bad.Individuals = append([]int{len(pop.Individuals)}, bad.Individuals[1:]...)
	if err := bad.Apply(pop); !errors.Is(err, simerr.ErrDataInconsistency) {
		t.Fatalf("Apply(out of range) error = %v, want ErrDataInconsistency", err)
	}
	if got := len(pop.SelectedIndividuals()); got != 0 {
		t.Fatalf("Apply(out of range) left %d individuals selected, want 0", got)
	}
}
