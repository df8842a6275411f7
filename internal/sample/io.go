package sample

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"sampsim/internal/population"
	"sampsim/internal/simerr"
)

// WriteJSON：gzip 压缩的 JSON，与人口文件格式一致
func (r *Result) WriteJSON(w io.Writer) error {
	gz := gzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(r); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}

func (r *Result) WriteJSONFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteJSON(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteSummaryFile：文本报表
func (r *Result) WriteSummaryFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Summary.WriteSummary(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func ReadJSON(rd io.Reader) (*Result, error) {
	gz, err := gzip.NewReader(rd)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	var r Result
	if err := json.NewDecoder(gz).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func ReadJSONFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}

// Apply：把保存的样本重新标记到人口上（先清空原有选中状态）
// 约束：个体下标越界或权重数量不符时返回 ErrDataInconsistency，此时人口保持清空状态
func (sel Selection) Apply(pop *population.Population) error {
	pop.Unselect()
	if len(sel.Weights) != 0 && len(sel.Weights) != len(sel.Individuals) {
		return fmt.Errorf("%w: sample %d has %d weights for %d individuals",
			simerr.ErrDataInconsistency, sel.Index, len(sel.Weights), len(sel.Individuals))
	}
	for k, i := range sel.Individuals {
		if i < 0 || i >= len(pop.Individuals) {
			pop.Unselect()
			return fmt.Errorf("%w: sample %d refers to individual %d of %d",
				simerr.ErrDataInconsistency, sel.Index, i, len(pop.Individuals))
		}
		w := 1.0
		if len(sel.Weights) != 0 {
			w = sel.Weights[k]
		}
		pop.SelectIndividual(i, w)
	}
	return nil
}
