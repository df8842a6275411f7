package sample

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"sampsim/internal/population"
)

// Stat：某个 年龄 × 性别 组合的计数与患病率
type Stat struct {
	Age                string  `json:"age"`
	Sex                string  `json:"sex"`
	Count              int     `json:"count"`
	Diseased           int     `json:"diseased"`
	Prevalence         float64 `json:"prevalence"`
	WeightedPrevalence float64 `json:"weighted_prevalence"`
}

func statsOf(s population.Summary) []Stat {
	out := make([]Stat, 0, len(population.Ages)*len(population.Sexes))
	for _, a := range population.Ages {
		for _, x := range population.Sexes {
			out = append(out, Stat{
				Age:                a.String(),
				Sex:                x.String(),
				Count:              s.Count(a, x),
				Diseased:           s.CountDiseased(a, x),
				Prevalence:         s.Prevalence(a, x),
				WeightedPrevalence: s.WeightedPrevalence(a, x),
			})
		}
	}
	return out
}

// PopulationStats：整个人口的 年龄 × 性别 统计
func PopulationStats(p *population.Population) []Stat { return statsOf(p.SummarizeAll()) }

// SummaryRow：跨样本的均值与标准差
type SummaryRow struct {
	Age                    string  `json:"age"`
	Sex                    string  `json:"sex"`
	MeanCount              float64 `json:"mean_count"`
	MeanPrevalence         float64 `json:"mean_prevalence"`
	SDPrevalence           float64 `json:"sd_prevalence"`
	MeanWeightedPrevalence float64 `json:"mean_weighted_prevalence"`
	SDWeightedPrevalence   float64 `json:"sd_weighted_prevalence"`
	PopulationPrevalence   float64 `json:"population_prevalence"`
}

type Summary struct {
	Samples  int          `json:"samples"`
	Weighted bool         `json:"weighted"`
	Rows     []SummaryRow `json:"rows"`
}

// Summarize：按 年龄 × 性别 汇总所有样本；只有一个样本时标准差为 0
func Summarize(r *Result) Summary {
	s := Summary{Samples: len(r.Selections), Weighted: r.Config.UseSampleWeights}
	if len(r.Selections) == 0 {
		return s
	}
	n := len(r.Selections[0].Stats)
	for k := 0; k < n; k++ {
		counts := make([]float64, len(r.Selections))
		prev := make([]float64, len(r.Selections))
		wprev := make([]float64, len(r.Selections))
		for i, sel := range r.Selections {
			counts[i] = float64(sel.Stats[k].Count)
			prev[i] = sel.Stats[k].Prevalence
			wprev[i] = sel.Stats[k].WeightedPrevalence
		}
		row := SummaryRow{Age: r.Selections[0].Stats[k].Age, Sex: r.Selections[0].Stats[k].Sex}
		row.MeanCount = stat.Mean(counts, nil)
		row.MeanPrevalence, row.SDPrevalence = meanStdDev(prev)
		row.MeanWeightedPrevalence, row.SDWeightedPrevalence = meanStdDev(wprev)
		if k < len(r.Population) {
			row.PopulationPrevalence = r.Population[k].Prevalence
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func meanStdDev(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}

// WriteSummary：文本报表
func (s Summary) WriteSummary(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "samples: %d\n", s.Samples); err != nil {
		return err
	}
	for _, r := range s.Rows {
		label := fmt.Sprintf("%s %s", r.Age, r.Sex)
		if _, err := fmt.Fprintf(w, "sampled %s count: %.2f (prevalence %.4f (%.4f)), population prevalence %.4f\n",
			label, r.MeanCount, r.MeanPrevalence, r.SDPrevalence, r.PopulationPrevalence); err != nil {
			return err
		}
		if s.Weighted {
			if _, err := fmt.Fprintf(w, "  weighted prevalence %.4f (%.4f)\n", r.MeanWeightedPrevalence, r.SDWeightedPrevalence); err != nil {
				return err
			}
		}
	}
	return nil
}
