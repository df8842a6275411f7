package population

import (
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// WriteJSON：gzip 压缩的 JSON
func (p *Population) WriteJSON(w io.Writer) error {
	gz := gzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(p); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}

func ReadJSON(r io.Reader) (*Population, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	var p Population
	if err := json.NewDecoder(gz).Decode(&p); err != nil {
		return nil, err
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Population) WriteJSONFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.WriteJSON(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func ReadJSONFile(path string) (*Population, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}

// check：校验反序列化后的父子下标
func (p *Population) check() error {
	for i := range p.Buildings {
		b := &p.Buildings[i]
		if b.Index != i || b.Town < 0 || b.Town >= len(p.Towns) {
			return fmt.Errorf("building %d: bad index or town", i)
		}
		for _, h := range b.Households {
			if h < 0 || h >= len(p.Households) || p.Households[h].Building != i {
				return fmt.Errorf("building %d: bad household %d", i, h)
			}
		}
	}
	for i := range p.Households {
		for _, ind := range p.Households[i].Individuals {
			if ind < 0 || ind >= len(p.Individuals) || p.Individuals[ind].Household != i {
				return fmt.Errorf("household %d: bad individual %d", i, ind)
			}
		}
	}
	return nil
}

// WriteCSV：住户与个体两张平表；首行为 "# " 开头的注释头（种子与计数）
func (p *Population) WriteCSV(households, individuals io.Writer, onlySelected bool) error {
	header := fmt.Sprintf("# seed: %s, towns: %d, buildings: %d, households: %d, individuals: %d\n",
		p.Seed, len(p.Towns), len(p.Buildings), len(p.Households), len(p.Individuals))

	if _, err := io.WriteString(households, header); err != nil {
		return err
	}
	hw := csv.NewWriter(households)
	_ = hw.Write([]string{"index", "town", "building", "x", "y", "r", "a", "income", "disease_risk", "individuals", "selected"})
	for i := range p.Households {
		h := &p.Households[i]
		if onlySelected && !h.Selected {
			continue
		}
		b := &p.Buildings[h.Building]
		_ = hw.Write([]string{
			strconv.Itoa(h.Index),
			strconv.Itoa(b.Town),
			strconv.Itoa(b.Index),
			ftoa(b.Pos.X),
			ftoa(b.Pos.Y),
			ftoa(b.Pos.R()),
			ftoa(b.Pos.A()),
			ftoa(h.Income),
			ftoa(h.DiseaseRisk),
			strconv.Itoa(len(h.Individuals)),
			strconv.FormatBool(h.Selected),
		})
	}
	hw.Flush()
	if err := hw.Error(); err != nil {
		return err
	}

	if _, err := io.WriteString(individuals, header); err != nil {
		return err
	}
	iw := csv.NewWriter(individuals)
	_ = iw.Write([]string{"index", "household", "age", "sex", "diseased", "selected", "weight"})
	for i := range p.Individuals {
		ind := &p.Individuals[i]
		if onlySelected && !ind.Selected {
			continue
		}
		_ = iw.Write([]string{
			strconv.Itoa(ind.Index),
			strconv.Itoa(ind.Household),
			ind.Age.String(),
			ind.Sex.String(),
			strconv.FormatBool(ind.Diseased),
			strconv.FormatBool(ind.Selected),
			ftoa(ind.Weight),
		})
	}
	iw.Flush()
	return iw.Error()
}

// WriteCSVFiles：写出 <prefix>.household.csv 与 <prefix>.individual.csv
func (p *Population) WriteCSVFiles(prefix string, onlySelected bool) error {
	prefix = strings.TrimSuffix(prefix, ".csv")
	hf, err := os.Create(prefix + ".household.csv")
	if err != nil {
		return err
	}
	defer hf.Close()
	inf, err := os.Create(prefix + ".individual.csv")
	if err != nil {
		return err
	}
	defer inf.Close()
	if err := p.WriteCSV(hf, inf, onlySelected); err != nil {
		return err
	}
	if err := hf.Sync(); err != nil {
		return err
	}
	return inf.Sync()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
