package population

// Summary：按 年龄 × 性别 × 患病 统计的计数与加权计数
// 下标 0 表示 Any（即合计），其余与 Age/Sex 常量一致
type Summary struct {
	counts   [4][4][2]int
	weighted [4][4][2]float64
}

// SummarizeAll：统计全部个体
func (p *Population) SummarizeAll() Summary {
	ids := make([]int, len(p.Individuals))
	for i := range ids {
		ids[i] = i
	}
	return p.Summarize(ids)
}

// Summarize：只统计 ids 指定的个体；ids 为空时各项计数为 0
func (p *Population) Summarize(ids []int) Summary {
	var s Summary
	add := func(i int) {
		ind := &p.Individuals[i]
		d := 0
		if ind.Diseased {
			d = 1
		}
		w := ind.Weight
		if w == 0 {
			w = 1
		}
		for _, a := range []Age{AnyAge, ind.Age} {
			for _, x := range []Sex{AnySex, ind.Sex} {
				s.counts[a][x][d]++
				s.weighted[a][x][d] += w
			}
		}
	}
	for _, i := range ids {
		add(i)
	}
	return s
}

func (s Summary) Count(a Age, x Sex) int {
	if !valid(a, x) {
		return 0
	}
	return s.counts[a][x][0] + s.counts[a][x][1]
}

func (s Summary) CountDiseased(a Age, x Sex) int {
	if !valid(a, x) {
		return 0
	}
	return s.counts[a][x][1]
}

// Prevalence：分母为零时返回 0
func (s Summary) Prevalence(a Age, x Sex) float64 {
	n := s.Count(a, x)
	if n == 0 {
		return 0
	}
	return float64(s.CountDiseased(a, x)) / float64(n)
}

func (s Summary) WeightedPrevalence(a Age, x Sex) float64 {
	if !valid(a, x) {
		return 0
	}
	total := s.weighted[a][x][0] + s.weighted[a][x][1]
	if total == 0 {
		return 0
	}
	return s.weighted[a][x][1] / total
}

func valid(a Age, x Sex) bool {
	return a >= AnyAge && a <= Child && x >= AnySex && x <= Female
}

// Ages / Sexes：汇总报表遍历顺序
var (
	Ages  = []Age{AnyAge, Adult, Child}
	Sexes = []Sex{AnySex, Male, Female}
)
