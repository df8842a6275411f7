package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sampsim/internal/population"
	"sampsim/internal/sample"
	"sampsim/internal/simerr"
)

// sampleParams：/sample 接受的参数名；缓存键只取这些参数，未知参数不影响缓存
var sampleParams = []string{
	"type", "size", "age", "sex", "one_per_household", "use_sample_weights", "seed",
	"samples", "towns", "resample_towns",
	"arc_angle", "strip_width", "sectors", "start_angle", "quadrants", "periphery",
	"squares", "radius", "threshold", "max_attempts",
}

// canonical：只保留已知且非空的参数
func canonical(q url.Values) url.Values {
	out := url.Values{}
	for _, k := range sampleParams {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			out.Set(k, v)
		}
	}
	return out
}

type parser struct {
	q   url.Values
	err error
}

func (p *parser) fail(k, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: parameter %s=%q: %v", simerr.ErrInvalidState, k, v, err)
	}
}

func (p *parser) int(k string, def int) int {
	v := p.q.Get(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(k, v, err)
	}
	return n
}

func (p *parser) float(k string, def float64) float64 {
	v := p.q.Get(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(k, v, err)
	}
	return f
}

func (p *parser) bool(k string) bool {
	v := p.q.Get(k)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(k, v, err)
	}
	return b
}

// 文档注释：把查询参数解析为抽样器
// 背景：角度参数为弧度；未给出的策略参数保持未设置，由策略在抽样前报 ErrInvalidState。
// 约束：任何解析失败都以 ErrInvalidState 返回，由调用方映射为 400。
func parseSampler(q url.Values) (*sample.Sampler, error) {
	kind, err := sample.ParseKind(q.Get("type"))
	if err != nil {
		return nil, err
	}
	p := &parser{q: q}
	cfg := sample.DefaultConfig()
	cfg.Size = p.int("size", 0)
	if cfg.Age, err = population.ParseAge(q.Get("age")); err != nil {
		p.fail("age", q.Get("age"), err)
	}
	if cfg.Sex, err = population.ParseSex(q.Get("sex")); err != nil {
		p.fail("sex", q.Get("sex"), err)
	}
	cfg.OnePerHousehold = p.bool("one_per_household")
	cfg.UseSampleWeights = p.bool("use_sample_weights")
	cfg.Seed = q.Get("seed")
	cfg.NumberOfSamples = p.int("samples", 1)
	cfg.NumberOfTowns = p.int("towns", 1)
	cfg.ResampleTowns = p.bool("resample_towns")

	opts := []sample.Option{
		sample.WithArcAngle(p.float("arc_angle", 0)),
		sample.WithStripWidth(p.float("strip_width", 0)),
		sample.WithNumberOfSectors(p.int("sectors", 1)),
		sample.WithQuadrants(p.bool("quadrants")),
		sample.WithPeriphery(p.bool("periphery")),
		sample.WithNumberOfSquares(p.int("squares", 0)),
		sample.WithRadius(p.float("radius", 0)),
		sample.WithThreshold(p.int("threshold", 100)),
		sample.WithRetryPolicy(sample.RetryPolicy{MaxAttempts: p.int("max_attempts", 0)}),
	}
	if q.Get("start_angle") != "" {
		opts = append(opts, sample.WithStartAngle(p.float("start_angle", 0)))
	}
	if p.err != nil {
		return nil, p.err
	}
	return sample.New(kind, cfg, opts...)
}
