// 包 render：把单个城镇的人口与选中状态绘制为 PNG
// 背景：地块按密度填灰度，河道填浅蓝，建筑按户内患病比例在 健康→患病 渐变上取色；
// 被选中的建筑外加黑色圆环，首个被选中的建筑用十字标记。
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"

	"sampsim/internal/geo"
	"sampsim/internal/logger"
	"sampsim/internal/population"
	"sampsim/internal/simerr"
)

type Options struct {
	Width         int     `json:"width"`  // 像素；高度按城镇宽高比计算
	Margin        float64 `json:"margin"` // 像素
	PointRadius   float64 `json:"point_radius"`
	FirstBuilding int     `json:"first_building"` // <0 不标记
	Tiles         bool    `json:"tiles"`
	SelectedOnly  bool    `json:"selected_only"`
}

func DefaultOptions() Options {
	return Options{Width: 1000, Margin: 20, PointRadius: 2, FirstBuilding: -1, Tiles: true}
}

// gradient：按位置排序的关键色，位置在 [0,1]
type gradient []struct {
	col colorful.Color
	pos float64
}

// at：在相邻两个关键色之间做 HCL 插值
func (g gradient) at(t float64) colorful.Color {
	for i := 0; i < len(g)-1; i++ {
		c1, c2 := g[i], g[i+1]
		if c1.pos <= t && t <= c2.pos {
			return c1.col.BlendHcl(c2.col, (t-c1.pos)/(c2.pos-c1.pos)).Clamped()
		}
	}
	if t < g[0].pos {
		return g[0].col
	}
	return g[len(g)-1].col
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic("render: " + err.Error())
	}
	return c
}

var (
	health = gradient{
		{mustHex("#3288bd"), 0},
		{mustHex("#fee090"), 0.5},
		{mustHex("#d53e4f"), 1},
	}
	density = gradient{
		{mustHex("#fbfbfb"), 0},
		{mustHex("#c8c8c8"), 1},
	}
	riverColor  = mustHex("#9ecae1")
	borderColor = mustHex("#636363")
	ringColor   = mustHex("#000000")
	firstColor  = mustHex("#e7298a")
)

// Draw：绘制第 town 个城镇
// 约束：town 越界或城镇尺寸为零时返回 ErrInvalidState；Options 中为零的字段取默认值
func Draw(pop *population.Population, town int, opt Options) (image.Image, error) {
	if pop == nil || town < 0 || town >= len(pop.Towns) {
		return nil, fmt.Errorf("%w: town %d out of range", simerr.ErrInvalidState, town)
	}
	t := &pop.Towns[town]
	if t.Width() <= 0 || t.Height() <= 0 {
		return nil, fmt.Errorf("%w: town %d has no extent", simerr.ErrInvalidState, town)
	}
	def := DefaultOptions()
	if opt.Width <= 0 {
		opt.Width = def.Width
	}
	if opt.Margin < 0 || 2*opt.Margin >= float64(opt.Width) {
		opt.Margin = def.Margin
	}
	if opt.PointRadius <= 0 {
		opt.PointRadius = def.PointRadius
	}

	scale := (float64(opt.Width) - 2*opt.Margin) / t.Width()
	h := int(math.Ceil(t.Height()*scale + 2*opt.Margin))
	tr := func(x, y float64) (float64, float64) {
		return opt.Margin + x*scale, float64(h) - opt.Margin - y*scale
	}

	dc := gg.NewContext(opt.Width, h)
	dc.SetColor(color.White)
	dc.Clear()

	if opt.Tiles {
		maxD := 0.0
		for _, ti := range t.Tiles {
			maxD = math.Max(maxD, pop.Tiles[ti].Density)
		}
		for _, ti := range t.Tiles {
			tile := &pop.Tiles[ti]
			x0, y0 := tr(tile.Bound.Min[0], tile.Bound.Min[1])
			x1, y1 := tr(tile.Bound.Max[0], tile.Bound.Max[1])
			dc.DrawRectangle(x0, y1, x1-x0, y0-y1)
			v := 0.0
			if maxD > 0 {
				v = tile.Density / maxD
			}
			dc.SetColor(density.at(v))
			dc.Fill()
		}
	}

	if t.HasRiver {
		drawRiver(dc, t, tr)
	}

	for _, b := range t.Buildings {
		bb := &pop.Buildings[b]
		if opt.SelectedOnly && !bb.Selected {
			continue
		}
		x, y := tr(bb.Pos.X, bb.Pos.Y)
		dc.DrawCircle(x, y, opt.PointRadius)
		dc.SetColor(health.at(prevalence(pop, bb)))
		dc.Fill()
		if bb.Selected {
			dc.SetLineWidth(1)
			dc.DrawCircle(x, y, opt.PointRadius*2.5)
			dc.SetColor(ringColor)
			dc.Stroke()
		}
	}

	if f := opt.FirstBuilding; f >= 0 && f < len(pop.Buildings) && pop.Buildings[f].Town == town {
		x, y := tr(pop.Buildings[f].Pos.X, pop.Buildings[f].Pos.Y)
		d := opt.PointRadius * 4
		dc.SetLineWidth(2)
		dc.DrawLine(x-d, y, x+d, y)
		dc.DrawLine(x, y-d, x, y+d)
		dc.SetColor(firstColor)
		dc.Stroke()
	}

	x0, y0 := tr(0, 0)
	x1, y1 := tr(t.Width(), t.Height())
	dc.SetLineWidth(1)
	dc.DrawRectangle(x0, y1, x1-x0, y0-y1)
	dc.SetColor(borderColor)
	dc.Stroke()

	logger.L().Debug("render_done", "town", town, "width", opt.Width, "height", h, "buildings", len(t.Buildings))
	return dc.Image(), nil
}

// drawRiver：两条河岸之间的区域，裁剪到城镇范围
func drawRiver(dc *gg.Context, t *population.Town, tr func(x, y float64) (float64, float64)) {
	bankY := func(l geo.Line, x float64) float64 {
		return math.Tan(l.Angle)*(x-l.Intercept.X) + l.Intercept.Y
	}
	w := t.Width()
	x0, y0 := tr(0, 0)
	x1, y1 := tr(w, t.Height())

	dc.Push()
	dc.DrawRectangle(x0, y1, x1-x0, y0-y1)
	dc.Clip()
	a, b := t.RiverBanks[0], t.RiverBanks[1]
	dc.MoveTo(tr(0, bankY(a, 0)))
	dc.LineTo(tr(w, bankY(a, w)))
	dc.LineTo(tr(w, bankY(b, w)))
	dc.LineTo(tr(0, bankY(b, 0)))
	dc.ClosePath()
	dc.SetColor(riverColor)
	dc.Fill()
	dc.Pop()
}

func prevalence(pop *population.Population, b *population.Building) float64 {
	n, d := 0, 0
	for _, h := range b.Households {
		for _, i := range pop.Households[h].Individuals {
			n++
			if pop.Individuals[i].Diseased {
				d++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return float64(d) / float64(n)
}

// SavePNG：写出 PNG 文件
func SavePNG(path string, img image.Image) error {
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save png %s: %w", path, err)
	}
	return nil
}
