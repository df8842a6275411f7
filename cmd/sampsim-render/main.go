package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"sampsim/internal/logger"
	"sampsim/internal/population"
	"sampsim/internal/render"
	"sampsim/internal/sample"
	"sampsim/internal/store"
	"sampsim/internal/utils"
)

// 文档注释：渲染 CLI
// 背景：把人口的一个城镇绘制为 PNG；可叠加结果文件（-sample）或 Postgres 中保存的运行（-run）里的某个样本。
// 约束：-sample 与 -run 同时给出时以 -run 为准；样本下标越界记 args_error 退出。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()

	in := flag.String("in", utils.EnvString("SAMPSIM_POPULATION_PATH", "population.json.gz"), "population file")
	town := flag.Int("town", 0, "town index")
	samplePath := flag.String("sample", "", "result file from sampsim-sample")
	runID := flag.String("run", "", "stored run id (PG_*)")
	index := flag.Int("index", 0, "sample index within the result or run")
	out := flag.String("out", "town.png", "output PNG")
	opt := render.DefaultOptions()
	flag.IntVar(&opt.Width, "width", opt.Width, "image width in pixels")
	flag.BoolVar(&opt.Tiles, "tiles", opt.Tiles, "shade tiles by density")
	flag.BoolVar(&opt.SelectedOnly, "selected-only", false, "draw selected buildings only")
	flag.Parse()

	pop, err := population.ReadJSONFile(*in)
	if err != nil {
		l.Error("population_read_error", "path", *in, "err", err)
		os.Exit(1)
	}

	var sels []sample.Selection
	switch {
	case *runID != "":
		sels, err = loadRun(context.Background(), *runID)
	case *samplePath != "":
		var res *sample.Result
		if res, err = sample.ReadJSONFile(*samplePath); err == nil {
			sels = res.Selections
		}
	}
	if err != nil {
		l.Error("sample_read_error", "err", err)
		os.Exit(1)
	}
	if len(sels) > 0 {
		if *index < 0 || *index >= len(sels) {
			l.Error("args_error", "index", *index, "samples", len(sels))
			os.Exit(1)
		}
		if err := sels[*index].Apply(pop); err != nil {
			l.Error("sample_apply_error", "err", err)
			os.Exit(1)
		}
		opt.FirstBuilding = sels[*index].FirstBuilding
	}

	img, err := render.Draw(pop, *town, opt)
	if err != nil {
		l.Error("render_error", "town", *town, "err", err)
		os.Exit(1)
	}
	if err := render.SavePNG(*out, img); err != nil {
		l.Error("render_error", "path", *out, "err", err)
		os.Exit(1)
	}
	l.Info("render_written", "path", *out, "town", *town)
}

func loadRun(ctx context.Context, id string) ([]sample.Selection, error) {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("postgres disabled (PG_ENABLED=false)")
	}
	defer db.Close()
	run, err := store.AttachDB(db).GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]sample.Selection, len(run.Selections))
	for i, s := range run.Selections {
		out[i] = s.Sample()
	}
	return out, nil
}
