package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"sampsim/internal/logger"
	"sampsim/internal/migrate"
	"sampsim/internal/population"
	"sampsim/internal/render"
	"sampsim/internal/sample"
	"sampsim/internal/store"
	"sampsim/internal/utils"
)

// 文档注释：抽样 CLI
// 背景：读取人口文件，按指定策略抽样，写出结果（gzip JSON）与文本汇总；可选写 CSV、保存到 Postgres、渲染 PNG。
// 约束：角度参数为弧度；-start-angle 为空时随机。任何错误记 *_error 事件并以 1 退出。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()

	typ := flag.String("type", utils.EnvString("SAMPSIM_TYPE", "random"), "sample type: "+kindList())
	in := flag.String("in", utils.EnvString("SAMPSIM_POPULATION_PATH", "population.json.gz"), "population file")
	out := flag.String("out", utils.EnvString("SAMPSIM_SAMPLE_PATH", "sample.json.gz"), "result file")
	cfg := sample.DefaultConfig()
	flag.IntVar(&cfg.Size, "size", utils.EnvInt("SAMPSIM_SIZE", 30), "individuals to select per town")
	age := flag.String("age", utils.EnvString("SAMPSIM_AGE", "either"), "age filter: either, adult, child")
	sex := flag.String("sex", utils.EnvString("SAMPSIM_SEX", "either"), "sex filter: either, male, female")
	flag.BoolVar(&cfg.OnePerHousehold, "one-per-household", utils.EnvBool("SAMPSIM_ONE_PER_HOUSEHOLD", false), "select at most one individual per household")
	flag.BoolVar(&cfg.UseSampleWeights, "weights", utils.EnvBool("SAMPSIM_WEIGHTS", false), "compute sample weights")
	flag.StringVar(&cfg.Seed, "seed", utils.EnvString("SAMPSIM_SEED", ""), "random seed (empty: clock)")
	flag.IntVar(&cfg.NumberOfSamples, "samples", utils.EnvInt("SAMPSIM_SAMPLES", 1), "number of samples")
	flag.IntVar(&cfg.NumberOfTowns, "towns", utils.EnvInt("SAMPSIM_SAMPLE_TOWNS", 1), "towns per sample")
	flag.BoolVar(&cfg.ResampleTowns, "resample-towns", false, "draw new towns for every sample")

	arc := flag.Float64("arc-angle", 0, "arc_epi: arc angle (radians)")
	strip := flag.Float64("strip-width", 0, "strip_epi: strip width")
	sectors := flag.Int("sectors", 1, "strip_epi: number of sectors")
	start := flag.String("start-angle", "", "epi: fixed start angle (radians)")
	quadrants := flag.Bool("quadrants", false, "arc_epi/direction_epi: sample each quadrant")
	periphery := flag.Bool("periphery", false, "arc_epi/direction_epi: start from the centre and jump to the periphery")
	squares := flag.Int("squares", 0, "grid_epi/square_gps: squares per side")
	radius := flag.Float64("radius", 0, "circle_gps: circle radius")
	threshold := flag.Int("threshold", 100, "enumeration: buildings per enumeration area")
	attempts := flag.Int("max-attempts", 0, "attempt budget (0: per-type default)")

	flat := flag.Bool("flat", false, "write selected households and individuals as CSV")
	persist := flag.Bool("persist", utils.EnvBool("SAMPSIM_PERSIST", false), "save the run to Postgres (PG_*)")
	png := flag.Bool("png", false, "render the sampled towns of the last sample")
	flag.Parse()

	kind, err := sample.ParseKind(*typ)
	if err != nil {
		l.Error("args_error", "err", err)
		os.Exit(1)
	}
	if cfg.Age, err = population.ParseAge(*age); err != nil {
		l.Error("args_error", "err", err)
		os.Exit(1)
	}
	if cfg.Sex, err = population.ParseSex(*sex); err != nil {
		l.Error("args_error", "err", err)
		os.Exit(1)
	}
	opts := []sample.Option{
		sample.WithArcAngle(*arc),
		sample.WithStripWidth(*strip),
		sample.WithNumberOfSectors(*sectors),
		sample.WithQuadrants(*quadrants),
		sample.WithPeriphery(*periphery),
		sample.WithNumberOfSquares(*squares),
		sample.WithRadius(*radius),
		sample.WithThreshold(*threshold),
		sample.WithRetryPolicy(sample.RetryPolicy{MaxAttempts: *attempts}),
		sample.WithLogger(l),
	}
	if *start != "" {
		a, err := strconv.ParseFloat(*start, 64)
		if err != nil {
			l.Error("args_error", "start_angle", *start, "err", err)
			os.Exit(1)
		}
		opts = append(opts, sample.WithStartAngle(a))
	}

	pop, err := population.ReadJSONFile(*in)
	if err != nil {
		l.Error("population_read_error", "path", *in, "err", err)
		os.Exit(1)
	}
	s, err := sample.New(kind, cfg, opts...)
	if err != nil {
		l.Error("sampler_error", "err", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := s.Generate(ctx, pop)
	if err != nil {
		l.Error("sample_error", "type", kind.String(), "err", err)
		os.Exit(1)
	}

	prefix := strings.TrimSuffix(*out, ".json.gz")
	if err := res.WriteJSONFile(*out); err != nil {
		l.Error("write_error", "path", *out, "err", err)
		os.Exit(1)
	}
	if err := res.WriteSummaryFile(prefix + ".summary.txt"); err != nil {
		l.Error("write_error", "path", prefix+".summary.txt", "err", err)
		os.Exit(1)
	}
	if *flat {
		if err := pop.WriteCSVFiles(prefix, true); err != nil {
			l.Error("write_csv_error", "prefix", prefix, "err", err)
			os.Exit(1)
		}
	}
	if *png {
		last := res.Selections[len(res.Selections)-1]
		opt := render.DefaultOptions()
		opt.FirstBuilding = last.FirstBuilding
		for _, town := range uniq(last.Towns) {
			img, err := render.Draw(pop, town, opt)
			if err != nil {
				l.Error("render_error", "town", town, "err", err)
				os.Exit(1)
			}
			path := fmt.Sprintf("%s.town%d.png", prefix, town)
			if err := render.SavePNG(path, img); err != nil {
				l.Error("render_error", "path", path, "err", err)
				os.Exit(1)
			}
		}
	}
	if *persist {
		id, err := save(ctx, res)
		if err != nil {
			l.Error("run_save_error", "err", err)
			os.Exit(1)
		}
		l.Info("run_persisted", "id", id)
	}
	l.Info("sample_written", "path", *out, "type", res.Kind, "seed", res.Seed, "samples", len(res.Selections))
}

func kindList() string {
	var names []string
	for _, k := range sample.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

func uniq(v []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, x := range v {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

func save(ctx context.Context, res *sample.Result) (string, error) {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return "", err
	}
	if db == nil {
		return "", errors.New("postgres disabled (PG_ENABLED=false)")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return "", err
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		return "", err
	}
	st := store.AttachDB(db)
	id, err := st.SaveRun(ctx, res)
	if err != nil {
		return "", err
	}
	if err := st.IncrStats(ctx); err != nil {
		return "", err
	}
	return id, nil
}
