// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sampsim/internal/api"
	"sampsim/internal/cache"
	"sampsim/internal/logger"
	"sampsim/internal/metrics"
	"sampsim/internal/middleware"
	"sampsim/internal/migrate"
	"sampsim/internal/population"
	"sampsim/internal/store"
	"sampsim/internal/utils"
)

// loadPopulation：POPULATION_PATH 指向的文件存在时读取，否则按 SAMPSIM_* 环境变量生成
func loadPopulation() (*population.Population, error) {
	l := logger.L()
	path := utils.EnvString("POPULATION_PATH", filepath.Join("data", "population.json.gz"))
	if _, err := os.Stat(path); err == nil {
		pop, err := population.ReadJSONFile(path)
		if err != nil {
			return nil, err
		}
		l.Info("population_loaded", "path", path, "towns", len(pop.Towns), "individuals", len(pop.Individuals))
		return pop, nil
	}
	cfg := population.DefaultConfig()
	cfg.Towns = utils.EnvInt("SAMPSIM_TOWNS", cfg.Towns)
	cfg.TilesX = utils.EnvInt("SAMPSIM_TILES_X", cfg.TilesX)
	cfg.TilesY = utils.EnvInt("SAMPSIM_TILES_Y", cfg.TilesY)
	cfg.TileWidth = utils.EnvFloat("SAMPSIM_TILE_WIDTH", cfg.TileWidth)
	cfg.PopulationDensity = utils.EnvFloat("SAMPSIM_DENSITY", cfg.PopulationDensity)
	cfg.MeanHouseholdSize = utils.EnvFloat("SAMPSIM_HOUSEHOLD_SIZE", cfg.MeanHouseholdSize)
	cfg.Pockets = utils.EnvInt("SAMPSIM_POCKETS", cfg.Pockets)
	cfg.River = utils.EnvBool("SAMPSIM_RIVER", cfg.River)
	seed, rng := population.NewRNG(utils.EnvString("SAMPSIM_SEED", ""))
	pop, err := population.Generate(cfg, rng)
	if err != nil {
		return nil, err
	}
	pop.Seed = seed
	l.Info("population_generated", "seed", seed, "towns", len(pop.Towns), "individuals", len(pop.Individuals))
	return pop, nil
}

// openStore：PG_ENABLED=false 或连接失败时返回 nil，服务以不持久化方式运行
func openStore(ctx context.Context) *store.Store {
	l := logger.L()
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		return nil
	}
	if db == nil {
		l.Info("db_disabled")
		return nil
	}
	if err := db.PingContext(ctx); err != nil {
		l.Error("db_ping_error", "err", err)
		_ = db.Close()
		return nil
	}
	l.Info("db_ping_ok")
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		_ = db.Close()
		return nil
	}
	return store.AttachDB(db)
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := utils.EnvString("API_BASE", "/api")
	l.Debug("config_api_base", "base", apiBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pop, err := loadPopulation()
	if err != nil {
		l.Error("population_error", "err", err)
		os.Exit(1)
	}

	st := openStore(ctx)
	if st != nil {
		defer st.Close()
	}

	rc := utils.OpenRedisFromEnv()
	if rc != nil {
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
			_ = rc.Close()
			rc = nil
		} else {
			l.Info("redis_ping_ok")
			defer rc.Close()
		}
	}
	ttl := time.Duration(utils.EnvInt("CACHE_TTL_SECONDS", 600)) * time.Second
	c := cache.New(rc, cache.NewLRU(utils.EnvInt("CACHE_SIZE", 256), ttl), ttl)

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, api.BuildRoutes(pop, st, c)))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	handler = middleware.WrapAllowList(handler)
	addr := utils.EnvString("ADDR", ":8080")
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		l.Info("shutdown_begin")
		if err := s.Shutdown(sctx); err != nil {
			l.Error("shutdown_error", "err", err)
		}
	}()

	l.Info("listening", "addr", addr, "base", apiBase)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_done")
}
