// 包 api：集中注册 HTTP API 路由，主入口只负责挂载
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"sampsim/internal/cache"
	"sampsim/internal/logger"
	"sampsim/internal/metrics"
	"sampsim/internal/population"
	"sampsim/internal/sample"
	"sampsim/internal/simerr"
	"sampsim/internal/store"
)

// sampleResponse：对外返回的抽样结果；持久化成功时带运行 id
type sampleResponse struct {
	ID string `json:"id,omitempty"`
	*sample.Result
}

type populationResponse struct {
	Seed        string        `json:"seed"`
	Towns       int           `json:"towns"`
	Buildings   int           `json:"buildings"`
	Households  int           `json:"households"`
	Individuals int           `json:"individuals"`
	Stats       []sample.Stat `json:"stats"`
}

// 文档注释：API 服务
// 背景：持有已加载的人口；抽样会修改人口的选中状态，因此同一时刻只允许一次抽样。
// 约束：st 为 nil 时不持久化，/runs 与 /stats 返回 503；c 为 nil 时不缓存。
type server struct {
	mu  sync.Mutex
	pop *population.Population
	st  *store.Store
	c   *cache.Cache
	log *slog.Logger
}

// BuildRoutes：独立 ServeMux，便于在主入口挂载到 /api 前缀
func BuildRoutes(pop *population.Population, st *store.Store, c *cache.Cache) *http.ServeMux {
	s := &server{pop: pop, st: st, c: c, log: logger.L()}
	mux := http.NewServeMux()
	mux.HandleFunc("/sample", s.handleSample)
	mux.HandleFunc("/runs", s.handleRun)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/population", s.handlePopulation)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, b []byte, hit bool) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	if hit {
		w.Header().Set("x-cache", "hit")
	} else {
		w.Header().Set("x-cache", "miss")
	}
	_, _ = w.Write(b)
}

// statusOf：InvalidState → 400，Exhausted → 422，其他 → 500
func statusOf(err error) int {
	switch {
	case errors.Is(err, simerr.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, simerr.ErrExhausted):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

// handleSample：GET 读查询串，POST 读表单；带 seed 的请求结果确定，按规范化参数缓存
func (s *server) handleSample(w http.ResponseWriter, r *http.Request) {
	metrics.RequestsTotal.Inc()
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ctx := r.Context()
	q := canonical(r.Form)
	key := cache.SampleKey(q)
	cacheable := s.c != nil && q.Get("seed") != ""
	if cacheable {
		if b, ok := s.c.Get(ctx, key); ok {
			s.log.Debug("sample_cache_hit", "key", key)
			writeRaw(w, b, true)
			return
		}
	}

	sm, err := parseSampler(q)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	res, err := sm.Generate(ctx, s.pop)
	s.mu.Unlock()
	if err != nil {
		s.log.Info("sample_error", "type", q.Get("type"), "err", err)
		writeError(w, err)
		return
	}

	resp := sampleResponse{Result: res}
	if s.st != nil {
		if id, err := s.st.SaveRun(ctx, res); err != nil {
			s.log.Error("run_save_error", "err", err)
		} else {
			resp.ID = id
			if err := s.st.IncrStats(ctx); err != nil {
				s.log.Error("stats_incr_error", "err", err)
			}
		}
	}
	b, err := json.Marshal(resp)
	if err != nil {
		writeError(w, err)
		return
	}
	if cacheable {
		s.c.Set(ctx, key, b)
	}
	writeRaw(w, b, false)
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.st == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "persistence disabled"})
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}
	run, err := s.st.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Error("run_load_error", "id", id, "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.st == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "persistence disabled"})
		return
	}
	t, err := s.st.GetTotals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *server) handlePopulation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := populationResponse{
		Seed:        s.pop.Seed,
		Towns:       len(s.pop.Towns),
		Buildings:   len(s.pop.Buildings),
		Households:  len(s.pop.Households),
		Individuals: len(s.pop.Individuals),
		Stats:       sample.PopulationStats(s.pop),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}
