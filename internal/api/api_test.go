package api

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"sampsim/internal/cache"
	"sampsim/internal/population"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := population.DefaultConfig()
	cfg.TilesX, cfg.TilesY = 4, 4
	cfg.PopulationDensity = 20
	pop, err := population.Generate(cfg, rand.New(rand.NewPCG(8, 9)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	c := cache.New(nil, cache.NewLRU(16, time.Minute), time.Minute)
	srv := httptest.NewServer(BuildRoutes(pop, nil, c))
	t.Cleanup(srv.Close)
	return srv
}

func TestSampleEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	tests := []struct {
		name  string
		query string
		code  int
	}{
		{"random", "type=random&size=10&seed=1", http.StatusOK},
		{"grid", "type=grid_epi&size=10&squares=3&seed=2", http.StatusOK},
		{"unknown type", "type=spiral&size=10", http.StatusBadRequest},
		{"bad number", "type=random&size=ten", http.StatusBadRequest},
		{"missing arc", "type=arc_epi&size=10", http.StatusBadRequest},
		{"exhausted", "type=circle_gps&size=10&radius=1e-9&max_attempts=2&seed=3", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, err := http.Get(srv.URL + "/sample?" + tt.query)
			if err != nil {
				t.Fatalf("GET error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.code {
				t.Fatalf("GET /sample?%s = %d, want %d", tt.query, resp.StatusCode, tt.code)
			}
			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if tt.code == http.StatusOK && body["type"] == nil {
				t.Fatalf("body = %v, want sample result", body)
			}
			if tt.code != http.StatusOK && body["error"] == nil {
				t.Fatalf("body = %v, want error message", body)
			}
		})
	}
}

func TestSampleCache(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	get := func(q string) (string, string) {
		resp, err := http.Get(srv.URL + "/sample?" + q)
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		return resp.Header.Get("x-cache"), string(b)
	}
	h1, b1 := get("type=random&size=8&seed=77")
	h2, b2 := get("seed=77&size=8&type=random&ignored=1")
	if h1 != "miss" || h2 != "hit" {
		t.Fatalf("x-cache = %q, %q, want miss, hit", h1, h2)
	}
	if b1 != b2 {
		t.Fatalf("cached body differs from the original")
	}
	if h, _ := get("type=random&size=8"); h != "miss" {
		t.Fatalf("x-cache without seed = %q, want miss", h)
	}
}

func TestSamplePost(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	form := url.Values{"type": {"square_gps"}, "size": {"5"}, "squares": {"4"}, "seed": {"4"}}
	resp, err := http.PostForm(srv.URL+"/sample", form)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /sample = %d, want 200", resp.StatusCode)
	}
}

func TestPersistenceDisabled(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	for _, path := range []string{"/runs?id=x", "/stats"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("GET %s = %d, want 503", path, resp.StatusCode)
		}
	}
}

func TestPopulationEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/population")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	var p populationResponse
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Towns != 1 || p.Individuals == 0 || len(p.Stats) != 9 {
		t.Fatalf("population = %+v, want 1 town with 9 stats rows", p)
	}
}
