// 包 store: 抽样运行记录的 PostgreSQL 读写，包含运行、样本明细与按日统计
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sampsim/internal/logger"
	"sampsim/internal/sample"
)

var ErrNotFound = errors.New("run not found")

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Run: 一次抽样运行的持久化视图
type Run struct {
	ID                  string         `json:"id"`
	Kind                string         `json:"type"`
	Seed                string         `json:"seed"`
	Params              map[string]any `json:"params"`
	Size                int            `json:"size"`
	Samples             int            `json:"samples"`
	SelectedIndividuals int            `json:"selected_individuals"`
	SelectedHouseholds  int            `json:"selected_households"`
	Incomplete          bool           `json:"incomplete"`
	CreatedAt           time.Time      `json:"created_at"`
	Selections          []Selection    `json:"selections"`
}

type Selection struct {
	Index         int       `json:"index"`
	Towns         []int64   `json:"towns"`
	FirstBuilding int64     `json:"first_building"`
	Buildings     []int64   `json:"buildings"`
	Households    []int64   `json:"households"`
	Individuals   []int64   `json:"individuals"`
	Weights       []float64 `json:"weights"`
}

func ints(v []int64) []int {
	out := make([]int, len(v))
	for i, x := range v {
		out[i] = int(x)
	}
	return out
}

// Sample：转换为抽样结果中的样本，便于重新标记到人口上
func (s Selection) Sample() sample.Selection {
	return sample.Selection{
		Index:         s.Index,
		Towns:         ints(s.Towns),
		FirstBuilding: int(s.FirstBuilding),
		Buildings:     ints(s.Buildings),
		Households:    ints(s.Households),
		Individuals:   ints(s.Individuals),
		Weights:       s.Weights,
	}
}

func ints64(v []int) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return out
}

// runRow：运行表的一行；参数中附带 Config，便于按 id 重放
func runRow(res *sample.Result) (params []byte, individuals, households int, incomplete bool, err error) {
	m := make(map[string]any, len(res.Params)+1)
	for k, v := range res.Params {
		m[k] = v
	}
	m["config"] = res.Config
	params, err = json.Marshal(m)
	if err != nil {
		return nil, 0, 0, false, err
	}
	for _, sel := range res.Selections {
		individuals += len(sel.Individuals)
		households += len(sel.Households)
		incomplete = incomplete || sel.Incomplete
	}
	return params, individuals, households, incomplete, nil
}

// 文档注释：保存一次抽样运行
// 背景：运行记录与全部样本明细在同一事务中写入；样本明细复用一条预编译语句批量插入，id 数组以 BIGINT[] 存储。
// 返回：新生成的运行 id（uuid）。
func (s *Store) SaveRun(ctx context.Context, res *sample.Result) (string, error) {
	params, individuals, households, incomplete, err := runRow(res)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO sampsim_runs(id, kind, seed, params, size, samples, selected_individuals, selected_households, incomplete)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		id, res.Kind, res.Seed, string(params), res.Config.Size, len(res.Selections), individuals, households, incomplete,
	); err != nil {
		return "", err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sampsim_selections(run_id, sample_index, towns, first_building, building_ids, household_ids, individual_ids, weights)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for _, sel := range res.Selections {
		if _, err := stmt.ExecContext(ctx, id, sel.Index,
			pq.Array(ints64(sel.Towns)),
			int64(sel.FirstBuilding),
			pq.Array(ints64(sel.Buildings)),
			pq.Array(ints64(sel.Households)),
			pq.Array(ints64(sel.Individuals)),
			pq.Array(sel.Weights),
		); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	logger.L().Info("run_saved", "id", id, "type", res.Kind, "samples", len(res.Selections), "individuals", individuals)
	return id, nil
}

// GetRun: 读取运行及其全部样本；不存在时返回 ErrNotFound
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	var params []byte
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, seed, params, size, samples, selected_individuals, selected_households, incomplete, created_at
        FROM sampsim_runs WHERE id=$1`, id)
	if err := row.Scan(&r.ID, &r.Kind, &r.Seed, &params, &r.Size, &r.Samples, &r.SelectedIndividuals, &r.SelectedHouseholds, &r.Incomplete, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(params, &r.Params); err != nil {
		return nil, fmt.Errorf("decode params of run %s: %w", id, err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT sample_index, towns, first_building, building_ids, household_ids, individual_ids, weights
        FROM sampsim_selections WHERE run_id=$1 ORDER BY sample_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sel Selection
		if err := rows.Scan(&sel.Index,
			pq.Array(&sel.Towns),
			&sel.FirstBuilding,
			pq.Array(&sel.Buildings),
			pq.Array(&sel.Households),
			pq.Array(&sel.Individuals),
			pq.Array(&sel.Weights),
		); err != nil {
			return nil, err
		}
		r.Selections = append(r.Selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("run_loaded", "id", id, "samples", len(r.Selections))
	return &r, nil
}

// IncrStats: 成功完成一次运行后递增当日计数
func (s *Store) IncrStats(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sampsim_stats_daily(day, runs) VALUES(current_date, 1)
        ON CONFLICT (day) DO UPDATE SET runs=sampsim_stats_daily.runs+1`)
	logger.L().Debug("stats_incr", "err", err)
	return err
}

// Totals: 累计与当日运行次数
type Totals struct {
	Total int64 `json:"total"`
	Today int64 `json:"today"`
}

func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(runs), 0) FROM sampsim_stats_daily").Scan(&t.Total); err != nil {
		return nil, err
	}
	err := s.db.QueryRowContext(ctx, "SELECT runs FROM sampsim_stats_daily WHERE day=current_date").Scan(&t.Today)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
