// 包 migrate：首次运行时创建抽样记录所需的表与索引
package migrate

import (
	"context"
	"database/sql"

	"sampsim/internal/logger"
)

// EnsureSchema：建表
// 约束：全部使用 IF NOT EXISTS，可重复执行；只创建运行记录、样本明细与按日统计三张表
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sampsim_runs (
            id TEXT PRIMARY KEY,
            kind TEXT NOT NULL,
            seed TEXT NOT NULL,
            params JSONB NOT NULL DEFAULT '{}'::jsonb,
            size INT NOT NULL,
            samples INT NOT NULL,
            selected_individuals INT NOT NULL DEFAULT 0,
            selected_households INT NOT NULL DEFAULT 0,
            incomplete BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_runs_kind_created ON sampsim_runs(kind, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS sampsim_selections (
            run_id TEXT NOT NULL REFERENCES sampsim_runs(id) ON DELETE CASCADE,
            sample_index INT NOT NULL,
            towns BIGINT[] NOT NULL,
            first_building BIGINT NOT NULL,
            building_ids BIGINT[] NOT NULL,
            household_ids BIGINT[] NOT NULL,
            individual_ids BIGINT[] NOT NULL,
            weights DOUBLE PRECISION[] NOT NULL,
            PRIMARY KEY (run_id, sample_index)
        )`,
		`CREATE TABLE IF NOT EXISTS sampsim_stats_daily (
            day DATE PRIMARY KEY,
            runs BIGINT NOT NULL DEFAULT 0
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
