package utils

import (
	"database/sql"

	_ "github.com/lib/pq"

	"sampsim/internal/logger"
)

// BuildPostgresDSNFromEnv：由 PG_* 拼出连接串；默认库名 sampsim
func BuildPostgresDSNFromEnv() string {
	user := EnvString("PG_USER", "postgres")
	dsn := "postgres://" + user
	if pass := EnvString("PG_PASSWORD", ""); pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + EnvString("PG_HOST", "localhost") + ":" + EnvString("PG_PORT", "5432") +
		"/" + EnvString("PG_DB", "sampsim") + "?sslmode=" + EnvString("PG_SSLMODE", "disable")
	return dsn
}

// OpenPostgresFromEnv：打开连接池；PG_ENABLED=false 时返回 nil, nil
// 约束：sql.Open 不会建立连接，调用方需要 Ping 确认可用
func OpenPostgresFromEnv() (*sql.DB, error) {
	if !EnvBool("PG_ENABLED", true) {
		logger.L().Info("db_disabled")
		return nil, nil
	}
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(EnvInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(EnvInt("PG_MAX_IDLE_CONNS", 5))
	logger.L().Debug("db_env", "host", EnvString("PG_HOST", "localhost"), "db", EnvString("PG_DB", "sampsim"))
	return db, nil
}
