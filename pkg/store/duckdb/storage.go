package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const WatchedSessionsSchema = `
	CREATE TABLE IF NOT EXISTS watched_sessions (
		session_id VARCHAR NOT NULL PRIMARY KEY,
		practice_name VARCHAR,
		final_status VARCHAR,
		started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP NULL
	);
`

const ReportSnapshotsSchema = `
	CREATE TABLE IF NOT EXISTS report_snapshots (
		session_id VARCHAR NOT NULL PRIMARY KEY,
		payload JSON NOT NULL,
		fetched_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

var bootQueries = []string{
	WatchedSessionsSchema,
	ReportSnapshotsSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		boot := append([]string{}, bootQueries...)

		for _, query := range boot {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
