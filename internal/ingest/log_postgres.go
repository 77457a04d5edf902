// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/warungpintar/internal/platform/database/schema"
	"github.com/taibuivan/warungpintar/internal/platform/dberr"
)

// PostgresAttemptLog implements [AttemptLog] using PostgreSQL.
type PostgresAttemptLog struct {
	pool *pgxpool.Pool
}

// NewPostgresAttemptLog constructs a [PostgresAttemptLog].
func NewPostgresAttemptLog(pool *pgxpool.Pool) *PostgresAttemptLog {
	return &PostgresAttemptLog{pool: pool}
}

// Record implements [AttemptLog].
func (log *PostgresAttemptLog) Record(ctx context.Context, record AttemptRecord) error {
	table := schema.PortalIngestAttempt
	columns := table.InsertColumns()

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s);
	`,
		table.Table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	_, err := log.pool.Exec(ctx, query,
		record.AttemptID,
		record.UserID,
		record.FileName,
		record.MediaType,
		record.FileSize,
		record.State.String(),
		record.CandidateCount,
		record.Succeeded,
		record.Failed,
		record.Detail,
		record.RecordedAt,
	)
	return dberr.Wrap(err, "Ingestion attempt", "insert_ingest_attempt")
}

// Recent implements [AttemptLog].
func (log *PostgresAttemptLog) Recent(ctx context.Context, userID string, limit int) ([]AttemptRecord, error) {
	table := schema.PortalIngestAttempt

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s DESC, %s DESC
		LIMIT $2;
	`,
		strings.Join(table.InsertColumns(), ", "),
		table.Table,
		table.UserID,
		table.RecordedAt,
		table.ID,
	)

	rows, err := log.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "Ingestion attempt", "list_ingest_attempts")
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		var (
			record AttemptRecord
			state  string
		)
		if err := rows.Scan(
			&record.AttemptID,
			&record.UserID,
			&record.FileName,
			&record.MediaType,
			&record.FileSize,
			&state,
			&record.CandidateCount,
			&record.Succeeded,
			&record.Failed,
			&record.Detail,
			&record.RecordedAt,
		); err != nil {
			return nil, dberr.Wrap(err, "Ingestion attempt", "scan_ingest_attempt")
		}
		if err := record.State.UnmarshalText([]byte(state)); err != nil {
			return nil, dberr.Wrap(err, "Ingestion attempt", "decode_ingest_state")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "Ingestion attempt", "iterate_ingest_attempts")
	}
	return records, nil
}
