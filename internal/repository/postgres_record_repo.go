package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/studylog/internal/model"
)

// PostgresRecordRepo はPostgreSQLを使用した学習記録リポジトリ。
type PostgresRecordRepo struct {
	db *sql.DB
}

// NewPostgresRecordRepo はPostgresRecordRepoを生成する。
func NewPostgresRecordRepo(db *sql.DB) *PostgresRecordRepo {
	return &PostgresRecordRepo{db: db}
}

// Append は指定ユーザーの学習記録を1件挿入する。
func (r *PostgresRecordRepo) Append(ctx context.Context, username string, record *model.StudyRecord) error {
	date, err := time.ParseInLocation(model.DateLayout, record.Date, time.Local)
	if err != nil {
		return fmt.Errorf("invalid record date: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO study_records (id, username, subject, start_time, end_time, duration_minutes, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), username, record.Subject,
		record.StartTime, record.EndTime, record.DurationMinutes, date,
	)
	if err != nil {
		return fmt.Errorf("failed to insert study record: %w", err)
	}
	return nil
}

// ListByUsername は指定ユーザーの全記録を挿入順で返す。
// 記録が1件もない場合は空スライスを返す。
func (r *PostgresRecordRepo) ListByUsername(ctx context.Context, username string) ([]model.StudyRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subject, start_time, end_time, duration_minutes, date
		 FROM study_records
		 WHERE username = $1
		 ORDER BY created_at`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list study records: %w", err)
	}
	defer rows.Close()

	records := []model.StudyRecord{}
	for rows.Next() {
		var rec model.StudyRecord
		var date time.Time
		if err := rows.Scan(&rec.Subject, &rec.StartTime, &rec.EndTime, &rec.DurationMinutes, &date); err != nil {
			return nil, fmt.Errorf("failed to scan study record: %w", err)
		}
		rec.Date = date.Format(model.DateLayout)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study records: %w", err)
	}

	return records, nil
}

// compile-time interface check
var _ RecordRepository = (*PostgresRecordRepo)(nil)
