package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/studylog/internal/model"
)

// recordsHeader は学習記録ファイルのヘッダー行。
var recordsHeader = []string{"subject", "start_time", "end_time", "duration_minutes", "date"}

// CSVRecordRepo はカンマ区切りテキストファイルを使用した学習記録リポジトリ。
// ユーザーごとに1ファイル（<username>_study_data.csv）を追記専用で使用する。
type CSVRecordRepo struct {
	dataDir string
	mu      sync.Mutex
}

// NewCSVRecordRepo はCSVRecordRepoを生成する。
func NewCSVRecordRepo(dataDir string) (*CSVRecordRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &CSVRecordRepo{dataDir: dataDir}, nil
}

// EnsureStore はユーザーの記録ファイルをヘッダー行のみで初期化する。
// サインアップ時に呼び出される。既に存在する場合は何もしない。
func (r *CSVRecordRepo) EnsureStore(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ensureCSVFile(r.filePath(username), recordsHeader)
}

// Append は指定ユーザーの記録ファイルに1行追記する。
// ファイルが未作成の場合はヘッダー付きで作成してから追記する。
func (r *CSVRecordRepo) Append(ctx context.Context, username string, record *model.StudyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.filePath(username)
	if err := ensureCSVFile(path, recordsHeader); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open record file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		record.Subject,
		record.StartTime.Format(model.TimeLayout),
		record.EndTime.Format(model.TimeLayout),
		strconv.FormatFloat(record.DurationMinutes, 'f', 2, 64),
		record.Date,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write record row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush record row: %w", err)
	}

	return nil
}

// ListByUsername は指定ユーザーの全記録を追記順で返す。
// ファイルが存在しない場合は空スライスを返す。
// 行の解析に失敗した場合はエラーを返す（当該リクエストの失敗として扱われる）。
func (r *CSVRecordRepo) ListByUsername(ctx context.Context, username string) ([]model.StudyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.filePath(username))
	if os.IsNotExist(err) {
		return []model.StudyRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	records := make([]model.StudyRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rec, err := parseRecordRow(row)
		if err != nil {
			return nil, fmt.Errorf("failed to parse record row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// filePath はユーザーの記録ファイルのパスを返す。
func (r *CSVRecordRepo) filePath(username string) string {
	return filepath.Join(r.dataDir, username+"_study_data.csv")
}

// parseRecordRow はCSVの1行をStudyRecordに変換する。
func parseRecordRow(row []string) (model.StudyRecord, error) {
	if len(row) < 5 {
		return model.StudyRecord{}, fmt.Errorf("expected 5 fields, got %d", len(row))
	}

	start, err := time.ParseInLocation(model.TimeLayout, row[1], time.Local)
	if err != nil {
		return model.StudyRecord{}, fmt.Errorf("invalid start_time: %w", err)
	}
	end, err := time.ParseInLocation(model.TimeLayout, row[2], time.Local)
	if err != nil {
		return model.StudyRecord{}, fmt.Errorf("invalid end_time: %w", err)
	}
	duration, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return model.StudyRecord{}, fmt.Errorf("invalid duration_minutes: %w", err)
	}

	return model.StudyRecord{
		Subject:         row[0],
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: duration,
		Date:            row[4],
	}, nil
}

// compile-time interface check
var _ RecordRepository = (*CSVRecordRepo)(nil)
