// Package timer は学習タイマーの状態遷移を提供する。
//
// タイマー状態はブラウザセッションのKVデータに保持される。同一ユーザーでも
// 別端末・別タブのセッションはそれぞれ独立したタイマーを持つ。
// 状態はIdleとRunning(subject, start_time)の2つで、Runningは停止時に
// StudyRecordへ変換される。セッションが失効した場合、進行中の区間は
// 記録されずに失われる。
package timer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hitoshi/studylog/internal/model"
	"github.com/hitoshi/studylog/internal/repository"
)

// セッションデータ内でタイマー状態を保持するキー。
const (
	startTimeKey = "study_start_time"
	subjectKey   = "current_subject"
)

// MetricsRecorder はタイマー操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordTimerStarted(subject string)
	RecordStudyRecord(minutes float64)
}

// Service はタイマーの開始・停止を提供する。
type Service struct {
	recordRepo  repository.RecordRepository
	sessionRepo repository.SessionRepository
	metrics     MetricsRecorder // nil可
	now         func() time.Time
}

// NewService はServiceを生成する。metricsはnilでよい。
func NewService(recordRepo repository.RecordRepository, sessionRepo repository.SessionRepository, metrics MetricsRecorder) *Service {
	return &Service{
		recordRepo:  recordRepo,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Start はタイマーを開始する。
// 既にタイマーが動いている場合は黙って上書きし、前の区間は記録されずに失われる
// （スタックしない）。教科名が空の場合はEMPTY_SUBJECTを返す。
func (s *Service) Start(ctx context.Context, session *model.Session, subject string) error {
	if subject == "" {
		return model.NewEmptySubjectError()
	}

	session.Data[startTimeKey] = s.now().Format(model.TimeLayout)
	session.Data[subjectKey] = subject

	if err := s.sessionRepo.UpdateData(ctx, session.ID, session.Data); err != nil {
		return fmt.Errorf("failed to persist timer state: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTimerStarted(subject)
	}
	return nil
}

// Current は進行中タイマーの状態を返す。
// タイマーが動いていない場合はrunning=falseを返す。
func (s *Service) Current(session *model.Session) (subject string, startedAt time.Time, running bool) {
	startStr, ok := session.Data[startTimeKey]
	subject, ok2 := session.Data[subjectKey]
	if !ok || !ok2 {
		return "", time.Time{}, false
	}

	startedAt, err := time.ParseInLocation(model.TimeLayout, startStr, time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return subject, startedAt, true
}

// Stop はタイマーを停止し、StudyRecordを1件追記して返す。
// 所要時間は分単位で小数第2位に丸める。日付は終了時刻ではなく開始時刻の
// 暦日に帰属する（日付をまたいだ場合も開始日）。
// タイマーが動いていない場合はNO_ACTIVE_TIMERを返し、何も書き込まない。
func (s *Service) Stop(ctx context.Context, session *model.Session) (*model.StudyRecord, error) {
	startStr, ok := session.Data[startTimeKey]
	subject, ok2 := session.Data[subjectKey]
	if !ok || !ok2 {
		return nil, model.NewNoActiveTimerError()
	}

	start, err := time.ParseInLocation(model.TimeLayout, startStr, time.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timer start time: %w", err)
	}

	end := s.now()
	record := &model.StudyRecord{
		Subject:         subject,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: round2(end.Sub(start).Minutes()),
		Date:            start.Format(model.DateLayout),
	}

	if err := s.recordRepo.Append(ctx, session.Username, record); err != nil {
		return nil, fmt.Errorf("failed to append study record: %w", err)
	}

	// 記録の書き込みが成功してからタイマー状態を消す
	delete(session.Data, startTimeKey)
	delete(session.Data, subjectKey)
	if err := s.sessionRepo.UpdateData(ctx, session.ID, session.Data); err != nil {
		return nil, fmt.Errorf("failed to clear timer state: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordStudyRecord(record.DurationMinutes)
	}
	return record, nil
}

// round2 は小数第2位に丸める。
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
