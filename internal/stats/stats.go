// Package stats は学習記録の集計ロジックを提供する。
// 全ての関数は1ユーザー分のStudyRecordスライスに対する純粋な読み取りで、
// キャッシュや差分更新は行わない。呼び出しごとにストアから再読み込みした
// レコードを渡すことを想定している。
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/hitoshi/studylog/internal/model"
)

// DateTotal は1日分の合計学習時間を表す。
type DateTotal struct {
	Date     string
	Duration float64
}

// SubjectStats は1教科の集計結果を表す。
type SubjectStats struct {
	Subject       string
	TotalDuration float64
	RecordCount   int
	DateStats     []DateTotal         // 日付の降順
	Records       []model.StudyRecord // 開始時刻の降順
}

// TimeRangeStats は今日を末尾とする連続した日付窓の集計結果を表す。
type TimeRangeStats struct {
	Dates         []string           // 窓内の全日付（昇順、長さ=days）
	DateTotals    map[string]float64 // 窓内の全日付をキーに持つ（記録なしは0）
	SubjectTotals map[string]float64
	TotalDuration float64
}

// Today は日付が今日（サーバーローカル）のレコードのみを返す。
func Today(records []model.StudyRecord, now time.Time) []model.StudyRecord {
	today := now.Format(model.DateLayout)
	var result []model.StudyRecord
	for _, rec := range records {
		if rec.Date == today {
			result = append(result, rec)
		}
	}
	return result
}

// Subjects は全レコードに出現する教科名の集合を返す。
// 順序に意味はないが、決定性のため昇順でソートして返す。
func Subjects(records []model.StudyRecord) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		seen[rec.Subject] = struct{}{}
	}

	subjects := make([]string, 0, len(seen))
	for s := range seen {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects
}

// ForSubject は指定教科のレコードを集計する。
// 合計時間は小数第2位に丸める。日別集計は日付の降順、
// レコードは開始時刻の降順でソートされる。
func ForSubject(records []model.StudyRecord, subject string) SubjectStats {
	var total float64
	var matched []model.StudyRecord
	dateTotals := make(map[string]float64)

	for _, rec := range records {
		if rec.Subject != subject {
			continue
		}
		total += rec.DurationMinutes
		dateTotals[rec.Date] += rec.DurationMinutes
		matched = append(matched, rec)
	}

	dateStats := make([]DateTotal, 0, len(dateTotals))
	for date, duration := range dateTotals {
		dateStats = append(dateStats, DateTotal{Date: date, Duration: round2(duration)})
	}
	sort.Slice(dateStats, func(i, j int) bool {
		return dateStats[i].Date > dateStats[j].Date
	})

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartTime.After(matched[j].StartTime)
	})

	return SubjectStats{
		Subject:       subject,
		TotalDuration: round2(total),
		RecordCount:   len(matched),
		DateStats:     dateStats,
		Records:       matched,
	}
}

// TimeRange は今日を含む直近days日分の集計を返す。
// 窓内の全日付を0で初期化してから、日付が窓内に入るレコードのみを
// 日別・教科別・総計に加算する。窓外のレコードは完全に無視される
// （開始・終了時刻との重なり判定は行わず、Dateフィールドのみで判定する）。
func TimeRange(records []model.StudyRecord, days int, now time.Time) TimeRangeStats {
	dates := make([]string, 0, days)
	dateTotals := make(map[string]float64, days)
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format(model.DateLayout)
		dates = append(dates, date)
		dateTotals[date] = 0
	}

	subjectTotals := make(map[string]float64)
	var total float64

	for _, rec := range records {
		if _, ok := dateTotals[rec.Date]; !ok {
			continue
		}
		dateTotals[rec.Date] += rec.DurationMinutes
		subjectTotals[rec.Subject] += rec.DurationMinutes
		total += rec.DurationMinutes
	}

	for date, duration := range dateTotals {
		dateTotals[date] = round2(duration)
	}
	for subject, duration := range subjectTotals {
		subjectTotals[subject] = round2(duration)
	}

	return TimeRangeStats{
		Dates:         dates,
		DateTotals:    dateTotals,
		SubjectTotals: subjectTotals,
		TotalDuration: round2(total),
	}
}

// round2 は小数第2位に丸める。
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
