package model

import "time"

// StudyRecord は完了した1回の学習区間を表す。
// タイマー停止時にのみ作成され、以後は不変。追記専用で更新・削除されない。
// DurationMinutesは(EndTime - StartTime)を分に換算し小数第2位に丸めた値。
// Dateは開始時刻の暦日（日付をまたぐ学習は開始日に帰属する）。
type StudyRecord struct {
	Subject         string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes float64
	Date            string
}
