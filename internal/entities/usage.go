package entities

import "time"

// DailyUsage counts broadcast sends for one calendar day.
type DailyUsage struct {
	Date   time.Time `json:"date"`
	Sent   int       `json:"sent"`
	Failed int       `json:"failed"`
}

type UsageSummary struct {
	TodaySent   int          `json:"todaySent"`
	TodayFailed int          `json:"todayFailed"`
	MonthSent   int          `json:"monthSent"`
	MonthFailed int          `json:"monthFailed"`
	History     []DailyUsage `json:"history"`
}
