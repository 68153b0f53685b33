package report

import "time"

const TimeEntriesTableName = "consultant_report"
const TimeEntriesStagingTableName = TimeEntriesTableName + StagingSuffix

// TimeEntryRow is one normalized time-tracking entry, keyed by the source
// entry id. Hours come from millisecond durations; zero-duration entries are
// kept so the utilization picture stays complete.
type TimeEntryRow struct {
	ReportID     string    `ch:"report_id" json:"report_id"`
	ConsultantID string    `ch:"consultant_id" json:"consultant_id"`
	ProjectID    string    `ch:"project_id" json:"project_id"`
	WeekStart    time.Time `ch:"week_start_date" json:"week_start_date"`
	WeekEnd      time.Time `ch:"week_end_date" json:"week_end_date"`
	LoggedHours  float64   `ch:"logged_hours" json:"logged_hours"`
	Quarter      uint8     `ch:"quarter" json:"quarter"`
	Year         uint16    `ch:"year" json:"year"`
	WeekNumber   uint8     `ch:"week_number" json:"week_number"`
}

// TimeEntryColumns is the schema source of truth for consultant_report.
var TimeEntryColumns = []ColumnDef{
	{Name: "report_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "consultant_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "project_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "week_start_date", Type: "Date"},
	{Name: "week_end_date", Type: "Date"},
	{Name: "logged_hours", Type: "Float64"},
	{Name: "quarter", Type: "UInt8"},
	{Name: "year", Type: "UInt16"},
	{Name: "week_number", Type: "UInt8"},
}
