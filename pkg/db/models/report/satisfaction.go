package report

import "time"

const SatisfactionTableName = "customer_satisfaction"
const SatisfactionStagingTableName = SatisfactionTableName + StagingSuffix

// SatisfactionRow is one normalized customer-satisfaction survey response.
type SatisfactionRow struct {
	SatisfactionID    string    `ch:"satisfaction_id" json:"satisfaction_id"`
	ProjectID         string    `ch:"project_id" json:"project_id"`
	ProjectName       string    `ch:"project_name" json:"project_name"`
	ClientName        string    `ch:"client_name" json:"client_name"`
	SatisfactionStars uint8     `ch:"satisfaction_stars" json:"satisfaction_stars"`
	SurveyDate        time.Time `ch:"survey_date" json:"survey_date"`
	Quarter           uint8     `ch:"quarter" json:"quarter"`
	Year              uint16    `ch:"year" json:"year"`
}

// SatisfactionColumns is the schema source of truth for customer_satisfaction.
var SatisfactionColumns = []ColumnDef{
	{Name: "satisfaction_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "project_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "project_name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "client_name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "satisfaction_stars", Type: "UInt8"},
	{Name: "survey_date", Type: "Date"},
	{Name: "quarter", Type: "UInt8"},
	{Name: "year", Type: "UInt16"},
}
