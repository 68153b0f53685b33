package report

import "time"

const DealsTableName = "deals_report"
const DealsStagingTableName = DealsTableName + StagingSuffix

// Participation types on a deal row. A deal fans out to one Owner row plus
// one Collaborator row per collaborator, each carrying the full deal amount.
const (
	ParticipationOwner        = "Owner"
	ParticipationCollaborator = "Collaborator"
)

// DealRow is one normalized closed-won deal participation.
type DealRow struct {
	DealID              string    `ch:"deal_id" json:"deal_id"`
	ConsultantID        string    `ch:"consultant_id" json:"consultant_id"`
	ParticipationType   string    `ch:"participation_type" json:"participation_type"`
	DealName            string    `ch:"deal_name" json:"deal_name"`
	DealAmount          float64   `ch:"deal_amount" json:"deal_amount"`
	CloseDate           time.Time `ch:"close_date" json:"close_date"`
	Quarter             uint8     `ch:"quarter" json:"quarter"`
	Year                uint16    `ch:"year" json:"year"`
	IsRecurringBusiness uint8     `ch:"is_recurring_business" json:"is_recurring_business"`
	ClientName          string    `ch:"client_name" json:"client_name"`
	Channel             string    `ch:"channel" json:"channel"`
	DealType            string    `ch:"deal_type" json:"deal_type"`
}

// DealColumns is the schema source of truth for deals_report.
var DealColumns = []ColumnDef{
	{Name: "deal_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "consultant_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "participation_type", Type: "String"},
	{Name: "deal_name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "deal_amount", Type: "Float64"},
	{Name: "close_date", Type: "Date"},
	{Name: "quarter", Type: "UInt8"},
	{Name: "year", Type: "UInt16"},
	{Name: "is_recurring_business", Type: "UInt8"},
	{Name: "client_name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "channel", Type: "String"},
	{Name: "deal_type", Type: "String"},
}
