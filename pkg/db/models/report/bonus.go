package report

import "time"

const BonusTableName = "quarterly_bonus_results"

// BonusRecord is one consolidated bonus row per (consultant, quarter, year).
// Rows are produced by a separate computation job; this pipeline only reads
// the latest row per consultant and period.
type BonusRecord struct {
	ConsultantID   string `ch:"consultant_id" json:"consultant_id"`
	ConsultantName string `ch:"consultant_name" json:"consultant_name"`
	PlanType       string `ch:"plan_type" json:"plan_type"`
	Quarter        uint8  `ch:"quarter" json:"quarter"`
	Year           uint16 `ch:"year" json:"year"`

	CompanyBookingBonus       float64 `ch:"company_booking_bonus" json:"company_booking_bonus"`
	RecurringBusinessBonus    float64 `ch:"recurring_business_bonus" json:"recurring_business_bonus"`
	IndividualCommission      float64 `ch:"individual_commission" json:"individual_commission"`
	UtilizationBonus          float64 `ch:"utilization_bonus" json:"utilization_bonus"`
	EfficiencyBonus           float64 `ch:"efficiency_bonus" json:"efficiency_bonus"`
	TimelineBonus             float64 `ch:"timeline_bonus" json:"timeline_bonus"`
	CustomerSatisfactionBonus float64 `ch:"customer_satisfaction_bonus" json:"customer_satisfaction_bonus"`
	MBOBonus                  float64 `ch:"mbo_bonus" json:"mbo_bonus"`

	// Inputs the recommendation rules threshold against.
	IndividualTCV float64 `ch:"individual_tcv" json:"individual_tcv"`
	ProjectHours  float64 `ch:"project_hours" json:"project_hours"`

	TotalBonus float64   `ch:"total_bonus" json:"total_bonus"`
	ComputedAt time.Time `ch:"computed_at" json:"computed_at"`
}

// BonusColumns is the schema source of truth for quarterly_bonus_results.
// The table is owned by the bonus computation job; the reader creates it when
// absent so lookups on a fresh warehouse return "no data" instead of failing.
var BonusColumns = []ColumnDef{
	{Name: "consultant_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "consultant_name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "plan_type", Type: "String"},
	{Name: "quarter", Type: "UInt8"},
	{Name: "year", Type: "UInt16"},
	{Name: "company_booking_bonus", Type: "Float64"},
	{Name: "recurring_business_bonus", Type: "Float64"},
	{Name: "individual_commission", Type: "Float64"},
	{Name: "utilization_bonus", Type: "Float64"},
	{Name: "efficiency_bonus", Type: "Float64"},
	{Name: "timeline_bonus", Type: "Float64"},
	{Name: "customer_satisfaction_bonus", Type: "Float64"},
	{Name: "mbo_bonus", Type: "Float64"},
	{Name: "individual_tcv", Type: "Float64"},
	{Name: "project_hours", Type: "Float64"},
	{Name: "total_bonus", Type: "Float64"},
	{Name: "computed_at", Type: "DateTime64(6)"},
}
