// Package bonus reads consolidated quarterly bonus records and shapes them
// into the lookup, breakdown, and recommendation views the advisory API
// serves.
package bonus

import (
	"context"
	"errors"
	"fmt"

	"github.com/consultia/bonusx/pkg/db/models/report"
	"github.com/consultia/bonusx/pkg/db/warehouse"
	"github.com/consultia/bonusx/pkg/identity"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no bonus record exists for the consultant and
// period. Handlers render it as data, never as a server fault.
var ErrNotFound = errors.New("consultant not found")

// Breakdown category and metric labels, fixed regardless of which fields the
// record actually populates.
const (
	CategoryCompany    = "Company Performance"
	CategoryIndividual = "Individual Performance"
	CategoryGlobal     = "Global Performance"
)

// RecordSource is the warehouse read surface the aggregator needs.
// warehouse.DB satisfies it.
type RecordSource interface {
	GetLatestBonusRecord(ctx context.Context, consultantID string) (*report.BonusRecord, error)
	GetBonusRecord(ctx context.Context, consultantID string, quarter uint8, year uint16) (*report.BonusRecord, error)
}

// Breakdown is a bonus record reshaped into the three fixed categories.
type Breakdown struct {
	ConsultantName string                        `json:"consultant_name"`
	PlanType       string                        `json:"plan_type"`
	TotalBonus     float64                       `json:"total_bonus"`
	Breakdown      map[string]map[string]float64 `json:"breakdown"`
	Period         string                        `json:"period"`
}

// Recommendation thresholds per plan. Each rule appends at most one message.
const (
	salesTCVThreshold      = 1_000_000
	hybridHoursThreshold   = 225
	deliveryHoursThreshold = 450
)

// Aggregator answers bonus queries from consolidated records.
type Aggregator struct {
	source RecordSource
	logger *zap.Logger
}

// New builds an Aggregator over a record source.
func New(source RecordSource, logger *zap.Logger) *Aggregator {
	return &Aggregator{source: source, logger: logger}
}

// GetBonus returns the bonus record for a consultant. Pass quarter and year
// both non-zero for a specific period; otherwise the most recent record wins
// (max year, then max quarter). A missing record is ErrNotFound.
func (a *Aggregator) GetBonus(ctx context.Context, consultantID string, quarter, year int) (*report.BonusRecord, error) {
	var (
		record *report.BonusRecord
		err    error
	)
	if quarter > 0 && year > 0 {
		record, err = a.source.GetBonusRecord(ctx, consultantID, uint8(quarter), uint16(year))
	} else {
		record, err = a.source.GetLatestBonusRecord(ctx, consultantID)
	}
	if errors.Is(err, warehouse.ErrNoBonusRecord) {
		a.logger.Debug("No bonus record",
			zap.String("consultant_id", consultantID),
			zap.Int("quarter", quarter),
			zap.Int("year", year))
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetBreakdown reshapes the consultant's bonus record into the three fixed
// categories. Every metric is present with a zero default, so partial records
// reshape cleanly instead of erroring.
func (a *Aggregator) GetBreakdown(ctx context.Context, consultantID string, quarter, year int) (*Breakdown, error) {
	record, err := a.GetBonus(ctx, consultantID, quarter, year)
	if err != nil {
		return nil, err
	}

	return &Breakdown{
		ConsultantName: record.ConsultantName,
		PlanType:       record.PlanType,
		TotalBonus:     record.TotalBonus,
		Period:         fmt.Sprintf("Q%d %d", record.Quarter, record.Year),
		Breakdown: map[string]map[string]float64{
			CategoryCompany: {
				"Company Booking Bonus":    record.CompanyBookingBonus,
				"Recurring Business Bonus": record.RecurringBusinessBonus,
			},
			CategoryIndividual: {
				"Individual Commission": record.IndividualCommission,
				"Utilization Bonus":     record.UtilizationBonus,
				"Efficiency Bonus":      record.EfficiencyBonus,
				"Timeline Bonus":        record.TimelineBonus,
			},
			CategoryGlobal: {
				"Customer Satisfaction Bonus": record.CustomerSatisfactionBonus,
				"MBO Bonus":                   record.MBOBonus,
			},
		},
	}, nil
}

// GetRecommendations applies the plan's threshold rules against the
// consultant's latest bonus record. The result may be empty, never nil.
func (a *Aggregator) GetRecommendations(ctx context.Context, consultantID string, plan identity.PlanType) ([]string, error) {
	record, err := a.GetBonus(ctx, consultantID, 0, 0)
	if err != nil {
		return nil, err
	}
	return Recommend(record, plan), nil
}

// Recommend evaluates the plan rules against a record. Pure: the same record
// and plan always yield the same list.
func Recommend(record *report.BonusRecord, plan identity.PlanType) []string {
	recommendations := []string{}
	switch plan {
	case identity.PlanSales:
		if record.IndividualTCV < salesTCVThreshold {
			recommendations = append(recommendations,
				"Focus on closing higher-value deals to reach $1M TCV.")
		}
	case identity.PlanHybrid:
		if record.ProjectHours < hybridHoursThreshold {
			recommendations = append(recommendations,
				"Increase project hours to earn the utilization bonus.")
		}
	case identity.PlanDelivery:
		if record.ProjectHours < deliveryHoursThreshold {
			recommendations = append(recommendations,
				"Raise project hours to maximize the bonus.")
		}
	}
	return recommendations
}
