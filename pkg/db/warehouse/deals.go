package warehouse

import (
	"context"
	"fmt"

	"github.com/consultia/bonusx/pkg/db/models/report"
	"go.uber.org/zap"
)

// WriteDeals replaces deals_report with the given snapshot. CRM deals mutate
// upstream (amounts, collaborators, close dates), so each run carries the
// full closed-won picture and swaps it in atomically.
func (db *DB) WriteDeals(ctx context.Context, rows []*report.DealRow) (int, error) {
	table, ok := report.TableByName(report.DealsTableName)
	if !ok {
		return 0, fmt.Errorf("unknown table %s", report.DealsTableName)
	}

	err := db.replaceInto(ctx, table, func(batch Batch) error {
		for _, row := range rows {
			if err := batch.Append(
				row.DealID,
				row.ConsultantID,
				row.ParticipationType,
				row.DealName,
				row.DealAmount,
				row.CloseDate,
				row.Quarter,
				row.Year,
				row.IsRecurringBusiness,
				row.ClientName,
				row.Channel,
				row.DealType,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	db.Logger.Info("Wrote deals",
		zap.Int("rows", len(rows)),
		zap.String("table", table.Name),
		zap.String("mode", Replace.String()))
	return len(rows), nil
}
