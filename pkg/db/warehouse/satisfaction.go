package warehouse

import (
	"context"
	"fmt"

	"github.com/consultia/bonusx/pkg/db/models/report"
	"go.uber.org/zap"
)

// WriteSatisfaction replaces customer_satisfaction with the latest survey
// snapshot. Survey responses can be edited after submission, so the table is
// rebuilt from the full response set on every run.
func (db *DB) WriteSatisfaction(ctx context.Context, rows []*report.SatisfactionRow) (int, error) {
	table, ok := report.TableByName(report.SatisfactionTableName)
	if !ok {
		return 0, fmt.Errorf("unknown table %s", report.SatisfactionTableName)
	}

	err := db.replaceInto(ctx, table, func(batch Batch) error {
		for _, row := range rows {
			if err := batch.Append(
				row.SatisfactionID,
				row.ProjectID,
				row.ProjectName,
				row.ClientName,
				row.SatisfactionStars,
				row.SurveyDate,
				row.Quarter,
				row.Year,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	db.Logger.Info("Wrote satisfaction responses",
		zap.Int("rows", len(rows)),
		zap.String("table", table.Name),
		zap.String("mode", Replace.String()))
	return len(rows), nil
}
