package warehouse

import (
	"context"
	"fmt"

	"github.com/consultia/bonusx/pkg/db/models/report"
	"go.uber.org/zap"
)

// WriteTimeEntries appends normalized time-tracking rows to consultant_report.
// Weekly reports accumulate, so this table is never replaced.
func (db *DB) WriteTimeEntries(ctx context.Context, rows []*report.TimeEntryRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	table, ok := report.TableByName(report.TimeEntriesTableName)
	if !ok {
		return 0, fmt.Errorf("unknown table %s", report.TimeEntriesTableName)
	}

	err := db.appendInto(ctx, table.Name, table.Columns, func(batch Batch) error {
		for _, row := range rows {
			if err := batch.Append(
				row.ReportID,
				row.ConsultantID,
				row.ProjectID,
				row.WeekStart,
				row.WeekEnd,
				row.LoggedHours,
				row.Quarter,
				row.Year,
				row.WeekNumber,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	db.Logger.Info("Wrote time entries",
		zap.Int("rows", len(rows)),
		zap.String("table", table.Name),
		zap.String("mode", Append.String()))
	return len(rows), nil
}
