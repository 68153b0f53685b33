package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/consultia/bonusx/pkg/db/clickhouse"
	"github.com/consultia/bonusx/pkg/db/models/report"
)

// ErrNoBonusRecord is returned when a consultant has no computed bonus row
// for the requested period. A missing consultant is indistinguishable from a
// consultant whose bonus was never computed; callers report both the same way.
var ErrNoBonusRecord = errors.New("no bonus record")

// GetLatestBonusRecord returns the most recent computed bonus for a
// consultant, picking the latest year and, within it, the latest quarter.
func (db *DB) GetLatestBonusRecord(ctx context.Context, consultantID string) (*report.BonusRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM "%s"."%s" FINAL
		WHERE consultant_id = ?
		ORDER BY year DESC, quarter DESC
		LIMIT 1
	`, joinNames(report.BonusColumns), db.Name, report.BonusTableName)

	return db.selectBonusRecord(ctx, query, consultantID)
}

// GetBonusRecord returns the computed bonus for a consultant in a specific
// quarter and year.
func (db *DB) GetBonusRecord(ctx context.Context, consultantID string, quarter uint8, year uint16) (*report.BonusRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM "%s"."%s" FINAL
		WHERE consultant_id = ? AND quarter = ? AND year = ?
		LIMIT 1
	`, joinNames(report.BonusColumns), db.Name, report.BonusTableName)

	return db.selectBonusRecord(ctx, query, consultantID, quarter, year)
}

func (db *DB) selectBonusRecord(ctx context.Context, query string, args ...any) (*report.BonusRecord, error) {
	var records []report.BonusRecord
	if err := db.Select(ctx, &records, query, args...); err != nil {
		if clickhouse.IsNoRows(err) {
			return nil, ErrNoBonusRecord
		}
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoBonusRecord
	}
	return &records[0], nil
}
