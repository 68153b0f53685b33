// Package report defines the warehouse row models and table schemas for the
// bonus pipeline: normalized source tables written by the sync service and
// the consolidated bonus results read by the advisory layer.
package report

// StagingSuffix is appended to a table name to form its staging twin.
// Replace-mode writes land in staging first and are swapped in atomically.
const StagingSuffix = "_staging"

// Table couples a table's name with its schema and sort key so the writer
// can create, evolve, and stage tables generically.
type Table struct {
	Name    string
	Columns []ColumnDef
	OrderBy string
}

// StagingName returns the staging twin's table name.
func (t Table) StagingName() string {
	return t.Name + StagingSuffix
}

// Tables returns every warehouse table this pipeline touches.
func Tables() []Table {
	return []Table{
		{Name: TimeEntriesTableName, Columns: TimeEntryColumns, OrderBy: "(consultant_id, year, quarter, week_start_date, report_id)"},
		{Name: DealsTableName, Columns: DealColumns, OrderBy: "(consultant_id, year, quarter, deal_id)"},
		{Name: SatisfactionTableName, Columns: SatisfactionColumns, OrderBy: "(project_id, year, quarter, satisfaction_id)"},
		{Name: BonusTableName, Columns: BonusColumns, OrderBy: "(consultant_id, year, quarter)"},
	}
}

// TableByName returns the table definition for name.
func TableByName(name string) (Table, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
