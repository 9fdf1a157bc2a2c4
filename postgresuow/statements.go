package postgresuow

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const (
	dialectPostgres  = "postgres"
	excludedTable    = "EXCLUDED."
	statementUpsert  = "upsert"
	statementDelete  = "delete"
	identifierQuote  = `"`
	identifierEscape = `""`
)

type statement struct {
	action string
	table  string
	sql    string
}

// buildUpsertStatement renders an INSERT that updates all non-key columns on a key conflict.
// An entity without non-key columns is inserted with ON CONFLICT DO NOTHING.
func buildUpsertStatement(entity Entity) (statement, error) {
	keys := entity.PrimaryKey()
	columns := entity.Columns()

	record := goqu.Record{}
	for _, column := range keys {
		record[column.Name] = column.Value
	}

	update := goqu.Record{}
	for name, value := range columns {
		if _, isKey := keys.Get(name); isKey {
			continue
		}

		record[name] = value
		update[name] = goqu.L(excludedTable + quoteIdentifier(name))
	}

	insert := goqu.Dialect(dialectPostgres).Insert(entity.TableName()).Rows(record)

	if len(update) == 0 {
		insert = insert.OnConflict(goqu.DoNothing())
	} else {
		insert = insert.OnConflict(goqu.DoUpdate(conflictTarget(keys), update))
	}

	sqlQuery, _, err := insert.ToSQL()
	if err != nil {
		return statement{}, err
	}

	return statement{action: statementUpsert, table: entity.TableName(), sql: sqlQuery}, nil
}

// buildDeleteStatement renders a DELETE matching all primary key columns.
func buildDeleteStatement(entity Entity) (statement, error) {
	where := goqu.Ex{}
	for _, column := range entity.PrimaryKey() {
		where[column.Name] = column.Value
	}

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Delete(entity.TableName()).
		Where(where).
		ToSQL()
	if err != nil {
		return statement{}, err
	}

	return statement{action: statementDelete, table: entity.TableName(), sql: sqlQuery}, nil
}

func conflictTarget(keys domainevents.PrimaryKey) string {
	names := keys.Columns()
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, quoteIdentifier(name))
	}

	return strings.Join(quoted, ",")
}

func quoteIdentifier(name string) string {
	return identifierQuote + strings.ReplaceAll(name, identifierQuote, identifierEscape) + identifierQuote
}
