package database

import (
	"context"
	"log"
	"strings"

	"gorm.io/gorm"
)

// FetchMode selects what Execute returns.
type FetchMode int

const (
	// FetchNone runs a statement; Result carries LastInsertID for INSERT and OK otherwise.
	FetchNone FetchMode = iota
	// FetchOne returns the first row or nil.
	FetchOne
	// FetchAll returns every row, possibly none.
	FetchAll
)

// Row is one result row keyed by column name.
type Row map[string]interface{}

// Result is the outcome of Execute. On failure every field holds its zero value.
type Result struct {
	Rows         []Row
	Row          Row
	LastInsertID int64
	RowsAffected int64
	OK           bool
}

// Execute runs a parameterized statement and never returns an error: failures are
// logged with the statement and its parameters and an empty Result comes back.
// Prefer the typed services; this is for ad-hoc aggregates and tooling.
func (s *Store) Execute(ctx context.Context, query string, params []interface{}, mode FetchMode) Result {
	db := s.DB().WithContext(ctx)

	switch mode {
	case FetchAll:
		rows := []map[string]interface{}{}
		if err := db.Raw(query, params...).Scan(&rows).Error; err != nil {
			logQueryError(err, query, params)
			return Result{}
		}
		out := make([]Row, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return Result{Rows: out, RowsAffected: int64(len(out)), OK: true}

	case FetchOne:
		rows := []map[string]interface{}{}
		if err := db.Raw(query, params...).Scan(&rows).Error; err != nil {
			logQueryError(err, query, params)
			return Result{}
		}
		if len(rows) == 0 {
			return Result{OK: true}
		}
		return Result{Row: rows[0], RowsAffected: 1, OK: true}
	}

	// Build with the dialect's bind vars, then run on the raw pool so the driver
	// result (last insert id) is available.
	stmt := db.Session(&gorm.Session{DryRun: true}).Exec(query, params...).Statement
	sqlDB, err := s.DB().DB()
	if err != nil {
		logQueryError(err, query, params)
		return Result{}
	}
	res, err := sqlDB.ExecContext(ctx, stmt.SQL.String(), stmt.Vars...)
	if err != nil {
		logQueryError(err, query, params)
		return Result{}
	}
	out := Result{OK: true}
	out.RowsAffected, _ = res.RowsAffected()
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT") {
		out.LastInsertID, _ = res.LastInsertId()
	}
	return out
}

func logQueryError(err error, query string, params []interface{}) {
	log.Printf("Query failed: %v\nQuery: %s\nParams: %v", err, query, params)
}
