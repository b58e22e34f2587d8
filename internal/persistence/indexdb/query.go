package indexdb

import (
	"context"
	"database/sql"
)

// OpSummary aggregates the indexed entries of one operation.
type OpSummary struct {
	Op        string
	Calls     int
	Errors    int
	Dropped   int
	AvgMicros float64
}

// Summarize groups indexed calls by operation. An empty session covers
// every session.
func (s *SQLiteIndex) Summarize(ctx context.Context, session string) ([]OpSummary, error) {
	return summarize(ctx, s.db, session)
}

func summarize(ctx context.Context, db *sql.DB, session string) ([]OpSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT op,
			SUM(CASE WHEN kind='call' THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind='call' AND code IS NOT NULL THEN 1 ELSE 0 END),
			SUM(dropped),
			COALESCE(AVG(CASE WHEN kind='call' THEN micros END), 0)
		FROM calls
		WHERE (?1 = '' OR session = ?1)
		GROUP BY op
		ORDER BY op`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OpSummary
	for rows.Next() {
		var r OpSummary
		if err := rows.Scan(&r.Op, &r.Calls, &r.Errors, &r.Dropped, &r.AvgMicros); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sessions lists indexed sessions, newest first. Session ids are ULIDs, so
// they sort by creation time.
func (s *SQLiteIndex) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT session FROM calls ORDER BY session DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
