package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/skim/internal/ir"
)

// RunSummary is one row of ListRuns.
type RunSummary struct {
	RunID         string
	AutomationID  string
	StartTime     time.Time
	ExitCode      int
	Conditions    ir.RuntimeConditions
	Rules         int
	Results       int
	Notifications int
}

// ListRuns returns every stored run in the order it was stored.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.automation_id, r.start_time, r.exit_code, r.conditions,
			(SELECT COUNT(*) FROM rules WHERE run_id = r.run_id),
			(SELECT COUNT(*) FROM results WHERE run_id = r.run_id),
			(SELECT COUNT(*) FROM notifications WHERE run_id = r.run_id)
		FROM runs r
		ORDER BY r.seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			sum   RunSummary
			start string
			conds int64
		)
		if err := rows.Scan(&sum.RunID, &sum.AutomationID, &start, &sum.ExitCode, &conds,
			&sum.Rules, &sum.Results, &sum.Notifications); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		sum.StartTime, err = time.Parse(time.RFC3339Nano, start)
		if err != nil {
			return nil, fmt.Errorf("run %s: start time: %w", sum.RunID, err)
		}
		sum.Conditions = ir.RuntimeConditions(conds)
		runs = append(runs, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LoadRun rebuilds the stored report for runID. Marshaling the returned
// report canonically reproduces the bytes of the report that was stored.
func (s *Store) LoadRun(ctx context.Context, runID string) (*ir.Report, error) {
	var (
		rep               ir.Report
		toolJSON, invJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, automation_id, schema_version, tool, invocation
		FROM runs WHERE run_id = ?
	`, runID).Scan(&rep.RunID, &rep.AutomationID, &rep.SchemaVersion, &toolJSON, &invJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(toolJSON), &rep.Tool); err != nil {
		return nil, fmt.Errorf("load run %s: tool: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(invJSON), &rep.Invocation); err != nil {
		return nil, fmt.Errorf("load run %s: invocation: %w", runID, err)
	}
	rep.Conditions, err = ir.ParseRuntimeConditions(rep.Invocation.RuntimeConditions)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	if rep.Artifacts, err = readDocs[ir.ArtifactRecord](ctx, s.db, "artifacts", runID); err != nil {
		return nil, err
	}
	if rep.Results, err = readDocs[ir.Result](ctx, s.db, "results", runID); err != nil {
		return nil, err
	}
	if rep.Notifications, err = readDocs[ir.Notification](ctx, s.db, "notifications", runID); err != nil {
		return nil, err
	}

	// Absent sections decode as nil, matching an emitted report.
	if len(rep.Artifacts) == 0 {
		rep.Artifacts = nil
	}
	if len(rep.Notifications) == 0 {
		rep.Notifications = nil
	}
	return &rep, nil
}

// ResultsByRule returns every stored result of ruleID across runs, ordered
// by run then report position.
func (s *Store) ResultsByRule(ctx context.Context, ruleID string) ([]ir.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT res.doc FROM results res
		JOIN runs r ON r.run_id = res.run_id
		WHERE res.rule_id = ?
		ORDER BY r.seq ASC, res.ordinal ASC
	`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return scanDocs[ir.Result](rows, "results")
}

// readDocs reads the doc column of a child table for one run. table is
// always a package constant.
func readDocs[T any](ctx context.Context, db *sql.DB, table, runID string) ([]T, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE run_id = ? ORDER BY ordinal ASC`, table), runID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return scanDocs[T](rows, table)
}

func scanDocs[T any](rows *sql.Rows, table string) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}
