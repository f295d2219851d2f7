package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fortio.org/safecast"

	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/report"
)

var _ report.Sink = (*Sink)(nil)

var errSinkClosed = errors.New("store sink is closed")

// Sink writes one run into the store inside a single transaction. The
// transaction commits on Close only if every section was written;
// otherwise it rolls back and the run is not stored.
type Sink struct {
	store *Store
	ctx   context.Context
	tx    *sql.Tx

	runID        string
	automationID string
	tool         ir.Tool

	artifacts     int
	results       int
	notifications int

	complete bool
	closed   bool
}

// NewSink returns a sink bound to ctx. A Sink stores exactly one run.
func (s *Store) NewSink(ctx context.Context) *Sink {
	return &Sink{store: s, ctx: ctx}
}

// Initialize opens the transaction and rejects a run GUID that is already
// stored.
func (k *Sink) Initialize(runID, automationID string) error {
	if k.closed {
		return errSinkClosed
	}
	if k.tx != nil {
		return fmt.Errorf("initialize %s: run %s already in progress", runID, k.runID)
	}
	tx, err := k.store.db.BeginTx(k.ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	var exists int
	err = tx.QueryRowContext(k.ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("check run: %w", err)
	}
	if exists > 0 {
		tx.Rollback()
		return fmt.Errorf("%s: %w", runID, ErrDuplicateRun)
	}
	k.tx = tx
	k.runID = runID
	k.automationID = automationID
	return nil
}

// WriteTool buffers the tool until the run row exists.
func (k *Sink) WriteTool(tool ir.Tool) error {
	if err := k.ready(); err != nil {
		return err
	}
	k.tool = tool
	return nil
}

// WriteInvocation inserts the run row and the rule list.
func (k *Sink) WriteInvocation(inv ir.Invocation) error {
	if err := k.ready(); err != nil {
		return err
	}
	conds, err := ir.ParseRuntimeConditions(inv.RuntimeConditions)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	condCol, err := safecast.Conv[int64](uint64(conds))
	if err != nil {
		return fmt.Errorf("write invocation: conditions: %w", err)
	}
	toolJSON, err := canonical(k.tool)
	if err != nil {
		return fmt.Errorf("write invocation: tool: %w", err)
	}
	invJSON, err := canonical(inv)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}

	_, err = k.tx.ExecContext(k.ctx, `
		INSERT INTO runs
		(run_id, automation_id, schema_version, tool, invocation, start_time, exit_code, conditions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		k.runID,
		k.automationID,
		ir.SchemaVersion,
		toolJSON,
		invJSON,
		inv.StartTime.UTC().Format(time.RFC3339Nano),
		inv.ExitCode,
		condCol,
	)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}

	for i, rule := range k.tool.Rules {
		_, err := k.tx.ExecContext(k.ctx, `
			INSERT INTO rules (run_id, ordinal, rule_id) VALUES (?, ?, ?)
		`, k.runID, i, rule.ID)
		if err != nil {
			return fmt.Errorf("write rule %s: %w", rule.ID, err)
		}
	}
	return nil
}

// WriteArtifacts appends artifact rows after any already written.
func (k *Sink) WriteArtifacts(artifacts []ir.ArtifactRecord) error {
	if err := k.ready(); err != nil {
		return err
	}
	for _, a := range artifacts {
		doc, err := canonical(a)
		if err != nil {
			return fmt.Errorf("write artifact %s: %w", a.Location.URI, err)
		}
		_, err = k.tx.ExecContext(k.ctx, `
			INSERT INTO artifacts (run_id, ordinal, uri, doc) VALUES (?, ?, ?, ?)
		`, k.runID, k.artifacts, a.Location.URI, doc)
		if err != nil {
			return fmt.Errorf("write artifact %s: %w", a.Location.URI, err)
		}
		k.artifacts++
	}
	return nil
}

// WriteResults appends result rows after any already written.
func (k *Sink) WriteResults(results []ir.Result) error {
	if err := k.ready(); err != nil {
		return err
	}
	for _, r := range results {
		doc, err := canonical(r)
		if err != nil {
			return fmt.Errorf("write result %d: %w", k.results, err)
		}
		_, err = k.tx.ExecContext(k.ctx, `
			INSERT INTO results (run_id, ordinal, rule_id, level, kind, doc)
			VALUES (?, ?, ?, ?, ?, ?)
		`, k.runID, k.results, r.RuleID, r.Level.String(), r.Kind.String(), doc)
		if err != nil {
			return fmt.Errorf("write result %d: %w", k.results, err)
		}
		k.results++
	}
	return nil
}

// WriteNotifications appends notification rows. It is the last section,
// so a successful call marks the run complete.
func (k *Sink) WriteNotifications(notifications []ir.Notification) error {
	if err := k.ready(); err != nil {
		return err
	}
	for _, n := range notifications {
		doc, err := canonical(n)
		if err != nil {
			return fmt.Errorf("write notification %d: %w", k.notifications, err)
		}
		_, err = k.tx.ExecContext(k.ctx, `
			INSERT INTO notifications (run_id, ordinal, descriptor_id, level, doc)
			VALUES (?, ?, ?, ?, ?)
		`, k.runID, k.notifications, n.DescriptorID, n.Level.String(), doc)
		if err != nil {
			return fmt.Errorf("write notification %d: %w", k.notifications, err)
		}
		k.notifications++
	}
	k.complete = true
	return nil
}

// Close commits a complete run and rolls back anything else. A second
// Close is a no-op.
func (k *Sink) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	if k.tx == nil {
		return nil
	}
	if !k.complete {
		if err := k.tx.Rollback(); err != nil {
			return fmt.Errorf("rollback run %s: %w", k.runID, err)
		}
		return nil
	}
	if err := k.tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", k.runID, err)
	}
	return nil
}

func (k *Sink) ready() error {
	if k.closed {
		return errSinkClosed
	}
	if k.tx == nil {
		return errors.New("store sink not initialized")
	}
	return nil
}

func canonical(v any) (string, error) {
	data, err := ir.Canonicalize(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
