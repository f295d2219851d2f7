// Package report defines the output sink contract and its in-memory,
// canonical JSON and terminal implementations.
package report

import (
	"errors"
	"fmt"

	"github.com/roach88/skim/internal/ir"
)

// Sink receives a finished report one section at a time, always in this
// order: Initialize, WriteTool, WriteInvocation, WriteArtifacts,
// WriteResults, WriteNotifications, Close. Every slice is already in
// canonical order.
type Sink interface {
	Initialize(runID, automationID string) error
	WriteTool(tool ir.Tool) error
	WriteInvocation(inv ir.Invocation) error
	WriteArtifacts(artifacts []ir.ArtifactRecord) error
	WriteResults(results []ir.Result) error
	WriteNotifications(notifications []ir.Notification) error
	Close() error
}

// Emit writes rep to s section by section and closes s. Close is called
// even when a write fails.
func Emit(s Sink, rep *ir.Report) error {
	err := emit(s, rep)
	if cerr := s.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close sink: %w", cerr))
	}
	return err
}

func emit(s Sink, rep *ir.Report) error {
	if err := s.Initialize(rep.RunID, rep.AutomationID); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := s.WriteTool(rep.Tool); err != nil {
		return fmt.Errorf("write tool: %w", err)
	}
	if err := s.WriteInvocation(rep.Invocation); err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	if err := s.WriteArtifacts(rep.Artifacts); err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}
	if err := s.WriteResults(rep.Results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if err := s.WriteNotifications(rep.Notifications); err != nil {
		return fmt.Errorf("write notifications: %w", err)
	}
	return nil
}

// Tee fans every call out to each sink in order. The first error stops the
// fan-out for that call; Close always reaches every sink.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) each(fn func(Sink) error) error {
	for _, s := range t {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) Initialize(runID, automationID string) error {
	return t.each(func(s Sink) error { return s.Initialize(runID, automationID) })
}

func (t tee) WriteTool(tool ir.Tool) error {
	return t.each(func(s Sink) error { return s.WriteTool(tool) })
}

func (t tee) WriteInvocation(inv ir.Invocation) error {
	return t.each(func(s Sink) error { return s.WriteInvocation(inv) })
}

func (t tee) WriteArtifacts(a []ir.ArtifactRecord) error {
	return t.each(func(s Sink) error { return s.WriteArtifacts(a) })
}

func (t tee) WriteResults(r []ir.Result) error {
	return t.each(func(s Sink) error { return s.WriteResults(r) })
}

func (t tee) WriteNotifications(n []ir.Notification) error {
	return t.each(func(s Sink) error { return s.WriteNotifications(n) })
}

func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
