// Package converter imports reports produced by other tools.
package converter

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/skim/internal/compare"
	"github.com/roach88/skim/internal/engine"
	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/report"
)

const (
	// FortifyToolName is the Tool.Name of converted Fortify reports.
	FortifyToolName = "Fortify"

	fortifyExecutable = "sourceanalyzer"
	fortifyAuditEntry = "audit.fvdl"
	fortifyErrorCode  = "FPR"
)

// ErrNoAudit is returned for an FPR archive without exactly one audit.fvdl.
var ErrNoAudit = errors.New("fpr: archive must contain exactly one " + fortifyAuditEntry)

// FortifyFPR converts Fortify FPR archives. Only run metadata is imported:
// the build ID, the scan command line, the scanning machine and the
// scanner's error list. The zero value uses UUIDv7 run GUIDs.
type FortifyFPR struct {
	IDs engine.RunIDGenerator
}

// Convert reads the FPR archive in r and writes it to sink as a report
// with no results. sink is closed on return.
func (c FortifyFPR) Convert(r io.ReaderAt, size int64, sink report.Sink) error {
	rep, err := c.read(r, size)
	if err != nil {
		sink.Close()
		return err
	}
	return report.Emit(sink, rep)
}

func (c FortifyFPR) read(r io.ReaderAt, size int64) (*ir.Report, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("fpr: open archive: %w", err)
	}

	var entry *zip.File
	for _, f := range zr.File {
		if f.Name != fortifyAuditEntry {
			continue
		}
		if entry != nil {
			return nil, ErrNoAudit
		}
		entry = f
	}
	if entry == nil {
		return nil, ErrNoAudit
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("fpr: open %s: %w", fortifyAuditEntry, err)
	}
	defer rc.Close()

	audit, err := parseAudit(rc)
	if err != nil {
		return nil, fmt.Errorf("fpr: %s: %w", fortifyAuditEntry, err)
	}

	ids := c.IDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	rep := &ir.Report{
		SchemaVersion: ir.SchemaVersion,
		RunID:         ids.Generate(),
		AutomationID:  audit.buildID,
		Tool:          ir.Tool{Name: FortifyToolName},
		Invocation:    audit.invocation,
		Results:       []ir.Result{},
		Notifications: audit.notifications,
	}
	compare.SortNotifications(rep.Notifications)
	return rep, nil
}

type fvdlBuild struct {
	BuildID string `xml:"BuildID"`
}

type fvdlCommandLine struct {
	Arguments []string `xml:"Argument"`
}

type fvdlErrors struct {
	Errors []struct {
		Code    string `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"Error"`
}

type fvdlMachineInfo struct {
	Hostname string `xml:"Hostname"`
	Username string `xml:"Username"`
}

type auditData struct {
	buildID       string
	invocation    ir.Invocation
	notifications []ir.Notification
}

// parseAudit streams the FVDL document and decodes only the sections it
// needs. Element names match regardless of namespace.
func parseAudit(r io.Reader) (*auditData, error) {
	var out auditData
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return &out, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Build":
			var b fvdlBuild
			if err := dec.DecodeElement(&b, &start); err != nil {
				return nil, fmt.Errorf("decode <Build>: %w", err)
			}
			if b.BuildID != "" {
				out.buildID = b.BuildID
			}
		case "CommandLine":
			var cl fvdlCommandLine
			if err := dec.DecodeElement(&cl, &start); err != nil {
				return nil, fmt.Errorf("decode <CommandLine>: %w", err)
			}
			line := fortifyExecutable
			for _, arg := range cl.Arguments {
				line += " " + arg
			}
			out.invocation.CommandLine = line
		case "Errors":
			var errs fvdlErrors
			if err := dec.DecodeElement(&errs, &start); err != nil {
				return nil, fmt.Errorf("decode <Errors>: %w", err)
			}
			for _, e := range errs.Errors {
				out.notifications = append(out.notifications, ir.Notification{
					DescriptorID: fortifyErrorCode + e.Code,
					Level:        ir.LevelError,
					Message:      ir.NewMessage(e.Message),
				})
			}
		case "MachineInfo":
			var mi fvdlMachineInfo
			if err := dec.DecodeElement(&mi, &start); err != nil {
				return nil, fmt.Errorf("decode <MachineInfo>: %w", err)
			}
			if mi.Hostname != "" {
				out.invocation.Machine = mi.Hostname
			}
			if mi.Username != "" {
				out.invocation.Account = mi.Username
			}
		}
	}
}
