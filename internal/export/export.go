// Package export renders tickets and escalations as XLSX workbooks.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/policy"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	pageSize   = 500
)

var (
	ticketColumns = []string{
		"ID", "Subject", "Category", "Priority", "Status", "Assigned Agent", "Escalated",
		"Ride ID", "Created At", "First Response At", "Resolved At",
	}
	escalationColumns = []string{
		"ID", "Ticket ID", "Escalated By", "Escalated To", "Reason", "Status", "Verified At", "Created At",
	}
)

// Exporter builds workbooks from the store.
type Exporter struct {
	tickets     repository.TicketRepository
	escalations repository.EscalationRepository
}

// NewExporter creates an exporter.
func NewExporter(tickets repository.TicketRepository, escalations repository.EscalationRepository) *Exporter {
	return &Exporter{tickets: tickets, escalations: escalations}
}

// ExportTickets checks the caller may export and renders every ticket.
func (e *Exporter) ExportTickets(ctx context.Context, session domain.Session) ([]byte, error) {
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionExport}); err != nil {
		return nil, err
	}
	return e.WriteTickets(ctx)
}

// ExportEscalations checks the caller may export and renders every escalation.
func (e *Exporter) ExportEscalations(ctx context.Context, session domain.Session) ([]byte, error) {
	if err := policy.Authorize(session, policy.Request{Action: policy.ActionExport}); err != nil {
		return nil, err
	}
	return e.WriteEscalations(ctx)
}

// WriteTickets renders every ticket, newest first.
func (e *Exporter) WriteTickets(ctx context.Context) ([]byte, error) {
	var rows [][]any
	for offset := 0; ; offset += pageSize {
		page, err := e.tickets.List(ctx, repository.TicketFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for i := range page {
			t := &page[i]
			rows = append(rows, []any{
				t.ID, t.Subject, string(t.Category), string(t.Priority), string(t.Status),
				deref(t.AssignedAgentID), t.IsEscalated(), deref(t.RideID),
				t.CreatedAt, t.FirstResponseAt, t.ResolvedAt,
			})
		}
		if len(page) < pageSize {
			break
		}
	}
	return writeSheet("Tickets", ticketColumns, rows)
}

// WriteEscalations renders every escalation, newest first. Codes are never
// written.
func (e *Exporter) WriteEscalations(ctx context.Context) ([]byte, error) {
	var rows [][]any
	for offset := 0; ; offset += pageSize {
		page, err := e.escalations.List(ctx, repository.EscalationFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, esc := range page {
			rows = append(rows, []any{
				esc.ID, esc.TicketID, esc.EscalatedBy, deref(esc.EscalatedTo), esc.Reason,
				string(esc.Status), esc.OTPVerifiedAt, esc.CreatedAt,
			})
		}
		if len(page) < pageSize {
			break
		}
	}
	return writeSheet("Escalations", escalationColumns, rows)
}

func writeSheet(sheetName string, columns []string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for rowIdx, row := range rows {
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, cellValue(val)); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, 15); err != nil {
			return nil, err
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func cellValue(val any) any {
	switch v := val.(type) {
	case time.Time:
		return v.UTC().Format(timeLayout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(timeLayout)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	}
	return val
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
