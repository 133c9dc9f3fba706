package presenter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
)

// Sheet names of the history workbook
const (
	SheetEngagements = "Engagements"
	SheetStages      = "Stages"
)

var (
	engagementHeaders = []string{"ID", "Order", "Client", "Address", "Stage", "Status", "Started", "Ended", "Records", "Warning"}
	stageHeaders      = []string{"Engagement", "Order", "Stage", "Description", "Photo", "Created"}
)

// ExportHistoryXLSX writes the history as a workbook with one sheet of
// engagements and one of stage records
func ExportHistoryXLSX(w io.Writer, entries []dto.HistoryEntryView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetEngagements); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetStages); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	engagementRows := make([][]interface{}, 0, len(entries))
	var stageRows [][]interface{}
	for _, e := range entries {
		engagementRows = append(engagementRows, []interface{}{
			e.ID, e.OrderID, e.Client, e.Address, e.Stage, e.Status, e.StartedAt, e.EndedAt, len(e.Records), e.Warning,
		})
		for _, r := range e.Records {
			photo := "no"
			if r.HasPhoto {
				photo = "yes"
			}
			stageRows = append(stageRows, []interface{}{e.ID, e.OrderID, r.Stage, r.Description, photo, r.CreatedAt})
		}
	}

	if err := writeSheet(f, SheetEngagements, engagementHeaders, engagementRows, headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, SheetStages, stageHeaders, stageRows, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}
