// Package excel renders report rows into an xlsx workbook.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"example.com/reports/internal/domain"
)

// SheetName is the single worksheet the report is written to.
const SheetName = "Nutresa Report"

var headers = []string{
	"Código de Agente", "Nombre del Agente", "Período de Tiempo", "Variable",
	"Meta Asignada", "Meta Distribuida", "% Meta", "Incentivo Asignado",
	"Incentivo Distribuido", "% Variables Completadas",
}

const maxColumnWidth = 50

// Render produces the xlsx bytes for a set of report rows.
func Render(rows []domain.ReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build header style: %w", err)
	}

	widths := make([]int, len(headers))
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return nil, err
		}
		widths[col] = len(header)
	}

	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, row := range rows {
		values := []interface{}{
			row.AgentCode,
			row.AgentName,
			row.Period,
			row.Variable,
			row.AssignedGoal,
			row.DistributedGoal,
			fmt.Sprintf("%.2f%%", row.GoalPercent),
			row.AssignedIncentive,
			row.DistributedIncentive,
			fmt.Sprintf("%.2f%%", row.CompletionPercent),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(SheetName, cell, value); err != nil {
				return nil, err
			}
			if n := len(fmt.Sprint(value)); n > widths[col] {
				widths[col] = n
			}
		}
	}

	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		w := width + 2
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		if err := f.SetColWidth(SheetName, name, name, float64(w)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
