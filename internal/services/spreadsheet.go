package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/asakaida/gakudan/internal/entities"
)

const performanceSheet = "Performances"

// ParseInstrumentWorkbook reads the first worksheet of an uploaded .xlsx
// file, taking the first cell of each row as an instrument name. Blank
// rows are skipped; duplicate handling is the import service's concern.
func ParseInstrumentWorkbook(r io.Reader) ([]*entities.Instrument, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no worksheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet: %w", err)
	}

	var instruments []*entities.Instrument
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		instruments = append(instruments, &entities.Instrument{Name: name})
	}

	return instruments, nil
}

// BuildPerformanceWorkbook renders the per-musician performance summary as
// a styled .xlsx report: merged title row, creation stamp, bold headings
// on a light blue fill, currency formats on the fee columns, and a totals
// row under the data.
func BuildPerformanceWorkbook(summaries []*entities.PerformanceSummary, createdAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(performanceSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create worksheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default worksheet: %w", err)
	}

	// Title across the full width.
	if err := f.MergeCell(performanceSheet, "A1", "E1"); err != nil {
		return nil, fmt.Errorf("failed to merge title cells: %w", err)
	}
	f.SetCellValue(performanceSheet, "A1", "Performance Report")
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 18},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create title style: %w", err)
	}
	f.SetCellStyle(performanceSheet, "A1", "E1", titleStyle)

	stampStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stamp style: %w", err)
	}
	f.SetCellValue(performanceSheet, "E2",
		fmt.Sprintf("Created: %s", createdAt.Format("3:04 PM on 2006-01-02")))
	f.SetCellStyle(performanceSheet, "E2", "E2", stampStyle)

	// Headings on row 3.
	headings := []string{"Musician", "Performances", "Average Fee Paid", "Highest Fee Paid", "Lowest Fee Paid"}
	for col, h := range headings {
		cell, _ := excelize.CoordinatesToCellName(col+1, 3)
		f.SetCellValue(performanceSheet, cell, h)
	}
	headingStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"ADD8E6"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create heading style: %w", err)
	}
	f.SetCellStyle(performanceSheet, "A3", "E3", headingStyle)

	currencyFmt := "#,##0.00"
	currencyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt})
	if err != nil {
		return nil, fmt.Errorf("failed to create currency style: %w", err)
	}

	// Data rows start at 4.
	for i, s := range summaries {
		row := i + 4
		f.SetCellValue(performanceSheet, fmt.Sprintf("A%d", row), s.FormalName)
		f.SetCellValue(performanceSheet, fmt.Sprintf("B%d", row), s.TotalPerformances)
		f.SetCellValue(performanceSheet, fmt.Sprintf("C%d", row), s.AverageFeePaid)
		f.SetCellValue(performanceSheet, fmt.Sprintf("D%d", row), s.HighestFeePaid)
		f.SetCellValue(performanceSheet, fmt.Sprintf("E%d", row), s.LowestFeePaid)
	}
	if len(summaries) > 0 {
		last := len(summaries) + 3
		f.SetCellStyle(performanceSheet, "C4", fmt.Sprintf("E%d", last), currencyStyle)

		boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("failed to create bold style: %w", err)
		}
		f.SetCellStyle(performanceSheet, "A4", fmt.Sprintf("A%d", last), boldStyle)

		// Totals row under the data.
		totalRow := last + 1
		f.SetCellValue(performanceSheet, fmt.Sprintf("A%d", totalRow), "Total")
		f.SetCellFormula(performanceSheet, fmt.Sprintf("B%d", totalRow),
			fmt.Sprintf("SUM(B4:B%d)", last))
		f.SetCellStyle(performanceSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("B%d", totalRow), boldStyle)
	}

	f.SetColWidth(performanceSheet, "A", "A", 28)
	f.SetColWidth(performanceSheet, "B", "E", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
