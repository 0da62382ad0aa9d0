package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
)

// Sheet names of the spreadsheet report.
const (
	ResultsSheet = "Results"
	SummarySheet = "Summary"
)

const (
	patternSolid   = 1
	failedBgColor  = "FFC7CE"
	headerBgColor  = "DDEBF7"
	slowThreshold  = 300 * time.Millisecond
	slowBgColor    = "FFEB9C"
	defaultColWide = 14
)

var xlsxHeaders = []string{
	"#", "Name", "File", "Method", "URL", "Status",
	"Result", "Error Kind", "Error", "Notes", "Duration (ms)",
}

// XLSXFormatter writes a spreadsheet with one row per plan and a summary
// sheet.
type XLSXFormatter struct {
	reportObserver
	writer io.Writer
	result *runner.RunResult
}

type XLSXOption func(*XLSXFormatter)

func NewXLSXFormatter(opts ...XLSXOption) *XLSXFormatter {
	f := &XLSXFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	return f
}

func XLSXWithWriter(w io.Writer) XLSXOption {
	return func(f *XLSXFormatter) {
		f.writer = w
	}
}

func (f *XLSXFormatter) FormatResult(result *runner.RunResult) {
	f.result = result
}

// Flush builds the workbook and writes it.
func (f *XLSXFormatter) Flush(totalDuration time.Duration) error {
	if f.result == nil {
		return fmt.Errorf("no run result to write")
	}

	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("create results sheet: %w", err)
	}
	if err := f.writeResults(book); err != nil {
		return err
	}
	if _, err := book.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := f.writeSummary(book, totalDuration); err != nil {
		return err
	}

	if err := book.Write(f.writer); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (f *XLSXFormatter) writeResults(book *excelize.File) error {
	headerStyle, err := book.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: patternSolid, Color: []string{headerBgColor}},
	})
	if err != nil {
		return err
	}
	failedStyle, err := book.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: patternSolid, Color: []string{failedBgColor}},
	})
	if err != nil {
		return err
	}
	slowStyle, err := book.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: patternSolid, Color: []string{slowBgColor}},
	})
	if err != nil {
		return err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(xlsxHeaders))
	if err := book.SetColWidth(ResultsSheet, "A", lastCol, defaultColWide); err != nil {
		return err
	}
	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := book.SetCellValue(ResultsSheet, cell, h); err != nil {
			return err
		}
	}
	if err := book.SetCellStyle(ResultsSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, r := range f.result.Results {
		row := i + 2
		method, target, status := "", "", ""
		if r.Request != nil {
			method, target = r.Request.Method, r.Request.URL
		}
		if r.Response != nil {
			status = fmt.Sprintf("%d", r.Response.StatusCode)
		}
		kind, message := "", ""
		if r.Err != nil {
			kind, message = r.Err.Kind.String(), r.Err.Error()
		}

		cells := []any{
			i + 1,
			planName(r),
			planPath(r),
			method,
			target,
			status,
			r.State.String(),
			kind,
			message,
			strings.Join(r.Notes, "\n"),
			r.Duration.Milliseconds(),
		}
		for col, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := book.SetCellValue(ResultsSheet, cell, v); err != nil {
				return err
			}
		}

		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(xlsxHeaders), row)
		switch {
		case !r.Succeeded():
			err = book.SetCellStyle(ResultsSheet, first, last, failedStyle)
		case r.Duration > slowThreshold:
			err = book.SetCellStyle(ResultsSheet, first, last, slowStyle)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *XLSXFormatter) writeSummary(book *excelize.File, totalDuration time.Duration) error {
	res := f.result
	rows := [][]any{
		{"Run ID", res.ID.String()},
		{"Started", res.StartedAt.Format(time.RFC3339)},
		{"Total", res.Total()},
		{"Succeeded", res.Succeeded},
		{"Failed", res.Failed},
		{"Duration (ms)", totalDuration.Milliseconds()},
		{"Latency p50 (ms)", millis(res.Latency.P50)},
		{"Latency p95 (ms)", millis(res.Latency.P95)},
		{"Latency p99 (ms)", millis(res.Latency.P99)},
	}
	if err := book.SetColWidth(SummarySheet, "A", "B", 40); err != nil {
		return err
	}
	for i, row := range rows {
		if err := book.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	return nil
}
