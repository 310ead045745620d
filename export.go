package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportFormat is an output file type for a forecast
type ExportFormat int

const (
	ExportCSV ExportFormat = iota
	ExportXLSX
	ExportJSON
	ExportPDF
	ExportHTML
)

func (f ExportFormat) String() string {
	switch f {
	case ExportCSV:
		return "csv"
	case ExportXLSX:
		return "xlsx"
	case ExportJSON:
		return "json"
	case ExportPDF:
		return "pdf"
	case ExportHTML:
		return "html"
	default:
		return "unknown"
	}
}

// ContentType is the MIME type served for the format
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportCSV:
		return "text/csv"
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportJSON:
		return "application/json"
	case ExportPDF:
		return "application/pdf"
	case ExportHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// ParseExportFormat accepts csv, xlsx, json, pdf or html
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return ExportCSV, nil
	case "xlsx", "excel":
		return ExportXLSX, nil
	case "json":
		return ExportJSON, nil
	case "pdf":
		return ExportPDF, nil
	case "html":
		return ExportHTML, nil
	default:
		return 0, invalidParameter("format", "%q must be one of csv, xlsx, json, pdf, html", s)
	}
}

// ResultTotals is the aggregate view of a result
type ResultTotals struct {
	Periods            int     `json:"periods"`
	InitialInvestment  float64 `json:"initial_investment"`
	TotalContributions float64 `json:"total_contributions"`
	GrossInterest      float64 `json:"gross_interest_earned"`
	NetInterest        float64 `json:"net_interest_earned"`
	TaxPaid            float64 `json:"tax_paid"`
	FutureValue        float64 `json:"future_value"`
	Inflation          float64 `json:"inflation"`
	RealFutureValue    float64 `json:"real_future_value"`
}

// Totals gathers the aggregates, deflating the future value by inflation
func (r *ScenarioResult) Totals(inflation float64) (ResultTotals, error) {
	deflated, err := r.FutureValue(inflation)
	if err != nil {
		return ResultTotals{}, err
	}
	return ResultTotals{
		Periods:            len(r.records),
		InitialInvestment:  r.scenario.Config.InitValue,
		TotalContributions: r.TotalContributions(),
		GrossInterest:      r.TotalGrossInterestEarned(),
		NetInterest:        r.TotalNetInterestEarned(),
		TaxPaid:            r.TotalTaxPaid(),
		FutureValue:        r.FinalBalance(),
		Inflation:          inflation,
		RealFutureValue:    deflated,
	}, nil
}

// ExportDocument is the JSON form of a forecast
type ExportDocument struct {
	Scenario ScenarioConfig `json:"scenario"`
	Totals   ResultTotals   `json:"totals"`
	Columns  []string       `json:"columns"`
	Rows     [][]any        `json:"rows"`
}

// NewExportDocument builds the JSON document with unrounded values
func NewExportDocument(r *ScenarioResult, inflation float64) (*ExportDocument, error) {
	totals, err := r.Totals(inflation)
	if err != nil {
		return nil, err
	}
	b := r.Breakdown()
	rows := make([][]any, 0, b.Len())
	for i := range b.Records {
		rows = append(rows, b.Row(i))
	}
	return &ExportDocument{
		Scenario: r.scenario.Config,
		Totals:   totals,
		Columns:  b.Columns(),
		Rows:     rows,
	}, nil
}

// WriteCSV writes the breakdown with a header row, amounts rounded to cents
func WriteCSV(w io.Writer, r *ScenarioResult) error {
	b := r.Breakdown()
	cw := csv.NewWriter(w)
	if err := cw.Write(b.Columns()); err != nil {
		return err
	}
	if err := cw.WriteAll(b.StringRows()); err != nil {
		return err
	}
	return cw.Error()
}

// WriteJSON writes the export document
func WriteJSON(w io.Writer, r *ScenarioResult, inflation float64) error {
	doc, err := NewExportDocument(r, inflation)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

const (
	breakdownSheet = "Breakdown"
	summarySheet   = "Summary"
)

// WriteXLSX writes a workbook with the breakdown and a summary sheet.
// Cells keep full precision; only the number format rounds for display.
func WriteXLSX(w io.Writer, r *ScenarioResult, inflation float64) error {
	totals, err := r.Totals(inflation)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", breakdownSheet); err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	b := r.Breakdown()
	columns := b.Columns()
	if err := setRow(f, breakdownSheet, 1, columns); err != nil {
		return err
	}
	for i := range b.Records {
		if err := setRow(f, breakdownSheet, i+2, b.Row(i)); err != nil {
			return err
		}
	}
	firstMoney := 3
	if b.Dated {
		firstMoney = 4
	}
	startCol, err := excelize.ColumnNumberToName(firstMoney)
	if err != nil {
		return err
	}
	endCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetColStyle(breakdownSheet, startCol+":"+endCol, money); err != nil {
		return err
	}
	if err := f.SetColWidth(breakdownSheet, "A", endCol, 18); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	summary := [][]any{
		{"Initial Investment", totals.InitialInvestment},
		{"Total Contributions", totals.TotalContributions},
		{"Gross Interest Earned", totals.GrossInterest},
		{"Net Interest Earned", totals.NetInterest},
		{"Tax Paid", totals.TaxPaid},
		{"Future Value", totals.FutureValue},
	}
	if inflation != 0 {
		summary = append(summary, []any{fmt.Sprintf("Future Value (%s inflation)", FormatPercent(inflation)), totals.RealFutureValue})
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetColStyle(summarySheet, "B", money); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 32); err != nil {
		return err
	}

	return f.Write(w)
}

func setRow[T any](f *excelize.File, sheet string, row int, values []T) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// Export writes r in the given format
func Export(w io.Writer, r *ScenarioResult, format ExportFormat, inflation float64) error {
	switch format {
	case ExportCSV:
		return WriteCSV(w, r)
	case ExportXLSX:
		return WriteXLSX(w, r, inflation)
	case ExportJSON:
		return WriteJSON(w, r, inflation)
	case ExportPDF:
		data, err := GenerateForecastPDFReport(r, inflation)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case ExportHTML:
		return WriteHTMLReport(w, r, inflation)
	default:
		return fmt.Errorf("unsupported export format %v", format)
	}
}
