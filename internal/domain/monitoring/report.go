package monitoring

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ehr/anc/internal/domain/triage"
)

const (
	summarySheet  = "Summary"
	patientsSheet = "Patients"
)

var reportHeader = []string{
	"Patient", "Patient ID", "Sub-district", "Pregnancy Status", "Category",
	"Score", "Last Blood Pressure", "Last Visit", "Next Visit", "Risk Flags",
}

var reportWidths = []float64{28, 38, 20, 18, 12, 8, 18, 14, 14, 40}

// PeriodLabel renders the filter's period for report titles.
func PeriodLabel(f Filter) string {
	year := "All years"
	if f.Year != 0 {
		year = strconv.Itoa(f.Year)
	}
	if f.Quarter == 0 {
		return year
	}
	return fmt.Sprintf("%s Q%d", year, f.Quarter)
}

// ReportFilename names the exported workbook after its period.
func ReportFilename(f Filter) string {
	year := "all"
	if f.Year != 0 {
		year = strconv.Itoa(f.Year)
	}
	quarter := "all"
	if f.Quarter != 0 {
		quarter = strconv.Itoa(f.Quarter)
	}
	return fmt.Sprintf("anc_monitoring_%s_q%s.xlsx", year, quarter)
}

// ReportXLSX renders the monitoring report workbook: a summary sheet with
// the category totals and a patient sheet with one line per row.
func ReportXLSX(clinic string, f Filter, rows []Row) ([]byte, error) {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := x.NewSheet(patientsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	bold, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	header, err := x.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeSummary(x, clinic, f, rows, bold); err != nil {
		return nil, err
	}
	if err := writePatients(x, rows, header); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := x.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(x *excelize.File, clinic string, f Filter, rows []Row, bold int) error {
	area := f.SubDistrict
	if area == "" {
		area = "All sub-districts"
	}
	stats := BuildStats(rows)
	summary := BuildSummary(rows)

	lines := [][]any{
		{"ANC risk monitoring report"},
		{"Clinic", clinic},
		{"Period", PeriodLabel(f)},
		{"Area", area},
		{},
		{"Category", "Patients"},
	}
	for _, cat := range triage.Categories {
		lines = append(lines, []any{string(cat), stats.ByCategory[cat]})
	}
	lines = append(lines,
		[]any{"Total in period", stats.Total},
		[]any{"Delivered", summary.Delivered},
		[]any{"Missed visits", summary.Missed},
	)

	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := x.SetSheetRow(summarySheet, cell, &line); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := x.SetCellStyle(summarySheet, "A1", "A1", bold); err != nil {
		return fmt.Errorf("style title: %w", err)
	}
	return x.SetColWidth(summarySheet, "A", "A", 20)
}

func writePatients(x *excelize.File, rows []Row, header int) error {
	if err := x.SetSheetRow(patientsSheet, "A1", &reportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(reportHeader), 1)
	if err != nil {
		return err
	}
	if err := x.SetCellStyle(patientsSheet, "A1", last, header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for i, w := range reportWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := x.SetColWidth(patientsSheet, col, col, w); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		line := reportLine(r)
		if err := x.SetSheetRow(patientsSheet, cell, &line); err != nil {
			return fmt.Errorf("write patient row %d: %w", i+2, err)
		}
	}

	return x.SetPanes(patientsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func reportLine(r Row) []any {
	bp, lastVisit, nextVisit := "-", "-", "-"
	if v := r.LatestVisit; v != nil {
		if v.BloodPressure != "" {
			bp = v.BloodPressure
		}
		lastVisit = v.VisitDate.Format("2006-01-02")
		if v.NextVisitDate != nil {
			nextVisit = v.NextVisitDate.Format("2006-01-02")
		}
	}
	flags := make([]string, len(r.RiskFlags))
	for i, f := range r.RiskFlags {
		flags[i] = string(f)
	}
	return []any{
		r.Patient.Name,
		r.Patient.ID.String(),
		r.Patient.SubDistrict,
		string(r.Patient.Status),
		string(r.Triage.Category),
		r.Triage.Score,
		bp,
		lastVisit,
		nextVisit,
		strings.Join(flags, "; "),
	}
}
