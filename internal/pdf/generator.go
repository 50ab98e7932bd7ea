package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/fleetwatch/internal/model"
)

// rows per table; the workbook export carries the full lists
const maxTableRows = 40

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(report model.VehicleReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Vehicle activity report", "", 1, "C", false, 0, "")

	v := report.Vehicle
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s, IMEI %s", safeValue(v.RegistrationNo), v.IMEI)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%s to %s", formatDate(report.PeriodStart), formatDate(report.PeriodEnd)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	g.section(pdf, "Summary")
	summary := [][2]string{
		{"Trips", fmt.Sprintf("%d", len(report.Trips))},
		{"Distance", fmt.Sprintf("%.2f km", report.TotalDistanceKm())},
		{"Stops", fmt.Sprintf("%d", report.StopStats.TotalStops)},
		{"Stopped time", formatDuration(report.StopStats.TotalDuration)},
		{"Average stop", formatDuration(report.StopStats.AvgDuration)},
		{"Longest stop", formatDuration(report.StopStats.MaxDuration)},
		{"Suspicious fuel events", fmt.Sprintf("%d of %d", report.SuspiciousFuelEvents(), len(report.FuelLogs))},
		{"Alerts", fmt.Sprintf("%d", len(report.Alerts))},
	}
	if s := report.Score; s != nil {
		summary = append(summary, [2]string{"Driver score", fmt.Sprintf("%d (%s, %s from %s)", s.Score, s.Rating, s.Period, formatDate(s.PeriodStart))})
	}
	pdf.SetFont(g.fontName, "", 10)
	for _, row := range summary {
		pdf.CellFormat(60, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	if len(report.Trips) > 0 {
		g.section(pdf, "Trips")
		widths := []float64{60, 60, 60}
		g.drawTableRow(pdf, []string{"Start", "End", "Distance, km"}, widths, true)
		for _, t := range limitRows(report.Trips) {
			g.drawTableRow(pdf, []string{formatDateTime(t.StartTime), formatTimePtr(t.EndTime), formatFloatPtr(t.DistanceKm)}, widths, false)
		}
		pdf.Ln(2)
	}

	if len(report.FuelLogs) > 0 {
		g.section(pdf, "Fuel")
		widths := []float64{40, 25, 25, 25, 25, 40}
		g.drawTableRow(pdf, []string{"Time", "Previous", "Current", "Delta", "Km", "Suspicion"}, widths, true)
		for _, l := range limitRows(report.FuelLogs) {
			g.drawTableRow(pdf, []string{
				formatDateTime(l.CreatedAt),
				fmt.Sprintf("%.2f", l.PreviousFuel),
				fmt.Sprintf("%.2f", l.CurrentFuel),
				fmt.Sprintf("%.2f", l.Delta),
				fmt.Sprintf("%.2f", l.DistanceKm),
				string(l.Suspicion),
			}, widths, false)
		}
		pdf.Ln(2)
	}

	if len(report.Alerts) > 0 {
		g.section(pdf, "Alerts")
		pdf.SetFont(g.fontName, "", 9)
		for _, a := range limitRows(report.Alerts) {
			if a.Severity == model.SeverityCritical {
				pdf.SetTextColor(200, 0, 0)
			}
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s  [%s] %s", formatDateTime(a.CreatedAt), a.Severity, a.Message)), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func (g *Generator) drawTableRow(pdf *gofpdf.Fpdf, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(g.fontName, style, 9)
	for i, col := range cols {
		align := "L"
		if i > 0 && !header {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func limitRows[T any](rows []T) []T {
	if len(rows) > maxTableRows {
		return rows[:maxTableRows]
	}
	return rows
}

func safeValue(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return "-"
	}
	return *value
}

func formatDuration(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}

func formatFloatPtr(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006 15:04")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatDateTime(*t)
}
