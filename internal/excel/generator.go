package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/fleetwatch/internal/model"
)

const (
	summarySheet = "Summary"
	tripsSheet   = "Trips"
	stopsSheet   = "Stops"
	fuelSheet    = "Fuel"
	alertsSheet  = "Alerts"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders a workbook with a summary sheet and one sheet per activity kind.
func (g *Generator) Generate(report model.VehicleReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	file.SetSheetName("Sheet1", summarySheet)
	g.writeSummary(file, report)

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
		widths  []float64
	}{
		{tripsSheet, []string{"Start", "End", "Distance, km"}, tripRows(report.Trips), []float64{20, 20, 14}},
		{stopsSheet, []string{"Start", "End", "Duration, min", "Latitude", "Longitude"}, stopRows(report.Stops), []float64{20, 20, 14, 12, 12}},
		{fuelSheet, []string{"Time", "Previous, L", "Current, L", "Delta, L", "Distance, km", "Suspicion", "Notes"}, fuelRows(report.FuelLogs), []float64{20, 12, 12, 12, 14, 12, 28}},
		{alertsSheet, []string{"Time", "Severity", "Kind", "Message"}, alertRows(report.Alerts), []float64{20, 10, 20, 60}},
	}
	for _, sheet := range sheets {
		if _, err := file.NewSheet(sheet.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet.name, err)
		}
		if err := writeTable(file, sheet.name, sheet.headers, sheet.rows); err != nil {
			return nil, err
		}
		for i, width := range sheet.widths {
			col, _ := excelize.ColumnNumberToName(i + 1)
			_ = file.SetColWidth(sheet.name, col, col, width)
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, report model.VehicleReport) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	v := report.Vehicle
	rows := [][2]any{
		{"Vehicle", formatString(v.RegistrationNo)},
		{"IMEI", v.IMEI},
		{"Period start", formatDate(report.PeriodStart)},
		{"Period end", formatDate(report.PeriodEnd)},
		{"Trips", len(report.Trips)},
		{"Distance, km", fmt.Sprintf("%.2f", report.TotalDistanceKm())},
		{"Stops", report.StopStats.TotalStops},
		{"Stopped time, min", minutes(report.StopStats.TotalDuration)},
		{"Longest stop, min", minutes(report.StopStats.MaxDuration)},
		{"Fuel logs", len(report.FuelLogs)},
		{"Suspicious fuel events", report.SuspiciousFuelEvents()},
		{"Alerts", len(report.Alerts)},
	}
	if s := report.Score; s != nil {
		rows = append(rows,
			[2]any{"Driver score", s.Score},
			[2]any{"Rating", string(s.Rating)},
			[2]any{"Score period", fmt.Sprintf("%s %s", s.Period, formatDate(s.PeriodStart))},
		)
	}

	for i, row := range rows {
		set(fmt.Sprintf("A%d", i+1), row[0])
		set(fmt.Sprintf("B%d", i+1), row[1])
	}
	_ = file.SetColWidth(summarySheet, "A", "A", 28)
	_ = file.SetColWidth(summarySheet, "B", "B", 24)
}

func writeTable(file *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func tripRows(trips []model.Trip) [][]any {
	rows := make([][]any, 0, len(trips))
	for _, t := range trips {
		rows = append(rows, []any{formatDateTime(t.StartTime), formatTimePtr(t.EndTime), formatFloat(t.DistanceKm)})
	}
	return rows
}

func stopRows(stops []model.Stop) [][]any {
	rows := make([][]any, 0, len(stops))
	for _, s := range stops {
		duration := ""
		if s.Duration != nil {
			duration = minutes(*s.Duration)
		}
		rows = append(rows, []any{formatDateTime(s.StartTime), formatTimePtr(s.EndTime), duration, s.Latitude, s.Longitude})
	}
	return rows
}

func fuelRows(logs []model.FuelLog) [][]any {
	rows := make([][]any, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []any{
			formatDateTime(l.CreatedAt),
			fmt.Sprintf("%.2f", l.PreviousFuel),
			fmt.Sprintf("%.2f", l.CurrentFuel),
			fmt.Sprintf("%.2f", l.Delta),
			fmt.Sprintf("%.2f", l.DistanceKm),
			string(l.Suspicion),
			l.Notes,
		})
	}
	return rows
}

func alertRows(alerts []model.GeofenceAlert) [][]any {
	rows := make([][]any, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []any{formatDateTime(a.CreatedAt), string(a.Severity), string(a.Kind), a.Message})
	}
	return rows
}

func minutes(seconds int64) string {
	return fmt.Sprintf("%.1f", float64(seconds)/60)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDateTime(*t)
}

func formatString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.3f", *value)
}
