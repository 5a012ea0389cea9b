package summary

import (
	"encoding/csv"
	"io"
	"strconv"
)

// SummaryFilename is the download name of the meeting summary CSV.
func SummaryFilename(f Filter) string {
	if f == FilterWeek {
		return "weekly_calendar_summary.csv"
	}
	return "calendar_" + string(f) + ".csv"
}

// ProjectHoursFilename is the download name of the project hours CSV.
func ProjectHoursFilename(f Filter) string {
	if f == FilterWeek {
		return "project_hours_summary.csv"
	}
	return "project_hours_" + string(f) + ".csv"
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return cw
}

// WriteSummaryCSV writes Meeting,Hours,Project rows.
func WriteSummaryCSV(w io.Writer, rows []Row) error {
	cw := newWriter(w)
	if err := cw.Write([]string{"Meeting", "Hours", "Project"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Title, formatHours(r.Hours), r.Project}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteProjectHoursCSV writes per-project totals. The hours column is
// labelled for the week or for a single day depending on f.
func WriteProjectHoursCSV(w io.Writer, rows []ProjectRow, f Filter) error {
	hoursHeader := "Hours"
	if f == FilterWeek {
		hoursHeader = "Total Hours (this week)"
	}
	cw := newWriter(w)
	if err := cw.Write([]string{"Project", hoursHeader}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Project, formatHours(r.Hours)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
