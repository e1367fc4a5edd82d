/*
PURPOSE:
  Renders benchmark records as a console table for `run` and `report`.

REQUIREMENTS:
  User-specified:
  - "Sane" CLI output. One row per benchmark run.

  Implementation-discovered:
  - Statistics are stored in seconds but read best as rounded durations ("1.5ms").
  - Aborted runs show their error in the status column, highlighted.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (run, report)
  - Consumes: internal/model.Record

ERROR HANDLING:
  - None; rendering cannot fail.

IMPLEMENTATION RULES:
  - Use lipgloss/table; no width limit so error text is never cut.

USAGE:
  fmt.Println(output.RenderTable(records))

RELATED FILES:
  - internal/output/csv.go (same columns, machine-readable)

MAINTENANCE:
  - Keep TableHeaders and TableRow in step.
*/

package output

import (
	"math"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/daryltucker/forest-bench/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = cellStyle.Foreground(lipgloss.Color("9"))
)

// TableHeaders are the console table columns.
var TableHeaders = []string{"name", "x", "n", "min", "median", "mean", "max", "iqr", "std dev", "status"}

// HumanSeconds renders a statistic in seconds as a rounded duration ("1.5ms").
func HumanSeconds(s float64) string {
	return time.Duration(math.Round(s * float64(time.Second))).String()
}

// TableRow is the console row for one record.
func TableRow(r model.Record) []string {
	s := r.Summary
	x := "-"
	if s.IndependentVariable != nil {
		x = strconv.FormatUint(*s.IndependentVariable, 10)
	}
	status := "ok"
	if r.Error != "" {
		status = r.Error
	}
	return []string{
		s.Name,
		x,
		strconv.FormatUint(s.N, 10),
		HumanSeconds(s.Min),
		HumanSeconds(s.Median),
		HumanSeconds(s.Mean),
		HumanSeconds(s.Max),
		HumanSeconds(s.IQR),
		HumanSeconds(s.StdDev),
		status,
	}
}

// RenderTable renders records as a bordered console table.
func RenderTable(records []model.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, TableRow(r))
	}

	statusCol := len(TableHeaders) - 1
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(TableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == statusCol && row >= 0 && row < len(records) && records[row].Error != "":
				return errorStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}
