package pipeline

import (
	"strconv"
	"time"
)

// Placeholder is rendered in place of any figure that cannot be computed.
const Placeholder = "–"

// Schedule holds the forecast/actual date pairs of a node, as DD/MM/YYYY
// strings. Empty means absent.
type Schedule struct {
	StartForecast      string `json:"startForecastDate,omitempty" yaml:"start_forecast"`
	StartActual        string `json:"startActualDate,omitempty" yaml:"start_actual"`
	CompletionForecast string `json:"forecastDate,omitempty" yaml:"forecast"`
	CompletionActual   string `json:"actualDate,omitempty" yaml:"actual"`
}

// DayFigure is the "status" cell of a milestone row.
type DayFigure struct {
	Days   int
	OnTime bool
	Known  bool
}

// DeriveMilestone computes the status days of one milestone. With an actual
// date the figure is fixed (actual vs forecast); without one it counts the
// days left until the forecast, negative when overdue.
func DeriveMilestone(forecast, actual string, today time.Time) DayFigure {
	var (
		days int
		ok   bool
	)
	if actual != "" {
		days, ok = DaysBetween(actual, forecast)
	} else {
		days, ok = DaysUntil(forecast, today)
	}
	if !ok {
		return DayFigure{}
	}
	return DayFigure{Days: days, OnTime: days >= 0, Known: true}
}

// DurationFigure is the "Dias" row: planned duration against real duration.
type DurationFigure struct {
	Forecast int
	// Real is nil when the node has not started.
	Real   *int
	Diff   int
	OnTime bool
	Known  bool
}

// DeriveDuration computes the "Dias" row. The real duration is the span
// between both actual dates, or start-to-today while only the start is
// known. A node that has not started counts as zero real days.
func DeriveDuration(s Schedule, today time.Time) DurationFigure {
	forecast, ok := DaysBetween(s.StartForecast, s.CompletionForecast)
	if !ok {
		return DurationFigure{}
	}

	var realDays *int
	if s.StartActual != "" && s.CompletionActual != "" {
		if d, ok := DaysBetween(s.StartActual, s.CompletionActual); ok {
			realDays = &d
		}
	} else if s.StartActual != "" {
		if d, ok := DaysFromToday(s.StartActual, today); ok {
			realDays = &d
		}
	}

	elapsed := 0
	if realDays != nil {
		elapsed = *realDays
	}
	diff := forecast - elapsed
	return DurationFigure{
		Forecast: forecast,
		Real:     realDays,
		Diff:     diff,
		OnTime:   diff >= 0,
		Known:    true,
	}
}

// StatusColumnsInfo is the "Previsão / Real / Status" summary of a node at
// its start and completion milestones.
type StatusColumnsInfo struct {
	ForecastDate      string  `json:"forecastDate"`
	ActualDate        *string `json:"actualDate,omitempty"`
	DaysStatus        int     `json:"daysStatus"`
	IsOnTime          bool    `json:"isOnTime"`
	StartForecastDate *string `json:"startForecastDate,omitempty"`
	StartActualDate   *string `json:"startActualDate,omitempty"`
	StartDaysStatus   *int    `json:"startDaysStatus,omitempty"`
	StartIsOnTime     *bool   `json:"startIsOnTime,omitempty"`
}

// DeriveColumns returns nil when the completion forecast is missing or
// unparsable; the start fields are left nil when their figure is unknown.
func DeriveColumns(s Schedule, today time.Time) *StatusColumnsInfo {
	completion := DeriveMilestone(s.CompletionForecast, s.CompletionActual, today)
	if !completion.Known {
		return nil
	}

	info := &StatusColumnsInfo{
		ForecastDate: s.CompletionForecast,
		ActualDate:   optional(s.CompletionActual),
		DaysStatus:   completion.Days,
		IsOnTime:     completion.OnTime,
	}

	info.StartForecastDate = optional(s.StartForecast)
	info.StartActualDate = optional(s.StartActual)
	if start := DeriveMilestone(s.StartForecast, s.StartActual, today); start.Known {
		days, onTime := start.Days, start.OnTime
		info.StartDaysStatus = &days
		info.StartIsOnTime = &onTime
	}
	return info
}

// GridRow is one line of the three-column grid.
type GridRow struct {
	Label    string `json:"label"`
	Forecast string `json:"forecast"`
	Actual   string `json:"actual"`
	Status   string `json:"status"`
	Days     *int   `json:"days,omitempty"`
	OnTime   *bool  `json:"onTime,omitempty"`
}

// Grid rows, in display order.
const (
	RowStart      = "Início"
	RowCompletion = "Conclusão"
	RowDuration   = "Dias"
)

// BuildGrid renders the start, completion and duration rows of a node. The
// duration row is present whenever the planned duration is computable.
func BuildGrid(s Schedule, today time.Time) []GridRow {
	rows := []GridRow{
		milestoneRow(RowStart, s.StartForecast, s.StartActual, today),
		milestoneRow(RowCompletion, s.CompletionForecast, s.CompletionActual, today),
	}

	dur := DeriveDuration(s, today)
	if dur.Known {
		row := GridRow{
			Label:    RowDuration,
			Forecast: strconv.Itoa(dur.Forecast),
			Actual:   Placeholder,
			Status:   FormatDays(dur.Diff),
			Days:     intPtr(dur.Diff),
			OnTime:   boolPtr(dur.OnTime),
		}
		if dur.Real != nil {
			row.Actual = strconv.Itoa(*dur.Real)
		}
		rows = append(rows, row)
	}
	return rows
}

func milestoneRow(label, forecast, actual string, today time.Time) GridRow {
	row := GridRow{
		Label:    label,
		Forecast: orPlaceholder(forecast),
		Actual:   orPlaceholder(actual),
		Status:   Placeholder,
	}
	if fig := DeriveMilestone(forecast, actual, today); fig.Known {
		row.Status = FormatDays(fig.Days)
		row.Days = intPtr(fig.Days)
		row.OnTime = boolPtr(fig.OnTime)
	}
	return row
}

// FormatDays renders a signed day count: "+3", "0", "-2".
func FormatDays(d int) string {
	if d > 0 {
		return "+" + strconv.Itoa(d)
	}
	return strconv.Itoa(d)
}

func orPlaceholder(s string) string {
	if _, ok := ParseDate(s); !ok {
		return Placeholder
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
