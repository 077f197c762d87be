package fundsheet

import (
	"log/slog"
)

// Listener is notified of every step of a pipeline run. Implement it to
// report progress, collect statistics or audit writes.
type Listener interface {
	// OnPeriod is called when a period starts being written to column.
	OnPeriod(column string, period Period)

	// OnSkip is called for a period rejected by the period-type filter.
	OnSkip(period Period, reason string)

	// OnWrite is called after a tag value (or the header, with tag "") is written.
	OnWrite(coord, tag string, value Value)

	// OnEvaluate is called after a formula cell has been recomputed.
	OnEvaluate(coord, formula string, result Value)
}

// LogListener reports pipeline progress through a structured logger.
type LogListener struct {
	logger *slog.Logger
}

// NewLogListener creates a LogListener. A nil logger uses slog.Default().
func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogListener{logger: logger}
}

func (l *LogListener) OnPeriod(column string, period Period) {
	l.logger.Info("processing period",
		"column", column,
		"end_period", period.EndPeriod,
		"fiscal_year", period.FiscalYear,
		"fiscal_quarter", period.FiscalQuarter)
}

func (l *LogListener) OnSkip(period Period, reason string) {
	l.logger.Debug("skipped period", "end_period", period.EndPeriod, "reason", reason)
}

func (l *LogListener) OnWrite(coord, tag string, value Value) {
	if tag == "" {
		l.logger.Info("updated header", "cell", coord, "value", value)
		return
	}
	l.logger.Info("updated cell", "cell", coord, "value", value, "tag", tag)
}

func (l *LogListener) OnEvaluate(coord, formula string, result Value) {
	l.logger.Info("evaluated cell", "cell", coord, "result", result, "formula", formula)
}

// nopListener discards all notifications.
type nopListener struct{}

func (nopListener) OnPeriod(string, Period)          {}
func (nopListener) OnSkip(Period, string)            {}
func (nopListener) OnWrite(string, string, Value)    {}
func (nopListener) OnEvaluate(string, string, Value) {}
