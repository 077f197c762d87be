package fundsheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Job describes one statement file to be written into a sheet.
type Job struct {
	Statement  string     // e.g. "income_statement"
	PeriodType PeriodType // period type of the input file
	Periods    []Period   // in input order (newest first)
	Column     string     // column receiving the oldest accepted period
	Limit      int        // newest records to consider; 0 for all
}

// Report summarizes a pipeline run.
type Report struct {
	Sheet       string
	FirstColumn string
	LastColumn  string // last column written; empty when no period was accepted
	Periods     int
	Skipped     int
	Writes      int
	Evaluations int
}

// Pipeline writes periods into consecutive columns of a sheet and
// re-evaluates the formulas of each column it touched.
type Pipeline struct {
	cfg       *Config
	listener  Listener
	evaluator *FormulaEvaluator
	maxRows   int
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	return newPipeline(applyOptions(opts))
}

func newPipeline(o *Options) *Pipeline {
	return &Pipeline{
		cfg:       o.config,
		listener:  o.listener,
		evaluator: NewFormulaEvaluator(),
		maxRows:   o.maxRows,
	}
}

// Run processes the job's periods oldest first, one column per accepted
// period. It stops at the first error; the caller must not save the
// document in that case.
func (p *Pipeline) Run(sheet Sheet, job Job) (Report, error) {
	report := Report{Sheet: sheet.Name(), FirstColumn: job.Column}
	if err := validateConfig(p.cfg, p.maxRows); err != nil {
		return report, err
	}
	if !IsColumnLabel(job.Column) {
		return report, fmt.Errorf("invalid column label %q", job.Column)
	}
	table, err := p.cfg.Table(job.Statement)
	if err != nil {
		return report, err
	}

	column := job.Column
	for i := len(job.Periods) - 1; i >= 0; i-- {
		period := job.Periods[i]
		if job.Limit > 0 && i >= job.Limit {
			p.listener.OnSkip(period, fmt.Sprintf("beyond limit %d", job.Limit))
			report.Skipped++
			continue
		}
		if reason, ok := p.accepts(job, period); !ok {
			p.listener.OnSkip(period, reason)
			report.Skipped++
			continue
		}
		p.listener.OnPeriod(column, period)

		// Step 1: header
		header := NewCoordinate(column, 1).String()
		label := HeaderLabel(job.PeriodType, period)
		if err := p.write(sheet, header, label, TypeString); err != nil {
			return report, err
		}
		p.listener.OnWrite(header, "", label)
		report.Writes++

		// Step 2: tag values
		n, err := p.writeTags(sheet, column, table, period)
		report.Writes += n
		if err != nil {
			return report, err
		}

		// Step 3 and 4: rebuild the cache and recompute formulas top to bottom
		n, err = p.evaluateColumn(sheet, column)
		report.Evaluations += n
		if err != nil {
			return report, err
		}

		report.Periods++
		report.LastColumn = column
		column = IncrementColumn(column)
	}
	return report, nil
}

// accepts applies the period-type filter. Point-in-time statements take
// annual records in sub-annual runs.
func (p *Pipeline) accepts(job Job, period Period) (string, bool) {
	if job.PeriodType.IsAnnual() && !period.AnnualPeriod {
		return "sub-annual record in annual run", false
	}
	if !job.PeriodType.IsAnnual() && period.AnnualPeriod && !p.cfg.IsPointInTime(job.Statement) {
		return "annual record in " + string(job.PeriodType) + " run", false
	}
	return "", true
}

// HeaderLabel returns the column header for a period: the fiscal year for
// annual runs and fourth quarters, "TTM 2020.II" style otherwise.
func HeaderLabel(pt PeriodType, period Period) string {
	year := strconv.Itoa(period.FiscalYear)
	q := period.FiscalQuarter
	if pt.IsAnnual() || q <= 0 || q >= 4 {
		return year
	}
	return fmt.Sprintf("TTM %s.%s", year, strings.Repeat("I", q))
}

func (p *Pipeline) writeTags(sheet Sheet, column string, table TranslationTable, period Period) (int, error) {
	writes := 0
	for _, tag := range period.Tags {
		name := strings.ToLower(tag.Tag)
		row, ok := table[name]
		if !ok {
			continue
		}
		value := tag.Value / p.cfg.Divisor(name)
		if value == 0 {
			continue
		}
		coord := NewCoordinate(column, row).String()
		if err := p.write(sheet, coord, value, TypeFloat); err != nil {
			return writes, err
		}
		p.listener.OnWrite(coord, name, value)
		writes++
	}
	return writes, nil
}

func (p *Pipeline) write(sheet Sheet, coord string, v Value, t ValueType) error {
	cell, err := sheet.Cell(coord)
	if err != nil {
		return fmt.Errorf("write %s: %w", coord, err)
	}
	if err := cell.SetValue(v, t); err != nil {
		return fmt.Errorf("write %s: %w", coord, err)
	}
	return nil
}

// evaluateColumn fills a fresh cache with the column's values, then
// evaluates every formula cell in ascending row order, feeding each result
// back so later rows see it.
func (p *Pipeline) evaluateColumn(sheet Sheet, column string) (int, error) {
	cache := NewValueCache(sheet)
	for row := 1; row <= p.maxRows; row++ {
		coord := NewCoordinate(column, row).String()
		if _, err := cache.Get(coord); err != nil && !errors.Is(err, ErrCoordinateOutOfRange) {
			return 0, err
		}
	}

	evaluated := 0
	for row := 1; row <= p.maxRows; row++ {
		coord := NewCoordinate(column, row).String()
		cell, err := sheet.Cell(coord)
		if errors.Is(err, ErrCoordinateOutOfRange) {
			continue
		}
		if err != nil {
			return evaluated, err
		}
		formula, ok := cell.Formula()
		if !ok {
			continue
		}

		value, err := cell.Evaluate(p.evaluator, cache)
		if err != nil {
			return evaluated, &EvalError{Coordinate: coord, Formula: formula, Err: err}
		}
		cache.Put(coord, value)
		if err := cell.SetResult(value); err != nil {
			return evaluated, &EvalError{Coordinate: coord, Formula: formula, Err: err}
		}
		p.listener.OnEvaluate(coord, formula, value)
		evaluated++
	}
	return evaluated, nil
}
