package fundsheet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// PeriodType is the reporting period granularity of an input file.
type PeriodType string

const (
	PeriodAnnual  PeriodType = "annual"
	PeriodQuarter PeriodType = "quarter"
	PeriodTTM     PeriodType = "ttm"
)

// ParsePeriodType validates a period type token.
func ParsePeriodType(s string) (PeriodType, error) {
	switch pt := PeriodType(s); pt {
	case PeriodAnnual, PeriodQuarter, PeriodTTM:
		return pt, nil
	default:
		return "", fmt.Errorf("unknown period type %q", s)
	}
}

// IsAnnual reports whether the period type is annual.
func (p PeriodType) IsAnnual() bool {
	return p == PeriodAnnual
}

// Tag is one named financial metric of a period.
type Tag struct {
	Tag   string  `json:"tag"`
	Value float64 `json:"value"`
}

// Period is one reporting period record.
type Period struct {
	AnnualPeriod  bool   `json:"annual_period"`
	FiscalYear    int    `json:"fiscal_year"`
	FiscalQuarter int    `json:"fiscal_quarter"`
	EndPeriod     string `json:"end_period"`
	FilingType    string `json:"filing_type"`
	Tags          []Tag  `json:"tags"`
}

// Fundamentals is the crawler's output document.
type Fundamentals struct {
	Fundamentals []Period `json:"fundamentals"`
}

// LoadFundamentals reads an input file. Bodies that are not valid JSON are
// run through json-repair once before giving up. Files with an .hjson
// extension (hand-corrected inputs) are read as Hjson.
func LoadFundamentals(path string) (*Fundamentals, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input %q: %w", path, err)
	}
	parse := ParseFundamentals
	if strings.EqualFold(filepath.Ext(path), ".hjson") {
		parse = ParseHJSONFundamentals
	}
	f, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", path, err)
	}
	return f, nil
}

// ParseFundamentals decodes fundamentals JSON, repairing it if needed.
func ParseFundamentals(data []byte) (*Fundamentals, error) {
	var f Fundamentals
	err := json.Unmarshal(data, &f)
	if err == nil {
		return &f, nil
	}
	if _, ok := err.(*json.SyntaxError); !ok {
		return nil, fmt.Errorf("decode fundamentals: %w", err)
	}

	repaired, rerr := jsonrepair.RepairJSON(string(data))
	if rerr != nil {
		return nil, fmt.Errorf("decode fundamentals: %w (repair failed: %v)", err, rerr)
	}
	f = Fundamentals{}
	if err := json.Unmarshal([]byte(repaired), &f); err != nil {
		return nil, fmt.Errorf("decode repaired fundamentals: %w", err)
	}
	return &f, nil
}

// ParseHJSONFundamentals decodes fundamentals written in Hjson: comments,
// unquoted keys and optional commas are allowed.
func ParseHJSONFundamentals(data []byte) (*Fundamentals, error) {
	var f Fundamentals
	if err := hjson.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode hjson fundamentals: %w", err)
	}
	return &f, nil
}

// InputName is what an input file name encodes.
type InputName struct {
	Company    string
	Statement  string
	PeriodType PeriodType
	Limit      int // records the crawler was asked for; 0 when the name carries none
}

// inputNameRegex matches <company>-<statement>-<period_type>[-<limit>].
var inputNameRegex = regexp.MustCompile(`^(\w+)-(\w+)-(\w+)(?:-(\d+))?`)

// ParseInputName extracts company, statement and period type from the base
// name of path, e.g. "AAPL-income_statement-ttm-4.json".
func ParseInputName(path string) (InputName, error) {
	base := filepath.Base(path)
	m := inputNameRegex.FindStringSubmatch(base)
	if m == nil {
		return InputName{}, fmt.Errorf("input name %q does not match <company>-<statement>-<period_type>", base)
	}
	pt, err := ParsePeriodType(m[3])
	if err != nil {
		return InputName{}, fmt.Errorf("input name %q: %w", base, err)
	}
	name := InputName{Company: m[1], Statement: m[2], PeriodType: pt}
	if m[4] != "" {
		if name.Limit, err = strconv.Atoi(m[4]); err != nil {
			return InputName{}, fmt.Errorf("input name %q: limit: %w", base, err)
		}
	}
	return name, nil
}
