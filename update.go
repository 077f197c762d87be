package fundsheet

import (
	"fmt"
)

// Update writes the periods of inputPath into the document at docPath,
// starting at column, and saves it. A backup of the untouched document is
// written to docPath plus the backup suffix first. On error the document
// is left unsaved.
func Update(docPath, inputPath, column string, opts ...Option) (Report, error) {
	return NewUpdater(opts...).Update(docPath, inputPath, column)
}

// Updater orchestrates one update: open, backup, run, save.
type Updater struct {
	opts *Options
}

// NewUpdater creates an Updater with the given options.
func NewUpdater(opts ...Option) *Updater {
	return &Updater{opts: applyOptions(opts)}
}

// Update processes one input file against one document.
func (u *Updater) Update(docPath, inputPath, column string) (Report, error) {
	if err := validateConfig(u.opts.config, u.opts.maxRows); err != nil {
		return Report{}, err
	}
	name, err := ParseInputName(inputPath)
	if err != nil {
		return Report{}, err
	}
	input, err := LoadFundamentals(inputPath)
	if err != nil {
		return Report{}, err
	}

	doc, err := u.openDocument(docPath)
	if err != nil {
		return Report{}, err
	}
	defer doc.Close()

	if u.opts.backup {
		backup := docPath + u.opts.backupSuffix
		if err := doc.SaveAs(backup); err != nil {
			return Report{}, fmt.Errorf("save backup %q: %w", backup, err)
		}
	}

	sheet, err := doc.Sheet(u.sheetName(name))
	if err != nil {
		return Report{}, err
	}

	report, err := newPipeline(u.opts).Run(sheet, Job{
		Statement:  name.Statement,
		PeriodType: name.PeriodType,
		Periods:    input.Fundamentals,
		Column:     column,
		Limit:      name.Limit,
	})
	if err != nil {
		return report, err
	}

	if err := doc.Save(); err != nil {
		return report, fmt.Errorf("save %q: %w", docPath, err)
	}
	return report, nil
}

func (u *Updater) openDocument(path string) (Document, error) {
	return Open(path, WithRecalculateOnOpen(u.opts.recalculateOnOpen))
}

func (u *Updater) sheetName(name InputName) string {
	if u.opts.sheet != "" {
		return u.opts.sheet
	}
	return name.Company
}

