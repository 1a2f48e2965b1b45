package sink

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

const xlsxSheet = "Sheet1"

// XLSXSink mirrors the CSV output into a workbook. Rows are kept in the
// workbook in memory and the file is saved on Flush and Close.
type XLSXSink struct {
	path    string
	headers []string
	file    *excelize.File
	nextRow int
	dirty   bool
}

// NewXLSXSink creates a workbook sink for path
func NewXLSXSink(path string, headers []string) *XLSXSink {
	return &XLSXSink{path: path, headers: headers}
}

// Open creates a new workbook, or reopens an existing one when resuming
func (s *XLSXSink) Open(resume bool) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return crawlerrors.NewSink(s.path, "create output directory", err)
	}

	if resume {
		if f, err := excelize.OpenFile(s.path); err == nil {
			rows, err := f.GetRows(xlsxSheet)
			if err != nil {
				f.Close()
				return crawlerrors.NewSink(s.path, "read existing workbook", err)
			}
			s.file = f
			s.nextRow = len(rows) + 1
			return nil
		}
	}

	s.file = excelize.NewFile()
	s.nextRow = 1
	if err := s.setRow(s.headers); err != nil {
		return err
	}
	return s.save()
}

// Write adds a row to the workbook
func (s *XLSXSink) Write(row []string) error {
	if s.file == nil {
		return crawlerrors.NewSink(s.path, "workbook not open", nil)
	}
	return s.setRow(row)
}

// Flush saves the workbook if rows were added since the last save
func (s *XLSXSink) Flush() error {
	if s.file == nil || !s.dirty {
		return nil
	}
	return s.save()
}

// Pending is always zero: the workbook has no batch of its own and is saved
// whenever its owner flushes
func (s *XLSXSink) Pending() int {
	return 0
}

// Close saves and releases the workbook
func (s *XLSXSink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.Flush()
	if cerr := s.file.Close(); err == nil && cerr != nil {
		err = crawlerrors.NewSink(s.path, "close workbook", cerr)
	}
	s.file = nil
	return err
}

func (s *XLSXSink) setRow(row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, s.nextRow)
	if err != nil {
		return crawlerrors.NewSink(s.path, "cell name", err)
	}

	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	if err := s.file.SetSheetRow(xlsxSheet, cell, &values); err != nil {
		return crawlerrors.NewSink(s.path, "set row", err)
	}

	s.nextRow++
	s.dirty = true
	return nil
}

func (s *XLSXSink) save() error {
	if err := s.file.SaveAs(s.path); err != nil {
		return crawlerrors.NewSink(s.path, "save workbook", err)
	}
	s.dirty = false
	return nil
}
