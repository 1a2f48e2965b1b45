package sink

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"

	"sjsage522/dealerworker/config"
	"sjsage522/dealerworker/logger"
	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions controls the on-disk format of a CSVSink
type CSVOptions struct {
	Encoding   string
	Quoting    string
	FlushEvery int
}

// CSVSink writes rows to a CSV file. The file handle is never held open
// between appends: every flush opens the file in append mode, writes the
// encoded rows with a single Write call and closes it again, so a crash
// between two appends leaves only complete rows behind.
type CSVSink struct {
	path    string
	headers []string
	opts    CSVOptions
	enc     encoding.Encoding
	pending [][]string
	written int
}

// NewCSVSink creates a sink for path with the given header row
func NewCSVSink(path string, headers []string, opts CSVOptions) (*CSVSink, error) {
	s := &CSVSink{path: path, headers: headers, opts: opts}

	switch opts.Encoding {
	case "", config.EncodingUTF8, config.EncodingUTF8BOM:
	case config.EncodingGBK:
		s.enc = simplifiedchinese.GBK
	default:
		return nil, crawlerrors.NewValidation(path, fmt.Sprintf("unsupported encoding %q", opts.Encoding))
	}

	switch opts.Quoting {
	case "", config.QuotingMinimal, config.QuotingAll:
	default:
		return nil, crawlerrors.NewValidation(path, fmt.Sprintf("unsupported quoting %q", opts.Quoting))
	}

	if s.opts.FlushEvery < 1 {
		s.opts.FlushEvery = 1
	}
	return s, nil
}

// Path returns the output file path
func (s *CSVSink) Path() string {
	return s.path
}

// Written returns the number of rows appended to disk so far
func (s *CSVSink) Written() int {
	return s.written
}

// Open truncates the file and writes the header. When resuming into a
// non-empty file the header is already there and nothing is written.
func (s *CSVSink) Open(resume bool) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return crawlerrors.NewSink(s.path, "create output directory", err)
	}

	if resume {
		if info, err := os.Stat(s.path); err == nil && info.Size() > 0 {
			logger.ForSink().Info().Str("path", s.path).Msg("Appending to existing output")
			return nil
		}
	}

	header, err := s.encode([][]string{s.headers})
	if err != nil {
		return err
	}
	if s.opts.Encoding == config.EncodingUTF8BOM {
		header = append(append([]byte{}, utf8BOM...), header...)
	}

	if err := os.WriteFile(s.path, header, 0o644); err != nil {
		return crawlerrors.NewSink(s.path, "write header", err)
	}
	return nil
}

// Write appends a row, or buffers it until FlushEvery rows are pending
func (s *CSVSink) Write(row []string) error {
	if len(row) != len(s.headers) {
		return crawlerrors.NewValidation(s.path, fmt.Sprintf("row has %d columns, header has %d", len(row), len(s.headers)))
	}

	s.pending = append(s.pending, row)
	if len(s.pending) >= s.opts.FlushEvery {
		return s.Flush()
	}
	return nil
}

// Flush appends every pending row
func (s *CSVSink) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	data, err := s.encode(s.pending)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return crawlerrors.NewSink(s.path, "open for append", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return crawlerrors.NewSink(s.path, "append rows", err)
	}
	if err := f.Close(); err != nil {
		return crawlerrors.NewSink(s.path, "close after append", err)
	}

	if len(s.pending) > 1 {
		logger.ForSink().Debug().Str("path", s.path).Int("rows", len(s.pending)).Msg("Flushed batch")
	}
	s.written += len(s.pending)
	s.pending = s.pending[:0]
	return nil
}

// Pending returns the rows waiting for the batch to fill
func (s *CSVSink) Pending() int {
	return len(s.pending)
}

// Close flushes the remaining rows
func (s *CSVSink) Close() error {
	return s.Flush()
}

func (s *CSVSink) encode(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer

	if s.opts.Quoting == config.QuotingAll {
		for _, row := range rows {
			for i, field := range row {
				if i > 0 {
					buf.WriteByte(',')
				}
				buf.WriteByte('"')
				buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
				buf.WriteByte('"')
			}
			buf.WriteString("\r\n")
		}
	} else {
		w := csv.NewWriter(&buf)
		w.UseCRLF = true
		if err := w.WriteAll(rows); err != nil {
			return nil, crawlerrors.NewSink(s.path, "encode rows", err)
		}
	}

	if s.enc == nil {
		return buf.Bytes(), nil
	}
	out, err := encoding.ReplaceUnsupported(s.enc.NewEncoder()).Bytes(buf.Bytes())
	if err != nil {
		return nil, crawlerrors.NewSink(s.path, "transcode rows", err)
	}
	return out, nil
}
