package sink

// Sink receives projected dealer rows in enumeration order
type Sink interface {
	// Open prepares the output. When resume is true an existing output is
	// appended to instead of being truncated.
	Open(resume bool) error

	// Write appends one row; len(row) must equal the header length
	Write(row []string) error

	// Flush makes every row written so far durable
	Flush() error

	// Pending returns the rows buffered until the sink's own batch is full
	Pending() int

	// Close flushes and releases the output
	Close() error
}

// MultiSink fans rows out to several sinks
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink. Nil entries are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of wrapped sinks
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Open opens every sink, stopping at the first failure
func (m *MultiSink) Open(resume bool) error {
	for _, s := range m.sinks {
		if err := s.Open(resume); err != nil {
			return err
		}
	}
	return nil
}

// Write writes to every sink and returns the first error
func (m *MultiSink) Write(row []string) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Write(row); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Flush flushes every sink and returns the first error
func (m *MultiSink) Flush() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Pending returns the buffered rows of every sink
func (m *MultiSink) Pending() int {
	n := 0
	for _, s := range m.sinks {
		n += s.Pending()
	}
	return n
}

// Close closes every sink, even after a failure, and returns the first error
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func rowMap(headers, row []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(row) {
			m[h] = row[i]
		}
	}
	return m
}
