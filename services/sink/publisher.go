package sink

import (
	"encoding/json"

	"sjsage522/dealerworker/logger"
	crawlerrors "sjsage522/dealerworker/pkg/errors"
	"sjsage522/dealerworker/services/publisher"
)

// PublisherSink publishes every row as a JSON object to the vendor's stream
type PublisherSink struct {
	pub     publisher.Publisher
	vendor  string
	headers []string
	count   int
}

// NewPublisherSink creates a sink publishing through pub
func NewPublisherSink(pub publisher.Publisher, vendor string, headers []string) *PublisherSink {
	return &PublisherSink{pub: pub, vendor: vendor, headers: headers}
}

// Open is a no-op; streams are append-only
func (s *PublisherSink) Open(resume bool) error {
	return nil
}

// Write publishes one row
func (s *PublisherSink) Write(row []string) error {
	data, err := json.Marshal(rowMap(s.headers, row))
	if err != nil {
		return crawlerrors.NewSink(s.vendor, "encode record", err)
	}
	if err := s.pub.Publish(s.vendor, data); err != nil {
		return crawlerrors.NewSink(s.vendor, "publish record", err)
	}
	s.count++
	return nil
}

// Flush is a no-op
func (s *PublisherSink) Flush() error {
	return nil
}

// Pending is always zero
func (s *PublisherSink) Pending() int {
	return 0
}

// Close trims the streams once the crawl is done. The publisher itself is
// shared and closed by its owner.
func (s *PublisherSink) Close() error {
	if err := s.pub.TrimStreams(); err != nil {
		logger.ForPublisher().Warn().Err(err).Str("vendor", s.vendor).Msg("Failed to trim streams")
	}
	logger.ForPublisher().Debug().Str("vendor", s.vendor).Int("published", s.count).Msg("Publisher sink closed")
	return nil
}
