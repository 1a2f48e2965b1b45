package publisher

// Publisher represents a service for publishing dealer records
type Publisher interface {
	// Publish publishes a message to the stream of the given vendor
	Publish(vendor string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
