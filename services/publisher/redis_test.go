package publisher

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	publisher := NewRedisPublisher(ctx, "localhost:6379", 0, "test_dealers", 100)
	defer publisher.Close()

	// Test if Redis is available
	if err := publisher.Ping(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	stream := publisher.StreamName("byd")
	assert.Equal(t, "test_dealers:byd", stream)
	client.Del(ctx, stream)
	defer client.Del(ctx, stream)

	err := publisher.Publish("byd", []byte(`{"店名":"南京店"}`))
	require.NoError(t, err)

	messages, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, `{"店名":"南京店"}`, messages[0].Values["record"])

	assert.NoError(t, publisher.TrimStreams())
}
