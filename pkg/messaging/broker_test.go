package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopBroker(t *testing.T) {
	var b Broker = NoopBroker{}

	assert.NoError(t, b.Publish(context.Background(), "notifications", Message{Type: "notification.created"}))
	assert.NoError(t, b.Close())
}
