package eventbus

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"ctem-enterprise/internal/logger"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetOutput(io.Discard)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(SubjectRemediationStarted, map[string]string{"id": "rem-1"}))
	p.Close()
}

func TestNATSPublisherDelivers(t *testing.T) {
	sub, err := nats.Connect(nats.DefaultURL, nats.Timeout(time.Second))
	if err != nil {
		t.Skip("NATS not available, skipping test")
	}
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(SubjectRemediationStatus, msgs)
	require.NoError(t, err)
	defer func() { _ = s.Unsubscribe() }()
	require.NoError(t, sub.Flush())

	pub, err := NewNATSPublisher(nats.DefaultURL)
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.Publish(SubjectRemediationStatus, map[string]string{"id": "rem-1", "status": "completed"}))

	select {
	case m := <-msgs:
		var got map[string]string
		require.NoError(t, json.Unmarshal(m.Data, &got))
		assert.Equal(t, "completed", got["status"])
	case <-time.After(3 * time.Second):
		t.Fatal("event not delivered")
	}
}
