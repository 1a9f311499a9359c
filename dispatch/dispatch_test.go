package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu    sync.Mutex
	sends int
}

func (f *fakeSender) Send(ctx context.Context, remoteAddr string, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

type fakeSealer struct{ addr string }

func (f *fakeSealer) Seal(sessionID string, plaintext []byte) ([]byte, []byte, error) {
	return make([]byte, 12), plaintext, nil
}

func (f *fakeSealer) RemoteAddr(sessionID string) (string, bool) {
	return f.addr, f.addr != ""
}

func testConfig() Config {
	return Config{BaseRTO: 20 * time.Millisecond, MaxRTO: 80 * time.Millisecond, MaxAttempts: 3}
}

func TestEnqueueTransmitsOnce(t *testing.T) {
	sender := &fakeSender{}
	sealer := &fakeSealer{addr: "127.0.0.1:1"}
	d := New(testConfig(), sender, sealer, logger.NewDefaultLogger())
	d.Start()
	defer d.Close()

	_, err := d.Enqueue(context.Background(), "sess-1", "MESSAGE", map[string]string{"content": "hi"})
	require.NoError(t, err)

	assert.Equal(t, 1, sender.count())
	assert.Equal(t, 1, d.QueueDepth())
}

func TestAckRemovesRecordBeforeRetry(t *testing.T) {
	sender := &fakeSender{}
	sealer := &fakeSealer{addr: "127.0.0.1:1"}
	d := New(testConfig(), sender, sealer, logger.NewDefaultLogger())
	d.Start()
	defer d.Close()

	msgID, err := d.Enqueue(context.Background(), "sess-1", "MESSAGE", nil)
	require.NoError(t, err)
	d.Ack("sess-1", msgID)

	assert.Equal(t, 0, d.QueueDepth())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, sender.count(), "acked record must not be retransmitted")
}

func TestRetransmitsUntilExhausted(t *testing.T) {
	sender := &fakeSender{}
	sealer := &fakeSealer{addr: "127.0.0.1:1"}
	cfg := testConfig()
	d := New(cfg, sender, sealer, logger.NewDefaultLogger())
	d.Start()
	defer d.Close()

	_, err := d.Enqueue(context.Background(), "sess-1", "MESSAGE", nil)
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.QueueDepth() == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, 0, d.QueueDepth(), "record should be dropped after exhausting retries")
	assert.Equal(t, cfg.MaxAttempts, sender.count())
}

func TestRetransmitsToGoneSessionStopsCleanly(t *testing.T) {
	sender := &fakeSender{}
	sealer := &fakeSealer{addr: ""} // no address: session gone
	d := New(testConfig(), sender, sealer, logger.NewDefaultLogger())
	d.Start()
	defer d.Close()

	_, err := d.Enqueue(context.Background(), "sess-1", "MESSAGE", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, sender.count())
}
