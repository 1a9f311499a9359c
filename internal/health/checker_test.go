package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeSessions struct{ n int }

func (f fakeSessions) SessionCount() int { return f.n }

type fakeQueue struct{ n int }

func (f fakeQueue) QueueDepth() int { return f.n }

func TestCheckHealthyWhenDatabaseReachable(t *testing.T) {
	c := NewChecker(fakePinger{}, fakeSessions{n: 3}, fakeQueue{n: 1})
	report := c.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.True(t, report.DatabaseOK)
	assert.Equal(t, 3, report.ActiveSession)
	assert.Equal(t, 1, report.RetryQueue)
	assert.Empty(t, report.Errors)
}

func TestCheckUnhealthyWhenDatabaseDown(t *testing.T) {
	c := NewChecker(fakePinger{err: errors.New("connection refused")}, nil, nil)
	report := c.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.False(t, report.DatabaseOK)
	assert.NotEmpty(t, report.Errors)
}

func TestReadyFalseWhenDatabaseDown(t *testing.T) {
	c := NewChecker(fakePinger{err: errors.New("timeout")}, nil, nil)
	assert.False(t, c.Ready(context.Background()))
}

func TestLiveAlwaysTrue(t *testing.T) {
	c := NewChecker(nil, nil, nil)
	assert.True(t, c.Live(context.Background()))
	assert.True(t, c.Ready(context.Background()))
}
