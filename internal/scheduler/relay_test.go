package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"jobmate/swipe-service/internal/model"
	"jobmate/swipe-service/internal/scheduler"
)

type fakeOutbox struct {
	mu       sync.Mutex
	pending  []model.MatchRecord
	queries  int
	queryErr error
}

func newOutbox(n int) *fakeOutbox {
	o := &fakeOutbox{}
	for i := 0; i < n; i++ {
		o.pending = append(o.pending, model.MatchRecord{ID: fmt.Sprintf("m-%d", i)})
	}
	return o
}

func (o *fakeOutbox) PendingMatches(_ context.Context, limit int) ([]model.MatchRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queries++
	if o.queryErr != nil {
		return nil, o.queryErr
	}
	if limit > len(o.pending) {
		limit = len(o.pending)
	}
	return append([]model.MatchRecord(nil), o.pending[:limit]...), nil
}

func (o *fakeOutbox) MarkNotified(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, rec := range o.pending {
		if rec.ID == id {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *fakeOutbox) remaining() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

type fakePublisher struct {
	mu     sync.Mutex
	ids    []string
	failAt int // publish number that fails, 0 = never
}

func (p *fakePublisher) PublishMatch(_ context.Context, rec model.MatchRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAt > 0 && len(p.ids)+1 == p.failAt {
		return errors.New("redis down")
	}
	p.ids = append(p.ids, rec.ID)
	return nil
}

func TestRunOnce(t *testing.T) {
	tests := []struct {
		name        string
		pending     int
		batch       int
		wantQueries int
	}{
		{name: "empty", pending: 0, batch: 10, wantQueries: 1},
		{name: "single partial batch", pending: 3, batch: 10, wantQueries: 1},
		{name: "exact multiple needs a final empty query", pending: 4, batch: 2, wantQueries: 3},
		{name: "several batches", pending: 5, batch: 2, wantQueries: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outbox := newOutbox(tt.pending)
			pub := &fakePublisher{}
			r := scheduler.New(outbox, pub, "@every 1m", tt.batch, nil)

			n, err := r.RunOnce(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.pending, n)
			assert.Len(t, pub.ids, tt.pending)
			assert.Equal(t, tt.wantQueries, outbox.queries)
			assert.Zero(t, outbox.remaining())
		})
	}
}

func TestRunOnce_StopsAtPublishFailure(t *testing.T) {
	outbox := newOutbox(5)
	pub := &fakePublisher{failAt: 3}
	r := scheduler.New(outbox, pub, "@every 1m", 10, nil)

	n, err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m-2")
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, outbox.remaining(), "failed and later matches stay pending")
}

func TestRunOnce_QueryError(t *testing.T) {
	outbox := newOutbox(1)
	outbox.queryErr = model.ErrPersistenceUnavailable
	r := scheduler.New(outbox, &fakePublisher{}, "@every 1m", 10, nil)

	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, model.ErrPersistenceUnavailable)
}

func TestRunOnce_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outbox := newOutbox(2)
	r := scheduler.New(outbox, &fakePublisher{}, "@every 1m", 10, nil)

	_, err := r.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, outbox.queries)
}

func TestStart_RunsImmediately(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	outbox := newOutbox(3)
	r := scheduler.New(outbox, &fakePublisher{}, "@every 1h", 10, zap.New(core))

	require.NoError(t, r.Start(context.Background()))
	require.Eventually(t, func() bool { return outbox.remaining() == 0 }, time.Second, 10*time.Millisecond)
	r.Stop()

	assert.Equal(t, 1, logs.FilterMessage("relay started").Len())
	assert.Equal(t, 1, logs.FilterMessage("relay stopped").Len())
	assert.Equal(t, "relay", logs.FilterMessage("relay started").All()[0].ContextMap()["component"])
}

func TestStart_InvalidSpec(t *testing.T) {
	r := scheduler.New(newOutbox(0), &fakePublisher{}, "every now and then", 10, nil)
	assert.Error(t, r.Start(context.Background()))
}

func TestAddJob_RunsOnSchedule(t *testing.T) {
	r := scheduler.New(newOutbox(0), &fakePublisher{}, "@every 1h", 10, nil)
	var mu sync.Mutex
	runs := 0
	r.AddJob("tick", "@every 1s", func(context.Context) {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestAddJob_InvalidSpec(t *testing.T) {
	r := scheduler.New(newOutbox(0), &fakePublisher{}, "@every 1h", 10, nil)
	r.AddJob("broken", "whenever", func(context.Context) {})
	err := r.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
