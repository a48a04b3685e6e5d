package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/notify"
	"collect-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingInvalidator) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeDirectory struct {
	users    map[string]*models.User
	collects map[string]*models.Collect
}

func (d *fakeDirectory) GetUserById(_ context.Context, id string) (*models.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, store.NotFound("user", id)
}

func (d *fakeDirectory) GetCollect(_ context.Context, id string) (*models.Collect, error) {
	if c, ok := d.collects[id]; ok {
		return c, nil
	}
	return nil, store.NotFound("collect", id)
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[string]*models.User{
			"author": {Id: "author", Name: "Olga", Email: "olga@example.com"},
			"payer":  {Id: "payer", Name: "Ivan", Email: "ivan@example.com"},
			"silent": {Id: "silent", Name: "Petr"},
		},
		collects: map[string]*models.Collect{
			"c1": {Id: "c1", AuthorId: "author", Title: "Birthday gift"},
			"c2": {Id: "c2", AuthorId: "silent", Title: "Hospital bills"},
		},
	}
}

func paymentEvent(collectId string, userId *string, anonymous bool) models.Event {
	return models.Event{
		Type:      models.EventPaymentCreated,
		CollectId: collectId,
		Payment: &models.Payment{
			Id:          "p1",
			UserId:      userId,
			CollectId:   collectId,
			Amount:      decimal.RequireFromString("150.00"),
			IsAnonymous: anonymous,
		},
	}
}

func ptr(s string) *string { return &s }

func kinds(jobs []notify.Job) []notify.Kind {
	out := make([]notify.Kind, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Kind)
	}
	return out
}

func TestJobsFor_PaymentRules(t *testing.T) {
	p := New(&countingInvalidator{}, notify.NewMemoryQueue(8, time.Millisecond), nil, newDirectory(), 8)
	ctx := context.Background()

	tests := []struct {
		name  string
		event models.Event
		want  []notify.Kind
	}{
		{
			name:  "registered payer with email",
			event: paymentEvent("c1", ptr("payer"), false),
			want:  []notify.Kind{notify.KindPaymentRecorded, notify.KindPaymentReceived},
		},
		{
			name:  "guest payment",
			event: paymentEvent("c1", nil, false),
			want:  []notify.Kind{notify.KindPaymentReceived},
		},
		{
			name:  "author pays own collect",
			event: paymentEvent("c1", ptr("author"), false),
			want:  []notify.Kind{notify.KindPaymentRecorded},
		},
		{
			name:  "payer without email",
			event: paymentEvent("c1", ptr("silent"), false),
			want:  []notify.Kind{notify.KindPaymentReceived},
		},
		{
			name:  "author without email",
			event: paymentEvent("c2", nil, false),
			want:  []notify.Kind{},
		},
		{
			name:  "deleted payer counts as guest",
			event: paymentEvent("c1", ptr("gone"), false),
			want:  []notify.Kind{notify.KindPaymentReceived},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := p.JobsFor(ctx, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kinds(jobs))
			assert.LessOrEqual(t, len(jobs), 2)
			for _, j := range jobs {
				assert.Equal(t, "p1", j.PaymentId)
				assert.Equal(t, tt.event.CollectId, j.CollectId)
			}
		})
	}
}

func TestJobsFor_AnonymousDisplayName(t *testing.T) {
	p := New(&countingInvalidator{}, notify.NewMemoryQueue(8, time.Millisecond), nil, newDirectory(), 8)

	jobs, err := p.JobsFor(context.Background(), paymentEvent("c1", ptr("payer"), true))
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	author := jobs[1]
	assert.Equal(t, "olga@example.com", author.To)
	assert.Contains(t, author.Body, "Anonymous contributed 150.00")
	assert.NotContains(t, author.Body, "Ivan")

	payer := jobs[0]
	assert.Equal(t, "ivan@example.com", payer.To)
	assert.Contains(t, payer.Body, "Hi Ivan")
}

func TestJobsFor_CollectCreated(t *testing.T) {
	dir := newDirectory()
	p := New(&countingInvalidator{}, notify.NewMemoryQueue(8, time.Millisecond), nil, dir, 8)
	ctx := context.Background()

	jobs, err := p.JobsFor(ctx, models.Event{Type: models.EventCollectCreated, CollectId: "c1", Collect: dir.collects["c1"]})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, notify.KindCollectCreated, jobs[0].Kind)
	assert.Equal(t, "olga@example.com", jobs[0].To)

	jobs, err = p.JobsFor(ctx, models.Event{Type: models.EventCollectCreated, CollectId: "c2"})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	jobs, err = p.JobsFor(ctx, models.Event{Type: models.EventCollectUpdated, CollectId: "c1"})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestJobsFor_MissingCollect(t *testing.T) {
	p := New(&countingInvalidator{}, notify.NewMemoryQueue(8, time.Millisecond), nil, newDirectory(), 8)

	_, err := p.JobsFor(context.Background(), paymentEvent("nope", nil, false))
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestEmit_InvalidatesOnceAndEnqueues(t *testing.T) {
	inv := &countingInvalidator{}
	queue := notify.NewMemoryQueue(8, time.Millisecond)
	p := New(inv, queue, nil, newDirectory(), 8)
	ctx := context.Background()

	p.Start(ctx)
	p.Emit(ctx, paymentEvent("c1", ptr("payer"), false))
	p.Stop()

	assert.Equal(t, 1, inv.count())
	n, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestEmit_NonCreationOnlyInvalidates(t *testing.T) {
	inv := &countingInvalidator{}
	queue := notify.NewMemoryQueue(8, time.Millisecond)
	p := New(inv, queue, nil, newDirectory(), 8)
	ctx := context.Background()

	p.Start(ctx)
	p.Emit(ctx, models.Event{Type: models.EventPaymentDeleted, CollectId: "c1"})
	p.Emit(ctx, models.Event{Type: models.EventCollectUpdated, CollectId: "c1"})
	p.Stop()

	assert.Equal(t, 2, inv.count())
	n, _ := queue.Len(ctx)
	assert.Equal(t, int64(0), n)
}

func TestEmit_InvalidationFailureDoesNotStopNotifications(t *testing.T) {
	inv := &countingInvalidator{err: errors.New("redis down")}
	queue := notify.NewMemoryQueue(8, time.Millisecond)
	p := New(inv, queue, nil, newDirectory(), 8)
	ctx := context.Background()

	p.Start(ctx)
	p.Emit(ctx, paymentEvent("c1", nil, false))
	p.Stop()

	n, _ := queue.Len(ctx)
	assert.Equal(t, int64(1), n)
}

func TestEmit_FullBufferDropsWithoutBlocking(t *testing.T) {
	inv := &countingInvalidator{}
	queue := notify.NewMemoryQueue(8, time.Millisecond)
	p := New(inv, queue, nil, newDirectory(), 1)
	ctx := context.Background()

	// Dispatcher not started: the second event cannot fit.
	p.Emit(ctx, paymentEvent("c1", nil, false))
	p.Emit(ctx, paymentEvent("c1", nil, false))
	assert.Equal(t, 2, inv.count())

	p.Start(ctx)
	p.Stop()

	n, _ := queue.Len(ctx)
	assert.Equal(t, int64(1), n)
}
