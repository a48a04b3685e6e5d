package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Job
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, Job{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestMemoryQueue_FIFOAndTimeout(t *testing.T) {
	q := NewMemoryQueue(2, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, Job{To: "a@example.com"}))
	require.NoError(t, q.Enqueue(ctx, Job{To: "b@example.com"}))
	assert.ErrorIs(t, q.Enqueue(ctx, Job{To: "c@example.com"}), ErrQueueFull)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", job.To)

	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", job.To)

	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRedisQueue_Enqueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := NewRedisQueue(db, "notifications", time.Second)

	mock.Regexp().ExpectLPush("notifications", `.*`).SetVal(1)

	err := q.Enqueue(context.Background(), Job{Kind: KindCollectCreated, To: "user@example.com"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisQueue_EnqueueError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := NewRedisQueue(db, "", time.Second)

	mock.Regexp().ExpectLPush("notifications", `.*`).SetErr(assert.AnError)

	err := q.Enqueue(context.Background(), Job{To: "user@example.com"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisQueue_Dequeue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := NewRedisQueue(db, "notifications", time.Second)
	ctx := context.Background()

	mock.ExpectBRPop(time.Second, "notifications").
		SetVal([]string{"notifications", `{"kind":"payment_received","to":"author@example.com","subject":"s","body":"b"}`})
	mock.ExpectBRPop(time.Second, "notifications").RedisNil()

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, KindPaymentReceived, job.Kind)
	assert.Equal(t, "author@example.com", job.To)

	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisQueue_FailAndLen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := NewRedisQueue(db, "notifications", time.Second)
	ctx := context.Background()

	mock.Regexp().ExpectLPush("notifications:failed", `.*`).SetVal(1)
	mock.ExpectLLen("notifications").SetVal(4)

	q.Fail(ctx, Job{To: "user@example.com"}, errors.New("smtp down"))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenderer_Defaults(t *testing.T) {
	r := DefaultRenderer()

	subject, body, err := r.Render(KindPaymentReceived, MessageData{
		RecipientName: "Olga",
		CollectTitle:  "Birthday gift",
		Amount:        "150.00",
		PayerName:     "Anonymous",
		Comment:       "Happy birthday!",
	})
	require.NoError(t, err)
	assert.Equal(t, `New payment for "Birthday gift"`, subject)
	assert.Contains(t, body, "Anonymous contributed 150.00")
	assert.Contains(t, body, "Comment: Happy birthday!")

	_, body, err = r.Render(KindPaymentReceived, MessageData{PayerName: "Ivan", Amount: "1.00"})
	require.NoError(t, err)
	assert.NotContains(t, body, "Comment:")
}

func TestLoadRenderer_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `templates:
  collect_created:
    subject: "Collect {{.CollectTitle}} ready"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r, err := LoadRenderer(path)
	require.NoError(t, err)

	subject, body, err := r.Render(KindCollectCreated, MessageData{RecipientName: "Anna", CollectTitle: "Trip"})
	require.NoError(t, err)
	assert.Equal(t, "Collect Trip ready", subject)
	assert.True(t, strings.HasPrefix(body, "Hi Anna,"))
}

func TestLoadRenderer_RejectsUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  refund_issued:\n    subject: x\n"), 0o600))

	_, err := LoadRenderer(path)
	assert.Error(t, err)
}

func TestWorker_DeliversOnce(t *testing.T) {
	q := NewMemoryQueue(4, 5*time.Millisecond)
	mailer := &recordingMailer{}
	w := NewWorker(q, mailer, time.Second)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindCollectCreated, To: "a@example.com", Subject: "s", Body: "b"}))
	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindPaymentRecorded, To: "b@example.com", Subject: "s", Body: "b"}))

	w.Drain(ctx)

	assert.Equal(t, 2, mailer.count())
	assert.Empty(t, q.Failed())
}

func TestWorker_FailureIsRecordedAndDropped(t *testing.T) {
	q := NewMemoryQueue(4, 5*time.Millisecond)
	mailer := &recordingMailer{err: errors.New("connection refused")}
	w := NewWorker(q, mailer, time.Second)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindPaymentReceived, To: "author@example.com"}))
	w.Drain(ctx)

	failed := q.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "author@example.com", failed[0].Job.To)
	assert.Contains(t, failed[0].Error, "connection refused")

	n, _ := q.Len(ctx)
	assert.Equal(t, int64(0), n)
}

func TestWorker_DeliveryErrorWrapsCause(t *testing.T) {
	cause := errors.New("mailbox unavailable")
	w := NewWorker(NewMemoryQueue(1, time.Millisecond), &recordingMailer{err: cause}, time.Second)

	err := w.deliver(context.Background(), Job{Kind: KindCollectCreated, To: "x@example.com"})
	var derr *NotificationDeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "x@example.com", derr.To)
	assert.ErrorIs(t, err, cause)
}

func TestWorker_StartStopDrains(t *testing.T) {
	q := NewMemoryQueue(8, 5*time.Millisecond)
	mailer := &recordingMailer{}
	w := NewWorker(q, mailer, time.Second)

	w.Start(context.Background())
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{To: "a@example.com"}))
	}
	w.Stop()

	assert.Equal(t, 3, mailer.count())
}

func TestSMTPMailer_Message(t *testing.T) {
	m := NewSMTPMailer("noreply@moneycollect.com", "localhost", 25, "", "")
	msg := m.message("user@example.com", "Hello", "Body")

	assert.Equal(t, []string{"noreply@moneycollect.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"user@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Hello"}, msg.GetHeader("Subject"))
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	// Port 1 on localhost is never an SMTP server; the cancelled context wins or the dial fails.
	m := NewSMTPMailer("noreply@moneycollect.com", "127.0.0.1", 1, "", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, m.Send(ctx, "user@example.com", "s", "b"))
}

func TestWorker_RateLimitCancelledContext(t *testing.T) {
	mailer := &recordingMailer{}
	w := NewWorker(NewMemoryQueue(1, time.Millisecond), mailer, time.Second).WithRateLimit(0.001, 1)
	job := Job{Kind: KindCollectCreated, To: "x@example.com"}

	// the burst token allows the first delivery; the second would wait far beyond the deadline
	require.NoError(t, w.deliver(context.Background(), job))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := w.deliver(ctx, job)

	var derr *NotificationDeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 1, mailer.count())
}

func TestWorker_WithRateLimitDisabled(t *testing.T) {
	w := NewWorker(NewMemoryQueue(1, time.Millisecond), &recordingMailer{}, time.Second).WithRateLimit(0, 5)
	assert.Nil(t, w.limiter)
}
