package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fuelpump/internal/dto"
	"fuelpump/internal/infra"
	"fuelpump/internal/model"
	"fuelpump/internal/repository"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubMailer struct {
	mu    sync.Mutex
	err   error
	calls int
	to    string
	pdf   string
}

func (m *stubMailer) SendReport(to, _, _, pdfPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.to, m.pdf = to, pdfPath
	return m.err
}

type stubPusher struct {
	status    map[string]int
	endpoints []string
}

func (p *stubPusher) Send(_ []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
	p.endpoints = append(p.endpoints, sub.Endpoint)
	code, ok := p.status[sub.Endpoint]
	if !ok {
		code = http.StatusCreated
	}
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}, nil
}

type stubSubscriptions struct {
	subs    []model.PushSubscription
	deleted []string
}

var _ repository.PushSubscriptionRepository = (*stubSubscriptions)(nil)

func (s *stubSubscriptions) Upsert(_ context.Context, p *model.PushSubscription) error {
	s.subs = append(s.subs, *p)
	return nil
}

func (s *stubSubscriptions) ListByFuelPump(_ context.Context, fuelPumpID uuid.UUID) ([]model.PushSubscription, error) {
	var out []model.PushSubscription
	for _, sub := range s.subs {
		if sub.FuelPumpID == fuelPumpID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *stubSubscriptions) DeleteByEndpoint(_ context.Context, endpoint string) error {
	s.deleted = append(s.deleted, endpoint)
	return nil
}

type failingHandler struct{ err error }

func (h failingHandler) Process(context.Context, json.RawMessage) error { return h.err }

func samplePayload(tenant uuid.UUID) dto.ShiftReportPayload {
	return dto.ShiftReportPayload{
		ShiftID:    uuid.NewString(),
		FuelPumpID: tenant.String(),
		StaffName:  "Ana",
		PumpID:     "P1",
		ShiftType:  "morning",
		StartTime:  "2024-03-01T06:00:00Z",
		EndTime:    "2024-03-01T14:00:00Z",
		Reconciliation: dto.ReconciliationResponse{
			CashSales:     decimal.NewFromInt(1000),
			CashRemaining: decimal.NewFromInt(950),
			ExpectedCash:  decimal.NewFromInt(1000),
			Difference:    decimal.NewFromInt(-50),
			Flagged:       true,
			Threshold:     decimal.NewFromInt(10),
		},
	}
}

// ── Queue ─────────────────────────────────────────────────────────────────────

func TestMemoryQueue_FIFOAndTimeout(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "a", []byte("1")))
	require.NoError(t, q.Push(ctx, "a", []byte("2")))
	n, _ := q.Len(ctx, "a")
	assert.Equal(t, int64(2), n)

	queue, b, err := q.Pop(ctx, time.Second, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", queue)
	assert.Equal(t, "1", string(b))

	b, ok, err := q.TryPop(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", string(b))

	_, _, err = q.Pop(ctx, 20*time.Millisecond, "a")
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestMemoryQueue_PopWakesOnPush(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Push(ctx, "a", []byte("late"))
	}()
	_, b, err := q.Pop(ctx, 2*time.Second, "a")
	require.NoError(t, err)
	assert.Equal(t, "late", string(b))
}

// ── Pool / DLQ / replay ───────────────────────────────────────────────────────

func TestDispatcherAndFailedJobGoesToDLQ(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	d := NewDispatcher(q)
	require.NoError(t, d.EnqueueShiftReport(ctx, samplePayload(uuid.New())))

	queue, raw, err := q.Pop(ctx, time.Second, QueueShiftReport)
	require.NoError(t, err)

	handlers := map[string]JobHandler{JobShiftReport: failingHandler{err: errors.New("smtp down")}}
	processJob(ctx, q, handlers, queue, raw)

	n, err := DLQLength(ctx, q, QueueShiftReport)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entryRaw, ok, _ := q.TryPop(ctx, DLQPrefix+QueueShiftReport)
	require.True(t, ok)
	var entry DLQEntry
	require.NoError(t, json.Unmarshal(entryRaw, &entry))
	assert.Equal(t, JobShiftReport, entry.JobType)
	assert.Equal(t, "smtp down", entry.Reason)
	assert.Equal(t, 1, entry.Attempts)
}

func TestProcessRetries(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	SendToDLQ(ctx, q, QueueShiftReport, JobShiftReport, json.RawMessage(`{}`), "boom", 1)
	SendToDLQ(ctx, q, QueueShiftReport, JobShiftReport, json.RawMessage(`{}`), "boom", MaxJobAttempts)

	replayed := processRetries(ctx, RetryCronConfig{Queue: q, Queues: []string{QueueShiftReport}})
	assert.Equal(t, 1, replayed)

	n, _ := q.Len(ctx, QueueShiftReport)
	assert.Equal(t, int64(1), n)
	parked, _ := q.Len(ctx, ParkedPrefix+QueueShiftReport)
	assert.Equal(t, int64(1), parked)

	raw, ok, _ := q.TryPop(ctx, QueueShiftReport)
	require.True(t, ok)
	var job Job
	require.NoError(t, json.Unmarshal(raw, &job))
	assert.Equal(t, 1, job.Attempts)
}

func TestProcessRetries_SkipsWhileBreakerOpen(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	SendToDLQ(ctx, q, QueueShiftReport, JobShiftReport, json.RawMessage(`{}`), "boom", 1)

	b := infra.NewBreaker(infra.BreakerConfig{Name: "smtp", FailureThreshold: 1, CoolDown: time.Hour})
	_ = b.Do(func() error { return errors.New("down") })
	require.Equal(t, infra.BreakerOpen, b.State())

	assert.Equal(t, 0, processRetries(ctx, RetryCronConfig{Queue: q, Breaker: b, Queues: []string{QueueShiftReport}}))
	n, _ := DLQLength(ctx, q, QueueShiftReport)
	assert.Equal(t, int64(1), n)
}

// ── Report worker ─────────────────────────────────────────────────────────────

func TestReportWorker_MailsAndPushes(t *testing.T) {
	tenant := uuid.New()
	dir := t.TempDir()
	mailer := &stubMailer{}
	pusher := &stubPusher{status: map[string]int{"https://push.example/gone": http.StatusGone}}
	subs := &stubSubscriptions{subs: []model.PushSubscription{
		{FuelPumpID: tenant, Endpoint: "https://push.example/ok"},
		{FuelPumpID: tenant, Endpoint: "https://push.example/gone"},
		{FuelPumpID: uuid.New(), Endpoint: "https://push.example/other-tenant"},
	}}
	w := NewReportWorker(ReportWorkerConfig{
		Mailer:        mailer,
		ReportEmail:   "owner@example.com",
		Pusher:        pusher,
		Subscriptions: subs,
		StoragePath:   dir,
	})

	payload := samplePayload(tenant)
	raw, _ := json.Marshal(payload)
	require.NoError(t, w.Process(context.Background(), raw))

	assert.Equal(t, 1, mailer.calls)
	assert.Equal(t, "owner@example.com", mailer.to)
	assert.Equal(t, filepath.Join(dir, "shift_"+payload.ShiftID+".pdf"), mailer.pdf)
	_, err := os.Stat(mailer.pdf)
	assert.NoError(t, err)

	assert.ElementsMatch(t, []string{"https://push.example/ok", "https://push.example/gone"}, pusher.endpoints)
	assert.Equal(t, []string{"https://push.example/gone"}, subs.deleted)
}

func TestReportWorker_MailFailureIsReturned(t *testing.T) {
	retryBaseDelay = time.Millisecond
	t.Cleanup(func() { retryBaseDelay = time.Second })

	mailer := &stubMailer{err: errors.New("relay refused")}
	w := NewReportWorker(ReportWorkerConfig{Mailer: mailer, ReportEmail: "owner@example.com", StoragePath: t.TempDir()})

	raw, _ := json.Marshal(samplePayload(uuid.New()))
	err := w.Process(context.Background(), raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay refused")
	assert.Equal(t, maxMailAttempts, mailer.calls)
}

func TestReportWorker_NoDeliveryConfigured(t *testing.T) {
	w := NewReportWorker(ReportWorkerConfig{StoragePath: t.TempDir()})
	raw, _ := json.Marshal(samplePayload(uuid.New()))
	assert.NoError(t, w.Process(context.Background(), raw))
}
