package worker

// report_worker.go
// Processes shift_report jobs: renders the closing PDF, mails it to the
// station's report address and notifies subscribed browsers via Web Push.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fuelpump/internal/dto"
	"fuelpump/internal/infra"
	"fuelpump/internal/repository"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxMailAttempts = 3

// ReportMailer sends the rendered report. *infra.Mailer satisfies it.
type ReportMailer interface {
	SendReport(to, subject, body, pdfPath string) error
}

// ReportWorkerConfig wires the report worker. Mailer and Pusher are optional.
type ReportWorkerConfig struct {
	Mailer        ReportMailer
	ReportEmail   string
	Pusher        infra.PushSender
	PushOptions   *webpush.Options
	Subscriptions repository.PushSubscriptionRepository
	Breaker       *infra.Breaker
	StoragePath   string
}

type ReportWorker struct {
	cfg ReportWorkerConfig
}

func NewReportWorker(cfg ReportWorkerConfig) *ReportWorker {
	if cfg.Breaker == nil {
		cfg.Breaker = infra.NewBreaker(infra.BreakerConfig{Name: "smtp"})
	}
	return &ReportWorker{cfg: cfg}
}

type pushMessage struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	ShiftID string `json:"shift_id"`
	Flagged bool   `json:"flagged"`
}

// Process renders and delivers one report. Only PDF and mail failures are
// returned; push failures are logged per subscription.
func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload dto.ShiftReportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return nil
	}

	pdfPath, err := infra.GenerateShiftReportPDF(&payload, w.cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	log.Info().Str("shift_id", payload.ShiftID).Str("path", pdfPath).Msg("report_worker: PDF generated")

	if w.cfg.Mailer != nil && w.cfg.ReportEmail != "" {
		subject := fmt.Sprintf("Shift closed: pump %s (%s)", payload.PumpID, payload.ShiftType)
		body := reportSummary(&payload)
		err := withRetry(ctx, maxMailAttempts, func(int) error {
			return w.cfg.Breaker.Do(func() error {
				return w.cfg.Mailer.SendReport(w.cfg.ReportEmail, subject, body, pdfPath)
			})
		})
		if err != nil {
			return fmt.Errorf("mail report: %w", err)
		}
		log.Info().Str("to", w.cfg.ReportEmail).Str("shift_id", payload.ShiftID).Msg("report_worker: report mailed")
	}

	w.notify(ctx, &payload)
	return nil
}

func (w *ReportWorker) notify(ctx context.Context, p *dto.ShiftReportPayload) {
	if w.cfg.Pusher == nil || w.cfg.Subscriptions == nil {
		return
	}
	tenant, err := uuid.Parse(p.FuelPumpID)
	if err != nil {
		log.Warn().Str("fuel_pump_id", p.FuelPumpID).Msg("report_worker: bad tenant id, push skipped")
		return
	}
	subs, err := w.cfg.Subscriptions.ListByFuelPump(ctx, tenant)
	if err != nil {
		log.Error().Err(err).Msg("report_worker: list push subscriptions failed")
		return
	}

	msg := pushMessage{
		Title:   "Shift closed",
		Body:    fmt.Sprintf("%s closed pump %s, difference %s", p.StaffName, p.PumpID, p.Reconciliation.Difference.StringFixed(2)),
		ShiftID: p.ShiftID,
		Flagged: p.Reconciliation.Flagged,
	}
	data, _ := json.Marshal(msg)

	for _, sub := range subs {
		resp, err := w.cfg.Pusher.Send(data, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, w.cfg.PushOptions)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("report_worker: push failed")
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
			if err := w.cfg.Subscriptions.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("report_worker: stale subscription not removed")
			}
			continue
		}
		if resp.StatusCode >= 300 {
			log.Warn().Int("status", resp.StatusCode).Str("endpoint", sub.Endpoint).Msg("report_worker: push rejected")
		}
	}
}

func reportSummary(p *dto.ShiftReportPayload) string {
	s := fmt.Sprintf("Attendant: %s\nPump: %s\nShift: %s → %s\n\n", p.StaffName, p.PumpID, p.StartTime, p.EndTime)
	s += fmt.Sprintf("Litres dispensed: %s\nTotal sales: %s\n", p.Usage.TotalLiters.String(), p.Sales.TotalSales.StringFixed(2))
	s += fmt.Sprintf("Expected cash: %s\nCash counted: %s\nDifference: %s\n",
		p.Reconciliation.ExpectedCash.StringFixed(2),
		p.Reconciliation.CashRemaining.StringFixed(2),
		p.Reconciliation.Difference.StringFixed(2))
	if p.Reconciliation.Flagged {
		s += "\nThe cash difference exceeds the allowed threshold.\n"
	}
	return s
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * retryBaseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

var retryBaseDelay = time.Second
