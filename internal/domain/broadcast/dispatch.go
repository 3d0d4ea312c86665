package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ehr/anc/internal/platform/metrics"
)

// ErrNoSender is returned when no gateway is configured.
var ErrNoSender = errors.New("broadcast gateway not configured")

// Sender delivers one message to one phone number.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Item is one queued message.
type Item struct {
	Recipient Recipient `json:"recipient"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Status    Status    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
}

// Queue renders tpl for every recipient as a pending item.
func Queue(tpl string, recipients []Recipient) []Item {
	items := make([]Item, 0, len(recipients))
	for _, r := range recipients {
		msg := Render(tpl, r)
		items = append(items, Item{
			Recipient: r,
			Phone:     NormalizePhone(r.Phone),
			Message:   msg,
			Link:      ManualLink(r.Phone, msg),
			Status:    StatusPending,
		})
	}
	return items
}

// Dispatcher sends queued items one at a time, waiting on a token bucket
// between sends so gateway rate limits are not tripped.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewDispatcher paces sends at rps messages per second. A non-positive
// rps sends without pacing.
func NewDispatcher(sender Sender, rps float64, logger zerolog.Logger) *Dispatcher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Dispatcher{
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("component", "broadcast").Logger(),
	}
}

// Result totals a dispatch.
type Result struct {
	Sent     int           `json:"sent"`
	Failed   int           `json:"failed"`
	Pending  int           `json:"pending"`
	Duration time.Duration `json:"duration_ns"`
	Items    []Item        `json:"items"`
}

// Dispatch sends every pending item and records its outcome in place.
// Items that already carry a status are left alone. When ctx ends, the
// remaining items stay pending.
func (d *Dispatcher) Dispatch(ctx context.Context, group Group, items []Item) Result {
	start := time.Now()
	for i := range items {
		it := &items[i]
		if it.Status != StatusPending {
			continue
		}
		if it.Phone == "" {
			d.fail(group, it, "no phone number")
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			d.logger.Warn().Err(err).Int("remaining", len(items)-i).Msg("broadcast interrupted")
			break
		}
		if err := d.sender.Send(ctx, it.Phone, it.Message); err != nil {
			d.fail(group, it, err.Error())
			continue
		}
		it.Status = StatusSent
		it.Detail = "OK"
		metrics.RecordBroadcast(string(group), string(StatusSent))
	}

	res := Result{Items: items, Duration: time.Since(start)}
	for _, it := range items {
		switch it.Status {
		case StatusSent:
			res.Sent++
		case StatusFailed:
			res.Failed++
		default:
			res.Pending++
		}
	}
	d.logger.Info().
		Str("group", string(group)).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("pending", res.Pending).
		Dur("duration", res.Duration).
		Msg("broadcast finished")
	return res
}

func (d *Dispatcher) fail(group Group, it *Item, detail string) {
	it.Status = StatusFailed
	it.Detail = detail
	metrics.RecordBroadcast(string(group), string(StatusFailed))
	d.logger.Warn().Str("patient_id", it.Recipient.PatientID.String()).Str("detail", detail).Msg("broadcast message failed")
}
