// Package dispatch relays in-scope call events to the call log and the
// alert channels.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"call-relay/internal/engine"
	"call-relay/internal/event"
	"call-relay/internal/observability"
)

// TimeLayout is how call times are written to the log and the alert.
const TimeLayout = "2006-01-02 15:04:05 UTC"

const defaultTimeout = 10 * time.Second

var ErrOutOfScope = errors.New("verdict is out of scope")

// LogSink is the system of record for relayed calls.
type LogSink interface {
	Name() string
	Append(ctx context.Context, at, callerID, label string) error
	// Link points a reader at the log, used in alerts.
	Link() string
}

// Alert is what an AlertSink is told about a logged call.
type Alert struct {
	CallerID     string `json:"callerId"`
	Time         string `json:"time"`
	Label        string `json:"label"`
	CampaignName string `json:"campaignName"`
	Link         string `json:"link"`
}

type AlertSink interface {
	Name() string
	Notify(ctx context.Context, a Alert) error
}

// Result aggregates the outcome of one dispatch. Only LogErr is fatal to
// the request; alert errors are informational.
type Result struct {
	ID     string
	Time   string
	Logged bool
	LogErr error
	Alerts map[string]error
}

type Dispatcher struct {
	log     LogSink
	alerts  []AlertSink
	timeout time.Duration
	link    string
	now     func() time.Time
}

type Option func(*Dispatcher)

// WithTimeout bounds every downstream call.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithLink overrides the log link sent in alerts.
func WithLink(link string) Option { return func(d *Dispatcher) { d.link = link } }

func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

func New(logSink LogSink, alerts []AlertSink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:     logSink,
		alerts:  alerts,
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) LogSinkName() string { return d.log.Name() }

func (d *Dispatcher) AlertSinkNames() []string {
	out := make([]string, 0, len(d.alerts))
	for _, a := range d.alerts {
		out = append(out, a.Name())
	}
	return out
}

// Dispatch appends the call to the log and, only if that worked, notifies
// every alert sink. Cancellation of ctx is ignored; each call is bounded
// by the dispatcher timeout instead.
func (d *Dispatcher) Dispatch(ctx context.Context, v engine.Verdict, ev event.NormalizedEvent) Result {
	res := Result{
		ID:     uuid.NewString(),
		Time:   d.now().UTC().Format(TimeLayout),
		Alerts: map[string]error{},
	}
	if !v.InScope {
		res.LogErr = ErrOutOfScope
		return res
	}
	base := context.WithoutCancel(ctx)
	logger := log.With().
		Str("dispatch_id", res.ID).
		Str("caller_id", ev.CallerID).
		Str("label", string(v.Label)).
		Logger()

	if err := d.call(base, d.log.Name(), func(c context.Context) error {
		return d.log.Append(c, res.Time, ev.CallerID, string(v.Label))
	}); err != nil {
		res.LogErr = fmt.Errorf("append to %s: %w", d.log.Name(), err)
		logger.Error().Err(err).Str("sink", d.log.Name()).Msg("call log append failed; skipping alerts")
		return res
	}
	res.Logged = true

	link := d.link
	if link == "" {
		link = d.log.Link()
	}
	alert := Alert{
		CallerID:     ev.CallerID,
		Time:         res.Time,
		Label:        string(v.Label),
		CampaignName: ev.CampaignName,
		Link:         link,
	}
	for _, s := range d.alerts {
		s := s
		err := d.call(base, s.Name(), func(c context.Context) error { return s.Notify(c, alert) })
		res.Alerts[s.Name()] = err
		if err != nil {
			logger.Warn().Err(err).Str("sink", s.Name()).Msg("alert failed")
		}
	}

	logger.Info().Msg("call relayed")
	return res
}

func (d *Dispatcher) call(ctx context.Context, sink string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	errc := make(chan error, 1)
	go func() { errc <- fn(ctx) }()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = fmt.Errorf("%s timed out after %s: %w", sink, d.timeout, ctx.Err())
	}
	observability.ObserveSink(sink, err, time.Since(start))
	return err
}
