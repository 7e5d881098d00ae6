package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const DefaultRetryInterval = 5 * time.Second

var errStreamClosed = errors.New("rate stream closed by publisher")

type State int32

const (
	Disconnected State = iota
	Subscribing
	Streaming
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Subscribing:
		return "subscribing"
	case Streaming:
		return "streaming"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Quote is a single (currency, rate) pair of an inbound batch.
type Quote struct {
	Currency currency.Currency
	Value    float64
}

// Source opens subscriptions to a rate publisher.
type Source interface {
	Subscribe(ctx context.Context, base currency.Currency, wanted []currency.Currency) (Stream, error)
}

// Stream yields batches until the subscription breaks. A clean end of stream
// is reported as io.EOF.
type Stream interface {
	Recv() ([]Quote, error)
}

// Observer is notified about feed activity. Implementations must not block.
type Observer interface {
	StateChanged(State)
	RateUpdated(c currency.Currency, value float64)
	Reconnecting(err error)
}

type FeedConfig struct {
	Base          currency.Currency
	Currencies    []currency.Currency
	RetryInterval time.Duration
	Logger        logrus.FieldLogger
	Observer      Observer
}

// Feed keeps a Table up to date from a Source, resubscribing after a fixed
// delay whenever the subscription fails.
type Feed struct {
	source   Source
	table    *Table
	base     currency.Currency
	wanted   []currency.Currency
	retry    time.Duration
	log      logrus.FieldLogger
	observer Observer

	state      atomic.Int32
	reconnects atomic.Int64
}

func NewFeed(source Source, table *Table, cfg FeedConfig) *Feed {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	wanted := make([]currency.Currency, len(cfg.Currencies))
	copy(wanted, cfg.Currencies)

	return &Feed{
		source:   source,
		table:    table,
		base:     cfg.Base,
		wanted:   wanted,
		retry:    cfg.RetryInterval,
		log:      cfg.Logger.WithField("component", "rate_feed"),
		observer: cfg.Observer,
	}
}

func (f *Feed) State() State {
	return State(f.state.Load())
}

// Reconnects reports how many times the subscription was lost and retried.
func (f *Feed) Reconnects() int64 {
	return f.reconnects.Load()
}

// Run blocks until ctx is cancelled and returns the context error. Transport
// failures never end the loop.
func (f *Feed) Run(ctx context.Context) error {
	policy := backoff.WithContext(backoff.NewConstantBackOff(f.retry), ctx)

	err := backoff.RetryNotify(func() error {
		err := f.subscribe(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		f.reconnects.Add(1)
		if f.observer != nil {
			f.observer.Reconnecting(err)
		}
		f.log.WithError(err).WithField("retry_in", wait).Warn("lost connection to exchange rates service")
	})

	f.setState(Disconnected)
	f.log.Info("rate feed stopped")
	return err
}

func (f *Feed) subscribe(ctx context.Context) error {
	f.setState(Subscribing)

	stream, err := f.source.Subscribe(ctx, f.base, f.wanted)
	if err != nil {
		f.setState(Disconnected)
		return fmt.Errorf("subscribe: %w", err)
	}

	f.setState(Streaming)
	f.log.WithFields(logrus.Fields{
		"base":       f.base,
		"currencies": f.wanted,
	}).Info("subscribed to exchange rates service")

	for {
		quotes, err := stream.Recv()
		if err != nil {
			f.setState(Disconnected)
			if errors.Is(err, io.EOF) {
				return errStreamClosed
			}
			return fmt.Errorf("receive: %w", err)
		}

		for _, q := range quotes {
			f.table.Set(q.Currency, q.Value)
			if f.observer != nil {
				f.observer.RateUpdated(q.Currency, q.Value)
			}
			f.log.WithFields(logrus.Fields{
				"currency": q.Currency,
				"rate":     q.Value,
			}).Debug("exchange rate updated")
		}
	}
}

func (f *Feed) setState(s State) {
	if State(f.state.Swap(int32(s))) == s {
		return
	}
	if f.observer != nil {
		f.observer.StateChanged(s)
	}
}
