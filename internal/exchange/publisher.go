package exchange

import (
	"context"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/sirupsen/logrus"
)

// ReferenceCurrency is the currency every published rate is stored against.
const ReferenceCurrency = currency.EUR

const subscriberBuffer = 16

// DefaultRates seed a new Publisher.
func DefaultRates() map[currency.Currency]float64 {
	return map[currency.Currency]float64{
		currency.EUR: 1.0000,
		currency.USD: 1.1155,
		currency.GBP: 0.85785,
		currency.PLN: 4.2853,
	}
}

// Publisher simulates a rate publishing service. Subscribers first receive
// every requested rate, then only the rates that changed.
type Publisher struct {
	log logrus.FieldLogger

	mu     sync.Mutex
	rates  map[currency.Currency]float64
	subs   map[*subscriber]struct{}
	random *rand.Rand
}

type subscriber struct {
	req     *Subscription
	updates chan *Update
}

func NewPublisher(initial map[currency.Currency]float64, logger logrus.FieldLogger) *Publisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := make(map[currency.Currency]float64, len(initial))
	for c, v := range initial {
		r[c] = v
	}
	return &Publisher{
		log:    logger.WithField("component", "rate_publisher"),
		rates:  r,
		subs:   make(map[*subscriber]struct{}),
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Publisher) Subscribe(req *Subscription, out UpdateSender) error {
	sub := &subscriber{req: req, updates: make(chan *Update, subscriberBuffer)}

	p.mu.Lock()
	initial := p.updateFor(req, nil)
	p.subs[sub] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.subs, sub)
		p.mu.Unlock()
	}()

	p.log.WithFields(logrus.Fields{
		"base":       req.BaseCurrency,
		"currencies": req.RequestedCurrencies,
	}).Info("new subscription")

	if initial != nil {
		if err := out.Send(initial); err != nil {
			return err
		}
	}

	ctx := out.Context()
	for {
		select {
		case <-ctx.Done():
			p.log.Info("subscription closed")
			return nil
		case u := <-sub.updates:
			if err := out.Send(u); err != nil {
				return err
			}
		}
	}
}

// SetRate overrides one rate and pushes it to interested subscribers.
func (p *Publisher) SetRate(c currency.Currency, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates[c] = value
	p.broadcast([]currency.Currency{c})
}

// Simulate moves each rate except the reference one with the given
// probability by at most maxChange in either direction.
func (p *Publisher) Simulate(probability, maxChange float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var changed []currency.Currency
	for c := range p.rates {
		if c == ReferenceCurrency || p.random.Float64() > probability {
			continue
		}
		change := maxChange * (p.random.Float64()*2 - 1)
		p.rates[c] += change
		changed = append(changed, c)

		p.log.WithFields(logrus.Fields{
			"currency": c,
			"rate":     p.rates[c],
			"change":   change,
		}).Info("rate changed")
	}
	p.broadcast(changed)
}

// Run simulates rate changes every interval until ctx is done.
func (p *Publisher) Run(ctx context.Context, interval time.Duration, probability, maxChange float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Simulate(probability, maxChange)
		}
	}
}

func (p *Publisher) broadcast(changed []currency.Currency) {
	if len(changed) == 0 {
		return
	}
	for sub := range p.subs {
		u := p.updateFor(sub.req, changed)
		if u == nil {
			continue
		}
		select {
		case sub.updates <- u:
		default:
			p.log.WithField("base", sub.req.BaseCurrency).Warn("subscriber is too slow, dropping update")
		}
	}
}

// updateFor builds the update for one subscription. A nil filter means every
// requested currency. Must be called with p.mu held.
func (p *Publisher) updateFor(req *Subscription, filter []currency.Currency) *Update {
	base, ok := p.rates[req.BaseCurrency]
	if !ok || base == 0 {
		return nil
	}

	update := &Update{}
	for _, c := range req.RequestedCurrencies {
		if filter != nil && !slices.Contains(filter, c) {
			continue
		}
		v, ok := p.rates[c]
		if !ok {
			continue
		}
		update.Rates = append(update.Rates, Rate{
			Currency: c,
			Value:    p.rates[ReferenceCurrency] / base * v,
		})
	}
	if len(update.Rates) == 0 {
		return nil
	}
	return update
}
