package exchange

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/Krchnk/gw-bank/internal/rates"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func startPublisher(t *testing.T, pub *Publisher) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterRatesServer(srv, pub)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSubscribeReceivesInitialRatesRelativeToBase(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := NewPublisher(map[currency.Currency]float64{
		currency.EUR: 1,
		currency.USD: 1.2,
		currency.PLN: 4,
	}, logger)
	client := NewClient(startPublisher(t, pub))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Subscribe(ctx, currency.PLN, []currency.Currency{currency.EUR, currency.USD, currency.GBP})
	require.NoError(t, err)

	quotes, err := stream.Recv()
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, currency.EUR, quotes[0].Currency)
	assert.InDelta(t, 0.25, quotes[0].Value, 1e-9)
	assert.Equal(t, currency.USD, quotes[1].Currency)
	assert.InDelta(t, 0.3, quotes[1].Value, 1e-9)
}

func TestSubscribeReceivesOnlyRequestedChanges(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := NewPublisher(DefaultRates(), logger)
	client := NewClient(startPublisher(t, pub))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Subscribe(ctx, currency.EUR, []currency.Currency{currency.GBP})
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.subs) == 1
	}, time.Second, 5*time.Millisecond)

	pub.SetRate(currency.USD, 2)
	pub.SetRate(currency.GBP, 0.9)

	quotes, err := stream.Recv()
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, rates.Quote{Currency: currency.GBP, Value: 0.9}, quotes[0])
}

func TestFeedOverGRPC(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := NewPublisher(DefaultRates(), logger)
	client := NewClient(startPublisher(t, pub))

	table := rates.NewTable()
	feed := rates.NewFeed(client, table, rates.FeedConfig{
		Base:          currency.EUR,
		Currencies:    []currency.Currency{currency.USD, currency.PLN},
		RetryInterval: 10 * time.Millisecond,
		Logger:        logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := table.Get(currency.PLN)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, rates.Streaming, feed.State())

	pub.SetRate(currency.PLN, 4.5)
	require.Eventually(t, func() bool {
		v, err := table.Get(currency.PLN)
		return err == nil && v == 4.5
	}, 2*time.Second, 5*time.Millisecond)

	_, err := table.Get(currency.GBP)
	assert.ErrorIs(t, err, rates.ErrRateUnavailable)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestSimulateKeepsReferenceRate(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := NewPublisher(DefaultRates(), logger)

	for i := 0; i < 20; i++ {
		pub.Simulate(1, 0.2)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, 1.0, pub.rates[ReferenceCurrency])
	assert.NotEqual(t, 4.2853, pub.rates[currency.PLN])
}
