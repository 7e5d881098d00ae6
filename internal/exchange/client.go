package exchange

import (
	"context"
	"fmt"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/Krchnk/gw-bank/internal/rates"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial prepares a lazy connection to the publisher; nothing is dialed until
// the first subscription.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("exchange rates client for %s: %w", addr, err)
	}
	return conn, nil
}

// Client subscribes to a rate publisher. It satisfies rates.Source.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Subscribe(ctx context.Context, base currency.Currency, wanted []currency.Currency) (rates.Stream, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], subscribeMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}

	req := &Subscription{BaseCurrency: base, RequestedCurrencies: wanted}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &updateStream{stream: stream}, nil
}

type updateStream struct {
	stream grpc.ClientStream
}

func (s *updateStream) Recv() ([]rates.Quote, error) {
	update := new(Update)
	if err := s.stream.RecvMsg(update); err != nil {
		return nil, err
	}

	quotes := make([]rates.Quote, 0, len(update.Rates))
	for _, r := range update.Rates {
		if !r.Currency.Valid() {
			continue
		}
		quotes = append(quotes, rates.Quote{Currency: r.Currency, Value: r.Value})
	}
	return quotes, nil
}
