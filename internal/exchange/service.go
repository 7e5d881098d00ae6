// Package exchange carries the rate publisher contract over gRPC: a single
// server-streaming Subscribe method exchanging JSON encoded messages.
package exchange

import (
	"context"

	"github.com/Krchnk/gw-bank/internal/currency"
	"google.golang.org/grpc"
)

const (
	ServiceName     = "exchangerates.ExchangeRatesService"
	subscribeMethod = "/" + ServiceName + "/Subscribe"
)

type Subscription struct {
	BaseCurrency        currency.Currency   `json:"baseCurrency"`
	RequestedCurrencies []currency.Currency `json:"requestedCurrencies"`
}

type Rate struct {
	Currency currency.Currency `json:"currency"`
	Value    float64           `json:"value"`
}

type Update struct {
	Rates []Rate `json:"rates"`
}

// RatesServer is implemented by rate publishers.
type RatesServer interface {
	Subscribe(*Subscription, UpdateSender) error
}

type UpdateSender interface {
	Send(*Update) error
	Context() context.Context
}

type updateSender struct {
	grpc.ServerStream
}

func (s *updateSender) Send(u *Update) error {
	return s.ServerStream.SendMsg(u)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	req := new(Subscription)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(RatesServer).Subscribe(req, &updateSender{stream})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RatesServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "exchange_rates.json",
}

func RegisterRatesServer(s grpc.ServiceRegistrar, srv RatesServer) {
	s.RegisterService(&serviceDesc, srv)
}
