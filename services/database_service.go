package services

import (
	"context"

	"github.com/qenta-cee/demandware-wcp/entity"
)

type Database interface {
	WriteLogMessage(data Data) error

	// GetOrder looks up an order by the number/email/postal-code triple. All
	// three values must match; the triple acts as a lightweight authorization
	// check on gateway return calls.
	GetOrder(ctx context.Context, orderNo, email, postalCode string) (*entity.Order, error)
	// UpdateOrder writes the order status fields, the gateway order number
	// and the payment instruments in one update.
	UpdateOrder(ctx context.Context, order *entity.Order) error

	GetPaymentMethod(ctx context.Context, id string) (*entity.PaymentMethod, error)

	GetBasket(ctx context.Context, customerEmail string) (*entity.Basket, error)
	SaveBasket(ctx context.Context, basket *entity.Basket) error

	SaveNotification(ctx context.Context, notification *entity.Notification) error
}

type Data interface {
	DataType() string
}
