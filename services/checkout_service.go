package services

import (
	"context"

	"github.com/qenta-cee/demandware-wcp/entity"
)

type Checkout interface {
	// BuildRequest assembles the signed parameter set for redirecting an
	// order to the hosted payment page.
	BuildRequest(ctx context.Context, orderNo, email, postalCode string) (*entity.RequestParams, error)
	// HandleReturn processes one inbound gateway notification for the given
	// return channel.
	HandleReturn(ctx context.Context, notification *entity.Notification) error
}
