package entity

import (
	"net/url"
	"strings"
	"time"
)

// Payment states declared by the gateway in a return notification.
const (
	PaymentStateSuccess = "SUCCESS"
	PaymentStateFailure = "FAILURE"
	PaymentStatePending = "PENDING"
	PaymentStateCancel  = "CANCEL"
)

// Names of the return channels the gateway delivers notifications to. Only
// the confirm channel, called server-to-server, is trusted to finalize the
// payment status.
const (
	ChannelSuccess = "success"
	ChannelPending = "pending"
	ChannelCancel  = "cancel"
	ChannelFailure = "failure"
	ChannelConfirm = "confirm"
	ChannelService = "service"
)

// Notification is one inbound gateway call: the return channel it arrived on
// plus the raw query/form parameters. Values are kept unmodified so the
// fingerprint seed can be rebuilt from the raw form where required.
type Notification struct {
	Channel      string     `json:"channel" bson:"channel"`
	TimeReceived time.Time  `json:"time_received" bson:"time_received"`
	Params       url.Values `json:"params" bson:"params"`
}

// NewNotification wraps the parsed request parameters of a gateway call.
func NewNotification(channel string, params url.Values) *Notification {
	return &Notification{
		Channel:      channel,
		TimeReceived: time.Now(),
		Params:       params,
	}
}

// Get returns the trimmed value of a parameter, or an empty string when the
// parameter was not submitted.
func (n *Notification) Get(name string) string {
	return strings.TrimSpace(n.Params.Get(name))
}

// Raw returns the parameter value exactly as received, including any
// surrounding whitespace added by the gateway.
func (n *Notification) Raw(name string) string {
	return n.Params.Get(name)
}

// Submitted reports whether the parameter was present in the call.
func (n *Notification) Submitted(name string) bool {
	_, ok := n.Params[name]
	return ok
}

func (n *Notification) PaymentState() string {
	return n.Get("paymentState")
}

func (n *Notification) Amount() string {
	return n.Get("amount")
}

func (n *Notification) FingerprintOrder() string {
	return n.Get("responseFingerprintOrder")
}

func (n *Notification) Fingerprint() string {
	return n.Get("responseFingerprint")
}

// GatewayOrderNo is the order number assigned by the gateway, echoed back in
// every terminal notification.
func (n *Notification) GatewayOrderNo() string {
	return n.Get("orderNumber")
}

// Echo fields added to the outbound request and returned unchanged; they
// identify and authorize the order lookup.
func (n *Notification) OrderNo() string {
	return n.Get("DWROrderNo")
}

func (n *Notification) Email() string {
	return n.Get("DWREmail")
}

func (n *Notification) PostalCode() string {
	return n.Get("DWRPostalCode")
}

func (n *Notification) PaymentMethodID() string {
	return n.Get("DWRPaymentMethodId")
}
