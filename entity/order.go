// Package entity defines data models for the checkout page integration service.
package entity

import "time"

// Order status values as maintained by the commerce platform.
const (
	OrderStatusCreated   = "created"
	OrderStatusFailed    = "failed"
	OrderStatusCompleted = "completed"
)

// Payment status values of an order.
const (
	PaymentStatusNotPaid = "not_paid"
	PaymentStatusPaid    = "paid"
)

// MethodGiftCertificate is the payment method id reserved for gift
// certificate redemptions; it never carries the gateway payment type.
const MethodGiftCertificate = "GIFT_CERTIFICATE"

// Address holds a billing or shipping address of an order.
type Address struct {
	FirstName   string `json:"first_name" bson:"first_name"`
	LastName    string `json:"last_name" bson:"last_name"`
	Address1    string `json:"address1" bson:"address1"`
	Address2    string `json:"address2" bson:"address2"`
	City        string `json:"city" bson:"city"`
	PostalCode  string `json:"postal_code" bson:"postal_code"`
	StateCode   string `json:"state_code" bson:"state_code"`
	CountryCode string `json:"country_code" bson:"country_code"`
	Phone       string `json:"phone" bson:"phone"`
}

// Shipment holds the shipping address and the shipping costs of an order.
// The cost totals are the adjusted values after promotions.
type Shipment struct {
	ShippingAddress Address  `json:"shipping_address" bson:"shipping_address"`
	ShippingMethod  string   `json:"shipping_method" bson:"shipping_method"`
	ShippingItem    LineItem `json:"shipping_item" bson:"shipping_item"`
	GrossPrice      float64  `json:"gross_price" bson:"gross_price"`
	NetPrice        float64  `json:"net_price" bson:"net_price"`
	Tax             float64  `json:"tax" bson:"tax"`
}

// PaymentInstrument is one payment record attached to an order. An order may
// carry several instruments (gift certificates plus one regular method); the
// first non-gift-certificate instrument defines the gateway payment type.
type PaymentInstrument struct {
	Method                    string             `json:"method" bson:"method"`
	CreditCardType            string             `json:"credit_card_type" bson:"credit_card_type"`
	CreditCardHolder          string             `json:"credit_card_holder" bson:"credit_card_holder"`
	CreditCardExpirationMonth int                `json:"credit_card_expiration_month" bson:"credit_card_expiration_month"`
	CreditCardExpirationYear  int                `json:"credit_card_expiration_year" bson:"credit_card_expiration_year"`
	Transaction               PaymentTransaction `json:"transaction" bson:"transaction"`
}

// Order is the platform-owned order record. The service reads it for request
// building and mutates only the status fields, the gateway order number and
// the payment transaction attributes.
type Order struct {
	OrderNo                  string              `json:"order_no" bson:"order_no"`
	CustomerEmail            string              `json:"customer_email" bson:"customer_email"`
	LocaleID                 string              `json:"locale_id" bson:"locale_id"`
	Currency                 string              `json:"currency" bson:"currency"`
	TotalGrossPrice          float64             `json:"total_gross_price" bson:"total_gross_price"`
	Status                   string              `json:"status" bson:"status"`
	PaymentStatus            string              `json:"payment_status" bson:"payment_status"`
	GatewayOrderNo           string              `json:"gateway_order_no" bson:"gateway_order_no"`
	BillingAddress           Address             `json:"billing_address" bson:"billing_address"`
	DefaultShipment          Shipment            `json:"default_shipment" bson:"default_shipment"`
	ProductLineItems         []LineItem          `json:"product_line_items" bson:"product_line_items"`
	GiftCertificateLineItems []LineItem          `json:"gift_certificate_line_items" bson:"gift_certificate_line_items"`
	PaymentInstruments       []PaymentInstrument `json:"payment_instruments" bson:"payment_instruments"`
	TimeCreated              time.Time           `json:"time_created" bson:"time_created"`
}

// NonGiftInstrument returns the first payment instrument which is not a gift
// certificate. The gateway payment type is read from this instrument, so an
// order without one cannot be sent to the hosted payment page.
func (o *Order) NonGiftInstrument() *PaymentInstrument {
	for i := range o.PaymentInstruments {
		if o.PaymentInstruments[i].Method != MethodGiftCertificate {
			return &o.PaymentInstruments[i]
		}
	}
	return nil
}

// InstrumentByMethod returns the first payment instrument created with the
// given payment method id.
func (o *Order) InstrumentByMethod(methodId string) *PaymentInstrument {
	for i := range o.PaymentInstruments {
		if o.PaymentInstruments[i].Method == methodId {
			return &o.PaymentInstruments[i]
		}
	}
	return nil
}

// BasketLineItems returns the billable entries of the order in the sequence
// the gateway expects: merchandise first, then gift certificates, then the
// shipping entry when its gross total is positive. Gift certificate and
// shipping entries always count as quantity one.
func (o *Order) BasketLineItems() []LineItem {
	items := make([]LineItem, 0, len(o.ProductLineItems)+len(o.GiftCertificateLineItems)+1)
	for _, item := range o.ProductLineItems {
		item.Kind = LineItemMerchandise
		items = append(items, item)
	}
	for _, item := range o.GiftCertificateLineItems {
		item.Kind = LineItemGiftCertificate
		item.Quantity = 1
		items = append(items, item)
	}
	if o.DefaultShipment.GrossPrice > 0 {
		shipping := o.DefaultShipment.ShippingItem
		shipping.Kind = LineItemShipping
		shipping.Quantity = 1
		shipping.GrossAmount = o.DefaultShipment.GrossPrice
		shipping.NetAmount = o.DefaultShipment.NetPrice
		shipping.TaxAmount = o.DefaultShipment.Tax
		items = append(items, shipping)
	}
	return items
}
