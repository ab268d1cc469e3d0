package entity

import "time"

// Basket is the customer's active cart. The service only touches it when a
// session timeout is detected after a failed payment: the basket is then
// rebuilt from the failed order so the customer can retry the checkout.
type Basket struct {
	CustomerEmail            string     `json:"customer_email" bson:"customer_email"`
	ProductLineItems         []LineItem `json:"product_line_items" bson:"product_line_items"`
	GiftCertificateLineItems []LineItem `json:"gift_certificate_line_items" bson:"gift_certificate_line_items"`
	BillingAddress           Address    `json:"billing_address" bson:"billing_address"`
	ShippingAddress          Address    `json:"shipping_address" bson:"shipping_address"`
	ShippingMethod           string     `json:"shipping_method" bson:"shipping_method"`
	TimeUpdated              time.Time  `json:"time_updated" bson:"time_updated"`
}

// Empty reports whether the basket carries no billable line items.
func (b *Basket) Empty() bool {
	return len(b.ProductLineItems) == 0 && len(b.GiftCertificateLineItems) == 0
}
