package entity

// PaymentMethod holds the site-level configuration of one payment method as
// maintained by the merchant: the gateway payment type plus the per-method
// control flags of the hosted page protocol.
type PaymentMethod struct {
	ID                 string `json:"id" bson:"id"`
	PaymentType        string `json:"payment_type" bson:"payment_type"`
	SubmitShippingData bool   `json:"submit_shipping_data" bson:"submit_shipping_data"`
	SubmitBillingData  bool   `json:"submit_billing_data" bson:"submit_billing_data"`
	UpdateShippingData bool   `json:"update_shipping_data" bson:"update_shipping_data"`
	AutoDeposit        bool   `json:"auto_deposit" bson:"auto_deposit"`
	// MaxRetries is sent as "-1" when not configured.
	MaxRetries *int `json:"max_retries,omitempty" bson:"max_retries"`
}
