package entity

// Gateway payment types with a dedicated response field mapping. The set is
// open: an unknown type is accepted and simply maps no extra fields.
const (
	PaymentTypeCreditCard = "CCARD"
	PaymentTypeIdeal      = "IDL"
	PaymentTypePaypal     = "PAYPAL"
	PaymentTypeSofort     = "SOFORTUEBERWEISUNG"
)

// PaymentTransaction carries the gateway response attributes stored at the
// payment instrument of an order. Which fields are populated depends on the
// payment type reported by the gateway.
type PaymentTransaction struct {
	TransactionID          string `json:"transaction_id" bson:"transaction_id"`
	PaymentState           string `json:"payment_state" bson:"payment_state"`
	PaymentType            string `json:"payment_type" bson:"payment_type"`
	FinancialInstitution   string `json:"financial_institution" bson:"financial_institution"`
	GatewayReferenceNumber string `json:"gateway_reference_number" bson:"gateway_reference_number"`
	GatewayContractNumber  string `json:"gateway_contract_number" bson:"gateway_contract_number"`

	// CCARD
	MaskedPan string `json:"masked_pan,omitempty" bson:"masked_pan,omitempty"`

	// IDL
	IdealConsumerName          string `json:"ideal_consumer_name,omitempty" bson:"ideal_consumer_name,omitempty"`
	IdealConsumerAccountNumber string `json:"ideal_consumer_account_number,omitempty" bson:"ideal_consumer_account_number,omitempty"`
	IdealConsumerCity          string `json:"ideal_consumer_city,omitempty" bson:"ideal_consumer_city,omitempty"`

	// PAYPAL
	PaypalPayerID        string `json:"paypal_payer_id,omitempty" bson:"paypal_payer_id,omitempty"`
	PaypalPayerEmail     string `json:"paypal_payer_email,omitempty" bson:"paypal_payer_email,omitempty"`
	PaypalPayerFirstName string `json:"paypal_payer_first_name,omitempty" bson:"paypal_payer_first_name,omitempty"`
	PaypalPayerLastName  string `json:"paypal_payer_last_name,omitempty" bson:"paypal_payer_last_name,omitempty"`

	// SOFORTUEBERWEISUNG
	SenderAccountNumber string `json:"sender_account_number,omitempty" bson:"sender_account_number,omitempty"`
	SenderAccountOwner  string `json:"sender_account_owner,omitempty" bson:"sender_account_owner,omitempty"`
	SenderBankNumber    string `json:"sender_bank_number,omitempty" bson:"sender_bank_number,omitempty"`
	SenderBankName      string `json:"sender_bank_name,omitempty" bson:"sender_bank_name,omitempty"`
	SenderBIC           string `json:"sender_bic,omitempty" bson:"sender_bic,omitempty"`
	SenderIBAN          string `json:"sender_iban,omitempty" bson:"sender_iban,omitempty"`
	SenderCountry       string `json:"sender_country,omitempty" bson:"sender_country,omitempty"`
	SecurityCriteria    string `json:"security_criteria,omitempty" bson:"security_criteria,omitempty"`
}
