package internal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qenta-cee/demandware-wcp/config"
	"github.com/qenta-cee/demandware-wcp/entity"
	"github.com/qenta-cee/demandware-wcp/services"
)

// Checkout implements the hosted payment page protocol: it builds signed
// redirect requests for orders and processes the gateway return calls,
// driving the order through its payment state transitions.
type Checkout struct {
	conf     *config.Config
	database services.Database
	logger   services.LogHandler
	now      func() time.Time
}

func NewCheckout(conf *config.Config) *Checkout {
	return &Checkout{
		conf: conf,
		now:  time.Now,
	}
}

func (c *Checkout) SetDatabase(database services.Database) {
	c.database = database
}

func (c *Checkout) SetLogger(logger services.LogHandler) {
	c.logger = logger
}

// BuildRequest assembles the full signed parameter set for redirecting an
// order to the hosted payment page. The order is resolved through the
// number/email/postal-code triple; a payment method besides gift
// certificates is mandatory because the gateway payment type is read from it.
func (c *Checkout) BuildRequest(ctx context.Context, orderNo, email, postalCode string) (*entity.RequestParams, error) {
	if c.database == nil {
		return nil, fmt.Errorf("database not set")
	}
	if c.conf.Gateway.Secret == "" || c.conf.Gateway.CustomerId == "" {
		return nil, fmt.Errorf("gateway not configured")
	}

	order, err := c.database.GetOrder(ctx, orderNo, email, postalCode)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %v", orderNo, err)
	}

	instrument := order.NonGiftInstrument()
	if instrument == nil {
		return nil, fmt.Errorf("order %s has no payment method besides gift certificates", orderNo)
	}
	method, err := c.database.GetPaymentMethod(ctx, instrument.Method)
	if err != nil {
		return nil, fmt.Errorf("get payment method %s: %v", instrument.Method, err)
	}

	c.logger.Warn(fmt.Sprintf("prepare gateway call parameters for order %s; payment type: %s",
		order.OrderNo, method.PaymentType))

	builder := &requestBuilder{conf: c.conf, now: c.now}
	return builder.build(order, method)
}

// HandleReturn processes one inbound gateway notification. The raw call is
// persisted first so the audit trail is complete even when processing fails.
func (c *Checkout) HandleReturn(ctx context.Context, notification *entity.Notification) error {
	if c.database == nil {
		return fmt.Errorf("database not set")
	}
	if err := c.database.SaveNotification(ctx, notification); err != nil {
		c.logger.Error("save notification", err)
	}

	switch notification.Channel {
	case entity.ChannelConfirm:
		return c.confirm(ctx, notification)
	case entity.ChannelSuccess, entity.ChannelPending:
		_, err := c.completePayment(ctx, notification)
		return err
	case entity.ChannelCancel, entity.ChannelFailure, entity.ChannelService:
		return c.resetOrder(ctx, notification)
	default:
		return fmt.Errorf("unknown return channel: %s", notification.Channel)
	}
}

// confirm handles the authoritative server-to-server callback. Only this
// channel may advance the payment status to paid.
func (c *Checkout) confirm(ctx context.Context, notification *entity.Notification) error {
	state := notification.PaymentState()
	switch state {
	case entity.PaymentStateSuccess:
		_, err := c.completePayment(ctx, notification)
		if pendingErr := c.completePendingPayment(ctx, notification); pendingErr != nil {
			c.logger.Error("complete pending payment", pendingErr)
			if err == nil {
				err = pendingErr
			}
		}
		return err
	case entity.PaymentStateFailure:
		return c.completePendingPayment(ctx, notification)
	case entity.PaymentStatePending:
		c.logger.Info(fmt.Sprintf("pending confirm received for order %s", notification.OrderNo()))
		return nil
	default:
		return fmt.Errorf("invalid payment state received: %s", state)
	}
}

// completePayment validates the notification and places the order. Payment
// status advances to paid only on the confirm channel with state SUCCESS; the
// browser-driven success and pending channels place the order without paying
// it. A replayed notification for an already placed order is a no-op.
func (c *Checkout) completePayment(ctx context.Context, notification *entity.Notification) (*entity.Order, error) {
	order, err := c.database.GetOrder(ctx, notification.OrderNo(), notification.Email(), notification.PostalCode())
	if err != nil {
		c.logger.Warn(fmt.Sprintf("%s return: order %s not found", notification.Channel, notification.OrderNo()))
		return nil, fmt.Errorf("get order %s: %v", notification.OrderNo(), err)
	}

	switch order.Status {
	case entity.OrderStatusCreated:
		// only a created order may be completed
	case entity.OrderStatusFailed:
		return order, fmt.Errorf("order %s already failed", order.OrderNo)
	default:
		c.logger.Info(fmt.Sprintf("order %s already placed, ignoring %s return", order.OrderNo, notification.Channel))
		return order, nil
	}

	if !c.validateResponse(order, notification) {
		if err := c.failOrder(ctx, order); err != nil {
			c.logger.Error(fmt.Sprintf("fail order %s", order.OrderNo), err)
		}
		return order, fmt.Errorf("response validation failed for order %s", order.OrderNo)
	}

	instrument := order.InstrumentByMethod(notification.PaymentMethodID())
	if instrument == nil {
		return order, fmt.Errorf("order %s has no payment instrument for method %s",
			order.OrderNo, notification.PaymentMethodID())
	}

	method, err := c.database.GetPaymentMethod(ctx, instrument.Method)
	if err != nil {
		c.logger.Error(fmt.Sprintf("get payment method %s", instrument.Method), err)
		method = nil
	}

	c.setPaymentParameters(order, instrument, method, notification)
	c.setPaymentStatus(order, notification)
	order.Status = entity.OrderStatusCompleted

	if err := c.database.UpdateOrder(ctx, order); err != nil {
		// the stored order still says created; nothing was partially applied
		return order, fmt.Errorf("place order %s: %v", order.OrderNo, err)
	}

	c.logger.Warn(fmt.Sprintf("order %s placed after %s return", order.OrderNo, notification.Channel))
	return order, nil
}

// validateResponse checks the declared amount and the response fingerprint.
// The amount check is skipped for PENDING, where the final amount is not yet
// authorized. A mismatch of either kind is treated as a fraud signal: it is
// logged at the highest severity and the order is not completed.
func (c *Checkout) validateResponse(order *entity.Order, notification *entity.Notification) bool {
	secret := c.conf.Gateway.Secret

	c.logger.Debug("validate payment amount against order amount")
	orderAmount := formatAmount(order.TotalGrossPrice)
	gatewayAmount := notification.Amount()
	if value, err := strconv.ParseFloat(gatewayAmount, 64); err == nil {
		gatewayAmount = formatAmount(value)
	}

	if notification.PaymentState() != entity.PaymentStatePending && gatewayAmount != orderAmount {
		c.logger.Fatal(fmt.Sprintf(
			"fatal error or fraud: different order amount was authorized at the gateway; gateway amount: %s; order amount: %s; order %s",
			gatewayAmount, orderAmount, order.OrderNo))
		return false
	}

	fingerprintOrder := notification.FingerprintOrder()
	var seed strings.Builder
	for _, name := range strings.Split(fingerprintOrder, ",") {
		switch name {
		case "secret":
			seed.WriteString(secret)
		case "senderBankName":
			// the gateway may pad this parameter with whitespace, so the raw
			// value goes into the seed
			seed.WriteString(notification.Raw(name))
		default:
			seed.WriteString(notification.Get(name))
		}
	}

	c.logger.Warn(fmt.Sprintf("validate the response fingerprint for order %s; fingerprint order: %s",
		order.OrderNo, fingerprintOrder))

	computed := Fingerprint(seed.String(), secret)
	if VerifyFingerprint(computed, notification.Fingerprint()) {
		c.logger.Debug("fingerprint validation successful")
		return true
	}

	c.logger.Fatal(fmt.Sprintf(
		"fatal error or fraud: fingerprint validation failed and the order will not be completed; calculated: %s; received: %s; order %s",
		computed, notification.Fingerprint(), order.OrderNo))
	return false
}

// setPaymentStatus advances the payment status to paid, but only for the
// confirm channel with a successful payment state. The browser redirect is
// not trusted to finalize payment because it can be spoofed or interrupted.
func (c *Checkout) setPaymentStatus(order *entity.Order, notification *entity.Notification) {
	if notification.Channel == entity.ChannelConfirm && notification.PaymentState() == entity.PaymentStateSuccess {
		c.logger.Warn(fmt.Sprintf("set payment status to paid for order %s", order.OrderNo))
		order.PaymentStatus = entity.PaymentStatusPaid
	}
}

// setPaymentParameters stores the gateway response attributes at the payment
// instrument. The payment type selects which extra fields are mapped; an
// unknown type maps nothing and is not an error.
func (c *Checkout) setPaymentParameters(order *entity.Order, instrument *entity.PaymentInstrument,
	method *entity.PaymentMethod, notification *entity.Notification) {

	transaction := &instrument.Transaction
	transaction.TransactionID = notification.GatewayOrderNo()
	order.GatewayOrderNo = notification.GatewayOrderNo()

	c.logger.Warn(fmt.Sprintf("set all payment parameters to order %s", order.OrderNo))

	transaction.FinancialInstitution = notification.Get("financialInstitution")
	transaction.GatewayReferenceNumber = notification.Get("gatewayReferenceNumber")
	transaction.GatewayContractNumber = notification.Get("gatewayContractNumber")
	transaction.PaymentState = notification.PaymentState()

	paymentType := notification.Get("paymentType")
	transaction.PaymentType = paymentType

	switch paymentType {
	case entity.PaymentTypeCreditCard:
		transaction.MaskedPan = notification.Get("maskedPan")
		if notification.Submitted("financialInstitution") {
			instrument.CreditCardType = notification.Get("financialInstitution")
		}
		if notification.Submitted("cardholder") {
			instrument.CreditCardHolder = notification.Get("cardholder")
		}
		if notification.Submitted("expiry") {
			expiry := strings.Split(notification.Get("expiry"), "/")
			if month, err := strconv.Atoi(expiry[0]); err == nil {
				instrument.CreditCardExpirationMonth = month
			}
			if len(expiry) > 1 {
				if year, err := strconv.Atoi(expiry[1]); err == nil {
					instrument.CreditCardExpirationYear = year
				}
			}
		}

	case entity.PaymentTypeIdeal:
		transaction.IdealConsumerName = notification.Get("idealConsumerName")
		transaction.IdealConsumerAccountNumber = notification.Get("idealConsumerAccountNumber")
		transaction.IdealConsumerCity = notification.Get("idealConsumerCity")

	case entity.PaymentTypePaypal:
		transaction.PaypalPayerID = notification.Get("paypalPayerID")
		transaction.PaypalPayerEmail = notification.Get("paypalPayerEmail")
		transaction.PaypalPayerLastName = notification.Get("paypalPayerLastName")
		transaction.PaypalPayerFirstName = notification.Get("paypalPayerFirstName")

		if method != nil && method.UpdateShippingData {
			c.updateShippingFromPaypal(order, notification)
		}

	case entity.PaymentTypeSofort:
		transaction.SenderAccountNumber = notification.Get("senderAccountNumber")
		transaction.SenderAccountOwner = notification.Get("senderAccountOwner")
		transaction.SenderBankNumber = notification.Get("senderBankNumber")
		transaction.SenderBankName = notification.Get("senderBankName")
		transaction.SenderBIC = notification.Get("senderBIC")
		transaction.SenderIBAN = notification.Get("senderIBAN")
		transaction.SenderCountry = notification.Get("senderCountry")
		transaction.SecurityCriteria = notification.Get("securityCriteria")
	}
}

// updateShippingFromPaypal overwrites the shipping address with the address
// confirmed by the PayPal payer, when the payment method opts in.
func (c *Checkout) updateShippingFromPaypal(order *entity.Order, notification *entity.Notification) {
	address := &order.DefaultShipment.ShippingAddress

	if notification.Submitted("paypalPayerAddressName") {
		// PayPal returns a single name parameter, split at the first space
		name := strings.SplitN(notification.Get("paypalPayerAddressName"), " ", 2)
		if len(name) > 1 {
			address.FirstName = name[0]
			address.LastName = name[1]
		} else {
			// keep the first name entered during checkout
			address.LastName = name[0]
		}
	}
	if notification.Submitted("paypalPayerAddressCountry") {
		address.CountryCode = notification.Get("paypalPayerAddressCountry")
	}
	if notification.Submitted("paypalPayerAddressCity") {
		address.City = notification.Get("paypalPayerAddressCity")
	}
	if notification.Submitted("paypalPayerAddressState") {
		address.StateCode = notification.Get("paypalPayerAddressState")
	}
	if notification.Submitted("paypalPayerAddressStreet1") {
		address.Address1 = notification.Get("paypalPayerAddressStreet1")
	}
	if notification.Submitted("paypalPayerAddressStreet2") {
		address.Address2 = notification.Get("paypalPayerAddressStreet2")
	}
	if notification.Submitted("paypalPayerAddressZIP") {
		address.PostalCode = notification.Get("paypalPayerAddressZIP")
	}
}

// completePendingPayment resolves a previously recorded PENDING transaction
// state when a follow-up notification arrives on the confirm channel. The
// paid assignment is idempotent, so replays are safe.
func (c *Checkout) completePendingPayment(ctx context.Context, notification *entity.Notification) error {
	order, err := c.database.GetOrder(ctx, notification.OrderNo(), notification.Email(), notification.PostalCode())
	if err != nil {
		return fmt.Errorf("get order %s: %v", notification.OrderNo(), err)
	}

	instrument := order.InstrumentByMethod(notification.PaymentMethodID())
	if instrument == nil {
		return fmt.Errorf("order %s has no payment instrument for method %s",
			order.OrderNo, notification.PaymentMethodID())
	}

	// only a transaction left in the PENDING state has anything to resolve
	if instrument.Transaction.PaymentState != entity.PaymentStatePending {
		return nil
	}

	// the resolving call authorizes the payment, so it is held to the same
	// fingerprint and amount checks as the call that placed the order
	if !c.validateResponse(order, notification) {
		return fmt.Errorf("response validation failed for order %s", order.OrderNo)
	}

	state := notification.PaymentState()
	instrument.Transaction.PaymentState = state

	if state == entity.PaymentStateSuccess && order.PaymentStatus != entity.PaymentStatusPaid {
		c.logger.Warn(fmt.Sprintf("set payment status to paid for order %s", order.OrderNo))
		order.PaymentStatus = entity.PaymentStatusPaid
	}

	return c.database.UpdateOrder(ctx, order)
}

// resetOrder fails the order after a cancel, failure or service return and
// restores the customer's basket when the session has timed out.
func (c *Checkout) resetOrder(ctx context.Context, notification *entity.Notification) error {
	order, err := c.database.GetOrder(ctx, notification.OrderNo(), notification.Email(), notification.PostalCode())
	if err != nil {
		c.logger.Warn(fmt.Sprintf("%s return: order %s not found", notification.Channel, notification.OrderNo()))
		return nil
	}
	return c.failOrder(ctx, order)
}

func (c *Checkout) failOrder(ctx context.Context, order *entity.Order) error {
	if order.Status != entity.OrderStatusFailed {
		order.Status = entity.OrderStatusFailed
		if err := c.database.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("fail order %s: %v", order.OrderNo, err)
		}
		c.logger.Warn(fmt.Sprintf("order %s failed", order.OrderNo))
	}
	c.checkAndRestoreBasket(ctx, order)
	return nil
}

// checkAndRestoreBasket rebuilds the customer's basket from a failed order
// when the current basket is missing or empty, which indicates a session
// timeout during the hosted page redirect. The restore is best effort:
// custom line item attributes are not carried over.
func (c *Checkout) checkAndRestoreBasket(ctx context.Context, order *entity.Order) {
	basket, err := c.database.GetBasket(ctx, order.CustomerEmail)
	if err == nil && basket != nil && !basket.Empty() {
		c.logger.Debug(fmt.Sprintf("basket still present when order %s was failed", order.OrderNo))
		return
	}

	c.logger.Warn(fmt.Sprintf("session timeout detected for order %s, restoring basket", order.OrderNo))

	restored := &entity.Basket{
		CustomerEmail:            order.CustomerEmail,
		ProductLineItems:         append([]entity.LineItem(nil), order.ProductLineItems...),
		GiftCertificateLineItems: append([]entity.LineItem(nil), order.GiftCertificateLineItems...),
		BillingAddress:           order.BillingAddress,
		ShippingAddress:          order.DefaultShipment.ShippingAddress,
		ShippingMethod:           order.DefaultShipment.ShippingMethod,
		TimeUpdated:              c.now(),
	}

	if err := c.database.SaveBasket(ctx, restored); err != nil {
		c.logger.Error(fmt.Sprintf("restore basket for order %s", order.OrderNo), err)
		return
	}
	c.logger.Warn(fmt.Sprintf("basket restored for failed order %s", order.OrderNo))
}
