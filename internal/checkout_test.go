package internal

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qenta-cee/demandware-wcp/entity"
	"github.com/qenta-cee/demandware-wcp/services"
)

// mockDatabase is an in-memory services.Database for state machine tests.
type mockDatabase struct {
	orders        map[string]*entity.Order
	methods       map[string]*entity.PaymentMethod
	baskets       map[string]*entity.Basket
	notifications []*entity.Notification
	logRecords    []services.Data
	updateErr     error
}

func newMockDatabase() *mockDatabase {
	return &mockDatabase{
		orders:  make(map[string]*entity.Order),
		methods: make(map[string]*entity.PaymentMethod),
		baskets: make(map[string]*entity.Basket),
	}
}

func (db *mockDatabase) WriteLogMessage(data services.Data) error {
	db.logRecords = append(db.logRecords, data)
	return nil
}

func (db *mockDatabase) GetOrder(_ context.Context, orderNo, email, postalCode string) (*entity.Order, error) {
	order, ok := db.orders[orderNo]
	if !ok || order.CustomerEmail != email || order.BillingAddress.PostalCode != postalCode {
		return nil, errors.New("order not found")
	}
	copied := *order
	copied.PaymentInstruments = append([]entity.PaymentInstrument(nil), order.PaymentInstruments...)
	return &copied, nil
}

func (db *mockDatabase) UpdateOrder(_ context.Context, order *entity.Order) error {
	if db.updateErr != nil {
		return db.updateErr
	}
	copied := *order
	copied.PaymentInstruments = append([]entity.PaymentInstrument(nil), order.PaymentInstruments...)
	db.orders[order.OrderNo] = &copied
	return nil
}

func (db *mockDatabase) GetPaymentMethod(_ context.Context, id string) (*entity.PaymentMethod, error) {
	method, ok := db.methods[id]
	if !ok {
		return nil, errors.New("payment method not found")
	}
	return method, nil
}

func (db *mockDatabase) GetBasket(_ context.Context, customerEmail string) (*entity.Basket, error) {
	basket, ok := db.baskets[customerEmail]
	if !ok {
		return nil, errors.New("basket not found")
	}
	return basket, nil
}

func (db *mockDatabase) SaveBasket(_ context.Context, basket *entity.Basket) error {
	db.baskets[basket.CustomerEmail] = basket
	return nil
}

func (db *mockDatabase) SaveNotification(_ context.Context, notification *entity.Notification) error {
	db.notifications = append(db.notifications, notification)
	return nil
}

func newTestCheckout(db *mockDatabase) *Checkout {
	checkout := NewCheckout(testConfig())
	checkout.SetDatabase(db)
	checkout.SetLogger(NewLogger("checkout-test", false, nil))
	checkout.now = func() time.Time { return time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC) }
	return checkout
}

func seededDatabase() *mockDatabase {
	db := newMockDatabase()
	db.orders["00001234"] = testOrder()
	db.methods["CREDIT_CARD"] = &entity.PaymentMethod{ID: "CREDIT_CARD", PaymentType: entity.PaymentTypeCreditCard}
	return db
}

// signNotification computes responseFingerprintOrder and responseFingerprint
// over the given field names the way the gateway does.
func signNotification(values url.Values, names []string, secret string) {
	order := strings.Join(names, ",")
	values.Set("responseFingerprintOrder", order)

	var seed strings.Builder
	for _, name := range names {
		if name == "secret" {
			seed.WriteString(secret)
			continue
		}
		seed.WriteString(values.Get(name))
	}
	values.Set("responseFingerprint", Fingerprint(seed.String(), secret))
}

func testNotification(channel, paymentState, amount string) *entity.Notification {
	values := url.Values{}
	values.Set("DWROrderNo", "00001234")
	values.Set("DWREmail", "shopper@example.com")
	values.Set("DWRPostalCode", "1010")
	values.Set("DWRPaymentMethodId", "CREDIT_CARD")
	values.Set("paymentState", paymentState)
	values.Set("amount", amount)
	values.Set("currency", "EUR")
	values.Set("orderNumber", "9000123")
	values.Set("paymentType", "CCARD")
	values.Set("maskedPan", "9451***000016")
	values.Set("financialInstitution", "Visa")
	values.Set("cardholder", "Jane Doe")
	values.Set("expiry", "01/2027")
	signNotification(values, []string{
		"paymentState", "amount", "currency", "paymentType", "orderNumber",
		"secret", "responseFingerprintOrder",
	}, "abc123")
	return entity.NewNotification(channel, values)
}

func TestConfirmSuccessPaysOrder(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelConfirm, "SUCCESS", "49.99"))
	require.NoError(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	assert.Equal(t, entity.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "9000123", order.GatewayOrderNo)

	transaction := order.PaymentInstruments[0].Transaction
	assert.Equal(t, "9000123", transaction.TransactionID)
	assert.Equal(t, "SUCCESS", transaction.PaymentState)
	assert.Equal(t, "CCARD", transaction.PaymentType)
	assert.Equal(t, "9451***000016", transaction.MaskedPan)
	assert.Equal(t, "Visa", order.PaymentInstruments[0].CreditCardType)
	assert.Equal(t, "Jane Doe", order.PaymentInstruments[0].CreditCardHolder)
	assert.Equal(t, 1, order.PaymentInstruments[0].CreditCardExpirationMonth)
	assert.Equal(t, 2027, order.PaymentInstruments[0].CreditCardExpirationYear)

	// the raw inbound call was stored for the audit trail
	require.Len(t, db.notifications, 1)
	assert.Equal(t, entity.ChannelConfirm, db.notifications[0].Channel)
}

func TestSuccessChannelDoesNotPay(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelSuccess, "SUCCESS", "49.99"))
	require.NoError(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	// the browser redirect is not trusted to finalize payment
	assert.Equal(t, entity.PaymentStatusNotPaid, order.PaymentStatus)
}

func TestAmountMismatchFailsOrder(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	// fingerprint is valid over the declared fields, but the declared amount
	// differs from the order total by one cent
	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelConfirm, "SUCCESS", "50.00"))
	require.Error(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.OrderStatusFailed, order.Status)
	assert.Equal(t, entity.PaymentStatusNotPaid, order.PaymentStatus)
}

func TestFingerprintMismatchFailsOrder(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	notification := testNotification(entity.ChannelConfirm, "SUCCESS", "49.99")
	notification.Params.Set("responseFingerprint", strings.Repeat("0", 128))

	err := checkout.HandleReturn(context.Background(), notification)
	require.Error(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.OrderStatusFailed, order.Status)
	assert.Equal(t, entity.PaymentStatusNotPaid, order.PaymentStatus)
}

func TestTamperedValueFailsOrder(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	notification := testNotification(entity.ChannelConfirm, "SUCCESS", "49.99")
	// the order number was signed; changing it after signing must be caught
	notification.Params.Set("orderNumber", "9000999")

	err := checkout.HandleReturn(context.Background(), notification)
	require.Error(t, err)
	assert.Equal(t, entity.OrderStatusFailed, db.orders["00001234"].Status)
}

func TestPendingAmountExemption(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	// a pending notification carries no authorized amount yet, so the amount
	// check is skipped and only the fingerprint decides
	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelPending, "PENDING", "0.00"))
	require.NoError(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	assert.Equal(t, entity.PaymentStatusNotPaid, order.PaymentStatus)
	assert.Equal(t, "PENDING", order.PaymentInstruments[0].Transaction.PaymentState)
}

func TestPendingResolvedByConfirmSuccess(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelPending, "PENDING", "0.00"))
	require.NoError(t, err)

	err = checkout.HandleReturn(context.Background(), testNotification(entity.ChannelConfirm, "SUCCESS", "49.99"))
	require.NoError(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "SUCCESS", order.PaymentInstruments[0].Transaction.PaymentState)
}

func TestForgedConfirmAfterPendingRejected(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	require.NoError(t, checkout.HandleReturn(context.Background(), testNotification(entity.ChannelPending, "PENDING", "0.00")))

	// the resolving confirm must pass the same validation as the placing
	// call, so a forged fingerprint cannot pay the pending order
	forged := testNotification(entity.ChannelConfirm, "SUCCESS", "49.99")
	forged.Params.Set("responseFingerprint", strings.Repeat("f", 128))

	err := checkout.HandleReturn(context.Background(), forged)
	require.Error(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.PaymentStatusNotPaid, order.PaymentStatus)
	assert.Equal(t, "PENDING", order.PaymentInstruments[0].Transaction.PaymentState)
}

func TestForgedAmountAfterPendingRejected(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	require.NoError(t, checkout.HandleReturn(context.Background(), testNotification(entity.ChannelPending, "PENDING", "0.00")))

	// correctly signed, but the authorized amount does not match the order
	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelConfirm, "SUCCESS", "0.01"))
	require.Error(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.PaymentStatusNotPaid, order.PaymentStatus)
	assert.Equal(t, "PENDING", order.PaymentInstruments[0].Transaction.PaymentState)
}

func TestConfirmSuccessIdempotent(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)
	notification := testNotification(entity.ChannelConfirm, "SUCCESS", "49.99")

	require.NoError(t, checkout.HandleReturn(context.Background(), notification))
	// a replayed terminal notification is a safe no-op
	require.NoError(t, checkout.HandleReturn(context.Background(), notification))

	order := db.orders["00001234"]
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	assert.Equal(t, entity.PaymentStatusPaid, order.PaymentStatus)
}

func TestConfirmFailureResolvesPendingState(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	require.NoError(t, checkout.HandleReturn(context.Background(), testNotification(entity.ChannelPending, "PENDING", "0.00")))
	require.NoError(t, checkout.HandleReturn(context.Background(), testNotification(entity.ChannelConfirm, "FAILURE", "49.99")))

	order := db.orders["00001234"]
	assert.Equal(t, "FAILURE", order.PaymentInstruments[0].Transaction.PaymentState)
	assert.Equal(t, entity.PaymentStatusNotPaid, order.PaymentStatus)
}

func TestConfirmInvalidStateRejected(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelConfirm, "UNKNOWN", "49.99"))
	require.Error(t, err)
	assert.Equal(t, entity.OrderStatusCreated, db.orders["00001234"].Status)
}

func TestCancelFailsOrderAndRestoresBasket(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelCancel, "CANCEL", "49.99"))
	require.NoError(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.OrderStatusFailed, order.Status)

	basket, ok := db.baskets["shopper@example.com"]
	require.True(t, ok)
	require.Len(t, basket.ProductLineItems, 1)
	assert.Equal(t, "SKU1", basket.ProductLineItems[0].ArticleNumber)
	assert.Equal(t, "standard", basket.ShippingMethod)
	assert.Equal(t, "Vienna", basket.ShippingAddress.City)
}

func TestBasketNotRestoredWhenStillPresent(t *testing.T) {
	db := seededDatabase()
	existing := &entity.Basket{
		CustomerEmail:    "shopper@example.com",
		ProductLineItems: []entity.LineItem{{ArticleNumber: "OTHER"}},
	}
	db.baskets["shopper@example.com"] = existing
	checkout := newTestCheckout(db)

	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelFailure, "FAILURE", "49.99"))
	require.NoError(t, err)

	assert.Equal(t, existing, db.baskets["shopper@example.com"])
}

func TestSenderBankNameUsesRawValue(t *testing.T) {
	db := seededDatabase()
	db.methods["SOFORT"] = &entity.PaymentMethod{ID: "SOFORT", PaymentType: entity.PaymentTypeSofort}
	order := db.orders["00001234"]
	order.PaymentInstruments = []entity.PaymentInstrument{{Method: "SOFORT"}}
	checkout := newTestCheckout(db)

	values := url.Values{}
	values.Set("DWROrderNo", "00001234")
	values.Set("DWREmail", "shopper@example.com")
	values.Set("DWRPostalCode", "1010")
	values.Set("DWRPaymentMethodId", "SOFORT")
	values.Set("paymentState", "SUCCESS")
	values.Set("amount", "49.99")
	values.Set("currency", "EUR")
	values.Set("orderNumber", "9000124")
	values.Set("paymentType", "SOFORTUEBERWEISUNG")
	// the gateway pads the bank name with whitespace; the padded raw value
	// was signed
	values.Set("senderBankName", " Test Bank ")
	values.Set("senderIBAN", "AT611904300234573201")
	signNotification(values, []string{
		"paymentState", "amount", "currency", "paymentType", "orderNumber",
		"senderBankName", "secret", "responseFingerprintOrder",
	}, "abc123")

	err := checkout.HandleReturn(context.Background(), entity.NewNotification(entity.ChannelConfirm, values))
	require.NoError(t, err)

	stored := db.orders["00001234"]
	assert.Equal(t, entity.PaymentStatusPaid, stored.PaymentStatus)
	transaction := stored.PaymentInstruments[0].Transaction
	assert.Equal(t, "Test Bank", transaction.SenderBankName)
	assert.Equal(t, "AT611904300234573201", transaction.SenderIBAN)
}

func TestPaypalShippingUpdate(t *testing.T) {
	db := seededDatabase()
	db.methods["PAYPAL"] = &entity.PaymentMethod{
		ID:                 "PAYPAL",
		PaymentType:        entity.PaymentTypePaypal,
		UpdateShippingData: true,
	}
	order := db.orders["00001234"]
	order.PaymentInstruments = []entity.PaymentInstrument{{Method: "PAYPAL"}}
	checkout := newTestCheckout(db)

	values := url.Values{}
	values.Set("DWROrderNo", "00001234")
	values.Set("DWREmail", "shopper@example.com")
	values.Set("DWRPostalCode", "1010")
	values.Set("DWRPaymentMethodId", "PAYPAL")
	values.Set("paymentState", "SUCCESS")
	values.Set("amount", "49.99")
	values.Set("currency", "EUR")
	values.Set("orderNumber", "9000125")
	values.Set("paymentType", "PAYPAL")
	values.Set("paypalPayerID", "PAYER1")
	values.Set("paypalPayerEmail", "payer@example.com")
	values.Set("paypalPayerAddressName", "John Smith")
	values.Set("paypalPayerAddressCity", "Graz")
	signNotification(values, []string{
		"paymentState", "amount", "currency", "paymentType", "orderNumber",
		"secret", "responseFingerprintOrder",
	}, "abc123")

	err := checkout.HandleReturn(context.Background(), entity.NewNotification(entity.ChannelConfirm, values))
	require.NoError(t, err)

	stored := db.orders["00001234"]
	transaction := stored.PaymentInstruments[0].Transaction
	assert.Equal(t, "PAYER1", transaction.PaypalPayerID)
	assert.Equal(t, "payer@example.com", transaction.PaypalPayerEmail)
	assert.Equal(t, "John", stored.DefaultShipment.ShippingAddress.FirstName)
	assert.Equal(t, "Smith", stored.DefaultShipment.ShippingAddress.LastName)
	assert.Equal(t, "Graz", stored.DefaultShipment.ShippingAddress.City)
}

func TestUnknownPaymentTypeMapsNothing(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	notification := testNotification(entity.ChannelConfirm, "SUCCESS", "49.99")
	notification.Params.Set("paymentType", "EPS")
	// re-sign after changing a signed field
	signNotification(notification.Params, []string{
		"paymentState", "amount", "currency", "paymentType", "orderNumber",
		"secret", "responseFingerprintOrder",
	}, "abc123")

	err := checkout.HandleReturn(context.Background(), notification)
	require.NoError(t, err)

	order := db.orders["00001234"]
	assert.Equal(t, entity.PaymentStatusPaid, order.PaymentStatus)
	transaction := order.PaymentInstruments[0].Transaction
	assert.Equal(t, "EPS", transaction.PaymentType)
	assert.Empty(t, transaction.MaskedPan)
}

func TestReplayAfterFailureReturnsError(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	require.Error(t, checkout.HandleReturn(context.Background(), testNotification(entity.ChannelConfirm, "SUCCESS", "50.00")))
	// the follow-up success redirect for the failed order must not revive it
	err := checkout.HandleReturn(context.Background(), testNotification(entity.ChannelSuccess, "SUCCESS", "49.99"))
	require.Error(t, err)
	assert.Equal(t, entity.OrderStatusFailed, db.orders["00001234"].Status)
}

func TestBuildRequestRequiresNonGiftMethod(t *testing.T) {
	db := seededDatabase()
	order := db.orders["00001234"]
	order.PaymentInstruments = []entity.PaymentInstrument{{Method: entity.MethodGiftCertificate}}
	checkout := newTestCheckout(db)

	_, err := checkout.BuildRequest(context.Background(), "00001234", "shopper@example.com", "1010")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payment method")
}

func TestBuildRequestThroughService(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	params, err := checkout.BuildRequest(context.Background(), "00001234", "shopper@example.com", "1010")
	require.NoError(t, err)
	assert.Equal(t, "49.99", params.Get("amount"))
	assert.NotEmpty(t, params.Get("requestFingerprint"))
	assert.Equal(t, "00001234", params.Get("DWROrderNo"))
}

func TestOrderLookupTripleMustMatch(t *testing.T) {
	db := seededDatabase()
	checkout := newTestCheckout(db)

	_, err := checkout.BuildRequest(context.Background(), "00001234", "shopper@example.com", "9999")
	require.Error(t, err)

	_, err = checkout.BuildRequest(context.Background(), "00001234", "other@example.com", "1010")
	require.Error(t, err)
}
