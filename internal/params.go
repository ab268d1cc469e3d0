package internal

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/qenta-cee/demandware-wcp/config"
	"github.com/qenta-cee/demandware-wcp/entity"
)

// fingerprintBuilder accumulates the signed field set of an outbound request.
// Names and seed segments are always extended together, so the comma-joined
// field order string and the concatenated seed stay aligned element for
// element.
type fingerprintBuilder struct {
	names []string
	seed  strings.Builder
}

func (b *fingerprintBuilder) add(name, value string) {
	b.names = append(b.names, name)
	b.seed.WriteString(value)
}

// finish appends the self-referential requestFingerprintOrder entry, whose
// seed segment is the complete field order string itself, and returns the
// order string, the final seed and the digest.
func (b *fingerprintBuilder) finish(secret string) (string, string, string) {
	b.names = append(b.names, "requestFingerprintOrder")
	order := strings.Join(b.names, ",")
	b.seed.WriteString(order)
	seed := b.seed.String()
	return order, seed, Fingerprint(seed, secret)
}

// Numeric rendering rules of the protocol. Amounts carry exactly two
// fractional digits, quantities none, and tax rates are sent as the
// percentage times one hundred with three fractional digits.
func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatQuantity(value float64) string {
	return fmt.Sprintf("%.0f", value)
}

func formatTaxRate(rate float64) string {
	return fmt.Sprintf("%.3f", rate*100)
}

// languageFromLocale resolves the two-letter language sent to the hosted
// page. The platform default locale maps to English.
func languageFromLocale(locale string) string {
	if locale == "" || locale == "default" {
		return "en"
	}
	if i := strings.IndexAny(locale, "_-"); i > 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}

func yesOrEmpty(flag bool) string {
	if flag {
		return "yes"
	}
	return ""
}

// requestBuilder assembles the complete outbound parameter set for one order.
// It is a pure function of the order, the payment method and the gateway
// configuration, except for the timestamp taken from the clock.
type requestBuilder struct {
	conf *config.Config
	now  func() time.Time
}

func (b *requestBuilder) timestamp() string {
	now := b.now()
	return now.Format("20060102150405") + fmt.Sprintf("%03d", now.Nanosecond()/int(time.Millisecond))
}

func (b *requestBuilder) pluginVersion() string {
	gw := b.conf.Gateway
	value := gw.ShopName + ";" + gw.ShopVersion + ";;" + gw.PluginName + ";" + gw.PluginVersion
	return base64.StdEncoding.EncodeToString([]byte(value))
}

// build produces the ordered parameter list for the hosted payment page,
// including requestFingerprintOrder and requestFingerprint. The signed field
// sequence is fixed by the protocol and must not be reordered.
func (b *requestBuilder) build(order *entity.Order, method *entity.PaymentMethod) (*entity.RequestParams, error) {
	gw := b.conf.Gateway

	orderNo := order.OrderNo
	amount := formatAmount(order.TotalGrossPrice)
	language := languageFromLocale(order.LocaleID)
	timestamp := b.timestamp()

	displayText := fmt.Sprintf(gw.DisplayText, orderNo)
	customerStatement := fmt.Sprintf(gw.CustomerStatement, orderNo)
	orderDescription := fmt.Sprintf(gw.OrderDescription, orderNo,
		order.BillingAddress.FirstName, order.BillingAddress.LastName)

	duplicateRequestCheck := yesOrEmpty(gw.DuplicateRequestCheck)
	trimResponseParameters := yesOrEmpty(gw.TrimResponseParameters)
	autoDeposit := yesOrEmpty(method.AutoDeposit)

	maxRetries := "-1"
	if method.MaxRetries != nil {
		maxRetries = fmt.Sprintf("%d", *method.MaxRetries)
	}

	// The shop order number is submitted as the gateway order number only on
	// the final attempt, when no retries remain.
	orderNumber := ""
	if gw.SendOrderNumber && maxRetries == "0" {
		orderNumber = orderNo
	}

	shipAddress := order.DefaultShipment.ShippingAddress
	// Billing fields are read from the shipment address, matching the
	// upstream cartridge.
	// TODO: clarify with product whether billing data should come from
	// order.BillingAddress instead.
	billAddress := order.DefaultShipment.ShippingAddress

	fp := &fingerprintBuilder{}
	fp.add("secret", gw.Secret)
	fp.add("shopId", gw.ShopId)
	fp.add("orderReference", orderNo)
	fp.add("customerStatement", customerStatement)
	fp.add("customerId", gw.CustomerId)
	fp.add("amount", amount)
	fp.add("currency", order.Currency)
	fp.add("language", language)
	fp.add("orderDescription", orderDescription)
	fp.add("displayText", displayText)
	fp.add("successURL", gw.SuccessUrl)
	fp.add("confirmURL", gw.ConfirmUrl)
	fp.add("duplicateRequestCheck", duplicateRequestCheck)
	fp.add("trimResponseParameters", trimResponseParameters)
	fp.add("autoDeposit", autoDeposit)
	fp.add("maxRetries", maxRetries)
	fp.add("timestamp", timestamp)
	fp.add("DWROrderNo", orderNo)
	fp.add("DWRPaymentMethodId", method.ID)
	fp.add("DWREmail", order.CustomerEmail)
	fp.add("DWRPostalCode", order.BillingAddress.PostalCode)

	if orderNumber != "" {
		fp.add("orderNumber", orderNumber)
	}

	if method.SubmitShippingData {
		fp.add("consumerShippingFirstname", shipAddress.FirstName)
		fp.add("consumerShippingLastname", shipAddress.LastName)
		fp.add("consumerShippingAddress1", shipAddress.Address1)
		fp.add("consumerShippingCity", shipAddress.City)
		fp.add("consumerShippingCountry", shipAddress.CountryCode)
		fp.add("consumerShippingZipCode", shipAddress.PostalCode)
		if shipAddress.Address2 != "" {
			fp.add("consumerShippingAddress2", shipAddress.Address2)
		}
		if shipAddress.Phone != "" {
			fp.add("consumerShippingPhone", shipAddress.Phone)
		}
	}

	if method.SubmitBillingData {
		fp.add("consumerBillingFirstname", billAddress.FirstName)
		fp.add("consumerBillingLastname", billAddress.LastName)
		fp.add("consumerBillingAddress1", billAddress.Address1)
		fp.add("consumerBillingCity", billAddress.City)
		fp.add("consumerBillingCountry", billAddress.CountryCode)
		fp.add("consumerBillingZipCode", billAddress.PostalCode)
		if billAddress.Address2 != "" {
			fp.add("consumerBillingAddress2", billAddress.Address2)
		}
		if billAddress.Phone != "" {
			fp.add("consumerBillingPhone", billAddress.Phone)
		}
	}

	items := order.BasketLineItems()
	for i, item := range items {
		n := i + 1
		fp.add(fmt.Sprintf("basketItem%dArticleNumber", n), item.ArticleNumber)
		fp.add(fmt.Sprintf("basketItem%dQuantity", n), formatQuantity(item.Quantity))
		fp.add(fmt.Sprintf("basketItem%dName", n), item.Name)
		fp.add(fmt.Sprintf("basketItem%dUnitGrossAmount", n), formatAmount(item.GrossAmount))
		fp.add(fmt.Sprintf("basketItem%dUnitNetAmount", n), formatAmount(item.NetAmount))
		fp.add(fmt.Sprintf("basketItem%dUnitTaxAmount", n), formatAmount(item.TaxAmount))
		fp.add(fmt.Sprintf("basketItem%dUnitTaxRate", n), formatTaxRate(item.TaxRate))
	}
	fp.add("basketItems", fmt.Sprintf("%d", len(items)))

	fingerprintOrder, _, fingerprint := fp.finish(gw.Secret)

	params := &entity.RequestParams{}
	params.Add("customerId", gw.CustomerId)
	params.Add("shopId", gw.ShopId)
	params.Add("amount", amount)
	params.Add("currency", order.Currency)
	params.Add("language", language)
	params.Add("successURL", gw.SuccessUrl)
	params.Add("cancelURL", gw.CancelUrl)
	params.Add("failureURL", gw.FailureUrl)
	params.Add("pendingURL", gw.PendingUrl)
	params.Add("confirmURL", gw.ConfirmUrl)
	params.Add("serviceURL", gw.ServiceUrl)
	params.Add("paymenttype", method.PaymentType)
	params.Add("timestamp", timestamp)
	params.Add("requestFingerprintOrder", fingerprintOrder)
	params.Add("requestFingerprint", fingerprint)
	params.Add("orderReference", orderNo)
	params.Add("orderDescription", orderDescription)
	params.Add("displayText", displayText)
	params.Add("customerStatement", customerStatement)
	params.Add("duplicateRequestCheck", duplicateRequestCheck)
	params.Add("trimResponseParameters", trimResponseParameters)
	params.Add("autoDeposit", autoDeposit)
	params.Add("maxRetries", maxRetries)

	if orderNumber != "" {
		params.Add("orderNumber", orderNumber)
	}

	if method.SubmitShippingData {
		params.Add("consumerShippingFirstname", shipAddress.FirstName)
		params.Add("consumerShippingLastname", shipAddress.LastName)
		params.Add("consumerShippingAddress1", shipAddress.Address1)
		params.Add("consumerShippingCity", shipAddress.City)
		params.Add("consumerShippingCountry", shipAddress.CountryCode)
		params.Add("consumerShippingZipCode", shipAddress.PostalCode)
		if shipAddress.Address2 != "" {
			params.Add("consumerShippingAddress2", shipAddress.Address2)
		}
		if shipAddress.Phone != "" {
			params.Add("consumerShippingPhone", shipAddress.Phone)
		}
	}

	if method.SubmitBillingData {
		params.Add("consumerBillingFirstname", billAddress.FirstName)
		params.Add("consumerBillingLastname", billAddress.LastName)
		params.Add("consumerBillingAddress1", billAddress.Address1)
		params.Add("consumerBillingCity", billAddress.City)
		params.Add("consumerBillingCountry", billAddress.CountryCode)
		params.Add("consumerBillingZipCode", billAddress.PostalCode)
		if billAddress.Address2 != "" {
			params.Add("consumerBillingAddress2", billAddress.Address2)
		}
		if billAddress.Phone != "" {
			params.Add("consumerBillingPhone", billAddress.Phone)
		}
	}

	for i, item := range items {
		n := i + 1
		params.Add(fmt.Sprintf("basketItem%dArticleNumber", n), item.ArticleNumber)
		params.Add(fmt.Sprintf("basketItem%dQuantity", n), formatQuantity(item.Quantity))
		params.Add(fmt.Sprintf("basketItem%dName", n), item.Name)
		params.Add(fmt.Sprintf("basketItem%dUnitGrossAmount", n), formatAmount(item.GrossAmount))
		params.Add(fmt.Sprintf("basketItem%dUnitNetAmount", n), formatAmount(item.NetAmount))
		params.Add(fmt.Sprintf("basketItem%dUnitTaxAmount", n), formatAmount(item.TaxAmount))
		params.Add(fmt.Sprintf("basketItem%dUnitTaxRate", n), formatTaxRate(item.TaxRate))
	}
	params.Add("basketItems", fmt.Sprintf("%d", len(items)))

	params.Add("DWROrderNo", orderNo)
	params.Add("DWRPaymentMethodId", method.ID)
	params.Add("DWREmail", order.CustomerEmail)
	params.Add("DWRPostalCode", order.BillingAddress.PostalCode)
	params.Add("pluginVersion", b.pluginVersion())

	return params, nil
}
