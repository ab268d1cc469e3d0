package entity

// Line item kinds, in the order they are enumerated for the basket fields.
const (
	LineItemMerchandise     = "merchandise"
	LineItemGiftCertificate = "gift_certificate"
	LineItemShipping        = "shipping"
)

// LineItem is one billable entry of an order. All three kinds expose the same
// seven signed fields, so the basket loop can treat them uniformly.
// TaxRate is the fraction (0.19 for 19%), not the percentage.
type LineItem struct {
	Kind          string  `json:"kind" bson:"kind"`
	ArticleNumber string  `json:"article_number" bson:"article_number"`
	Name          string  `json:"name" bson:"name"`
	Quantity      float64 `json:"quantity" bson:"quantity"`
	GrossAmount   float64 `json:"gross_amount" bson:"gross_amount"`
	NetAmount     float64 `json:"net_amount" bson:"net_amount"`
	TaxAmount     float64 `json:"tax_amount" bson:"tax_amount"`
	TaxRate       float64 `json:"tax_rate" bson:"tax_rate"`
}
