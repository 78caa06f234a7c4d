package testdata

// CustomerFeedback is one piece of raw customer feedback.
// @compile{
// treat ratings of 1 as urgent
// never quote the customer verbatim
// }@
type CustomerFeedback struct {
	CustomerID string `json:"customer_id"`
	Rating     int
	Items      []LineItem
}

// LineItem is one purchased item referenced by feedback.
type LineItem struct {
	SKU string
}
