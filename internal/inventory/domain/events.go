package domain

// StockAdjusted is published through the outbox whenever quantity-on-hand
// changes. Delta is signed: negative for debits, positive for restocks.
type StockAdjusted struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Quantity  int    `json:"quantity"`
}
