package domain

type OrderPaid struct {
	OrderID       string     `json:"order_id"`
	UserID        string     `json:"user_id"`
	VendorID      string     `json:"vendor_id"`
	TotalCents    int64      `json:"total_cents"`
	TransactionID string     `json:"transaction_id"`
	Items         []CartItem `json:"items"`
}
