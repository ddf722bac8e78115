package domain

type ReservationCreated struct {
	ReservationID string `json:"reservation_id"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	PartySize     int    `json:"party_size"`
}

type ReservationStatusChanged struct {
	ReservationID string `json:"reservation_id"`
	From          Status `json:"from"`
	To            Status `json:"to"`
}

type ReservationDeleted struct {
	ReservationID string `json:"reservation_id"`
	ServiceID     string `json:"service_id"`
	PartySize     int    `json:"party_size"`
}
