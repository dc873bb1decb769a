package models

type PaymentMethod string

const (
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCard PaymentMethod = "card"
)

// The payment flow is a simulated, fixed-price contract: one unit of
// currency buys a fixed batch of generations. The server returns the new
// authoritative quota value.
const (
	UnitPrice              = 1
	GenerationsPerPurchase = 5
)

// CardDetails holds the card form fields. All fields are required by local
// validation; none of them are verified beyond being non-empty.
type CardDetails struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	CardNumber  string `json:"card_number"`
	NameOnCard  string `json:"name_on_card"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

// PaymentTransaction is the ephemeral content of the payment modal. It lives
// only while the modal is open and is never persisted.
type PaymentTransaction struct {
	Method     PaymentMethod `json:"method"`
	UPIID      string        `json:"upi_id,omitempty"`
	QRProvider string        `json:"qr_provider,omitempty"`
	Card       CardDetails   `json:"card_details,omitempty"`
}
