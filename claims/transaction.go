package claims

import "time"

// TransactionRecord is the decoded payload of one signed transaction.
// Every field is optional; dates are milliseconds since the Unix epoch.
type TransactionRecord struct {
	TransactionID         *string  `json:"transactionId,omitempty"`
	OriginalTransactionID *string  `json:"originalTransactionId,omitempty"`
	BundleID              *string  `json:"bundleId,omitempty"`
	ProductID             *string  `json:"productId,omitempty"`
	PurchaseDate          *float64 `json:"purchaseDate,omitempty"`
	OriginalPurchaseDate  *float64 `json:"originalPurchaseDate,omitempty"`
	Quantity              *int     `json:"quantity,omitempty"`
	Type                  *string  `json:"type,omitempty"`
	InAppOwnershipType    *string  `json:"inAppOwnershipType,omitempty"`
	SignedDate            *float64 `json:"signedDate,omitempty"`
	Environment           *string  `json:"environment,omitempty"`
	TransactionReason     *string  `json:"transactionReason,omitempty"`
	Storefront            *string  `json:"storefront,omitempty"`
	StorefrontID          *string  `json:"storefrontId,omitempty"`
	Price                 *float64 `json:"price,omitempty"`
	Currency              *string  `json:"currency,omitempty"`
}

// Valid always succeeds: transaction payloads carry no validity window.
func (r *TransactionRecord) Valid() error {
	return nil
}

func (r *TransactionRecord) PurchaseTime() (time.Time, bool) {
	return millisToTime(r.PurchaseDate)
}

func (r *TransactionRecord) OriginalPurchaseTime() (time.Time, bool) {
	return millisToTime(r.OriginalPurchaseDate)
}

func (r *TransactionRecord) SignedTime() (time.Time, bool) {
	return millisToTime(r.SignedDate)
}

func millisToTime(ms *float64) (time.Time, bool) {
	if ms == nil {
		return time.Time{}, false
	}

	return time.UnixMilli(int64(*ms)).UTC(), true
}
