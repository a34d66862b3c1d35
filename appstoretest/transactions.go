package appstoretest

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tokenetes/storekit-lookup/claims"
)

const TransactionKeyID = "appstoretest"

// NewTransaction returns a fully populated sandbox purchase of productID.
func NewTransaction(bundleID, productID string, purchasedAt time.Time) claims.TransactionRecord {
	transactionID := uuid.NewString()
	purchaseDate := float64(purchasedAt.UnixMilli())
	signedDate := float64(time.Now().UnixMilli())
	quantity := 1
	price := 990.0

	return claims.TransactionRecord{
		TransactionID:         &transactionID,
		OriginalTransactionID: &transactionID,
		BundleID:              &bundleID,
		ProductID:             &productID,
		PurchaseDate:          &purchaseDate,
		OriginalPurchaseDate:  &purchaseDate,
		Quantity:              &quantity,
		Type:                  stringPtr("Non-Consumable"),
		InAppOwnershipType:    stringPtr("PURCHASED"),
		SignedDate:            &signedDate,
		Environment:           stringPtr("Sandbox"),
		TransactionReason:     stringPtr("PURCHASE"),
		Storefront:            stringPtr("USA"),
		StorefrontID:          stringPtr("143441"),
		Price:                 &price,
		Currency:              stringPtr("USD"),
	}
}

// SignTransactions encodes each record the way the lookup endpoint returns it.
func SignTransactions(key *ecdsa.PrivateKey, records ...claims.TransactionRecord) ([]string, error) {
	signed := make([]string, 0, len(records))

	for i := range records {
		token, err := claims.Sign(&records[i], key, TransactionKeyID)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		signed = append(signed, token)
	}

	return signed, nil
}

func stringPtr(s string) *string {
	return &s
}
