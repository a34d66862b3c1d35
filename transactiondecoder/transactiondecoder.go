package transactiondecoder

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tokenetes/storekit-lookup/claims"
	"github.com/tokenetes/storekit-lookup/storekiterrors"
	"go.uber.org/zap"
)

const (
	SignedTransactionsField = "signedTransactions"
	StatusField             = "status"
)

// Decoder extracts transaction records from lookup responses.
//
// Signatures of the signed transactions are not verified: records are read
// from the token payloads as returned over the authenticated TLS connection
// to the App Store Server API.
type Decoder struct {
	logger *zap.Logger
}

type APIError struct {
	Code    int64
	Message string
}

func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Decoder{
		logger: logger,
	}
}

// Decode returns one record per decodable entry of signedTransactions, in
// response order. Entries that fail to decode are skipped. A missing or
// empty signedTransactions array yields storekiterrors.ErrNoTransactionsFound.
func (d *Decoder) Decode(body []byte) ([]claims.TransactionRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, storekiterrors.ErrMalformedResponse
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected a json object", storekiterrors.ErrMalformedResponse)
	}

	signedTransactions := root.Get(SignedTransactionsField)
	if !signedTransactions.IsArray() {
		return nil, storekiterrors.ErrNoTransactionsFound
	}

	entries := signedTransactions.Array()
	if len(entries) == 0 {
		return nil, storekiterrors.ErrNoTransactionsFound
	}

	records := make([]claims.TransactionRecord, 0, len(entries))

	for i, entry := range entries {
		if entry.Type != gjson.String {
			d.logger.Warn("Skipping non-string signed transaction", zap.Int("index", i))

			continue
		}

		var record claims.TransactionRecord

		if err := claims.DecodeUnverified(entry.String(), &record); err != nil {
			d.logger.Warn("Skipping undecodable signed transaction", zap.Int("index", i), zap.Error(err))

			continue
		}

		records = append(records, record)
	}

	d.logger.Debug("Decoded signed transactions", zap.Int("entries", len(entries)), zap.Int("records", len(records)))

	return records, nil
}

// Status returns the integer status field of a lookup response.
func Status(body []byte) (int64, bool) {
	status := gjson.GetBytes(body, StatusField)
	if status.Type != gjson.Number {
		return 0, false
	}

	return status.Int(), true
}

// ReadAPIError returns the App Store error carried by body, if any.
func ReadAPIError(body []byte) (APIError, bool) {
	result := gjson.GetManyBytes(body, "errorCode", "errorMessage")
	if !result[0].Exists() {
		return APIError{}, false
	}

	return APIError{Code: result[0].Int(), Message: result[1].String()}, true
}
