package lookup

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/tokenetes/storekit-lookup/claims"
	"github.com/tokenetes/storekit-lookup/common"
	"github.com/tokenetes/storekit-lookup/config"
	"github.com/tokenetes/storekit-lookup/credentials"
	"github.com/tokenetes/storekit-lookup/requestclient"
	"github.com/tokenetes/storekit-lookup/storekiterrors"
	"github.com/tokenetes/storekit-lookup/tokenissuer"
	"github.com/tokenetes/storekit-lookup/transactiondecoder"
	"go.uber.org/zap"
)

type Result struct {
	Transactions []claims.TransactionRecord
	State        State
	StatusCode   int
	Err          error
}

type LookupOption func(*lookupOptions)

type lookupOptions struct {
	retry bool
}

// WithRetry lets the lookup request be retried on failure.
func WithRetry() LookupOption {
	return func(o *lookupOptions) {
		o.retry = true
	}
}

type Service struct {
	config        *config.Config
	issuer        *tokenissuer.Issuer
	requestClient *requestclient.Client
	decoder       *transactiondecoder.Decoder
	logger        *zap.Logger
}

func NewService(cfg *config.Config, issuer *tokenissuer.Issuer, requestClient *requestclient.Client, decoder *transactiondecoder.Decoder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		config:        cfg,
		issuer:        issuer,
		requestClient: requestClient,
		decoder:       decoder,
		logger:        logger,
	}
}

// New validates cfg and wires a Service with default collaborators.
// A nil httpClient uses a plain *http.Client.
func New(cfg *config.Config, httpClient requestclient.HTTPDoer, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lookup config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return NewService(
		cfg,
		tokenissuer.NewIssuer(logger),
		requestclient.NewClient(cfg, httpClient, logger),
		transactiondecoder.NewDecoder(logger),
		logger,
	), nil
}

// LookupOrder fetches the transactions of orderID in the background. The
// returned channel yields exactly one Result and is then closed.
func (s *Service) LookupOrder(creds credentials.DeveloperCredentials, orderID string, opts ...LookupOption) <-chan Result {
	options := lookupOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	results := make(chan Result, 1)

	go func() {
		defer close(results)

		results <- s.lookup(creds, orderID, options)
	}()

	return results
}

func (s *Service) LookupOrderWait(creds credentials.DeveloperCredentials, orderID string, opts ...LookupOption) ([]claims.TransactionRecord, error) {
	result := <-s.LookupOrder(creds, orderID, opts...)

	return result.Transactions, result.Err
}

func (s *Service) lookup(creds credentials.DeveloperCredentials, orderID string, options lookupOptions) Result {
	logger := s.logger.With(zap.String("orderID", orderID), zap.Bool("sandbox", s.config.Sandbox))
	state := Idle

	transition := func(next State) {
		logger.Debug("Lookup state changed", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
	}

	transition(TokenRequested)

	token, err := s.issuer.IssueToken(creds)
	if err != nil {
		transition(TokenFailed)
		logger.Error("Failed to issue app store token", zap.Error(err))

		return Result{State: state, Err: fmt.Errorf("%w: %w", storekiterrors.ErrNoToken, err)}
	}

	transition(RequestIssued)

	outcome := s.requestClient.Do(requestclient.Request{
		URL:     s.config.LookupBaseURL() + url.PathEscape(orderID),
		Method:  common.Get,
		Headers: map[string]string{"Authorization": "Bearer " + token},
		Retry:   options.retry,
	})

	logger = logger.With(zap.Int("status", outcome.StatusCode), zap.Int("attempts", outcome.Attempts))

	if errors.Is(outcome.Err, storekiterrors.ErrInvalidURL) {
		transition(TransportFailed)
		logger.Error("Invalid lookup url", zap.Error(outcome.Err))

		return Result{State: state, StatusCode: outcome.StatusCode, Err: outcome.Err}
	}

	if len(outcome.Body) == 0 {
		transition(TransportFailed)
		logger.Error("Lookup returned no data", zap.Error(outcome.Err))

		return Result{State: state, StatusCode: outcome.StatusCode, Err: &storekiterrors.TransportError{StatusCode: outcome.StatusCode, Err: outcome.Err}}
	}

	transactions, err := s.decoder.Decode(outcome.Body)
	if errors.Is(err, storekiterrors.ErrMalformedResponse) {
		transition(TransportFailed)
		logger.Error("Lookup returned an unreadable body", zap.Error(err))

		return Result{State: state, StatusCode: outcome.StatusCode, Err: &storekiterrors.TransportError{StatusCode: outcome.StatusCode, Err: err}}
	}

	transition(ResponseReceived)

	if status, ok := transactiondecoder.Status(outcome.Body); ok {
		logger.Info("Received lookup response", zap.Int64("lookupStatus", status))
	}

	if apiErr, ok := transactiondecoder.ReadAPIError(outcome.Body); ok {
		logger.Warn("App store returned an error", zap.Int64("errorCode", apiErr.Code), zap.String("errorMessage", apiErr.Message))
	}

	if err != nil {
		transition(DecodeEmpty)
		logger.Info("No transactions found")

		return Result{State: state, StatusCode: outcome.StatusCode, Err: err}
	}

	transition(Done)
	logger.Info("Looked up transactions", zap.Int("transactions", len(transactions)))

	return Result{Transactions: transactions, State: state, StatusCode: outcome.StatusCode}
}
