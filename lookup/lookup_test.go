package lookup

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenetes/storekit-lookup/appstoretest"
	"github.com/tokenetes/storekit-lookup/claims"
	"github.com/tokenetes/storekit-lookup/config"
	"github.com/tokenetes/storekit-lookup/credentials"
	"github.com/tokenetes/storekit-lookup/storekiterrors"
	"go.uber.org/zap/zaptest"
)

const orderID = "1000000123456789"

type fixture struct {
	server  *appstoretest.Server
	service *Service
	creds   credentials.DeveloperCredentials
}

func newFixture(t *testing.T, sandbox bool) *fixture {
	t.Helper()

	server := appstoretest.NewServer(zaptest.NewLogger(t))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Sandbox = sandbox
	cfg.RetryDelay = time.Millisecond

	if sandbox {
		cfg.SandboxBaseURL = server.LookupBaseURL()
		cfg.ProductionBaseURL = "https://production.invalid/inApps/v1/lookup/"
	} else {
		cfg.SandboxBaseURL = "https://sandbox.invalid/inApps/v1/lookup/"
		cfg.ProductionBaseURL = server.LookupBaseURL()
	}

	service, err := New(cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, pemBytes, err := appstoretest.GenerateKey()
	require.NoError(t, err)

	return &fixture{
		server:  server,
		service: service,
		creds:   credentials.New("com.example.app", "57246542-96fe-1a63-e053-0824d011072a", "2X9R4HXF34", pemBytes),
	}
}

func signTransactions(t *testing.T, records ...claims.TransactionRecord) []string {
	t.Helper()

	key, _, err := appstoretest.GenerateKey()
	require.NoError(t, err)

	signed, err := appstoretest.SignTransactions(key, records...)
	require.NoError(t, err)

	return signed
}

func TestLookupOrderSandbox(t *testing.T) {
	f := newFixture(t, true)

	record := appstoretest.NewTransaction("com.example.app", "com.example.app.pro", time.UnixMilli(1698148900000))
	require.NoError(t, f.server.SetTransactions(orderID, signTransactions(t, record)...))

	result := <-f.service.LookupOrder(f.creds, orderID)

	require.NoError(t, result.Err)
	assert.Equal(t, Done, result.State)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, []claims.TransactionRecord{record}, result.Transactions)

	requests := f.server.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodGet, requests[0].Method)
	assert.Equal(t, "/inApps/v1/lookup/"+orderID, requests[0].Path)
	assert.Equal(t, "application/json", requests[0].Header.Get("Content-Type"))

	bearer, found := strings.CutPrefix(requests[0].Header.Get("Authorization"), "Bearer ")
	require.True(t, found)

	var authClaims claims.AuthClaims

	token, _, err := new(jwt.Parser).ParseUnverified(bearer, &authClaims)
	require.NoError(t, err)
	assert.Equal(t, "2X9R4HXF34", token.Header["kid"])
	assert.Equal(t, "ES256", token.Header["alg"])
	assert.Equal(t, "com.example.app", authClaims.BundleID)
	assert.Equal(t, authClaims.IssuedAt+300, authClaims.ExpiresAt)
}

func TestLookupOrderProduction(t *testing.T) {
	f := newFixture(t, false)

	record := appstoretest.NewTransaction("com.example.app", "com.example.app.pro", time.Now())
	require.NoError(t, f.server.SetTransactions(orderID, signTransactions(t, record)...))

	transactions, err := f.service.LookupOrderWait(f.creds, orderID)

	require.NoError(t, err)
	assert.Len(t, transactions, 1)
	assert.Len(t, f.server.Requests(), 1)
}

func TestLookupOrderNoTransactions(t *testing.T) {
	f := newFixture(t, true)

	for name, body := range map[string]string{
		"empty array":   `{"status":0,"signedTransactions":[]}`,
		"missing array": `{"status":0}`,
	} {
		t.Run(name, func(t *testing.T) {
			f.server.SetResponse(orderID, appstoretest.Response{StatusCode: http.StatusOK, Body: []byte(body)})

			result := <-f.service.LookupOrder(f.creds, orderID)

			assert.ErrorIs(t, result.Err, storekiterrors.ErrNoTransactionsFound)
			assert.Equal(t, DecodeEmpty, result.State)
			assert.Empty(t, result.Transactions)
		})
	}
}

func TestLookupOrderSkipsMalformedTransactions(t *testing.T) {
	f := newFixture(t, true)

	good := appstoretest.NewTransaction("com.example.app", "com.example.app.pro", time.Now())
	signed := signTransactions(t, good)
	require.NoError(t, f.server.SetTransactions(orderID, "malformed", signed[0]))

	transactions, err := f.service.LookupOrderWait(f.creds, orderID)

	require.NoError(t, err)
	assert.Equal(t, []claims.TransactionRecord{good}, transactions)
}

func TestLookupOrderAllTransactionsMalformed(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.server.SetTransactions(orderID, "a.b.c"))

	result := <-f.service.LookupOrder(f.creds, orderID)

	require.NoError(t, result.Err)
	assert.Equal(t, Done, result.State)
	assert.Empty(t, result.Transactions)
}

func TestLookupOrderTokenFailure(t *testing.T) {
	f := newFixture(t, true)
	f.creds.PrivateKey = []byte("not a key")

	result := <-f.service.LookupOrder(f.creds, orderID)

	assert.ErrorIs(t, result.Err, storekiterrors.ErrNoToken)
	assert.ErrorIs(t, result.Err, storekiterrors.ErrInvalidKeyMaterial)
	assert.Equal(t, TokenFailed, result.State)
	assert.Empty(t, f.server.Requests())
}

func TestLookupOrderNoData(t *testing.T) {
	f := newFixture(t, true)
	f.server.SetResponse(orderID, appstoretest.Response{StatusCode: http.StatusUnauthorized})

	result := <-f.service.LookupOrder(f.creds, orderID)

	assert.ErrorIs(t, result.Err, storekiterrors.ErrNoData)
	assert.Contains(t, result.Err.Error(), "http status: 401")
	assert.Equal(t, TransportFailed, result.State)

	var transportErr *storekiterrors.TransportError
	require.True(t, errors.As(result.Err, &transportErr))
	assert.Equal(t, http.StatusUnauthorized, transportErr.StatusCode)

	assert.Len(t, f.server.Requests(), 1)
}

func TestLookupOrderUnreadableBody(t *testing.T) {
	f := newFixture(t, true)
	f.server.SetResponse(orderID, appstoretest.Response{StatusCode: http.StatusBadGateway, Body: []byte("<html>bad gateway</html>")})

	result := <-f.service.LookupOrder(f.creds, orderID)

	assert.ErrorIs(t, result.Err, storekiterrors.ErrNoData)
	assert.ErrorIs(t, result.Err, storekiterrors.ErrMalformedResponse)
	assert.Equal(t, TransportFailed, result.State)
}

func TestLookupOrderRetry(t *testing.T) {
	f := newFixture(t, true)
	f.server.SetResponse(orderID, appstoretest.Response{StatusCode: http.StatusInternalServerError})

	result := <-f.service.LookupOrder(f.creds, orderID, WithRetry())

	assert.ErrorIs(t, result.Err, storekiterrors.ErrNoData)
	assert.Len(t, f.server.Requests(), 3)
}

func TestLookupOrderDoesNotRetryByDefault(t *testing.T) {
	f := newFixture(t, true)
	f.server.SetResponse(orderID, appstoretest.Response{StatusCode: http.StatusInternalServerError})

	<-f.service.LookupOrder(f.creds, orderID)

	assert.Len(t, f.server.Requests(), 1)
}

func TestLookupOrderAPIErrorBody(t *testing.T) {
	f := newFixture(t, true)
	f.server.SetResponse(orderID, appstoretest.Response{
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"errorCode":4040010,"errorMessage":"Transaction id not found."}`),
	})

	result := <-f.service.LookupOrder(f.creds, orderID)

	assert.ErrorIs(t, result.Err, storekiterrors.ErrNoTransactionsFound)
	assert.Equal(t, DecodeEmpty, result.State)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
}

type unreachableDoer struct{}

func (unreachableDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestLookupOrderTransportError(t *testing.T) {
	service, err := New(config.Default(), unreachableDoer{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, pemBytes, err := appstoretest.GenerateKey()
	require.NoError(t, err)

	result := <-service.LookupOrder(credentials.New("com.example.app", "issuer", "KEY", pemBytes), orderID)

	assert.ErrorIs(t, result.Err, storekiterrors.ErrNoData)
	assert.Contains(t, result.Err.Error(), "connection refused")
	assert.Equal(t, 0, result.StatusCode)
	assert.Equal(t, TransportFailed, result.State)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ProductionBaseURL = "http://[::1"

	service, err := New(cfg, nil, nil)

	assert.Error(t, err)
	assert.Nil(t, service)
}

func TestLookupOrderInvalidURLOutcome(t *testing.T) {
	f := newFixture(t, true)
	f.service.config.SandboxBaseURL = "://missing-scheme/"

	result := <-f.service.LookupOrder(f.creds, orderID)

	assert.ErrorIs(t, result.Err, storekiterrors.ErrInvalidURL)
	assert.Equal(t, TransportFailed, result.State)
	assert.Empty(t, f.server.Requests())
}

func TestLookupOrderConcurrent(t *testing.T) {
	f := newFixture(t, true)

	record := appstoretest.NewTransaction("com.example.app", "com.example.app.pro", time.Now())
	require.NoError(t, f.server.SetTransactions(orderID, signTransactions(t, record)...))

	results := make([]<-chan Result, 10)
	for i := range results {
		results[i] = f.service.LookupOrder(f.creds, orderID)
	}

	for _, ch := range results {
		result := <-ch
		require.NoError(t, result.Err)
		assert.Len(t, result.Transactions, 1)
	}

	assert.Len(t, f.server.Requests(), 10)
}

func TestStateTerminal(t *testing.T) {
	for _, state := range []State{TokenFailed, TransportFailed, DecodeEmpty, Done} {
		assert.True(t, state.Terminal(), state.String())
	}

	for _, state := range []State{Idle, TokenRequested, RequestIssued, ResponseReceived} {
		assert.False(t, state.Terminal(), state.String())
	}

	assert.Equal(t, "unknown", State(99).String())
}
