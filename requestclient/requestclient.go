package requestclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tokenetes/storekit-lookup/common"
	"github.com/tokenetes/storekit-lookup/config"
	"github.com/tokenetes/storekit-lookup/storekiterrors"
	"go.uber.org/zap"
)

const (
	// InvalidURLStatus is reported when a request never left the client
	// because it could not be built.
	InvalidURLStatus = -1
	// NoResponseStatus is reported when an attempt produced no HTTP response.
	NoResponseStatus = 0
)

// HTTPDoer is the transport used for every attempt. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Request struct {
	URL    string
	Method common.HttpMethod
	// Parameters are sent in the query string for bodyless methods and as a
	// JSON object otherwise.
	Parameters map[string]any
	// Body, when set, is sent as is and Parameters is not encoded.
	Body    []byte
	Headers map[string]string
	Retry   bool
}

type Outcome struct {
	Body       []byte
	StatusCode int
	Success    bool
	Attempts   int
	Err        error
}

// Client issues requests with bounded retry. With Retry set, every logical
// request makes maxAttempts attempts, whatever their status, and reports the
// last one. Retry state lives in the
// goroutine serving one logical request so a Client is safe for concurrent use.
type Client struct {
	httpClient  HTTPDoer
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

func NewClient(cfg *config.Config, httpClient HTTPDoer, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts > config.DefaultMaxAttempts {
		maxAttempts = config.DefaultMaxAttempts
	}

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Client{
		httpClient:  httpClient,
		timeout:     cfg.RequestTimeout,
		maxAttempts: maxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      logger,
	}
}

// Send starts req in the background. The returned channel yields exactly one
// Outcome and is then closed.
func (c *Client) Send(req Request) <-chan Outcome {
	outcomes := make(chan Outcome, 1)

	go func() {
		defer close(outcomes)

		outcomes <- c.run(req)
	}()

	return outcomes
}

// Do sends req and waits for its Outcome.
func (c *Client) Do(req Request) Outcome {
	return <-c.Send(req)
}

func (c *Client) run(req Request) Outcome {
	method := req.Method
	if method == "" {
		method = common.Get
	}

	logger := c.logger.With(zap.String("requestID", uuid.NewString()), zap.String("method", string(method)))

	target, err := buildURL(req.URL, method, req.Parameters)
	if err != nil {
		logger.Error("Failed to build request url", zap.String("url", req.URL), zap.Error(err))

		return Outcome{StatusCode: InvalidURLStatus, Err: fmt.Errorf("%w: %w", storekiterrors.ErrInvalidURL, err)}
	}

	body, err := buildBody(method, req.Body, req.Parameters)
	if err != nil {
		logger.Error("Failed to encode request body", zap.Error(err))

		return Outcome{StatusCode: InvalidURLStatus, Err: err}
	}

	logger = logger.With(zap.String("url", target.String()))

	maxAttempts := 1
	if req.Retry {
		maxAttempts = c.maxAttempts
	}

	var outcome Outcome

	for attempt := 1; ; attempt++ {
		outcome = c.attempt(target, method, body, req.Headers, logger.With(zap.Int("attempt", attempt)))
		outcome.Attempts = attempt

		if attempt >= maxAttempts {
			break
		}

		logger.Debug("Scheduling next attempt",
			zap.Int("attempt", attempt),
			zap.Int("status", outcome.StatusCode),
			zap.Bool("success", outcome.Success),
			zap.Duration("delay", c.retryDelay),
			zap.Error(outcome.Err))

		<-time.After(c.retryDelay)
	}

	logger.Debug("Request completed",
		zap.Int("status", outcome.StatusCode),
		zap.Int("attempts", outcome.Attempts),
		zap.Bool("success", outcome.Success))

	return outcome
}

func (c *Client) attempt(target *url.URL, method common.HttpMethod, body []byte, headers map[string]string, logger *zap.Logger) Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(method), target.String(), bodyReader)
	if err != nil {
		return Outcome{StatusCode: NoResponseStatus, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache")

	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	if ce := logger.Check(zap.DebugLevel, "Sending request"); ce != nil {
		ce.Write(zap.String("curl", CURL(httpReq, body)))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Outcome{StatusCode: NoResponseStatus, Err: fmt.Errorf("failed to send request: %w", err)}
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	logger.Debug("Received response", zap.Int("status", resp.StatusCode), zap.Int("bodyBytes", len(data)))

	return Outcome{
		Body:       data,
		StatusCode: resp.StatusCode,
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
}

func buildURL(rawurl string, method common.HttpMethod, parameters map[string]any) (*url.URL, error) {
	target, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}

	if !target.IsAbs() || target.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute url", rawurl)
	}

	if method.HasBody() || len(parameters) == 0 {
		return target, nil
	}

	query := target.Query()

	for key, value := range parameters {
		if s, ok := value.(string); ok {
			query.Set(key, s)
		} else {
			query.Set(key, fmt.Sprint(value))
		}
	}

	target.RawQuery = query.Encode()

	return target, nil
}

func buildBody(method common.HttpMethod, body []byte, parameters map[string]any) ([]byte, error) {
	if !method.HasBody() {
		return nil, nil
	}

	if body != nil {
		return body, nil
	}

	if parameters == nil {
		parameters = map[string]any{}
	}

	data, err := json.Marshal(parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request parameters: %w", err)
	}

	return data, nil
}
