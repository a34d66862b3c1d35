package appstoretest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const LookupPath = "/inApps/v1/lookup/{orderId}"

// Response is served verbatim for a configured order id. A nil Body
// produces an empty response body.
type Response struct {
	StatusCode int
	Body       []byte
}

type RecordedRequest struct {
	Method  string
	Path    string
	OrderID string
	Header  http.Header
}

type lookupResponse struct {
	Status             int      `json:"status"`
	SignedTransactions []string `json:"signedTransactions"`
}

// Server is a fake App Store Server API serving the order lookup endpoint.
type Server struct {
	*httptest.Server
	responses map[string]Response
	requests  []RecordedRequest
	mu        sync.Mutex
	logger    *zap.Logger
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		responses: make(map[string]Response),
		logger:    logger,
	}

	router := mux.NewRouter()
	router.HandleFunc(LookupPath, s.lookupHandler).Methods("GET")

	s.Server = httptest.NewServer(router)

	return s
}

// LookupBaseURL is the server's equivalent of the App Store lookup base url.
func (s *Server) LookupBaseURL() string {
	return s.URL + "/inApps/v1/lookup/"
}

func (s *Server) SetResponse(orderID string, response Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responses[orderID] = response
}

// SetTransactions serves signedTransactions for orderID with status 0.
func (s *Server) SetTransactions(orderID string, signedTransactions ...string) error {
	body, err := json.Marshal(lookupResponse{Status: 0, SignedTransactions: signedTransactions})
	if err != nil {
		return err
	}

	s.SetResponse(orderID, Response{StatusCode: http.StatusOK, Body: body})

	return nil
}

func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}

func (s *Server) lookupHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		OrderID: orderID,
		Header:  r.Header.Clone(),
	})
	response, found := s.responses[orderID]
	s.mu.Unlock()

	s.logger.Info("Received lookup request", zap.String("orderID", orderID))

	if !found {
		response = Response{StatusCode: http.StatusOK, Body: []byte(`{"status":1,"signedTransactions":[]}`)}
	}

	if response.Body != nil {
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(response.StatusCode)

	if _, err := w.Write(response.Body); err != nil {
		s.logger.Error("Failed to write lookup response", zap.String("orderID", orderID), zap.Error(err))
	}
}
