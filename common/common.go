package common

import "net/http"

type HttpMethod string

const (
	Get     HttpMethod = http.MethodGet
	Head    HttpMethod = http.MethodHead
	Post    HttpMethod = http.MethodPost
	Put     HttpMethod = http.MethodPut
	Patch   HttpMethod = http.MethodPatch
	Delete  HttpMethod = http.MethodDelete
	Options HttpMethod = http.MethodOptions
	Trace   HttpMethod = http.MethodTrace
	Connect HttpMethod = http.MethodConnect
)

var HttpMethodList = []HttpMethod{Get, Head, Post, Put, Patch, Delete, Options, Trace, Connect}

// HasBody reports whether requests with this method carry a JSON body.
// Bodyless methods send their parameters in the query string instead.
func (m HttpMethod) HasBody() bool {
	return m != Get && m != Head
}

func (m HttpMethod) IsValid() bool {
	for _, method := range HttpMethodList {
		if m == method {
			return true
		}
	}

	return false
}
