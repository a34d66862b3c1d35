package requestclient

import (
	"net/http"
	"sort"
	"strings"
)

const redacted = "<redacted>"

// CURL renders req as a curl command line for debug logs. The value of the
// Authorization header is redacted.
func CURL(req *http.Request, body []byte) string {
	var b strings.Builder

	b.WriteString("curl --request ")
	b.WriteString(req.Method)
	b.WriteString(" --url '")
	b.WriteString(req.URL.String())
	b.WriteString("'")

	keys := make([]string, 0, len(req.Header))
	for key := range req.Header {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		for _, value := range req.Header[key] {
			if key == "Authorization" {
				value = redactCredential(value)
			}

			b.WriteString(" --header '")
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(value)
			b.WriteString("'")
		}
	}

	if len(body) > 0 {
		b.WriteString(" --data '")
		b.WriteString(strings.ReplaceAll(string(body), "'", `'\''`))
		b.WriteString("'")
	}

	return b.String()
}

func redactCredential(value string) string {
	if scheme, _, found := strings.Cut(value, " "); found {
		return scheme + " " + redacted
	}

	return redacted
}
