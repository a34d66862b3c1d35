package lookup

type State int

const (
	Idle State = iota
	TokenRequested
	TokenFailed
	RequestIssued
	TransportFailed
	ResponseReceived
	DecodeEmpty
	Done
)

var stateNames = map[State]string{
	Idle:             "idle",
	TokenRequested:   "token-requested",
	TokenFailed:      "token-failed",
	RequestIssued:    "request-issued",
	TransportFailed:  "transport-failed",
	ResponseReceived: "response-received",
	DecodeEmpty:      "decode-empty",
	Done:             "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case TokenFailed, TransportFailed, DecodeEmpty, Done:
		return true
	default:
		return false
	}
}
