package httpclient

import "fmt"

// ErrorCode is a transport-level failure code. Zero means success.
type ErrorCode int

// Transport error codes. The numbering follows libcurl so codes stay
// recognizable in logs and sink events.
const (
	CodeOK                     ErrorCode = 0
	CodeUnsupportedProtocol    ErrorCode = 1
	CodeURLMalformed           ErrorCode = 3
	CodeCouldntResolveHost     ErrorCode = 6
	CodeCouldntConnect         ErrorCode = 7
	CodeOperationTimedOut      ErrorCode = 28
	CodeSSLConnectError        ErrorCode = 35
	CodeAbortedByCallback      ErrorCode = 42
	CodeTooManyRedirects       ErrorCode = 47
	CodeRecvError              ErrorCode = 56
	CodePeerFailedVerification ErrorCode = 60
)

var codeDescriptions = map[ErrorCode]string{
	CodeOK:                     "No error",
	CodeUnsupportedProtocol:    "Unsupported protocol",
	CodeURLMalformed:           "URL using bad/illegal format or missing URL",
	CodeCouldntResolveHost:     "Could not resolve host",
	CodeCouldntConnect:         "Could not connect to server",
	CodeOperationTimedOut:      "Timeout was reached",
	CodeSSLConnectError:        "SSL connect error",
	CodeAbortedByCallback:      "Operation was aborted by an application callback",
	CodeTooManyRedirects:       "Number of redirects hit maximum amount",
	CodeRecvError:              "Failure when receiving data from the peer",
	CodePeerFailedVerification: "SSL peer certificate or SSH remote key was not OK",
}

// Description returns the fixed human-readable text for the code.
func (c ErrorCode) Description() string {
	if d, ok := codeDescriptions[c]; ok {
		return d
	}
	return fmt.Sprintf("Unknown error %d", int(c))
}

// TransportError is returned when the transport reports a non-zero error code.
type TransportError struct {
	Code        ErrorCode
	Description string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%d - %s", int(e.Code), e.Description)
}
