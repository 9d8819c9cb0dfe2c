package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed remote call.
type ErrorKind int

const (
	// KindAPI is any API-reported failure not covered by a specific kind.
	KindAPI ErrorKind = iota
	// KindNotFound: the resource does not exist remotely.
	KindNotFound
	// KindUnauthorized: the API key was rejected.
	KindUnauthorized
	// KindRateLimited: the service asked us to back off.
	KindRateLimited
	// KindConnection: the request never produced an HTTP response.
	KindConnection
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate limited"
	case KindConnection:
		return "connection error"
	}
	return "api error"
}

// Error is the typed failure every client call returns. The sync engine
// surfaces it verbatim; nothing retries inside the client.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status, 0 for connection errors
	Message string
	Err     error // underlying transport error, if any
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote call failed (%s, HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("remote call failed (%s): %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a remote not-found failure.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindNotFound
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	return KindAPI
}
