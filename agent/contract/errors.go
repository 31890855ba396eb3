package contract

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("missing configuration")
)

// UpstreamError preserves the status code and body of a rejected provider
// request so callers can surface the provider's own diagnostics unchanged.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s rejected request (%d): %s", e.Provider, e.StatusCode, e.Body)
}

// AsUpstream unwraps err into an *UpstreamError when one is in the chain.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
