package replay

import (
	"errors"
	"fmt"
)

// Fatal replay failures. Callers map these to a status class with errors.Is;
// none of them leaves a record behind except ErrStorage, which by definition
// means the record could not be written.
var (
	ErrNotFound   = errors.New("replay: not found")
	ErrBadRequest = errors.New("replay: bad request")
	ErrStorage    = errors.New("replay: storage error")
)

// ErrorCodeNetwork is recorded when the provider could not be reached or
// its response could not be read.
const ErrorCodeNetwork = "network_error"

// ProviderErrorCode is recorded when the provider answered with a non-2xx
// status.
func ProviderErrorCode(status int) string {
	return fmt.Sprintf("provider_error_%d", status)
}
