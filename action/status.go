// Package action holds the per-action bookkeeping a connector reports back
// to the platform: result objects and the status helpers that go with them.
package action

import (
	"errors"
	"fmt"
	"strings"
)

// Status values returned by connector calls.
const (
	AppSuccess = true
	AppError   = false
)

// TestConnectivity is the identifier of the asset connectivity check every
// connector implements.
const TestConnectivity = "test_connectivity"

// ErrRequiredParam is returned by RequiredValue for absent or blank parameters.
var ErrRequiredParam = errors.New("required parameter not found")

// IsFail reports whether status is a failure.
func IsFail(status bool) bool {
	return !status
}

// IsSuccess reports whether status is a success.
func IsSuccess(status bool) bool {
	return status
}

// RequiredValue returns the whitespace-trimmed string parameter key from
// params. A missing key, a non-string value or a blank value is ErrRequiredParam.
func RequiredValue(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRequiredParam, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, not a string", ErrRequiredParam, key, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s is blank", ErrRequiredParam, key)
	}
	return s, nil
}
