package logging

import (
	"errors"
	"net/http"
	"strings"

	"github.com/stake-plus/getfunded/src/webclient"
)

// IsRateLimit reports whether err came from a provider throttling us.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var se *webclient.StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
