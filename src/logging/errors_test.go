package logging

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stake-plus/getfunded/src/webclient"
	"github.com/stretchr/testify/assert"
)

func TestIsRateLimit(t *testing.T) {
	assert.False(t, IsRateLimit(nil))
	assert.True(t, IsRateLimit(fmt.Errorf("claude: %w", &webclient.StatusError{Status: 429})))
	assert.False(t, IsRateLimit(&webclient.StatusError{Status: 500}))
	assert.True(t, IsRateLimit(errors.New("rate_limit_error: slow down")))
	assert.True(t, IsRateLimit(errors.New("Error 429, RESOURCE_EXHAUSTED")))
	assert.False(t, IsRateLimit(errors.New("connection refused")))
}

func TestNew(t *testing.T) {
	for _, debug := range []bool{false, true} {
		l, err := New(debug)
		assert.NoError(t, err)
		assert.Equal(t, debug, l.Core().Enabled(-1))
	}
}
