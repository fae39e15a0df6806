package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("email", "Invalid email address"), http.StatusBadRequest},
		{ErrPitchNotFound, http.StatusNotFound},
		{ErrAlreadyClaimed, http.StatusConflict},
		{ErrDailyCap, http.StatusTooManyRequests},
		{Upstream("generation failed", errors.New("boom")), http.StatusBadGateway},
		{ErrPayerNotConfigured, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.err), c.err.Error())
	}
}

func TestWrappedSentinelsStillMatch(t *testing.T) {
	err := fmt.Errorf("disburse: %w", ErrNotFunded)
	assert.ErrorIs(t, err, ErrNotFunded)
	assert.NotErrorIs(t, err, ErrAlreadyClaimed)
	assert.True(t, IsConflict(err))
	assert.True(t, IsConflict(ErrDailyCap))
	assert.Equal(t, http.StatusConflict, Status(err))
}

func TestMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "internal error", Message(errors.New("dial tcp 10.0.0.3:3306: refused")))
	assert.Equal(t, "generation failed", Message(Upstream("generation failed", errors.New("api key sk-...: 401"))))
	assert.Equal(t, "not funded", Message(ErrNotFunded))
}

func TestValidationCarriesField(t *testing.T) {
	var e *Error
	assert.True(t, errors.As(Validation("team", "Missing required field: team"), &e))
	assert.Equal(t, "team", e.Field)
	assert.True(t, IsValidation(e))
	assert.Equal(t, "validation", e.Kind.String())
}
