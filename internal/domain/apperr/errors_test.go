package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
		ok     bool
	}{
		{http.StatusOK, "", false},
		{http.StatusNoContent, "", false},
		{http.StatusBadRequest, KindValidation, true},
		{http.StatusUnauthorized, KindAuth, true},
		{http.StatusForbidden, KindForbidden, true},
		{http.StatusNotFound, KindNotFound, true},
		{http.StatusConflict, KindConflict, true},
		{http.StatusUnprocessableEntity, KindConflict, true},
		{http.StatusInternalServerError, KindServer, true},
		{http.StatusBadGateway, KindServer, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			got, ok := FromStatus(tt.status)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestError_IsMatchesSentinelOfKind(t *testing.T) {
	err := fmt.Errorf("start: %w", New(KindConflict, "start engagement", "already active"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrAuth))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	e := &Error{Kind: KindValidation, Op: "record stage", Status: 400, Detail: "Etapa inválida"}
	assert.Equal(t, "record stage: Etapa inválida (HTTP 400)", e.Error())

	cause := errors.New("connection refused")
	w := Wrap(KindTransport, "list orders", cause)
	assert.Equal(t, "list orders: connection refused", w.Error())
	assert.ErrorIs(t, w, cause)

	bare := &Error{Kind: KindAuth}
	assert.Equal(t, "auth: not authenticated", bare.Error())
}
