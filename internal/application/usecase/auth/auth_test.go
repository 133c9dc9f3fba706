package auth

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsvc/fieldsvc/internal/adapter/gateway/backend"
	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/infra/session"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/repository/mock"
)

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	sess, err := session.Open(afero.NewMemMapFs(), "/home")
	require.NoError(t, err)
	gw := backend.NewMockBackendGateway()
	journal := mock.NewMockJournalRepository()
	uc := NewUseCase(gw, sess, journal, nil)

	require.NoError(t, uc.Login(ctx, dto.LoginRequest{Email: " ana@example.com ", Password: "s3cret"}))
	assert.NotEmpty(t, sess.Token())
	assert.Equal(t, "ana@example.com", sess.Email())

	require.NoError(t, uc.Logout(ctx))
	assert.Empty(t, sess.Token())
	require.NoError(t, uc.Logout(ctx), "logout is idempotent")

	assert.Equal(t, []string{"login:ok", "logout:ok", "logout:ok"}, journal.Operations())
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	sess, err := session.Open(afero.NewMemMapFs(), "/home")
	require.NoError(t, err)
	gw := backend.NewMockBackendGateway()
	uc := NewUseCase(gw, sess, nil, nil)

	err = uc.Login(ctx, dto.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, gw.Calls("Login"))

	gw.SetFail("Login", &apperr.Error{Kind: apperr.KindAuth, Op: "login", Status: 401, Detail: "Credenciais inválidas"})
	err = uc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.Empty(t, sess.Token())
}
