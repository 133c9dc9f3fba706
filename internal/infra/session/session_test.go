package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const home = "/home/tech/.fieldsvc"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestSession_SaveAndReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	exp := time.Now().Add(8 * time.Hour).Truncate(time.Second)
	token := signToken(t, jwt.MapClaims{"sub": "12", "exp": exp.Unix()})

	s, err := Open(fs, home)
	require.NoError(t, err)
	assert.Empty(t, s.Token())

	require.NoError(t, s.Save(token, "ana@example.com"))
	assert.Equal(t, token, s.Token())
	assert.Equal(t, int64(12), s.TechnicianID())
	require.NotNil(t, s.Claims().ExpiresAt)
	assert.True(t, exp.Equal(*s.Claims().ExpiresAt))

	info, err := fs.Stat(filepath.Join(home, FileName))
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	reopened, err := Open(fs, home)
	require.NoError(t, err)
	assert.Equal(t, token, reopened.Token())
	assert.Equal(t, "ana@example.com", reopened.Email())
	assert.Equal(t, int64(12), reopened.TechnicianID())
}

func TestSession_ExpiredTokenIsCleared(t *testing.T) {
	fs := afero.NewMemMapFs()
	token := signToken(t, jwt.MapClaims{"sub": "3", "exp": time.Now().Add(time.Hour).Unix()})

	s, err := Open(fs, home)
	require.NoError(t, err)
	require.NoError(t, s.Save(token, ""))

	s.withClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	assert.Equal(t, "", s.Token())

	exists, _ := afero.Exists(fs, filepath.Join(home, FileName))
	assert.False(t, exists)
}

func TestSession_ClearIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, home)
	require.NoError(t, err)
	require.NoError(t, s.Save(signToken(t, jwt.MapClaims{"sub": "1"}), ""))

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	assert.Empty(t, s.Token())
	assert.Zero(t, s.TechnicianID())
}

func TestSession_OpaqueAndNumericSubjects(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, home)
	require.NoError(t, err)

	require.NoError(t, s.Save("opaque-token", ""))
	assert.Equal(t, "opaque-token", s.Token())
	assert.Zero(t, s.TechnicianID())
	assert.Nil(t, s.Claims().ExpiresAt)

	require.NoError(t, s.Save(signToken(t, jwt.MapClaims{"sub": float64(44)}), ""))
	assert.Equal(t, int64(44), s.TechnicianID())
}

func TestOpen_CorruptFileIsDiscarded(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(home, FileName), []byte("{not json"), 0o600))

	s, err := Open(fs, home)
	require.NoError(t, err)
	assert.Empty(t, s.Token())
}
