package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/afero"

	"github.com/fieldsvc/fieldsvc/internal/infra/persistence/file"
)

// FileName is the session file inside the home directory
const FileName = "session.json"

// Claims are the token fields the client reads. The signature is never
// verified here; the backend remains the authority.
type Claims struct {
	TechnicianID int64      `json:"technician_id"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type stored struct {
	Token   string    `json:"token"`
	Email   string    `json:"email,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Session holds the bearer token for the current technician. It is safe for
// concurrent use and persists to <home>/session.json with mode 0600.
type Session struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	token  string
	email  string
	claims Claims
	now    func() time.Time
}

// Open loads the session stored under home. A missing file yields an empty
// session; an unreadable one is discarded.
func Open(fs afero.Fs, home string) (*Session, error) {
	s := &Session{
		fs:   fs,
		path: filepath.Join(home, FileName),
		now:  time.Now,
	}

	data, err := afero.ReadFile(fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var st stored
	if err := json.Unmarshal(data, &st); err != nil || st.Token == "" {
		_ = s.fs.Remove(s.path)
		return s, nil
	}
	s.token = st.Token
	s.email = st.Email
	s.claims = parseClaims(st.Token)
	return s, nil
}

func (s *Session) withClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Save stores a freshly issued token
func (s *Session) Save(token, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(stored{Token: token, Email: email, SavedAt: s.now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := file.WriteFileAtomic(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.token = token
	s.email = email
	s.claims = parseClaims(token)
	return nil
}

// Token returns the bearer token, or "" when there is none. An expired
// token is cleared first.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.expiredLocked() {
		s.clearLocked()
	}
	return s.token
}

// Claims returns the decoded token claims
func (s *Session) Claims() Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims
}

// TechnicianID returns the token subject, 0 when unknown
func (s *Session) TechnicianID() int64 {
	return s.Claims().TechnicianID
}

// Email returns the login email recorded with the token
func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

// Clear drops the token. Calling it again is a no-op.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *Session) clearLocked() error {
	s.token = ""
	s.email = ""
	s.claims = Claims{}
	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

func (s *Session) expiredLocked() bool {
	return s.claims.ExpiresAt != nil && !s.now().Before(*s.claims.ExpiresAt)
}

// parseClaims decodes a JWT without verifying it. Opaque tokens yield
// empty claims.
func parseClaims(token string) Claims {
	var c Claims
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return c
	}

	switch sub := mc["sub"].(type) {
	case string:
		if id, err := strconv.ParseInt(sub, 10, 64); err == nil {
			c.TechnicianID = id
		}
	case float64:
		c.TechnicianID = int64(sub)
	}

	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		c.ExpiresAt = &t
	}
	return c
}
