package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/application/port/input"
	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/application/service"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
)

var _ input.AuthUseCase = (*UseCase)(nil)

// SessionStore persists the bearer token
type SessionStore interface {
	Save(token, email string) error
	Clear() error
}

// UseCase logs the technician in and out
type UseCase struct {
	backend   output.BackendGateway
	session   SessionStore
	journal   repository.JournalRepository
	validator *service.ValidationService
	logger    output.Logger
}

// NewUseCase creates the auth use case. journal may be nil.
func NewUseCase(backend output.BackendGateway, session SessionStore, journal repository.JournalRepository, logger output.Logger) *UseCase {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &UseCase{
		backend:   backend,
		session:   session,
		journal:   journal,
		validator: service.NewValidationService(),
		logger:    logger,
	}
}

// Login exchanges credentials for a token and stores it
func (u *UseCase) Login(ctx context.Context, req dto.LoginRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := u.validator.Validate("login", req); err != nil {
		return err
	}

	began := time.Now()
	token, err := u.backend.Login(ctx, req.Email, req.Password)
	if err == nil {
		if serr := u.session.Save(token, req.Email); serr != nil {
			err = fmt.Errorf("login: %w", serr)
		}
	}
	u.record(ctx, "login", began, err)
	return err
}

// Logout forgets the token. Logging out twice is fine.
func (u *UseCase) Logout(ctx context.Context) error {
	began := time.Now()
	err := u.session.Clear()
	u.record(ctx, "logout", began, err)
	return err
}

func (u *UseCase) record(ctx context.Context, op string, began time.Time, err error) {
	if u.journal == nil {
		return
	}
	entry := &repository.JournalRecord{
		Operation: op,
		Outcome:   repository.OutcomeOK,
		ElapsedMs: time.Since(began).Milliseconds(),
	}
	if err != nil {
		entry.Outcome = repository.OutcomeError
		entry.ErrorKind = string(apperr.KindOf(err))
		entry.Error = err.Error()
	}
	if jerr := u.journal.Append(ctx, entry); jerr != nil {
		u.logger.Warn("failed to write journal: %v", jerr)
	}
}
