package engagement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/application/port/input"
	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/application/service"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	domain "github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
)

var _ input.EngagementUseCase = (*LifecycleManager)(nil)

// ConflictError reports that a start or write collided with the
// technician's current engagement. Active is set when it could be loaded,
// so callers can continue with it instead.
type ConflictError struct {
	Active *domain.Engagement
	Err    error
}

func (e *ConflictError) Error() string {
	if e.Active != nil {
		return fmt.Sprintf("%v (active engagement %d at %s)", e.Err, e.Active.ID(), e.Active.Stage().Label())
	}
	return e.Err.Error()
}

// Unwrap returns the classified error, so errors.Is(err, apperr.ErrConflict) holds
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Deps are the collaborators of the lifecycle manager. Photos and
// Evidence may be nil.
type Deps struct {
	Backend   output.BackendGateway
	Cache     repository.EngagementCache
	Journal   repository.JournalRepository
	Guard     *service.Guard
	Validator *service.ValidationService
	Photos    output.PhotoEncoder
	Evidence  output.EvidenceStorageGateway
	Logger    output.Logger
	Now       func() time.Time
}

// LifecycleManager drives an engagement through its stages. The backend is
// authoritative for everything except the current stage between records,
// which lives in the local cache.
type LifecycleManager struct {
	backend   output.BackendGateway
	cache     repository.EngagementCache
	journal   repository.JournalRepository
	guard     *service.Guard
	validator *service.ValidationService
	photos    output.PhotoEncoder
	evidence  output.EvidenceStorageGateway
	logger    output.Logger
	now       func() time.Time
}

// NewLifecycleManager creates a lifecycle manager
func NewLifecycleManager(d Deps) *LifecycleManager {
	m := &LifecycleManager{
		backend:   d.Backend,
		cache:     d.Cache,
		journal:   d.Journal,
		guard:     d.Guard,
		validator: d.Validator,
		photos:    d.Photos,
		evidence:  d.Evidence,
		logger:    d.Logger,
		now:       d.Now,
	}
	if m.guard == nil {
		m.guard = service.NewGuard(nil)
	}
	if m.validator == nil {
		m.validator = service.NewValidationService()
	}
	if m.logger == nil {
		m.logger = output.NopLogger{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// CanStartNew reports whether a new engagement may be started
func (m *LifecycleManager) CanStartNew(active *domain.Engagement) bool {
	return domain.CanStartNew(active)
}

// Start begins an engagement on an order. A start blocked locally or
// rejected by the backend with 409/422 returns *ConflictError.
func (m *LifecycleManager) Start(ctx context.Context, req dto.StartRequest) (*dto.StartResult, error) {
	const op = "start engagement"
	if err := m.validator.Validate(op, req); err != nil {
		return nil, err
	}

	var result *dto.StartResult
	err := m.guard.DoExclusive(service.KeyStart, func() error {
		began := m.now()
		entry := &repository.JournalRecord{Operation: "start", OrderID: req.OrderID}

		active, err := m.GetActive(ctx)
		if err != nil {
			m.record(ctx, entry, began, err)
			return err
		}
		if !domain.CanStartNew(active) {
			cerr := &ConflictError{
				Active: active,
				Err: apperr.New(apperr.KindConflict, op,
					fmt.Sprintf("engagement %d is in %s; finalize it before starting another", active.ID(), active.Stage().Label())),
			}
			entry.EngagementID = active.ID()
			m.record(ctx, entry, began, cerr)
			return cerr
		}

		coords := req.Coordinates.ToModel()
		started, err := m.backend.StartEngagement(ctx, req.OrderID, coords)
		if err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				recovered, gerr := m.GetActive(ctx)
				if gerr != nil {
					m.logger.Warn("could not load the active engagement after a conflict: %v", gerr)
				}
				err = &ConflictError{Active: recovered, Err: err}
			}
			m.record(ctx, entry, began, err)
			return err
		}

		e, err := m.startedEngagement(ctx, started.ID, req.OrderID)
		if err != nil {
			m.record(ctx, entry, began, err)
			return err
		}
		if err := m.cache.Save(ctx, e); err != nil {
			m.logger.Warn("failed to cache engagement %d: %v", e.ID(), err)
		}

		entry.EngagementID = e.ID()
		entry.Stage = string(e.Stage())
		m.record(ctx, entry, began, nil)

		result = &dto.StartResult{Engagement: e, Message: started.Message, Location: coords}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// startedEngagement loads the engagement the backend just started. Starting
// the order of the current engagement returns the existing id, so the
// fetched copy (with its stage) wins over a fresh one.
func (m *LifecycleManager) startedEngagement(ctx context.Context, id, orderID int64) (*domain.Engagement, error) {
	fetched, err := m.GetActive(ctx)
	if err != nil {
		m.logger.Warn("started engagement %d but could not load it: %v", id, err)
	}
	if fetched != nil && fetched.ID() == id {
		return fetched, nil
	}
	return domain.NewEngagement(id, domain.OrderRef{ID: orderID}, m.now())
}

// Advance records the current stage. The stage itself does not move; use
// Next for that.
func (m *LifecycleManager) Advance(ctx context.Context, req dto.AdvanceRequest) (*domain.StageRecord, error) {
	const op = "record stage"
	req.Description = model.NormalizeText(req.Description)
	if err := m.validator.Validate(op, req); err != nil {
		return nil, err
	}

	var saved *domain.StageRecord
	err := m.guard.Do(service.KeyAdvance(req.EngagementID), func() error {
		began := m.now()
		entry := &repository.JournalRecord{Operation: "advance", EngagementID: req.EngagementID}

		e, err := m.load(ctx, op, req.EngagementID)
		if err != nil {
			m.record(ctx, entry, began, err)
			return err
		}
		entry.OrderID = e.Order().ID
		entry.Stage = string(e.Stage())
		if !e.IsActive() {
			err := apperr.New(apperr.KindConflict, op, fmt.Sprintf("engagement %d is already finalized", e.ID()))
			m.record(ctx, entry, began, err)
			return err
		}

		photo, err := m.encodePhoto(ctx, op, req.PhotoPath)
		if err != nil {
			m.record(ctx, entry, began, err)
			return err
		}

		payload := output.RecordStageInput{Stage: e.Stage(), Description: req.Description}
		if photo != nil {
			payload.Photo = photo.DataURL
		}
		resp, err := m.backend.RecordStage(ctx, e.ID(), payload)
		if err != nil {
			if refusedByBackend(err) {
				m.reload(ctx, e)
			}
			m.record(ctx, entry, began, err)
			return err
		}

		trail, terr := m.refreshTrail(ctx, e.ID())
		if terr != nil {
			m.logger.Warn("stage recorded but history refresh failed: %v", terr)
		}
		var reported model.Stage
		if resp != nil {
			reported = resp.Stage
		}
		m.catchUp(ctx, e, reported, trail)
		saved = pickSavedRecord(resp, trail, e.ID(), payload, m.now())

		if photo != nil {
			m.archive(ctx, e.ID(), output.EvidenceKindStage, string(payload.Stage), photo)
		}
		m.record(ctx, entry, began, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// pickSavedRecord prefers the record in the response, then the newest
// matching record of the refreshed trail, then one built from the request
func pickSavedRecord(resp *output.RecordedStage, trail []domain.StageRecord, engagementID int64, in output.RecordStageInput, now time.Time) *domain.StageRecord {
	if resp != nil && resp.Record != nil {
		return resp.Record
	}
	for i := len(trail) - 1; i >= 0; i-- {
		if trail[i].Stage == in.Stage {
			rec := trail[i]
			return &rec
		}
	}
	return &domain.StageRecord{
		EngagementID: engagementID,
		Stage:        in.Stage,
		Description:  in.Description,
		Photo:        in.Photo,
		CreatedAt:    now,
	}
}

// Next moves the cached stage one step forward. It never posts to the
// backend and is refused while a record or finalize of the same
// engagement is in flight. At the last stage it returns
// domain.ErrNoNextStage.
func (m *LifecycleManager) Next(ctx context.Context, engagementID int64) (*dto.NextResult, error) {
	const op = "next stage"
	began := m.now()
	entry := &repository.JournalRecord{Operation: "next", EngagementID: engagementID}

	if m.guard.InFlight(service.KeyAdvance(engagementID)) || m.guard.InFlight(service.KeyFinalize(engagementID)) {
		err := fmt.Errorf("%s: engagement %d: %w", op, engagementID, service.ErrInFlight)
		m.record(ctx, entry, began, err)
		return nil, err
	}

	e, err := m.load(ctx, op, engagementID)
	if err != nil {
		m.record(ctx, entry, began, err)
		return nil, err
	}
	entry.OrderID = e.Order().ID

	prev := e.Stage()
	next, err := e.AdvanceStage()
	if err != nil {
		if errors.Is(err, domain.ErrClosed) {
			err = apperr.Wrap(apperr.KindConflict, op, err)
		}
		entry.Stage = string(prev)
		m.record(ctx, entry, began, err)
		return nil, err
	}

	if err := m.cache.Save(ctx, e); err != nil {
		err = fmt.Errorf("%s: save local stage: %w", op, err)
		m.record(ctx, entry, began, err)
		return nil, err
	}

	entry.Stage = string(next)
	m.record(ctx, entry, began, nil)
	return &dto.NextResult{Previous: prev, Current: next}, nil
}

// Finalize closes an in-progress engagement. Afterwards Advance is refused
// locally.
func (m *LifecycleManager) Finalize(ctx context.Context, req dto.FinalizeRequest) error {
	const op = "finalize engagement"
	req.Observation = model.NormalizeText(req.Observation)
	if err := m.validator.Validate(op, req); err != nil {
		return err
	}

	return m.guard.DoExclusive(service.KeyFinalize(req.EngagementID), func() error {
		began := m.now()
		entry := &repository.JournalRecord{Operation: "finalize", EngagementID: req.EngagementID}

		e, err := m.load(ctx, op, req.EngagementID)
		if err != nil {
			m.record(ctx, entry, began, err)
			return err
		}
		entry.OrderID = e.Order().ID
		entry.Stage = string(e.Stage())
		if !e.IsActive() {
			err := apperr.New(apperr.KindConflict, op, fmt.Sprintf("engagement %d is already finalized", e.ID()))
			m.record(ctx, entry, began, err)
			return err
		}

		photo, err := m.encodePhoto(ctx, op, req.PhotoPath)
		if err != nil {
			m.record(ctx, entry, began, err)
			return err
		}

		payload := output.FinalizeInput{Observation: req.Observation, Location: req.Coordinates.ToModel()}
		if photo != nil {
			payload.Photo = photo.DataURL
		}
		err = m.backend.FinalizeEngagement(ctx, e.ID(), payload)
		if err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				m.reload(ctx, e)
			}
			m.record(ctx, entry, began, err)
			return err
		}

		if cerr := e.Complete(m.now()); cerr == nil {
			if serr := m.cache.Save(ctx, e); serr != nil {
				m.logger.Warn("failed to cache finalized engagement %d: %v", e.ID(), serr)
			}
		}

		if photo != nil {
			m.archive(ctx, e.ID(), output.EvidenceKindFinalize, string(e.Stage()), photo)
		}
		m.record(ctx, entry, began, nil)
		return nil
	})
}

// GetActive returns the technician's active engagement, or nil. The cached
// stage wins when it is later than the backend's.
func (m *LifecycleManager) GetActive(ctx context.Context) (*domain.Engagement, error) {
	e, err := m.backend.GetActiveEngagement(ctx)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	cached, cerr := m.cache.FindByID(ctx, e.ID())
	switch {
	case cerr == nil:
		e.Reconcile(cached.Stage())
		if e.Order().Client == "" && cached.Order().Client != "" {
			e = domain.ReconstructEngagement(e.ID(), cached.Order(), e.Stage(), e.Status(), e.StartedAt(), e.EndedAt())
		}
	case !errors.Is(cerr, repository.ErrNotCached):
		m.logger.Warn("failed to read local cache: %v", cerr)
	}

	if err := m.cache.Save(ctx, e); err != nil {
		m.logger.Warn("failed to cache engagement %d: %v", e.ID(), err)
	}
	return e, nil
}

// Stages returns the trail of an engagement in creation order
func (m *LifecycleManager) Stages(ctx context.Context, engagementID int64) ([]domain.StageRecord, error) {
	if engagementID <= 0 {
		return nil, apperr.Validation("list stages", "engagement id must be greater than 0")
	}
	return m.refreshTrail(ctx, engagementID)
}

// Resume loads the active engagement and its trail. Result.Engagement is
// nil when nothing is active.
func (m *LifecycleManager) Resume(ctx context.Context) (*dto.ResumeResult, error) {
	e, err := m.GetActive(ctx)
	if errors.Is(err, apperr.ErrTransport) {
		return m.cachedResume(ctx, err)
	}
	if err != nil {
		return nil, err
	}
	if e == nil {
		return &dto.ResumeResult{}, nil
	}

	records, err := m.Stages(ctx, e.ID())
	if err != nil {
		return nil, err
	}
	return &dto.ResumeResult{
		Engagement: e,
		Records:    records,
		Violation:  domain.CheckTrail(records),
	}, nil
}

// Show loads one engagement, active or cached, with its trail
func (m *LifecycleManager) Show(ctx context.Context, engagementID int64) (*dto.ResumeResult, error) {
	e, err := m.load(ctx, "show engagement", engagementID)
	if err != nil {
		return nil, err
	}
	records, err := m.Stages(ctx, e.ID())
	if errors.Is(err, apperr.ErrTransport) {
		cached, cerr := m.cache.Records(ctx, e.ID())
		if cerr != nil {
			return nil, err
		}
		return &dto.ResumeResult{Engagement: e, Records: cached, Violation: domain.CheckTrail(cached), Offline: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto.ResumeResult{Engagement: e, Records: records, Violation: domain.CheckTrail(records)}, nil
}

// Evidence lists the photos archived for an engagement, oldest first
func (m *LifecycleManager) Evidence(ctx context.Context, engagementID int64) ([]*output.EvidenceMetadata, error) {
	const op = "list evidence"
	if engagementID <= 0 {
		return nil, apperr.Validation(op, "engagement id must be greater than 0")
	}
	if m.evidence == nil {
		return nil, apperr.Validation(op, "photo archiving is disabled (storage_type none)")
	}
	list, err := m.evidence.ListEvidence(ctx, engagementID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UploadedAt.Equal(list[j].UploadedAt) {
			return list[i].UploadedAt.Before(list[j].UploadedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// EvidencePhoto loads one archived photo
func (m *LifecycleManager) EvidencePhoto(ctx context.Context, evidenceID string) (*output.Evidence, error) {
	const op = "load evidence"
	if evidenceID == "" {
		return nil, apperr.Validation(op, "evidence id is required")
	}
	if m.evidence == nil {
		return nil, apperr.Validation(op, "photo archiving is disabled (storage_type none)")
	}
	return m.evidence.LoadEvidence(ctx, evidenceID)
}

// cachedResume answers Resume from the local cache when the backend is
// unreachable. Without a cached engagement the transport error stands.
func (m *LifecycleManager) cachedResume(ctx context.Context, cause error) (*dto.ResumeResult, error) {
	e, err := m.cache.FindActive(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotCached) {
			m.logger.Warn("failed to read local cache: %v", err)
		}
		return nil, cause
	}
	records, err := m.cache.Records(ctx, e.ID())
	if err != nil {
		m.logger.Warn("failed to read cached stage records of %d: %v", e.ID(), err)
	}
	m.logger.Debug("backend unreachable, showing cached engagement %d: %v", e.ID(), cause)
	return &dto.ResumeResult{
		Engagement: e,
		Records:    records,
		Violation:  domain.CheckTrail(records),
		Offline:    true,
	}, nil
}

func (m *LifecycleManager) refreshTrail(ctx context.Context, engagementID int64) ([]domain.StageRecord, error) {
	records, err := m.backend.ListStageRecords(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	records = domain.SortTrail(records)
	if err := m.cache.ReplaceRecords(ctx, engagementID, records); err != nil {
		m.logger.Warn("failed to cache stage records of %d: %v", engagementID, err)
	}
	return records, nil
}

// catchUp moves the cached stage forward to what the backend reports,
// either directly or through the latest record of the trail
func (m *LifecycleManager) catchUp(ctx context.Context, e *domain.Engagement, reported model.Stage, trail []domain.StageRecord) {
	moved := e.Reconcile(reported)
	if latest, ok := domain.LatestStage(trail); ok && e.Reconcile(latest) {
		moved = true
	}
	if !moved {
		return
	}
	m.logger.Debug("engagement %d caught up to %s", e.ID(), e.Stage())
	if err := m.cache.Save(ctx, e); err != nil {
		m.logger.Warn("failed to cache engagement %d: %v", e.ID(), err)
	}
}

// reload refreshes a cached engagement after the backend refused a write.
// The engagement is closed locally only when the backend no longer
// reports it as active.
func (m *LifecycleManager) reload(ctx context.Context, e *domain.Engagement) {
	trail, err := m.refreshTrail(ctx, e.ID())
	if err != nil {
		m.logger.Warn("failed to reload stage records of %d: %v", e.ID(), err)
	} else {
		m.catchUp(ctx, e, "", trail)
	}

	active, err := m.GetActive(ctx)
	if err != nil {
		m.logger.Warn("failed to reload engagement %d: %v", e.ID(), err)
		return
	}
	if active != nil && active.ID() == e.ID() {
		return
	}
	if err := e.Complete(m.now()); err != nil {
		return
	}
	if err := m.cache.Save(ctx, e); err != nil {
		m.logger.Warn("failed to cache finalized engagement %d: %v", e.ID(), err)
	}
}

// refusedByBackend reports a 4xx answer that means the local copy of the
// engagement is out of date
func refusedByBackend(err error) bool {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Status == 0 {
		return false
	}
	return ae.Kind == apperr.KindValidation || ae.Kind == apperr.KindConflict
}

// load returns the engagement from the cache, falling back to the
// backend's active engagement
func (m *LifecycleManager) load(ctx context.Context, op string, id int64) (*domain.Engagement, error) {
	if id <= 0 {
		return nil, apperr.Validation(op, "engagement id must be greater than 0")
	}

	cached, err := m.cache.FindByID(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, repository.ErrNotCached) {
		m.logger.Warn("failed to read local cache: %v", err)
	}

	active, err := m.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil || active.ID() != id {
		return nil, apperr.New(apperr.KindNotFound, op, fmt.Sprintf("engagement %d is not known locally and is not your active engagement", id))
	}
	return active, nil
}

func (m *LifecycleManager) encodePhoto(ctx context.Context, op, path string) (*output.EncodedPhoto, error) {
	if path == "" {
		return nil, nil
	}
	if m.photos == nil {
		return nil, apperr.Validation(op, "photo attachments are not available")
	}
	return m.photos.Encode(ctx, path)
}

// archive stores photo evidence. Failures never fail the action.
func (m *LifecycleManager) archive(ctx context.Context, engagementID int64, kind output.EvidenceKind, stage string, photo *output.EncodedPhoto) {
	if m.evidence == nil {
		return
	}
	meta, err := m.evidence.SaveEvidence(ctx, output.SaveEvidenceRequest{
		EngagementID: engagementID,
		Kind:         kind,
		Stage:        stage,
		Content:      photo.Content,
		ContentType:  photo.ContentType,
		Metadata:     map[string]string{"source": photo.SourceName},
	})
	if err != nil {
		m.logger.Warn("failed to archive photo evidence: %v", err)
		return
	}
	m.logger.Debug("archived photo evidence at %s", meta.StoragePath)
}

// record appends a journal entry. Journal failures are logged only.
func (m *LifecycleManager) record(ctx context.Context, entry *repository.JournalRecord, began time.Time, err error) {
	if m.journal == nil {
		return
	}
	entry.ElapsedMs = m.now().Sub(began).Milliseconds()
	switch {
	case err == nil:
		entry.Outcome = repository.OutcomeOK
	case isLocalRejection(err):
		entry.Outcome = repository.OutcomeRejected
		entry.Error = err.Error()
		entry.ErrorKind = string(apperr.KindOf(err))
	default:
		entry.Outcome = repository.OutcomeError
		entry.Error = err.Error()
		entry.ErrorKind = string(apperr.KindOf(err))
	}
	if jerr := m.journal.Append(ctx, entry); jerr != nil {
		m.logger.Warn("failed to write journal: %v", jerr)
	}
}

// isLocalRejection reports errors raised before any backend call
func isLocalRejection(err error) bool {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Status == 0 && ae.Kind != apperr.KindTransport
	}
	return errors.Is(err, domain.ErrNoNextStage) || errors.Is(err, service.ErrInFlight)
}
