package history

import (
	"context"
	"errors"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/application/port/input"
	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
)

var _ input.HistoryUseCase = (*Viewer)(nil)

// DateLayout is how history timestamps are shown
const DateLayout = "02/01/2006 15:04"

const (
	emptyMessage        = "No engagements yet."
	emptyOfflineMessage = "No history saved locally yet. Run `fieldsvc history` while online first."
)

// Viewer builds the history screen. Every fetch refreshes the offline
// snapshot.
type Viewer struct {
	backend   output.BackendGateway
	snapshots repository.HistoryRepository
	location  *time.Location
	logger    output.Logger
	now       func() time.Time
}

// NewViewer creates a history viewer. snapshots may be nil.
func NewViewer(backend output.BackendGateway, snapshots repository.HistoryRepository, location *time.Location, logger output.Logger) *Viewer {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Viewer{
		backend:   backend,
		snapshots: snapshots,
		location:  location,
		logger:    logger,
		now:       time.Now,
	}
}

// List fetches the full history with stage records
func (v *Viewer) List(ctx context.Context) (*dto.HistoryView, error) {
	entries, err := v.backend.History(ctx)
	if err != nil {
		return nil, err
	}

	fetchedAt := v.now()
	if v.snapshots != nil {
		if err := v.snapshots.SaveSnapshot(ctx, &repository.HistorySnapshot{FetchedAt: fetchedAt, Entries: entries}); err != nil {
			v.logger.Warn("failed to save history snapshot: %v", err)
		}
	}

	view := v.build(entries, emptyMessage)
	view.FetchedAt = v.format(&fetchedAt)
	return view, nil
}

// Offline renders the last saved snapshot without calling the backend
func (v *Viewer) Offline(ctx context.Context) (*dto.HistoryView, error) {
	if v.snapshots == nil {
		return &dto.HistoryView{Empty: true, EmptyMessage: emptyOfflineMessage, Offline: true, Groups: []dto.HistoryGroup{}}, nil
	}
	snap, err := v.snapshots.LatestSnapshot(ctx)
	if errors.Is(err, repository.ErrNotCached) {
		return &dto.HistoryView{Empty: true, EmptyMessage: emptyOfflineMessage, Offline: true, Groups: []dto.HistoryGroup{}}, nil
	}
	if err != nil {
		return nil, err
	}

	view := v.build(snap.Entries, emptyMessage)
	view.Offline = true
	view.FetchedAt = v.format(&snap.FetchedAt)
	return view, nil
}

// Mine lists the technician's engagements without stage records
func (v *Viewer) Mine(ctx context.Context) (*dto.HistoryView, error) {
	entries, err := v.backend.MyEngagements(ctx)
	if err != nil {
		return nil, err
	}
	return v.build(entries, emptyMessage), nil
}

// Summaries returns the raw history for export
func (v *Viewer) Summaries(ctx context.Context, offline bool) ([]engagement.Summary, error) {
	if !offline {
		return v.backend.History(ctx)
	}
	if v.snapshots == nil {
		return nil, repository.ErrNotCached
	}
	snap, err := v.snapshots.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Entries, nil
}

// groupOrder puts engagements in progress first
var groupOrder = []model.EngagementStatus{
	model.EngagementInProgress,
	model.EngagementCompleted,
	model.EngagementCanceled,
}

func (v *Viewer) build(entries []engagement.Summary, empty string) *dto.HistoryView {
	view := &dto.HistoryView{Total: len(entries), Groups: []dto.HistoryGroup{}}
	if len(entries) == 0 {
		view.Empty = true
		view.EmptyMessage = empty
		return view
	}

	byStatus := make(map[model.EngagementStatus][]dto.HistoryEntryView)
	for _, e := range entries {
		status := statusOf(e)
		byStatus[status] = append(byStatus[status], v.entryView(e, status))
	}
	for _, status := range groupOrder {
		if list := byStatus[status]; len(list) > 0 {
			view.Groups = append(view.Groups, dto.HistoryGroup{Status: status.Label(), Entries: list})
		}
	}
	return view
}

func statusOf(e engagement.Summary) model.EngagementStatus {
	if e.Status.IsValid() {
		return e.Status
	}
	if e.IsActive() {
		return model.EngagementInProgress
	}
	return model.EngagementCompleted
}

// Display builds the view of one entry; exported for the spreadsheet export
func (v *Viewer) Display(e engagement.Summary) dto.HistoryEntryView {
	return v.entryView(e, statusOf(e))
}

func (v *Viewer) entryView(e engagement.Summary, status model.EngagementStatus) dto.HistoryEntryView {
	out := dto.HistoryEntryView{
		ID:        e.ID,
		OrderID:   e.OrderID,
		Client:    orPlaceholder(e.Client, dto.PlaceholderClient),
		Address:   orPlaceholder(e.Address, dto.PlaceholderAddress),
		Stage:     stageLabel(e.Stage),
		Status:    status.Label(),
		Active:    status == model.EngagementInProgress,
		StartedAt: v.format(e.StartedAt),
		EndedAt:   v.format(e.EndedAt),
		Records:   []dto.HistoryRecordView{},
	}

	trail := engagement.SortTrail(e.Records)
	for _, r := range trail {
		out.Records = append(out.Records, v.Record(r))
	}
	if violation := engagement.CheckTrail(trail); violation != nil {
		out.Warning = violation.Error()
	}
	return out
}

// Record builds the view of one stage record
func (v *Viewer) Record(r engagement.StageRecord) dto.HistoryRecordView {
	var created *time.Time
	if !r.CreatedAt.IsZero() {
		t := r.CreatedAt
		created = &t
	}
	return dto.HistoryRecordView{
		Stage:       stageLabel(r.Stage),
		Description: orPlaceholder(r.Description, dto.PlaceholderText),
		HasPhoto:    r.HasPhoto(),
		CreatedAt:   v.format(created),
	}
}

// Trail builds the view of a loaded engagement and its records
func (v *Viewer) Trail(res *dto.ResumeResult) dto.HistoryEntryView {
	e := res.Engagement
	started := e.StartedAt()
	return v.Display(engagement.Summary{
		ID:        e.ID(),
		OrderID:   e.Order().ID,
		Client:    e.Order().Client,
		Address:   e.Order().Address,
		Stage:     e.Stage(),
		Status:    e.Status(),
		StartedAt: &started,
		EndedAt:   e.EndedAt(),
		Records:   res.Records,
	})
}

func (v *Viewer) format(t *time.Time) string {
	if t == nil || t.IsZero() {
		return dto.PlaceholderTime
	}
	return t.In(v.location).Format(DateLayout)
}

func stageLabel(s model.Stage) string {
	if s == "" {
		return dto.PlaceholderStage
	}
	return s.Label()
}

func orPlaceholder(s, placeholder string) string {
	if model.NormalizeText(s) == "" {
		return placeholder
	}
	return s
}
