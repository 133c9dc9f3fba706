package engagement

import (
	"fmt"
	"sort"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
)

// StageRecord documents work done at one stage. Records are append-only;
// the ordered sequence of an engagement's records is its audit trail.
type StageRecord struct {
	ID           int64       `json:"id"`
	EngagementID int64       `json:"engagement_id"`
	Stage        model.Stage `json:"stage"`
	Description  string      `json:"description"`
	Photo        string      `json:"photo,omitempty"` // data URL
	CreatedAt    time.Time   `json:"created_at"`
}

// HasPhoto reports whether the record carries a photo
func (r StageRecord) HasPhoto() bool {
	return r.Photo != ""
}

// TrailViolation describes a record whose stage goes backwards
type TrailViolation struct {
	Index    int
	Previous model.Stage
	Stage    model.Stage
}

func (v *TrailViolation) Error() string {
	return fmt.Sprintf("stage record %d goes back from %s to %s", v.Index, v.Previous, v.Stage)
}

// SortTrail orders records by creation time, keeping the backend order for
// ties. Records without a creation time keep their position.
func SortTrail(records []StageRecord) []StageRecord {
	out := make([]StageRecord, len(records))
	copy(out, records)

	var slots []int
	var dated []StageRecord
	for i, r := range out {
		if !r.CreatedAt.IsZero() {
			slots = append(slots, i)
			dated = append(dated, r)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].CreatedAt.Before(dated[j].CreatedAt)
	})
	for k, i := range slots {
		out[i] = dated[k]
	}
	return out
}

// CheckTrail verifies that stages are non-decreasing in creation order.
// Records with unknown stages are skipped. A violation can only come from
// direct backend manipulation, so callers flag it rather than fail.
func CheckTrail(records []StageRecord) *TrailViolation {
	sorted := SortTrail(records)
	var prev model.Stage
	for i, r := range sorted {
		if !r.Stage.IsValid() {
			continue
		}
		if prev != "" && r.Stage.Before(prev) {
			return &TrailViolation{Index: i, Previous: prev, Stage: r.Stage}
		}
		prev = r.Stage
	}
	return nil
}

// LatestStage returns the furthest stage documented by the records
func LatestStage(records []StageRecord) (model.Stage, bool) {
	var latest model.Stage
	for _, r := range records {
		if r.Stage.IsValid() && (latest == "" || latest.Before(r.Stage)) {
			latest = r.Stage
		}
	}
	return latest, latest != ""
}
