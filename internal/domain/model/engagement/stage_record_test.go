package engagement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
)

func record(id int64, stage model.Stage, minute int) StageRecord {
	return StageRecord{
		ID:           id,
		EngagementID: 7,
		Stage:        stage,
		CreatedAt:    time.Date(2025, 3, 1, 9, minute, 0, 0, time.UTC),
	}
}

func TestCheckTrail(t *testing.T) {
	tests := []struct {
		name    string
		records []StageRecord
		wantIdx int // -1 when no violation
	}{
		{"empty", nil, -1},
		{
			"non-decreasing with repeats",
			[]StageRecord{
				record(1, model.StageInspection, 0),
				record(2, model.StageInspection, 5),
				record(3, model.StageDiagnosis, 10),
				record(4, model.StageExecution, 20),
			},
			-1,
		},
		{
			"out of order input sorted by time first",
			[]StageRecord{
				record(2, model.StageDiagnosis, 10),
				record(1, model.StageInspection, 0),
			},
			-1,
		},
		{
			"goes backwards",
			[]StageRecord{
				record(1, model.StageInspection, 0),
				record(2, model.StageQuote, 10),
				record(3, model.StageDiagnosis, 20),
			},
			2,
		},
		{
			"undated record keeps backend order",
			[]StageRecord{
				record(1, model.StageInspection, 0),
				{ID: 2, EngagementID: 7, Stage: model.StageQuote},
				record(3, model.StageExecution, 20),
			},
			-1,
		},
		{
			"unknown stages are skipped",
			[]StageRecord{
				record(1, model.StageDiagnosis, 0),
				record(2, model.Stage(""), 5),
				record(3, model.StageQuote, 10),
			},
			-1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CheckTrail(tt.records)
			if tt.wantIdx < 0 {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Equal(t, tt.wantIdx, v.Index)
			assert.Contains(t, v.Error(), "goes back")
		})
	}
}

func TestSortTrail(t *testing.T) {
	undated := StageRecord{ID: 9, EngagementID: 7, Stage: model.StageDiagnosis}
	in := []StageRecord{
		record(3, model.StageQuote, 30),
		undated,
		record(1, model.StageInspection, 0),
		record(2, model.StageInspection, 0),
	}

	out := SortTrail(in)

	ids := make([]int64, len(out))
	for i, r := range out {
		ids[i] = r.ID
	}
	assert.Equal(t, []int64{1, 9, 2, 3}, ids)
	assert.Equal(t, int64(3), in[0].ID, "input is not modified")
}

func TestLatestStage(t *testing.T) {
	_, ok := LatestStage(nil)
	assert.False(t, ok)

	latest, ok := LatestStage([]StageRecord{
		record(1, model.StageQuote, 0),
		record(2, model.StageDiagnosis, 1),
	})
	assert.True(t, ok)
	assert.Equal(t, model.StageQuote, latest)
}

func TestSummary_IsActive(t *testing.T) {
	end := time.Now()
	assert.True(t, Summary{Status: model.EngagementInProgress}.IsActive())
	assert.False(t, Summary{Status: model.EngagementCompleted}.IsActive())
	assert.True(t, Summary{}.IsActive())
	assert.False(t, Summary{EndedAt: &end}.IsActive())
}
