package presenter_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fieldsvc/fieldsvc/internal/adapter/presenter"
	"github.com/fieldsvc/fieldsvc/internal/application/dto"
)

func TestExportHistoryXLSX(t *testing.T) {
	entries := []dto.HistoryEntryView{
		{
			ID: 11, OrderID: 2, Client: "Mercado Central", Address: dto.PlaceholderAddress,
			Stage: "Quote", Status: "In progress", StartedAt: "01/03/2025 06:00", EndedAt: dto.PlaceholderTime,
			Records: []dto.HistoryRecordView{
				{Stage: "Inspection", Description: "Início do atendimento", CreatedAt: "01/03/2025 06:00"},
				{Stage: "Quote", Description: "Orçamento enviado", HasPhoto: true, CreatedAt: "01/03/2025 07:10"},
			},
		},
		{ID: 10, OrderID: 1, Client: "Padaria", Stage: "Completion", Status: "Completed"},
	}

	var buf bytes.Buffer
	require.NoError(t, presenter.ExportHistoryXLSX(&buf, entries))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(presenter.SheetEngagements)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "11", rows[1][0])
	assert.Equal(t, "Mercado Central", rows[1][2])
	assert.Equal(t, "2", rows[1][8])

	stages, err := f.GetRows(presenter.SheetStages)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, "Orçamento enviado", stages[2][3])
	assert.Equal(t, "yes", stages[2][4])
}

func TestExportHistoryXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, presenter.ExportHistoryXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(presenter.SheetStages)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
