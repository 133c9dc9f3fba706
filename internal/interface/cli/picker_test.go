package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/order"
)

func TestPickerItems(t *testing.T) {
	items := pickerItems([]order.ServiceOrder{
		{ID: 1, Client: "Padaria São João", Address: "Rua A, 10", Status: model.OrderStatusOpen, Phone: "11 5555-0000"},
		{ID: 4, Client: "Hotel Praia", Status: model.OrderStatusAwaiting},
	})

	assert.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, "#1 Padaria São João", items[0].Label)
	assert.Equal(t, "open · Rua A, 10 · 11 5555-0000", items[0].Details)
	assert.Equal(t, "awaiting", items[1].Details)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseID("test", "order", tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogLevelFromString(t *testing.T) {
	assert.Equal(t, LogLevelDebug, LogLevelFromString("DEBUG"))
	assert.Equal(t, LogLevelWarn, LogLevelFromString("warning"))
	assert.Equal(t, LogLevelError, LogLevelFromString(" error "))
	assert.Equal(t, LogLevelWarn, LogLevelFromString("bogus"))
}
