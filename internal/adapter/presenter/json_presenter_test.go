package presenter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fieldsvc/fieldsvc/internal/adapter/presenter"
	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
)

func TestJSONPresenter_PresentSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	data := &dto.EngagementDTO{
		ID:        101,
		OrderID:   1,
		Client:    "Padaria São João",
		StageName: "Inspection",
	}

	err := p.PresentSuccess("Engagement started", data)
	if err != nil {
		t.Fatalf("PresentSuccess() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(buf).Decode(&result); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if result["success"] != true {
		t.Errorf("Expected success=true, got %v", result["success"])
	}

	if result["message"] != "Engagement started" {
		t.Errorf("Expected message='Engagement started', got %v", result["message"])
	}

	got, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object, got %T", result["data"])
	}
	if got["id"] != float64(101) {
		t.Errorf("Expected data.id=101, got %v", got["id"])
	}
}

func TestJSONPresenter_PresentError(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	testErr := errors.New("test error")
	err := p.PresentError(testErr)
	if err != nil {
		t.Fatalf("PresentError() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(buf).Decode(&result); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if result["success"] != false {
		t.Errorf("Expected success=false, got %v", result["success"])
	}

	if result["error"] != "test error" {
		t.Errorf("Expected error='test error', got %v", result["error"])
	}

	if _, ok := result["kind"]; ok {
		t.Errorf("Expected no kind for an unclassified error")
	}
}

func TestJSONPresenter_PresentClassifiedError(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	_ = p.PresentError(&apperr.Error{Kind: apperr.KindConflict, Op: "finalize engagement", Status: 409, Detail: "Atendimento já finalizado"})

	var result map[string]interface{}
	if err := json.NewDecoder(buf).Decode(&result); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if result["kind"] != "conflict" {
		t.Errorf("Expected kind='conflict', got %v", result["kind"])
	}

	if result["status"] != float64(409) {
		t.Errorf("Expected status=409, got %v", result["status"])
	}
}
