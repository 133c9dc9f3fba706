package model

import (
	"testing"
)

// ==================== Stage Tests ====================

func TestStage_Next(t *testing.T) {
	tests := []struct {
		stage    Stage
		wantNext Stage
		wantOK   bool
	}{
		{StageInspection, StageDiagnosis, true},
		{StageDiagnosis, StageQuote, true},
		{StageQuote, StageApproval, true},
		{StageApproval, StageExecution, true},
		{StageExecution, StageCompletion, true},
		{StageCompletion, "", false},
		{Stage("BOGUS"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			next, ok := tt.stage.Next()
			if ok != tt.wantOK {
				t.Errorf("Next() ok = %v, want %v", ok, tt.wantOK)
			}
			if next != tt.wantNext {
				t.Errorf("Next() = %q, want %q", next, tt.wantNext)
			}
		})
	}
}

func TestStage_OrderIsCanonical(t *testing.T) {
	stages := Stages()
	if len(stages) != 6 {
		t.Fatalf("expected 6 stages, got %d", len(stages))
	}
	if stages[0] != FirstStage() {
		t.Errorf("FirstStage() = %s, want %s", FirstStage(), stages[0])
	}
	for i := 0; i < len(stages)-1; i++ {
		if !stages[i].Before(stages[i+1]) {
			t.Errorf("%s should come before %s", stages[i], stages[i+1])
		}
		if stages[i].Index() != i {
			t.Errorf("%s Index() = %d, want %d", stages[i], stages[i].Index(), i)
		}
	}

	// Stages returns a copy
	stages[0] = StageCompletion
	if Stages()[0] != StageInspection {
		t.Error("Stages() should not expose the internal order")
	}
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Stage
		wantErr bool
	}{
		{"wire name", "EXECUCAO", StageExecution, false},
		{"lower wire name", "diagnostico", StageDiagnosis, false},
		{"english label", "Quote", StageQuote, false},
		{"padded", "  approval ", StageApproval, false},
		{"unknown", "REVIEW", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStage(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStage() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ==================== Status Tests ====================

func TestOrderStatus_IsValid(t *testing.T) {
	valid := []OrderStatus{OrderStatusOpen, OrderStatusInService, OrderStatusAwaiting, OrderStatusInField, OrderStatusCompleted}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if OrderStatus("ARCHIVED").IsValid() {
		t.Error("ARCHIVED should be invalid")
	}
}

func TestEngagementStatus_Label(t *testing.T) {
	if EngagementCompleted.Label() != "Completed" {
		t.Errorf("unexpected label %q", EngagementCompleted.Label())
	}
	// Unknown statuses render as in progress, matching the backend default
	if EngagementStatus("").Label() != "In progress" {
		t.Errorf("unexpected label %q", EngagementStatus("").Label())
	}
}

// ==================== Coordinates Tests ====================

func TestCoordinates(t *testing.T) {
	var zero Coordinates
	if !zero.IsZero() {
		t.Error("zero value should be IsZero")
	}
	if zero.String() != "unknown" {
		t.Errorf("String() = %q", zero.String())
	}

	c := Coordinates{Latitude: -23.5, Longitude: -46.6}
	if c.IsZero() {
		t.Error("non-zero coordinates reported as zero")
	}
	if c.String() != "-23.500000,-46.600000" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestNormalizeText(t *testing.T) {
	// "ç" as c + combining cedilla folds to the precomposed rune
	decomposed := "  verifica" + "c\u0327" + "\u00e3o  "
	if got := NormalizeText(decomposed); got != "verifica\u00e7\u00e3o" {
		t.Errorf("NormalizeText() = %q", got)
	}
}
