package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Stage represents one of the six ordered phases of an engagement.
// Values are the wire names used by the backend.
type Stage string

const (
	StageInspection Stage = "INSPECAO"
	StageDiagnosis  Stage = "DIAGNOSTICO"
	StageQuote      Stage = "ORCAMENTO"
	StageApproval   Stage = "APROVACAO"
	StageExecution  Stage = "EXECUCAO"
	StageCompletion Stage = "FINALIZACAO"
)

// stageOrder is the canonical progression of an engagement
var stageOrder = []Stage{
	StageInspection,
	StageDiagnosis,
	StageQuote,
	StageApproval,
	StageExecution,
	StageCompletion,
}

var stageLabels = map[Stage]string{
	StageInspection: "Inspection",
	StageDiagnosis:  "Diagnosis",
	StageQuote:      "Quote",
	StageApproval:   "Approval",
	StageExecution:  "Execution",
	StageCompletion: "Completion",
}

// Stages returns the canonical stage order
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// FirstStage returns the stage every engagement starts in
func FirstStage() Stage {
	return stageOrder[0]
}

// String returns the wire representation
func (s Stage) String() string {
	return string(s)
}

// Label returns a human-readable name
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsValid validates the stage
func (s Stage) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the position of the stage in the canonical order, or -1
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the following stage. The second value is false for the last
// stage and for invalid stages.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(stageOrder) {
		return "", false
	}
	return stageOrder[i+1], true
}

// Before reports whether s comes strictly before other
func (s Stage) Before(other Stage) bool {
	return s.Index() < other.Index()
}

// ParseStage accepts a wire name ("EXECUCAO") or an English label
// ("execution"), case-insensitively.
func ParseStage(v string) (Stage, error) {
	key := strings.ToUpper(strings.TrimSpace(v))
	for _, st := range stageOrder {
		if string(st) == key || strings.ToUpper(st.Label()) == key {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid stage: %q", v)
}

// OrderStatus is the backend status of a service order
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "EM_ABERTO"
	OrderStatusInService OrderStatus = "EM_ATENDIMENTO"
	OrderStatusAwaiting  OrderStatus = "AGUARDANDO"
	OrderStatusInField   OrderStatus = "EM_CAMPO"
	OrderStatusCompleted OrderStatus = "CONCLUIDA"
)

// String returns the wire representation
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid validates the order status
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusInService, OrderStatusAwaiting, OrderStatusInField, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// Label returns a human-readable name
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusOpen:
		return "open"
	case OrderStatusInService:
		return "in service"
	case OrderStatusAwaiting:
		return "awaiting"
	case OrderStatusInField:
		return "in field"
	case OrderStatusCompleted:
		return "completed"
	default:
		return strings.ToLower(string(s))
	}
}

// EngagementStatus is the overall status of an engagement
type EngagementStatus string

const (
	EngagementInProgress EngagementStatus = "em_andamento"
	EngagementCompleted  EngagementStatus = "concluido"
	EngagementCanceled   EngagementStatus = "cancelado"
)

// String returns the wire representation
func (s EngagementStatus) String() string {
	return string(s)
}

// IsValid validates the engagement status
func (s EngagementStatus) IsValid() bool {
	switch s {
	case EngagementInProgress, EngagementCompleted, EngagementCanceled:
		return true
	default:
		return false
	}
}

// Label returns a human-readable name
func (s EngagementStatus) Label() string {
	switch s {
	case EngagementCompleted:
		return "Completed"
	case EngagementCanceled:
		return "Canceled"
	default:
		return "In progress"
	}
}

// Coordinates is a best-effort location tag. The zero value means unknown.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero reports whether the coordinates are the (0,0) fallback
func (c Coordinates) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// String returns the string representation
func (c Coordinates) String() string {
	if c.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// NormalizeText trims free text and folds it to NFC so accented input typed
// on different devices compares and stores identically.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
