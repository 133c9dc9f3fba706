package journal

// Issue types
const (
	IssueOK    = "ok"
	IssueWarn  = "warn"
	IssueError = "error"
)

// ValidationIssue represents a single validation issue
type ValidationIssue struct {
	Type    string `json:"type"` // "ok", "warn", "error"
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// LineResult represents validation result for a single line
type LineResult struct {
	Line   int               `json:"line"`
	Issues []ValidationIssue `json:"issues"`
}

// ValidationResult represents the complete validation result
type ValidationResult struct {
	Version     int          `json:"version"`
	GeneratedAt string       `json:"generated_at"`
	File        string       `json:"file"`
	Lines       []LineResult `json:"lines"`
	Summary     Summary      `json:"summary"`
}

// Summary contains validation statistics
type Summary struct {
	Lines int `json:"lines"`
	OK    int `json:"ok"`
	Warn  int `json:"warn"`
	Error int `json:"error"`
}

// HasErrors reports whether any line failed validation
func (r *ValidationResult) HasErrors() bool {
	return r.Summary.Error > 0
}

// Validator contains validation configuration and state
type Validator struct {
	filePath    string
	previousTS  string
	previousIDs map[string]int
}

// RequiredKeys are present on every journal line
var RequiredKeys = []string{"id", "timestamp", "operation", "outcome", "elapsed_ms"}

// OptionalKeys may be omitted when empty
var OptionalKeys = []string{"engagement_id", "order_id", "stage", "error_kind", "error"}

// ValidOperations defines the allowed operation values
var ValidOperations = map[string]bool{
	"login":    true,
	"logout":   true,
	"start":    true,
	"advance":  true,
	"next":     true,
	"finalize": true,
}

// ValidOutcomes defines the allowed outcome values
var ValidOutcomes = map[string]bool{
	"ok":       true,
	"error":    true,
	"rejected": true,
}

// NewValidator creates a new journal validator
func NewValidator(filePath string) *Validator {
	return &Validator{
		filePath:    filePath,
		previousIDs: map[string]int{},
	}
}
