package output

// Presenter renders command results. Implementations format for a
// terminal or as JSON.
type Presenter interface {
	// PresentSuccess presents a successful result
	PresentSuccess(message string, data interface{}) error

	// PresentError presents an error
	PresentError(err error) error
}
