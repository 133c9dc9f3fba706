package presenter

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
	"github.com/fieldsvc/fieldsvc/internal/validator/journal"
)

// CLIPresenter implements output.Presenter for terminal output
type CLIPresenter struct {
	output io.Writer
}

// NewCLIPresenter creates a new CLI presenter
func NewCLIPresenter(output io.Writer) output.Presenter {
	return &CLIPresenter{output: output}
}

// PresentSuccess presents a successful result
func (p *CLIPresenter) PresentSuccess(message string, data interface{}) error {
	if message != "" {
		fmt.Fprintf(p.output, "✓ %s\n", message)
	}

	switch v := data.(type) {
	case nil:
		return nil
	case *dto.EngagementDTO:
		p.presentEngagement(v)
	case *dto.OrdersView:
		p.presentOrders(v)
	case *dto.HistoryView:
		p.presentHistory(v)
	case *dto.HistoryEntryView:
		p.presentEntry(*v, true)
	case *dto.HistoryRecordView:
		p.presentRecord(*v, "")
	case *dto.NextResult:
		fmt.Fprintf(p.output, "Stage: %s → %s\n", v.Previous.Label(), v.Current.Label())
	case []*repository.JournalRecord:
		p.presentJournal(v)
	case *output.HealthStatus:
		p.presentHealth(v)
	case []*output.EvidenceMetadata:
		p.presentEvidence(v)
	case *journal.ValidationResult:
		p.presentValidation(v)
	case string:
		fmt.Fprintln(p.output, v)
	default:
		fmt.Fprintf(p.output, "%+v\n", data)
	}
	return nil
}

// PresentError presents an error with a hint for the user's next step
func (p *CLIPresenter) PresentError(err error) error {
	fmt.Fprintf(p.output, "✗ Error: %v\n", err)
	if hint := Hint(err); hint != "" {
		fmt.Fprintf(p.output, "  %s\n", hint)
	}
	return err
}

// Hint suggests what to do after err
func Hint(err error) string {
	switch {
	case errors.Is(err, apperr.ErrAuth):
		return "Log in again with `fieldsvc login`."
	case errors.Is(err, apperr.ErrTransport):
		return "The backend could not be reached. Check the connection and try again."
	case errors.Is(err, apperr.ErrServer):
		return "The backend failed. Try again in a moment."
	case errors.Is(err, apperr.ErrForbidden):
		return "This engagement belongs to another technician."
	case errors.Is(err, apperr.ErrConflict):
		return "Reload with `fieldsvc active` before continuing."
	default:
		return ""
	}
}

func (p *CLIPresenter) presentEngagement(e *dto.EngagementDTO) {
	fmt.Fprintf(p.output, "Engagement: %d\n", e.ID)
	fmt.Fprintf(p.output, "Order: %d", e.OrderID)
	if e.Client != "" {
		fmt.Fprintf(p.output, " (%s)", e.Client)
	}
	fmt.Fprintln(p.output)
	if e.Address != "" {
		fmt.Fprintf(p.output, "Address: %s\n", e.Address)
	}
	fmt.Fprintf(p.output, "Stage: %s\n", e.StageName)
	fmt.Fprintf(p.output, "Status: %s\n", e.Status.Label())
	if e.StartedAt != "" {
		fmt.Fprintf(p.output, "Started: %s\n", e.StartedAt)
	}
	if e.EndedAt != "" {
		fmt.Fprintf(p.output, "Ended: %s\n", e.EndedAt)
	}
	if e.CanFinish && e.Status.Label() == "In progress" {
		fmt.Fprintln(p.output, "\nLast stage reached: run `fieldsvc finalize` to close it.")
	}
}

func (p *CLIPresenter) presentOrders(v *dto.OrdersView) {
	if v.Note != "" {
		fmt.Fprintf(p.output, "%s\n\n", v.Note)
	}
	if len(v.Orders) == 0 {
		fmt.Fprintln(p.output, "No service orders available.")
	} else {
		tw := tabwriter.NewWriter(p.output, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCLIENT\tADDRESS\tSTATUS")
		for _, o := range v.Orders {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.ID, o.Client, o.Address, o.Status.Label())
		}
		_ = tw.Flush()
	}
	if v.Hidden > 0 {
		fmt.Fprintf(p.output, "\n%d order(s) hidden by the active engagement; use --all to list them.\n", v.Hidden)
	}
}

func (p *CLIPresenter) presentHistory(v *dto.HistoryView) {
	if v.Offline {
		fmt.Fprintf(p.output, "Offline copy fetched at %s\n\n", v.FetchedAt)
	}
	if v.Empty {
		fmt.Fprintln(p.output, v.EmptyMessage)
		return
	}
	for gi, g := range v.Groups {
		if gi > 0 {
			fmt.Fprintln(p.output)
		}
		fmt.Fprintf(p.output, "== %s (%d) ==\n", g.Status, len(g.Entries))
		for _, e := range g.Entries {
			p.presentEntry(e, false)
		}
	}
	fmt.Fprintf(p.output, "\nTotal: %d engagement(s)\n", v.Total)
}

func (p *CLIPresenter) presentEntry(e dto.HistoryEntryView, detailed bool) {
	fmt.Fprintf(p.output, "\n#%d  Order %d  %s\n", e.ID, e.OrderID, e.Client)
	fmt.Fprintf(p.output, "    Address: %s\n", e.Address)
	fmt.Fprintf(p.output, "    Stage: %s  Status: %s\n", e.Stage, e.Status)
	fmt.Fprintf(p.output, "    Started: %s  Ended: %s\n", e.StartedAt, e.EndedAt)
	if e.Warning != "" {
		fmt.Fprintf(p.output, "    ! %s\n", e.Warning)
	}
	if len(e.Records) == 0 {
		if detailed {
			fmt.Fprintln(p.output, "    No stage records yet.")
		}
		return
	}
	for _, r := range e.Records {
		p.presentRecord(r, "    ")
	}
}

func (p *CLIPresenter) presentRecord(r dto.HistoryRecordView, indent string) {
	photo := ""
	if r.HasPhoto {
		photo = " [photo]"
	}
	fmt.Fprintf(p.output, "%s- %s  %s%s\n", indent, r.CreatedAt, r.Stage, photo)
	for _, line := range strings.Split(r.Description, "\n") {
		fmt.Fprintf(p.output, "%s    %s\n", indent, line)
	}
}

func (p *CLIPresenter) presentJournal(records []*repository.JournalRecord) {
	if len(records) == 0 {
		fmt.Fprintln(p.output, "Journal is empty.")
		return
	}
	tw := tabwriter.NewWriter(p.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOPERATION\tENGAGEMENT\tSTAGE\tOUTCOME\tMS\tERROR")
	for _, r := range records {
		engagement := "-"
		if r.EngagementID != 0 {
			engagement = fmt.Sprintf("%d", r.EngagementID)
		}
		stage := r.Stage
		if stage == "" {
			stage = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n", r.Timestamp, r.Operation, engagement, stage, r.Outcome, r.ElapsedMs, r.Error)
	}
	_ = tw.Flush()
}

func (p *CLIPresenter) presentHealth(h *output.HealthStatus) {
	fmt.Fprintf(p.output, "Backend: %s\n", h.Status)
	for _, name := range []string{"api", "database"} {
		if v, ok := h.Components[name]; ok {
			fmt.Fprintf(p.output, "  %s: %s\n", name, v)
		}
	}
}

func (p *CLIPresenter) presentEvidence(list []*output.EvidenceMetadata) {
	tw := tabwriter.NewWriter(p.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTAGE\tSIZE\tUPLOADED\tLOCATION")
	for _, m := range list {
		stage := m.Stage
		if st := model.Stage(stage); st.IsValid() {
			stage = st.Label()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			m.ID, m.Kind, stage, m.Size, m.UploadedAt.Local().Format("2006-01-02 15:04"), m.StoragePath)
	}
	tw.Flush()
}

func (p *CLIPresenter) presentValidation(r *journal.ValidationResult) {
	for _, line := range r.Lines {
		for _, issue := range line.Issues {
			mark := "!"
			if issue.Type == journal.IssueError {
				mark = "✗"
			}
			if issue.Field != "" {
				fmt.Fprintf(p.output, "%s line %d %s: %s\n", mark, line.Line, issue.Field, issue.Message)
			} else {
				fmt.Fprintf(p.output, "%s line %d: %s\n", mark, line.Line, issue.Message)
			}
		}
	}
	fmt.Fprintf(p.output, "%s: %d line(s), %d ok, %d warn, %d error\n",
		r.File, r.Summary.Lines, r.Summary.OK, r.Summary.Warn, r.Summary.Error)
}
