package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// Color modes accepted by interaction.color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

type styles struct {
	label    lipgloss.Style
	command  lipgloss.Style
	muted    lipgloss.Style
	ok       lipgloss.Style
	warning  lipgloss.Style
	danger   lipgloss.Style
	critical lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		label:    r.NewStyle().Bold(true),
		command:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("245")),
		ok:       r.NewStyle().Foreground(lipgloss.Color("70")),
		warning:  r.NewStyle().Foreground(lipgloss.Color("220")),
		danger:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("202")),
		critical: r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("160")),
	}
}

// Renderer writes resolutions and maintenance output to the terminal.
type Renderer struct {
	out    io.Writer
	styles styles
	// shown counts the warnings already printed for a resolution ID.
	shown map[string]int
}

// NewRenderer builds a renderer for out. colorMode is auto, always or never;
// auto disables styling when out is not a terminal.
func NewRenderer(out io.Writer, colorMode string) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	r := &Renderer{out: out, shown: make(map[string]int)}
	r.SetColorMode(colorMode)
	return r
}

// SetColorMode rebuilds the styles for colorMode.
func (r *Renderer) SetColorMode(colorMode string) {
	lr := lipgloss.NewRenderer(r.out)
	switch strings.ToLower(colorMode) {
	case ColorAlways:
		lr.SetColorProfile(termenv.ANSI256)
	case ColorNever:
		lr.SetColorProfile(termenv.Ascii)
	default:
		if !isTerminalWriter(r.out) {
			lr.SetColorProfile(termenv.Ascii)
		}
	}
	r.styles = newStyles(lr)
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Present implements ports.ResolutionPresenter.
func (r *Renderer) Present(res domain.Resolution) {
	fmt.Fprintf(r.out, "%s %s\n", r.styles.label.Render("Source:"), res.Source)
	if res.Source.FromCache() {
		details := fmt.Sprintf("confidence %.2f", res.Confidence)
		if res.Similarity > 0 && res.Similarity < 1 {
			details += fmt.Sprintf(", similarity %.2f", res.Similarity)
		}
		fmt.Fprintln(r.out, r.styles.muted.Render(details))
	}
	fmt.Fprintf(r.out, "\n  %s\n\n", r.styles.command.Render(res.Command))

	if res.Safety.Level.Severity() > domain.RiskSafe.Severity() {
		fmt.Fprintln(r.out, r.riskBanner(res.Safety))
	}
	r.printWarnings(res, 0)
	r.shown[res.ID] = len(res.Warnings)
}

// Result prints the outcome once the resolution is final: warnings raised
// after Present, the copy status and any notice.
func (r *Renderer) Result(res domain.Resolution, copied bool, notice string) {
	r.printWarnings(res, r.shown[res.ID])
	delete(r.shown, res.ID)

	switch {
	case res.Safety.Blocked:
		fmt.Fprintln(r.out, r.styles.critical.Render("Command blocked by guardrail, not copied."))
	case copied:
		fmt.Fprintln(r.out, r.styles.ok.Render("Copied to clipboard."))
	case res.Outcome == domain.OutcomeRejected:
		fmt.Fprintln(r.out, r.styles.muted.Render("Rejected."))
	case res.Outcome == domain.OutcomeCancelled:
		fmt.Fprintln(r.out, r.styles.muted.Render("Cancelled."))
	}
	if notice != "" {
		fmt.Fprintln(r.out, r.styles.warning.Render(notice))
	}
	if res.Degraded {
		fmt.Fprintln(r.out, r.styles.muted.Render("Cache bypassed: "+string(res.ErrKind)))
	}
}

func (r *Renderer) printWarnings(res domain.Resolution, from int) {
	if from >= len(res.Warnings) {
		return
	}
	for _, w := range res.Warnings[from:] {
		fmt.Fprintf(r.out, "%s %s\n", r.styles.warning.Render("!"), w)
	}
}

func (r *Renderer) riskBanner(signal domain.SafetySignal) string {
	text := fmt.Sprintf("%s (%s)", strings.ToUpper(string(signal.Level)), signal.Action)
	switch signal.Level {
	case domain.RiskCritical:
		return r.styles.critical.Render(text)
	case domain.RiskDangerous:
		return r.styles.danger.Render(text)
	default:
		return r.styles.warning.Render(text)
	}
}

// Stats prints the cache summary.
func (r *Renderer) Stats(stats domain.CacheStats) {
	fmt.Fprintln(r.out, r.styles.label.Render("Command cache"))
	fmt.Fprintf(r.out, "  Database:         %s\n", stats.DatabasePath)
	fmt.Fprintf(r.out, "  Size:             %d bytes\n", stats.DatabaseBytes)
	fmt.Fprintf(r.out, "  Entries:          %d\n", stats.TotalEntries)
	fmt.Fprintf(r.out, "  Avg confidence:   %.3f\n", stats.AverageConfidence)
	fmt.Fprintf(r.out, "  Confirmations:    %d\n", stats.TotalConfirmations)
	fmt.Fprintf(r.out, "  Rejections:       %d\n", stats.TotalRejections)
	fmt.Fprintf(r.out, "  Feedback events:  %d\n", stats.FeedbackEvents)
	fmt.Fprintln(r.out, r.styles.label.Render("Confidence distribution"))
	fmt.Fprintf(r.out, "  >= 0.9:           %d\n", stats.VeryHighConfidence)
	fmt.Fprintf(r.out, "  0.8 - 0.9:        %d\n", stats.HighConfidence)
	fmt.Fprintf(r.out, "  0.5 - 0.8:        %d\n", stats.MediumConfidence)
	fmt.Fprintf(r.out, "  < 0.5:            %d\n", stats.LowConfidence)
}

// Records prints one line per cache record.
func (r *Renderer) Records(records []domain.CacheRecord) {
	if len(records) == 0 {
		fmt.Fprintln(r.out, MsgNoCachedCommands)
		return
	}
	for _, rec := range records {
		fmt.Fprintf(r.out, "%.3f | +%d/-%d | %s | %s => %s\n",
			rec.ConfidenceScore,
			rec.ConfirmationCount,
			rec.RejectionCount,
			rec.LastUsed,
			rec.Query,
			rec.Command)
	}
}

// Feedback prints feedback log entries.
func (r *Renderer) Feedback(events []domain.FeedbackEvent) {
	if len(events) == 0 {
		fmt.Fprintln(r.out, MsgNoFeedback)
		return
	}
	for _, ev := range events {
		fmt.Fprintf(r.out, "%s | %-9s | %s\n", ev.Timestamp, ev.Action, ev.Command)
	}
}

// Report prints the counts of a maintenance pass.
func (r *Renderer) Report(report domain.MaintenanceReport) {
	if report.Recalculated > 0 {
		fmt.Fprintf(r.out, "Recalculated %d records\n", report.Recalculated)
	}
	if report.Total() == 0 && report.FeedbackPruned == 0 {
		if report.Recalculated == 0 {
			fmt.Fprintln(r.out, "Nothing to clean up.")
		}
		return
	}
	fmt.Fprintf(r.out, "Removed %d records (stale %d, evicted %d, low confidence %d)\n",
		report.Total(), report.StaleRemoved, report.EvictedLRU, report.LowConfidenceRemoved)
	fmt.Fprintf(r.out, "Pruned %d feedback events\n", report.FeedbackPruned)
}

// Health prints doctor checks.
func (r *Renderer) Health(report domain.HealthReport) {
	for _, check := range report.Checks {
		var status string
		switch check.Status {
		case domain.HealthOK:
			status = r.styles.ok.Render("[ok]") + "   "
		case domain.HealthWarn:
			status = r.styles.warning.Render("[warn]") + " "
		default:
			status = r.styles.danger.Render("[error]")
		}
		fmt.Fprintf(r.out, "%s %s: %s\n", status, check.Name, check.Details)
	}
}

// Messages printed when a listing is empty.
const (
	MsgNoCachedCommands = "No cached commands."
	MsgNoFeedback       = "No feedback recorded."
)

var _ ports.ResolutionPresenter = (*Renderer)(nil)
