package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/doeshing/aicmd-go/internal/domain"
)

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestPresentCacheHit(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, ColorNever)

	r.Present(domain.Resolution{
		ID:         "a",
		Command:    "ls -la",
		Source:     domain.SourceSimilarCache,
		Confidence: 0.85,
		Similarity: 0.8,
	})

	want := []string{
		"Source: Similar Cache",
		"confidence 0.85, similarity 0.80",
		"",
		"  ls -la",
	}
	if diff := cmp.Diff(want, lines(&buf)); diff != "" {
		t.Errorf("Present output mismatch (-want +got):\n%s", diff)
	}
}

func TestPresentThenResultPrintsLateWarningsOnce(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, ColorNever)
	res := domain.Resolution{
		ID:      "b",
		Command: "rm -rf build",
		Source:  domain.SourceAPI,
		Safety: domain.SafetySignal{
			Level:  domain.RiskDangerous,
			Action: domain.ActionConfirm,
		},
		Warnings: []string{"Recursive delete"},
	}
	r.Present(res)

	res.Warnings = append(res.Warnings, "could not save command")
	res.Outcome = domain.OutcomeRejected
	r.Result(res, false, "")

	out := buf.String()
	assert.Contains(t, out, "DANGEROUS (confirm)")
	assert.Equal(t, 1, strings.Count(out, "Recursive delete"))
	assert.Equal(t, 1, strings.Count(out, "could not save command"))
	assert.Contains(t, out, "Rejected.")
	assert.NotContains(t, out, "confidence")
}

func TestResultCopyStatus(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, ColorNever)

	r.Result(domain.Resolution{ID: "c", Confirmed: true}, true, "")
	r.Result(domain.Resolution{ID: "d", Safety: domain.SafetySignal{Blocked: true}}, false, "Auto-copy disabled")

	want := []string{
		"Copied to clipboard.",
		"Command blocked by guardrail, not copied.",
		"Auto-copy disabled",
	}
	if diff := cmp.Diff(want, lines(&buf)); diff != "" {
		t.Errorf("Result output mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordsAndReport(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, ColorNever)

	r.Records(nil)
	r.Records([]domain.CacheRecord{{
		Query:             "list files",
		Command:           "ls",
		ConfidenceScore:   0.5987,
		ConfirmationCount: 1,
		LastUsed:          "2025-06-01 09:30:00",
	}})
	r.Report(domain.MaintenanceReport{StaleRemoved: 2, LowConfidenceRemoved: 1, FeedbackPruned: 4})
	r.Report(domain.MaintenanceReport{})

	want := []string{
		MsgNoCachedCommands,
		"0.599 | +1/-0 | 2025-06-01 09:30:00 | list files => ls",
		"Removed 3 records (stale 2, evicted 0, low confidence 1)",
		"Pruned 4 feedback events",
		"Nothing to clean up.",
	}
	if diff := cmp.Diff(want, lines(&buf)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestHealth(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, ColorNever).Health(domain.HealthReport{Checks: []domain.HealthCheck{
		{Name: "Config file", Status: domain.HealthOK, Details: "/tmp/config.yaml"},
		{Name: "API keys", Status: domain.HealthWarn, Details: "OPENAI_API_KEY not set"},
		{Name: "Command cache", Status: domain.HealthError, Details: "unavailable"},
	}})

	want := []string{
		"[ok]    Config file: /tmp/config.yaml",
		"[warn]  API keys: OPENAI_API_KEY not set",
		"[error] Command cache: unavailable",
	}
	if diff := cmp.Diff(want, lines(&buf)); diff != "" {
		t.Errorf("Health output mismatch (-want +got):\n%s", diff)
	}
}

func TestNonTerminalWriterIsPlain(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, ColorAuto).Present(domain.Resolution{Command: "pwd", Source: domain.SourceAPI})
	assert.NotContains(t, buf.String(), "\x1b[")
}
