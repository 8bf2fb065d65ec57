package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelError(t *testing.T) {
	err := fmt.Errorf("resolve: %w", &SentinelError{Text: "Error: quota exceeded"})

	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("errors.Is(%v, ErrGenerationFailed) = false", err)
	}
	var sentinel *SentinelError
	if !errors.As(err, &sentinel) || sentinel.Error() != "Error: quota exceeded" {
		t.Fatalf("sentinel text = %v, want verbatim message", sentinel)
	}
	if errors.Is(&SentinelError{Text: "Error: x"}, ErrStoreUnavailable) {
		t.Fatal("sentinel must not match unrelated errors")
	}
}
