// Package query runs one resolution end to end and hands the confirmed
// command to the clipboard.
package query

import (
	"context"
	"errors"
	"strings"

	"github.com/doeshing/aicmd-go/internal/application/resolution"
	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/pkg/logger"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// Notices reported when a resolved command is not copied.
const (
	NoticeCopyDisabledForSafety = "Clipboard copying disabled for safety reasons"
	NoticeCopyFailed            = "Failed to copy to clipboard"
)

// Resolver is the part of resolution.Engine the service needs.
type Resolver interface {
	ResolveWith(ctx context.Context, query string, opts resolution.Options) (domain.Resolution, error)
}

// Request is one natural-language query from the CLI.
type Request struct {
	Query    string
	ForceAPI bool
	// NoCopy suppresses the clipboard for this request only.
	NoCopy bool
}

// Response wraps the resolution with what happened to the clipboard.
type Response struct {
	Resolution domain.Resolution
	Copied     bool
	Notice     string
}

// Service orchestrates the query lifecycle end-to-end.
type Service struct {
	Resolver        Resolver
	Clipboard       ports.Clipboard
	Logger          ports.Logger
	CopyToClipboard bool
}

// Run resolves req.Query and copies the command when the user confirmed it
// and the guardrail allows copying.
func (s *Service) Run(ctx context.Context, req Request) (Response, error) {
	if s.Resolver == nil {
		return Response{}, errors.New("query.Service dependencies not satisfied")
	}
	log := s.Logger
	if log == nil {
		log = logger.NewNop()
	}

	res, err := s.Resolver.ResolveWith(ctx, strings.TrimSpace(req.Query), resolution.Options{ForceAPI: req.ForceAPI})
	if err != nil {
		return Response{Resolution: res}, err
	}

	resp := Response{Resolution: res}
	if !res.Confirmed || req.NoCopy || !s.CopyToClipboard {
		return resp, nil
	}
	if res.Safety.DisableAutoCopy || res.Safety.Blocked {
		resp.Notice = NoticeCopyDisabledForSafety
		return resp, nil
	}
	if s.Clipboard == nil || !s.Clipboard.Enabled() {
		return resp, nil
	}
	if err := s.Clipboard.Copy(res.Command); err != nil {
		log.Warn("clipboard copy failed", map[string]interface{}{"error": err.Error(), "id": res.ID})
		resp.Notice = NoticeCopyFailed + ": " + err.Error()
		return resp, nil
	}
	resp.Copied = true
	return resp, nil
}
