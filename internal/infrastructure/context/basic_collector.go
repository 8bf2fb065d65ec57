package contextcollector

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// BasicCollector implements ContextCollector from the process environment.
type BasicCollector struct {
	goos   string
	getenv func(string) string
	getwd  func() (string, error)
}

// NewBasicCollector reads the live environment.
func NewBasicCollector() *BasicCollector {
	return &BasicCollector{goos: runtime.GOOS, getenv: os.Getenv, getwd: os.Getwd}
}

// Collect gathers the OS, shell, user and working directory. It never fails;
// unknown values are reported as "unknown".
func (c *BasicCollector) Collect(ctx context.Context) (domain.ContextSnapshot, error) {
	wd, err := c.getwd()
	if err != nil {
		wd = ""
	}
	return domain.ContextSnapshot{
		WorkingDir: wd,
		Shell:      c.detectShell(),
		OS:         c.goos,
		User:       c.detectUser(),
	}, nil
}

func (c *BasicCollector) detectShell() string {
	if shell := c.getenv("SHELL"); shell != "" {
		return strings.TrimSuffix(filepath.Base(filepath.ToSlash(shell)), ".exe")
	}
	if c.goos == "windows" {
		if c.getenv("PSModulePath") != "" {
			return "powershell"
		}
		if comspec := c.getenv("ComSpec"); comspec != "" {
			return strings.TrimSuffix(strings.ToLower(filepath.Base(filepath.ToSlash(comspec))), ".exe")
		}
	}
	return "unknown"
}

func (c *BasicCollector) detectUser() string {
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := c.getenv(key); v != "" {
			return v
		}
	}
	return "unknown"
}

var _ ports.ContextCollector = (*BasicCollector)(nil)
