package contextcollector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/aicmd-go/internal/domain"
)

func fakeCollector(goos string, env map[string]string) *BasicCollector {
	return &BasicCollector{
		goos:   goos,
		getenv: func(key string) string { return env[key] },
		getwd:  func() (string, error) { return "/work", nil },
	}
}

func TestBasicCollectorReadsEnvironment(t *testing.T) {
	collector := fakeCollector("linux", map[string]string{"SHELL": "/usr/bin/zsh", "USER": "dev"})

	snapshot, err := collector.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ContextSnapshot{WorkingDir: "/work", Shell: "zsh", OS: "linux", User: "dev"}, snapshot)
}

func TestBasicCollectorShellDetection(t *testing.T) {
	tests := []struct {
		name string
		goos string
		env  map[string]string
		want string
	}{
		{name: "unix shell", goos: "darwin", env: map[string]string{"SHELL": "/bin/bash"}, want: "bash"},
		{name: "powershell", goos: "windows", env: map[string]string{"PSModulePath": `C:\Modules`, "ComSpec": `C:\Windows\system32\cmd.exe`}, want: "powershell"},
		{name: "cmd", goos: "windows", env: map[string]string{"ComSpec": "C:/Windows/system32/CMD.EXE"}, want: "cmd"},
		{name: "unknown", goos: "linux", env: map[string]string{}, want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fakeCollector(tt.goos, tt.env).detectShell())
		})
	}
}

func TestBasicCollectorFallbacks(t *testing.T) {
	collector := fakeCollector("windows", map[string]string{"USERNAME": "ada"})
	collector.getwd = func() (string, error) { return "", errors.New("removed") }

	snapshot, err := collector.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", snapshot.User)
	assert.Empty(t, snapshot.WorkingDir)

	assert.Equal(t, "unknown", fakeCollector("linux", nil).detectUser())
}

func TestNewBasicCollectorUsesProcessEnvironment(t *testing.T) {
	t.Setenv("SHELL", "/bin/fish")
	snapshot, err := NewBasicCollector().Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fish", snapshot.Shell)
	assert.NotEmpty(t, snapshot.OS)
}
