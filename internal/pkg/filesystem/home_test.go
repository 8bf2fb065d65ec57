package filesystem

import (
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.aicmd/config.yaml", filepath.Join(home, ".aicmd", "config.yaml")},
		{"/etc/aicmd.yaml", "/etc/aicmd.yaml"},
		{"relative/path", "relative/path"},
		{"~other/file", "~other/file"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandHome(tt.in); got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
