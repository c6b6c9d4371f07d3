package procutil

import (
	"os/exec"
	"testing"
	"time"
)

func TestLookupBoolEnv(t *testing.T) {
	for name, tc := range map[string]struct {
		value string
		def   bool
		want  bool
	}{
		"true":    {value: "true", want: true},
		"one":     {value: "1", want: true},
		"off":     {value: "off", def: true, want: false},
		"garbage": {value: "maybe", def: true, want: true},
		"unset":   {def: true, want: true},
	} {
		t.Run(name, func(t *testing.T) {
			if tc.value != "" {
				t.Setenv(string(EnvStrictCycles), tc.value)
			}
			if got := LookupBoolEnv(EnvStrictCycles, tc.def); got != tc.want {
				t.Errorf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestLookupTypedEnv(t *testing.T) {
	t.Setenv(string(EnvCacheSize), " 42 ")
	t.Setenv(string(EnvCacheTTL), "90s")
	t.Setenv(string(EnvProject), "   ")

	if got := LookupIntEnv(EnvCacheSize, 1); got != 42 {
		t.Errorf("int: want 42, got %d", got)
	}
	if got := LookupDurationEnv(EnvCacheTTL, time.Second); got != 90*time.Second {
		t.Errorf("duration: want 90s, got %v", got)
	}
	if got := LookupStringEnv(EnvProject, "default"); got != "default" {
		t.Errorf("blank string should fall back, got %q", got)
	}
}

func TestCmdExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cmd := exec.Command("sh", "-c", "exit 3")
	err := cmd.Run()
	if got := CmdExitCode(cmd, err); got != 3 {
		t.Errorf("want 3, got %d", got)
	}

	cmd = exec.Command("/nonexistent/binary")
	err = cmd.Run()
	if got := CmdExitCode(cmd, err); got != -1 {
		t.Errorf("want -1, got %d", got)
	}
}
