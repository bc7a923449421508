package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/khanhnv2901/seca-pqc/internal/pqc"
)

func runVersion(t *testing.T, flags ...string) string {
	t.Helper()
	t.Cleanup(func() {
		_ = versionCmd.Flags().Set("verbose", "false")
		_ = versionCmd.Flags().Set("json", "false")
		versionCmd.SetOut(nil)
	})
	for _, name := range flags {
		if err := versionCmd.Flags().Set(name, "true"); err != nil {
			t.Fatalf("set --%s: %v", name, err)
		}
	}
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version: %v", err)
	}
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	if out := runVersion(t); out != "seca-pqc dev (unknown)\n" {
		t.Fatalf("unexpected short version %q", out)
	}

	verbose := runVersion(t, "verbose")
	for _, cat := range pqc.Categories {
		if !strings.Contains(verbose, string(cat)) {
			t.Errorf("verbose output missing category %s", cat)
		}
	}

	var info versionInfo
	if err := json.Unmarshal([]byte(runVersion(t, "json")), &info); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if info.Version != Version || len(info.Categories) != len(pqc.Categories) {
		t.Fatalf("unexpected version info %+v", info)
	}
}
