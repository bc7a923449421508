package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	consts "github.com/khanhnv2901/seca-pqc/internal/shared/constants"
)

// setupTestAppContext installs an AppContext rooted in a temp directory and
// returns a function restoring the previous one.
func setupTestAppContext(t *testing.T) (*AppContext, func()) {
	t.Helper()

	original := globalAppContext
	originalConfig := *cliConfig

	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	resultsDir := filepath.Join(dataDir, "results")
	if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
		t.Fatalf("failed to create results directory: %v", err)
	}

	*cliConfig = *newCLIConfig()
	appCtx := &AppContext{
		Logger:     zaptest.NewLogger(t).Sugar(),
		Operator:   "test-operator",
		ResultsDir: resultsDir,
		Config:     cliConfig,
	}
	globalAppContext = appCtx

	return appCtx, func() {
		globalAppContext = original
		*cliConfig = originalConfig
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	_ = w.Close()
	os.Stdout = orig
	return <-done
}
