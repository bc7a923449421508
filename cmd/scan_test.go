package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/orchestrator"
	sharedErrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
)

func sampleOutcome() *orchestrator.Outcome {
	return &orchestrator.Outcome{
		RequestID: "req-1",
		BatchID:   "batch-1",
		Summary: orchestrator.Totals{
			TotalDomains:    2,
			Successful:      1,
			Failed:          1,
			RoundsCompleted: 3,
		},
		SuccessfulScans: []scan.Result{{
			URL:             "example.com",
			QuantumScore:    72.5,
			QuantumGrade:    "B-",
			TLSVersion:      "TLSv1.3",
			CipherSuiteName: "TLS_AES_256_GCM_SHA384",
		}},
		FailedScans: []orchestrator.FailureInfo{{
			Domain: "down.example",
			Error:  "Domain down.example is unreachable",
		}},
		Duration: 1500 * time.Millisecond,
	}
}

func TestPrintOutcome(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = original })

	var buf bytes.Buffer
	printOutcome(&buf, sampleOutcome())
	out := buf.String()

	for _, want := range []string{
		"request=req-1 batch=batch-1 rounds=3",
		"example.com",
		"72.50",
		"failed down.example: Domain down.example is unreachable",
		"1/2 successful, 1 failed in 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "cancelled") {
		t.Errorf("unexpected cancellation notice:\n%s", out)
	}

	cancelled := sampleOutcome()
	cancelled.Cancelled = true
	buf.Reset()
	printOutcome(&buf, cancelled)
	if !strings.Contains(buf.String(), "run was cancelled") {
		t.Errorf("expected cancellation notice:\n%s", buf.String())
	}
}

func TestWriteOutcomeJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutcomeJSON(&buf, sampleOutcome()); err != nil {
		t.Fatalf("writeOutcomeJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["request_id"] != "req-1" || decoded["batch_id"] != "batch-1" {
		t.Fatalf("unexpected ids: %v", decoded)
	}
	summary, ok := decoded["summary"].(map[string]any)
	if !ok || summary["rounds_completed"] != float64(3) {
		t.Fatalf("unexpected summary: %v", decoded["summary"])
	}
	if _, ok := decoded["Duration"]; ok {
		t.Error("duration should not be serialized")
	}
}

func TestScanCommandRejectsBadDomains(t *testing.T) {
	_, cleanup := setupTestAppContext(t)
	defer cleanup()

	if err := scanCmd.RunE(scanCmd, []string{",", " "}); !errors.Is(err, sharedErrors.ErrNoDomains) {
		t.Fatalf("expected ErrNoDomains, got %v", err)
	}
}
