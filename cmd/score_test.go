package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/khanhnv2901/seca-pqc/internal/pqc"
)

func TestParseAlgorithmType(t *testing.T) {
	tests := []struct {
		raw     string
		want    pqc.AlgorithmType
		wantErr bool
	}{
		{raw: "kex", want: pqc.TypeKex},
		{raw: " Signature ", want: pqc.TypeSignature},
		{raw: "HASH", want: pqc.TypeHash},
		{raw: "cipher", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseAlgorithmType(tt.raw)
			if tt.wantErr {
				var optErr *UnsupportedOptionError
				if !errors.As(err, &optErr) {
					t.Fatalf("expected UnsupportedOptionError, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("parseAlgorithmType(%q) = %q, %v", tt.raw, got, err)
			}
		})
	}
}

func TestScoreAlgorithm(t *testing.T) {
	pqcScore := scoreAlgorithm("ML-KEM-768", pqc.TypeKex, 0, "", 0, 0)
	if !pqcScore.IsPQC || !pqcScore.QuantumSafe {
		t.Errorf("expected ML-KEM to be post-quantum and quantum safe: %+v", pqcScore)
	}

	classical := scoreAlgorithm("RSA", pqc.TypeSignature, 2048, "", 0, 0)
	if classical.IsPQC || classical.QuantumSafe {
		t.Errorf("RSA must not be quantum safe: %+v", classical)
	}
	if classical.FinalScore >= pqcScore.FinalScore {
		t.Errorf("RSA-2048 (%v) should score below ML-KEM (%v)", classical.FinalScore, pqcScore.FinalScore)
	}

	unknown := scoreAlgorithm("not-an-algorithm", pqc.TypeKex, 0, "", 0, 0)
	if unknown.FinalScore != 0 || unknown.Grade != "F" {
		t.Errorf("unknown algorithm should score 0/F: %+v", unknown)
	}
}

func TestPrintScore(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = original })

	var buf bytes.Buffer
	printScore(&buf, scoreAlgorithm("ML-KEM-768", pqc.TypeKex, 0, "", 0, 0))
	out := buf.String()
	for _, want := range []string{"Algorithm:", "Score:", "post-quantum", "quantum-safe"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
