package pqc

import (
	"math"
	"testing"
	"time"
)

func component(cat Category, weighted, pqcPct, hybridPct float64) ComponentAnalysis {
	return ComponentAnalysis{
		ComponentType:    cat,
		WeightedAverage:  weighted,
		WeightInFinal:    cat.Weight(),
		PQCPercentage:    pqcPct,
		HybridPercentage: hybridPct,
	}
}

func TestBuilder_MissingCategoriesNotZeroFilled(t *testing.T) {
	kex := component(CategoryKex, 80, 0, 0)
	sig := component(CategorySignature, 60, 0, 0)

	report := Builder{}.Build(BuildInput{
		Domain:     "example.com",
		Components: map[Category]ComponentAnalysis{CategoryKex: kex, CategorySignature: sig},
	})

	if len(report.Components) != 2 {
		t.Fatalf("expected exactly 2 components, got %d", len(report.Components))
	}
	want := kex.WeightedAverage*0.35 + sig.WeightedAverage*0.30
	if math.Abs(report.OverallScore-want) > 1e-9 {
		t.Errorf("expected overall %v, got %v", want, report.OverallScore)
	}
	if report.OverallGrade != "F" {
		t.Errorf("expected grade F for 46, got %s", report.OverallGrade)
	}
}

func TestBuilder_Renormalize(t *testing.T) {
	components := map[Category]ComponentAnalysis{
		CategoryKex:       component(CategoryKex, 80, 0, 0),
		CategorySignature: component(CategorySignature, 60, 0, 0),
	}
	got := Builder{Renormalize: true}.OverallScore(components)
	if got != 70.77 {
		t.Errorf("expected renormalized overall 70.77, got %v", got)
	}
}

func TestBuilder_QuantumReady(t *testing.T) {
	pqc := map[Category]ComponentAnalysis{
		CategoryKex:       component(CategoryKex, 95, 100, 0),
		CategorySignature: component(CategorySignature, 95, 100, 0),
	}

	if r := (Builder{}).Build(BuildInput{Components: pqc}); r.QuantumReady {
		t.Errorf("expected not ready below overall 80 (overall %v)", r.OverallScore)
	}
	if r := (Builder{Renormalize: true}).Build(BuildInput{Components: pqc}); !r.QuantumReady {
		t.Errorf("expected ready when renormalized (overall %v)", r.OverallScore)
	}

	blocked := Builder{Renormalize: true}.Build(BuildInput{
		Components:              pqc,
		CriticalVulnerabilities: []string{"RC4 keystream biases allow plaintext recovery"},
	})
	if blocked.QuantumReady {
		t.Error("expected critical vulnerabilities to block quantum readiness")
	}

	strongClassical := map[Category]ComponentAnalysis{
		CategoryKex:       component(CategoryKex, 90, 0, 0),
		CategorySignature: component(CategorySignature, 88, 0, 0),
	}
	if r := (Builder{Renormalize: true}).Build(BuildInput{Components: strongClassical}); !r.QuantumReady {
		t.Error("expected both kex and signature >= 85 to qualify")
	}

	weakSig := map[Category]ComponentAnalysis{
		CategoryKex:       component(CategoryKex, 90, 0, 0),
		CategorySignature: component(CategorySignature, 84, 0, 0),
	}
	if r := (Builder{Renormalize: true}).Build(BuildInput{Components: weakSig}); r.QuantumReady {
		t.Error("expected signature below 85 without PQC to fail readiness")
	}
}

func TestBuilder_HybridReady(t *testing.T) {
	r := Builder{}.Build(BuildInput{Components: map[Category]ComponentAnalysis{
		CategoryKex: component(CategoryKex, 90, 50, 50),
	}})
	if !r.HybridReady {
		t.Error("expected hybrid ready")
	}
	r = Builder{}.Build(BuildInput{Components: map[Category]ComponentAnalysis{
		CategoryKex: component(CategoryKex, 90, 50, 0),
	}})
	if r.HybridReady {
		t.Error("expected not hybrid ready")
	}
}

func TestBuilder_EmptyInputs(t *testing.T) {
	r := Builder{}.Build(BuildInput{})
	if r.OverallScore != 0 || r.OverallGrade != "F" || r.SecurityLevel != LevelCritical {
		t.Errorf("unexpected empty report verdict: %+v", r)
	}
	if r.Components == nil || r.IndividualScores == nil || r.CriticalVulnerabilities == nil {
		t.Error("expected non-nil collections on an empty report")
	}
	if len(r.ComplianceStatus) != len(SupportedFrameworks()) {
		t.Errorf("expected every framework evaluated, got %d", len(r.ComplianceStatus))
	}
}

func TestCheckCompliance(t *testing.T) {
	modern := ProtocolAnalysis{SupportedVersions: []string{"TLS 1.2", "TLS 1.3"}}
	aes := Score(ScoreInput{Algorithm: "AES-256-GCM", Type: TypeSymmetric, KeySize: 256})

	t.Run("clean configuration", func(t *testing.T) {
		components := map[Category]ComponentAnalysis{
			CategorySymmetric: Aggregate(map[Category][]AlgorithmScore{CategorySymmetric: {aes}})[CategorySymmetric],
		}
		status := CheckCompliance(components, modern, CertificateAnalysis{})
		for _, f := range []string{FrameworkPCIDSS, FrameworkNIST, FrameworkFIPS, FrameworkHIPAA, FrameworkSOC2, FrameworkISO27001} {
			if !status[f] {
				t.Errorf("expected %s to pass", f)
			}
		}
		if status[FrameworkCNSA] {
			t.Error("expected CNSA 2.0 to fail without PQC")
		}
	})

	t.Run("deprecated protocol", func(t *testing.T) {
		status := CheckCompliance(nil, ProtocolAnalysis{SupportedVersions: []string{"TLS 1.0", "TLS 1.2"}}, CertificateAnalysis{})
		if status[FrameworkPCIDSS] || status[FrameworkHIPAA] {
			t.Error("expected PCI DSS and HIPAA to fail with TLS 1.0")
		}
		if !status[FrameworkNIST] {
			t.Error("expected NIST to pass while TLS 1.2 is offered")
		}
	})

	t.Run("no modern tls", func(t *testing.T) {
		status := CheckCompliance(nil, ProtocolAnalysis{SupportedVersions: []string{"TLS 1.1"}}, CertificateAnalysis{})
		if status[FrameworkNIST] {
			t.Error("expected NIST to fail without TLS 1.2/1.3")
		}
	})

	t.Run("weak certificate signature", func(t *testing.T) {
		status := CheckCompliance(nil, modern, CertificateAnalysis{WeakSignatures: 1})
		if status[FrameworkNIST] {
			t.Error("expected NIST to fail with weak signatures")
		}
	})

	t.Run("weak symmetric", func(t *testing.T) {
		rc4 := Score(ScoreInput{Algorithm: "RC4", Type: TypeSymmetric})
		components := Aggregate(map[Category][]AlgorithmScore{CategorySymmetric: {rc4}})
		status := CheckCompliance(components, modern, CertificateAnalysis{})
		if status[FrameworkPCIDSS] {
			t.Error("expected PCI DSS to fail with symmetric average below 60")
		}
		if status[FrameworkFIPS] {
			t.Error("expected FIPS to fail without an approved symmetric algorithm")
		}
		if status[FrameworkSOC2] || status[FrameworkISO27001] {
			t.Error("expected SOC 2 and ISO 27001 to fail with a component below 50")
		}
	})

	t.Run("cnsa", func(t *testing.T) {
		components := map[Category]ComponentAnalysis{
			CategoryKex:       component(CategoryKex, 95, 100, 0),
			CategorySignature: component(CategorySignature, 95, 50, 0),
		}
		if !CheckCompliance(components, modern, CertificateAnalysis{})[FrameworkCNSA] {
			t.Error("expected CNSA 2.0 to pass with PQC kex and signatures")
		}
		delete(components, CategorySignature)
		if CheckCompliance(components, modern, CertificateAnalysis{})[FrameworkCNSA] {
			t.Error("expected CNSA 2.0 to fail without PQC signatures")
		}
	})
}

func TestAnalyze_EndToEnd(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	report := Analyze(AnalysisInput{
		Domain:    "example.com",
		Timestamp: ts,
		TLS12Suites: []SuiteInput{
			{Name: "TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384", KeyExchange: "ECDHE", Curve: "secp256r1", CurveBits: 256},
			{Name: "TLS_RSA_WITH_AES_128_CBC_SHA", KeyExchange: "RSA"},
		},
		TLS13Suites: []SuiteInput{
			{Name: "TLS_AES_256_GCM_SHA384", KeyExchange: "X25519MLKEM768"},
		},
		CertificateSignatures: []CertSignatureInput{
			{SignatureAlgorithm: "SHA256withRSA", HashAlgorithm: "SHA256", PublicKeySize: 2048, Position: 0},
		},
		HandshakeSignatures: []string{"rsa_pss_rsae_sha256"},
		Protocol:            ProtocolInput{SupportedVersions: []string{"TLS 1.2", "TLS 1.3"}},
		Features:            FeaturesInput{Extensions: []string{"server_name"}},
	})

	if report.Domain != "example.com" || !report.Timestamp.Equal(ts) {
		t.Errorf("unexpected identity: %s %v", report.Domain, report.Timestamp)
	}
	for _, cat := range Categories {
		if _, ok := report.Components[cat]; !ok {
			t.Errorf("expected %s component", cat)
		}
	}
	kex := report.Components[CategoryKex]
	if len(kex.Algorithms) != 3 {
		t.Fatalf("expected 3 kex scores, got %d", len(kex.Algorithms))
	}
	if kex.Algorithms[2].Algorithm != "X25519-ML-KEM-768" {
		t.Errorf("expected TLS 1.3 group canonicalized, got %s", kex.Algorithms[2].Algorithm)
	}
	if !report.HybridReady {
		t.Error("expected hybrid ready from the ML-KEM hybrid group")
	}
	if !kex.PFSEnabled || !report.SecurityFeatures.PFSSupported {
		t.Error("expected forward secrecy")
	}
	if !report.SecurityFeatures.SNISupported {
		t.Error("expected SNI support")
	}
	if !report.ProtocolAnalysis.DowngradeProtection {
		t.Error("expected downgrade protection with TLS 1.3")
	}
	if report.CertificateAnalysis.TotalCertificates != 1 {
		t.Errorf("expected 1 certificate, got %d", report.CertificateAnalysis.TotalCertificates)
	}
	// Protocol scores are kept out of the flat audit trail.
	if len(report.IndividualScores) != 3+3+2+1 {
		t.Errorf("expected 9 individual scores, got %d", len(report.IndividualScores))
	}
	if len(report.CriticalVulnerabilities) != 0 {
		t.Errorf("expected no critical vulnerabilities, got %v", report.CriticalVulnerabilities)
	}
}

func TestAnalyze_EmptyInputDegradesGracefully(t *testing.T) {
	report := Analyze(AnalysisInput{})
	if len(report.Components) != 0 {
		t.Errorf("expected no components, got %d", len(report.Components))
	}
	if report.Domain != UnknownLabel {
		t.Errorf("expected Unknown domain, got %s", report.Domain)
	}
	if report.Timestamp.IsZero() {
		t.Error("expected timestamp to be filled")
	}
	if report.ProtocolAnalysis.SessionResumption != "unknown" {
		t.Errorf("expected unknown session resumption, got %s", report.ProtocolAnalysis.SessionResumption)
	}
}

func TestAnalyze_BrokenProtocolRaisesCriticalVulnerability(t *testing.T) {
	report := Analyze(AnalysisInput{
		Protocol: ProtocolInput{SupportedVersions: []string{"SSL 3.0", "TLS 1.2"}},
	})
	if len(report.CriticalVulnerabilities) != 1 {
		t.Fatalf("expected 1 critical vulnerability, got %v", report.CriticalVulnerabilities)
	}
	if report.ProtocolAnalysis.VersionScores["SSL 3.0"] != 0 || report.ProtocolAnalysis.VersionScores["TLS 1.2"] != 75 {
		t.Errorf("unexpected version scores: %v", report.ProtocolAnalysis.VersionScores)
	}
	if len(report.ProtocolAnalysis.DeprecatedVersions) != 1 {
		t.Errorf("expected SSL 3.0 flagged deprecated, got %v", report.ProtocolAnalysis.DeprecatedVersions)
	}
}

func TestFinalReport_Summary(t *testing.T) {
	r := Builder{}.Build(BuildInput{Components: map[Category]ComponentAnalysis{
		CategoryKex: component(CategoryKex, 90, 50, 0),
	}})
	s := r.Summary()
	if s.OverallScore != r.OverallScore || s.OverallGrade != r.OverallGrade {
		t.Error("summary must mirror the report verdict")
	}
	if s.Components[CategoryKex].WeightedAverage != 90 {
		t.Errorf("unexpected component digest: %+v", s.Components[CategoryKex])
	}
}
