package transform

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/pqc"
)

// Document is a Scan enriched with its post-quantum verdict. It is stored
// verbatim as a result's raw_response.
type Document struct {
	Scan
	QuantumScore float64       `json:"quantum_score"`
	QuantumGrade string        `json:"quantum_grade"`
	PQCAnalysis  pqc.Summary   `json:"pqc_analysis"`
	ScanMetadata scan.Metadata `json:"scan_metadata"`
}

// NewDocument attaches the report summary to a scan.
func NewDocument(s *Scan, report pqc.FinalReport) Document {
	summary := report.Summary()
	return Document{
		Scan:         *s,
		QuantumScore: summary.OverallScore,
		QuantumGrade: summary.OverallGrade,
		PQCAnalysis:  summary,
	}
}

// AnalysisInput converts the scan into the scoring engine input.
func (s *Scan) AnalysisInput(ts time.Time) pqc.AnalysisInput {
	cfg := s.TLSConfiguration
	in := pqc.AnalysisInput{
		Domain:    s.Domain,
		Timestamp: ts,
		Protocol: pqc.ProtocolInput{
			SupportedVersions:     cfg.SupportedProtocols,
			CompressionEnabled:    cfg.CompressionSupport,
			RenegotiationInsecure: !cfg.Renegotiation.Secure,
			HeartbeatEnabled:      cfg.HeartbeatExtension,
			SessionResumption:     cfg.SessionResumption,
		},
		Certificate: pqc.CertificateInput{
			ValidityPeriodDays: s.CertificateChain.ValidityPeriodDays,
			CertTransparency:   s.CertificateChain.CertificateTransparency,
			OCSPStapling:       s.CertificateChain.OCSPStapling,
			KeyPinning:         s.CertificateChain.PublicKeyPinning,
		},
		Features: pqc.FeaturesInput{
			HSTSEnabled:   s.SecurityFeatures.HSTSEnabled,
			HSTSMaxAge:    s.SecurityFeatures.HSTSMaxAge,
			Extensions:    cfg.Extensions,
			ALPNProtocols: cfg.ALPNProtocols,
		},
	}

	for _, cs := range cfg.TLS12CipherSuites.Suites {
		in.TLS12Suites = append(in.TLS12Suites, pqc.SuiteInput{
			Name: cs.Name, KeyExchange: cs.KeyExchange, Curve: cs.Curve, CurveBits: cs.CurveBits,
		})
	}
	for _, cs := range cfg.TLS13CipherSuites.Suites {
		in.TLS13Suites = append(in.TLS13Suites, pqc.SuiteInput{
			Name: cs.Name, KeyExchange: cs.KeyExchange, CurveBits: cs.CurveBits,
		})
	}
	for _, sig := range s.SignatureAlgorithms.CertificateSignatures {
		in.CertificateSignatures = append(in.CertificateSignatures, pqc.CertSignatureInput{
			SignatureAlgorithm: sig.SignatureAlgorithm,
			HashAlgorithm:      sig.HashAlgorithm,
			PublicKeySize:      sig.PublicKeySize,
			Position:           sig.Position,
		})
	}
	for _, hs := range s.SignatureAlgorithms.HandshakeSignatures {
		in.HandshakeSignatures = append(in.HandshakeSignatures, hs.Algorithm)
	}
	return in
}

// RequestID builds the per-domain request identifier.
func RequestID(domain string, at time.Time) string {
	return fmt.Sprintf("%s_%d", domain, at.Unix())
}

// Format flattens a document into the client facing result.
func Format(doc Document, requestID string, requestedAt time.Time, elapsed time.Duration) (*scan.Result, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode raw response: %w", err)
	}

	cfg := doc.TLSConfiguration
	res := &scan.Result{
		RequestID:            requestID,
		URL:                  doc.Domain,
		Status:               scan.StatusCompleted,
		RequestedAt:          requestedAt,
		TotalURLs:            1,
		ScanStatus:           scan.ScanStatusOK,
		TLSVersion:           strings.Join(cfg.SupportedProtocols, ", "),
		CTPresent:            doc.CertificateChain.LeafCertificate.CertificateTransparency,
		QuantumScore:         doc.QuantumScore,
		QuantumGrade:         doc.QuantumGrade,
		RawResponse:          raw,
		ScanMetadata:         doc.ScanMetadata,
		ExecutionTimeSeconds: round2(elapsed.Seconds()),
	}

	if len(doc.CertificateChain.IntermediateCertificates) > 0 {
		ic := doc.CertificateChain.IntermediateCertificates[0]
		size, alg := ic.PublicKeySize, ic.PublicKeyAlgorithm
		res.PublicKeySizeBits = &size
		res.PublicKeyAlgorithm = &alg
	}

	var first12, first13 *CipherSuite
	if suites := cfg.TLS12CipherSuites.Suites; len(suites) > 0 {
		first12 = &suites[0]
	}
	if suites := cfg.TLS13CipherSuites.Suites; len(suites) > 0 {
		first13 = &suites[0]
	}
	switch {
	case first13 != nil && first13.Name != "":
		res.CipherSuiteName = first13.Name
	case first12 != nil:
		res.CipherSuiteName = first12.Name
	}
	switch {
	case first13 != nil && first13.CurveBits != 0:
		bits := first13.CurveBits
		res.CipherStrengthBits = &bits
	case first12 != nil && first12.CurveBits != 0:
		bits := first12.CurveBits
		res.CipherStrengthBits = &bits
	}
	if len(cfg.SupportedProtocols) > 0 {
		res.CipherProtocol = cfg.SupportedProtocols[0]
	}
	for _, cs := range cfg.TLS12CipherSuites.Suites {
		if cs.KeyExchange == "ECDHE" {
			res.EphemeralKeyExchange = true
			break
		}
	}
	return res, nil
}
