package pqc

import (
	"slices"
	"strings"
	"time"
)

// UnknownLabel is used by scanners and the transformer for components they
// could not identify.
const UnknownLabel = "Unknown"

// SuiteInput is one negotiated cipher suite in server preference order.
type SuiteInput struct {
	Name        string
	KeyExchange string
	Curve       string
	CurveBits   int
}

// CertSignatureInput is the signature metadata of one chain certificate.
type CertSignatureInput struct {
	SignatureAlgorithm string
	HashAlgorithm      string
	PublicKeySize      int
	Position           int
}

// ProtocolInput carries the protocol-level facts reported by the scanner.
type ProtocolInput struct {
	SupportedVersions     []string
	CompressionEnabled    bool
	RenegotiationInsecure bool
	HeartbeatEnabled      bool
	SessionResumption     string
}

// CertificateInput carries chain-level certificate facts.
type CertificateInput struct {
	ValidityPeriodDays int
	CertTransparency   bool
	OCSPStapling       bool
	KeyPinning         bool
}

// FeaturesInput carries HTTP and extension hardening facts.
type FeaturesInput struct {
	HSTSEnabled   bool
	HSTSMaxAge    int
	Extensions    []string
	ALPNProtocols []string
}

// AnalysisInput is the normalized scan consumed by Analyze.
type AnalysisInput struct {
	Domain                string
	Timestamp             time.Time
	TLS12Suites           []SuiteInput
	TLS13Suites           []SuiteInput
	CertificateSignatures []CertSignatureInput
	HandshakeSignatures   []string
	Protocol              ProtocolInput
	Certificate           CertificateInput
	Features              FeaturesInput
}

// collectScores scores every algorithm in the input, grouped by category,
// and returns the flat audit trail in scoring order.
func collectScores(in AnalysisInput) (map[Category][]AlgorithmScore, []AlgorithmScore) {
	byCat := make(map[Category][]AlgorithmScore, len(Categories))
	var all []AlgorithmScore
	add := func(cat Category, s AlgorithmScore) {
		byCat[cat] = append(byCat[cat], s)
		all = append(all, s)
	}

	for pos, suite := range in.TLS12Suites {
		kex := suite.KeyExchange
		if kex == "" || kex == UnknownLabel {
			kex, _ = ClassifyKex(suite.Name)
		}
		if kex != "" {
			add(CategoryKex, Score(ScoreInput{
				Algorithm: kex, Type: TypeKex,
				Curve: suite.Curve, CurveBits: suite.CurveBits, Position: pos,
			}))
		}
		if sym, ok := ClassifySymmetric(suite.Name); ok {
			add(CategorySymmetric, Score(ScoreInput{
				Algorithm: sym, Type: TypeSymmetric, KeySize: SymmetricKeySize(sym), Position: pos,
			}))
		}
	}

	for pos, suite := range in.TLS13Suites {
		// TLS 1.3 reports the negotiated group, which doubles as the curve.
		if group := suite.KeyExchange; group != "" && group != UnknownLabel {
			kex, ok := ClassifyKex(group)
			if !ok {
				kex = group
			}
			add(CategoryKex, Score(ScoreInput{
				Algorithm: kex, Type: TypeKex,
				Curve: group, CurveBits: suite.CurveBits, Position: pos,
			}))
		}
		if sym, ok := ClassifySymmetric(suite.Name); ok {
			add(CategorySymmetric, Score(ScoreInput{
				Algorithm: sym, Type: TypeSymmetric, KeySize: SymmetricKeySize(sym), Position: pos,
			}))
		}
	}

	for _, cert := range in.CertificateSignatures {
		add(CategorySignature, Score(ScoreInput{
			Algorithm: ClassifySignature(cert.SignatureAlgorithm), Type: TypeSignature,
			KeySize: cert.PublicKeySize, Position: cert.Position,
		}))
		add(CategoryCertificate, Score(ScoreInput{
			Algorithm: ClassifyHash(cert.HashAlgorithm), Type: TypeHash, Position: cert.Position,
		}))
	}

	for pos, alg := range in.HandshakeSignatures {
		add(CategorySignature, Score(ScoreInput{
			Algorithm: ClassifySignature(alg), Type: TypeSignature, Position: pos,
		}))
	}

	// Protocol scores stay out of the audit trail; they are summarized by
	// ProtocolAnalysis.VersionScores instead.
	for _, version := range in.Protocol.SupportedVersions {
		byCat[CategoryProtocol] = append(byCat[CategoryProtocol], Score(ScoreInput{
			Algorithm: version, Type: TypeProtocol,
		}))
	}

	return byCat, all
}

// AnalyzeProtocol summarizes the supported protocol versions.
func AnalyzeProtocol(in ProtocolInput) ProtocolAnalysis {
	versions := append([]string{}, in.SupportedVersions...)
	deprecated := []string{}
	scores := make(map[string]float64, len(versions))
	for _, v := range versions {
		if isDeprecatedProtocol(v) {
			deprecated = append(deprecated, v)
		}
		if score, ok := protocolTable.scores[v]; ok {
			scores[v] = score
		} else {
			scores[v] = protocolFallbackScore
		}
	}
	resumption := in.SessionResumption
	if resumption == "" {
		resumption = "unknown"
	}
	return ProtocolAnalysis{
		SupportedVersions:   versions,
		DeprecatedVersions:  deprecated,
		VersionScores:       scores,
		CompressionEnabled:  in.CompressionEnabled,
		RenegotiationSecure: !in.RenegotiationInsecure,
		HeartbeatEnabled:    in.HeartbeatEnabled,
		SessionResumption:   resumption,
		DowngradeProtection: slices.Contains(versions, "TLS 1.3"),
	}
}

// AnalyzeCertificates summarizes the chain from its certificate signatures
// and the signature-category scores.
func AnalyzeCertificates(certs []CertSignatureInput, info CertificateInput, signatureScores []AlgorithmScore) CertificateAnalysis {
	weak, strong := 0, 0
	for _, s := range signatureScores {
		if s.FinalScore < 50 {
			weak++
		}
		if s.FinalScore >= 70 {
			strong++
		}
	}

	sigs := make([]string, 0, len(certs))
	hashes := make([]string, 0, len(certs))
	for _, c := range certs {
		sigs = append(sigs, c.SignatureAlgorithm)
		hashes = append(hashes, c.HashAlgorithm)
	}

	return CertificateAnalysis{
		TotalCertificates:   len(certs),
		WeakSignatures:      weak,
		StrongSignatures:    strong,
		ValidityPeriodDays:  info.ValidityPeriodDays,
		CertTransparency:    info.CertTransparency,
		OCSPStapling:        info.OCSPStapling,
		KeyPinning:          info.KeyPinning,
		ChainConsistent:     distinct(sigs) <= 2 && distinct(hashes) <= 2,
		SignatureAlgorithms: sigs,
		HashAlgorithms:      hashes,
	}
}

// AnalyzeFeatures summarizes forward secrecy and extension support.
func AnalyzeFeatures(in FeaturesInput, kexScores []AlgorithmScore) SecurityFeatures {
	pfs := 0
	for _, s := range kexScores {
		if IsEphemeral(s.Algorithm) || IsPQC(s.Algorithm) {
			pfs++
		}
	}
	pct := 0.0
	if len(kexScores) > 0 {
		pct = round2(float64(pfs) / float64(len(kexScores)) * 100)
	}

	sni := slices.Contains(in.Extensions, "server_name") ||
		strings.Contains(strings.ToUpper(strings.Join(in.Extensions, ",")), "SNI")

	return SecurityFeatures{
		HSTSEnabled:         in.HSTSEnabled,
		HSTSMaxAge:          in.HSTSMaxAge,
		PFSSupported:        pfs > 0,
		PFSPercentage:       pct,
		SNISupported:        sni,
		ALPNSupported:       append([]string{}, in.ALPNProtocols...),
		SupportedExtensions: append([]string{}, in.Extensions...),
	}
}

// criticalVulnerabilities lists each broken-algorithm finding once, in
// scoring order.
func criticalVulnerabilities(groups ...[]AlgorithmScore) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, scores := range groups {
		for _, s := range scores {
			for _, v := range s.Vulnerabilities {
				if _, dup := seen[v]; dup {
					continue
				}
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	return out
}

func isDeprecatedProtocol(version string) bool {
	return slices.Contains(deprecatedProtocols, version)
}

func distinct(list []string) int {
	set := make(map[string]struct{}, len(list))
	for _, v := range list {
		set[v] = struct{}{}
	}
	return len(set)
}
