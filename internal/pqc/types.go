package pqc

import "time"

// AlgorithmType selects the resistance table used to score an algorithm.
type AlgorithmType string

const (
	TypeKex       AlgorithmType = "kex"
	TypeSignature AlgorithmType = "signature"
	TypeSymmetric AlgorithmType = "symmetric"
	TypeHash      AlgorithmType = "hash"
	TypeProtocol  AlgorithmType = "protocol"
)

// Category groups algorithm scores into report components.
type Category string

const (
	CategoryKex         Category = "kex"
	CategorySignature   Category = "signature"
	CategorySymmetric   Category = "symmetric"
	CategoryCertificate Category = "certificate"
	CategoryProtocol    Category = "protocol"
)

// Categories lists every component in report order.
var Categories = []Category{
	CategoryKex,
	CategorySignature,
	CategorySymmetric,
	CategoryCertificate,
	CategoryProtocol,
}

// Weight returns the fixed contribution of a category to the overall score.
func (c Category) Weight() float64 {
	switch c {
	case CategoryKex:
		return 0.35
	case CategorySignature:
		return 0.30
	case CategorySymmetric:
		return 0.15
	case CategoryCertificate, CategoryProtocol:
		return 0.10
	}
	return 0
}

// Security levels banded from a score.
const (
	LevelHigh     = "high"
	LevelMedium   = "medium"
	LevelLow      = "low"
	LevelCritical = "critical"
)

// AlgorithmScore is one scored algorithm instance. Values are computed once
// by Score and never mutated afterwards.
type AlgorithmScore struct {
	Algorithm       string        `json:"algorithm"`
	AlgorithmType   AlgorithmType `json:"algorithm_type"`
	BaseScore       float64       `json:"base_score"`
	KeySize         int           `json:"key_size"`
	KeySizeScore    float64       `json:"key_size_score"`
	CurveStrength   float64       `json:"curve_strength"`
	FinalScore      float64       `json:"final_score"`
	Grade           string        `json:"grade"`
	IsPQC           bool          `json:"is_pqc"`
	IsHybrid        bool          `json:"is_hybrid"`
	Position        int           `json:"position"`
	WeightedScore   float64       `json:"weighted_score"`
	SecurityLevel   string        `json:"security_level"`
	QuantumSafe     bool          `json:"quantum_safe"`
	Deprecated      bool          `json:"deprecated"`
	Vulnerabilities []string      `json:"vulnerabilities"`
}

// ComponentAnalysis aggregates the scores of one category.
type ComponentAnalysis struct {
	ComponentType    Category         `json:"component_type"`
	Algorithms       []AlgorithmScore `json:"algorithms"`
	AverageScore     float64          `json:"average_score"`
	WeightedAverage  float64          `json:"weighted_average"`
	Grade            string           `json:"grade"`
	WeightInFinal    float64          `json:"weight_in_final"`
	BestAlgorithm    string           `json:"best_algorithm"`
	WorstAlgorithm   string           `json:"worst_algorithm"`
	PQCPercentage    float64          `json:"pqc_percentage"`
	HybridPercentage float64          `json:"hybrid_percentage"`
	DeprecatedCount  int              `json:"deprecated_count"`
	QuantumSafeCount int              `json:"quantum_safe_count"`
	PFSEnabled       bool             `json:"pfs_enabled"`
}

// ProtocolAnalysis summarizes the negotiated protocol surface.
type ProtocolAnalysis struct {
	SupportedVersions   []string           `json:"supported_versions"`
	DeprecatedVersions  []string           `json:"deprecated_versions"`
	VersionScores       map[string]float64 `json:"version_scores"`
	CompressionEnabled  bool               `json:"compression_enabled"`
	RenegotiationSecure bool               `json:"renegotiation_secure"`
	HeartbeatEnabled    bool               `json:"heartbeat_enabled"`
	SessionResumption   string             `json:"session_resumption"`
	DowngradeProtection bool               `json:"downgrade_protection"`
}

// CertificateAnalysis summarizes the certificate chain signatures.
type CertificateAnalysis struct {
	TotalCertificates   int      `json:"total_certificates"`
	WeakSignatures      int      `json:"weak_signatures"`
	StrongSignatures    int      `json:"strong_signatures"`
	ValidityPeriodDays  int      `json:"validity_period_days"`
	CertTransparency    bool     `json:"cert_transparency"`
	OCSPStapling        bool     `json:"ocsp_stapling"`
	KeyPinning          bool     `json:"key_pinning"`
	ChainConsistent     bool     `json:"chain_consistent"`
	SignatureAlgorithms []string `json:"signature_algorithms"`
	HashAlgorithms      []string `json:"hash_algorithms"`
}

// SecurityFeatures summarizes transport hardening signals.
type SecurityFeatures struct {
	HSTSEnabled         bool     `json:"hsts_enabled"`
	HSTSMaxAge          int      `json:"hsts_max_age"`
	PFSSupported        bool     `json:"pfs_supported"`
	PFSPercentage       float64  `json:"pfs_percentage"`
	SNISupported        bool     `json:"sni_supported"`
	ALPNSupported       []string `json:"alpn_supported"`
	SupportedExtensions []string `json:"supported_extensions"`
}

// FinalReport is the complete post-quantum verdict for one scan.
type FinalReport struct {
	Domain                  string                         `json:"domain"`
	Timestamp               time.Time                      `json:"timestamp"`
	OverallScore            float64                        `json:"overall_score"`
	OverallGrade            string                         `json:"overall_grade"`
	SecurityLevel           string                         `json:"security_level"`
	Components              map[Category]ComponentAnalysis `json:"components"`
	IndividualScores        []AlgorithmScore               `json:"individual_scores"`
	ProtocolAnalysis        ProtocolAnalysis               `json:"protocol_analysis"`
	CertificateAnalysis     CertificateAnalysis            `json:"certificate_analysis"`
	SecurityFeatures        SecurityFeatures               `json:"security_features"`
	QuantumReady            bool                           `json:"quantum_ready"`
	HybridReady             bool                           `json:"hybrid_ready"`
	CriticalVulnerabilities []string                       `json:"critical_vulnerabilities"`
	ComplianceStatus        map[string]bool                `json:"compliance_status"`
}

// Summary is the compact view of a report embedded into scan results.
type Summary struct {
	OverallScore  float64                      `json:"overall_score"`
	OverallGrade  string                       `json:"overall_grade"`
	SecurityLevel string                       `json:"security_level"`
	QuantumReady  bool                         `json:"quantum_ready"`
	HybridReady   bool                         `json:"hybrid_ready"`
	Components    map[Category]ComponentDigest `json:"components"`
}

// ComponentDigest is the per-category slice of a Summary.
type ComponentDigest struct {
	WeightedAverage  float64 `json:"weighted_average"`
	Grade            string  `json:"grade"`
	PQCPercentage    float64 `json:"pqc_percentage"`
	QuantumSafeCount int     `json:"quantum_safe_count"`
}

// Summary condenses the report.
func (r FinalReport) Summary() Summary {
	s := Summary{
		OverallScore:  r.OverallScore,
		OverallGrade:  r.OverallGrade,
		SecurityLevel: r.SecurityLevel,
		QuantumReady:  r.QuantumReady,
		HybridReady:   r.HybridReady,
		Components:    make(map[Category]ComponentDigest, len(r.Components)),
	}
	for cat, comp := range r.Components {
		s.Components[cat] = ComponentDigest{
			WeightedAverage:  comp.WeightedAverage,
			Grade:            comp.Grade,
			PQCPercentage:    comp.PQCPercentage,
			QuantumSafeCount: comp.QuantumSafeCount,
		}
	}
	return s
}
