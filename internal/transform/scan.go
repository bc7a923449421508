package transform

// Server preference labels.
const (
	PreferenceEnabled  = "enabled"
	PreferenceDisabled = "disabled"
)

// Scan is the normalized structure produced from one host report.
type Scan struct {
	Domain              string              `json:"domain"`
	ServerIP            string              `json:"server_ip"`
	Port                int                 `json:"port"`
	TLSConfiguration    TLSConfiguration    `json:"tls_configuration"`
	CertificateChain    CertificateChain    `json:"certificate_chain"`
	SignatureAlgorithms SignatureAlgorithms `json:"signature_algorithms"`
	SecurityFeatures    SecurityFeatures    `json:"security_features"`
}

// TLSConfiguration is the protocol and suite surface of the endpoint.
type TLSConfiguration struct {
	SupportedProtocols      []string      `json:"supported_protocols"`
	TLS12CipherSuites       CipherSuites  `json:"tls_1.2_cipher_suites"`
	TLS13CipherSuites       CipherSuites  `json:"tls_1.3_cipher_suites"`
	SupportedEllipticCurves EllipticCurve `json:"supported_elliptic_curves"`
	CompressionSupport      bool          `json:"compression_support"`
	Renegotiation           Renegotiation `json:"renegotiation"`
	HeartbeatExtension      bool          `json:"heartbeat_extension"`
	SessionResumption       string        `json:"session_resumption"`
	Extensions              []string      `json:"extensions"`
	ALPNProtocols           []string      `json:"alpn_protocols"`
}

// Renegotiation reports whether secure renegotiation is offered.
type Renegotiation struct {
	Secure bool `json:"secure"`
}

// CipherSuites is the suite list of one protocol version.
type CipherSuites struct {
	ServerPreference  string        `json:"server_preference"`
	Suites            []CipherSuite `json:"suites"`
	ComponentKexScore *float64      `json:"component_kex_score,omitempty"`
	ComponentKexGrade string        `json:"component_kex_grade,omitempty"`
}

// CipherSuite is one suite with its inline scores.
type CipherSuite struct {
	Name               string   `json:"name"`
	Encryption         string   `json:"encryption"`
	KeyExchange        string   `json:"key_exchange"`
	Authentication     string   `json:"authentication,omitempty"`
	Curve              string   `json:"curve,omitempty"`
	CurveBits          int      `json:"curve_bits"`
	KexPQCScore        *float64 `json:"kex_pqc_score,omitempty"`
	KexPQCGrade        string   `json:"kex_pqc_grade,omitempty"`
	KexIsPQC           bool     `json:"kex_is_pqc"`
	KexIsHybrid        bool     `json:"kex_is_hybrid"`
	KexQuantumSafe     bool     `json:"kex_quantum_safe"`
	EncryptionPQCScore *float64 `json:"encryption_pqc_score,omitempty"`
	EncryptionPQCGrade string   `json:"encryption_pqc_grade,omitempty"`
}

// EllipticCurve is the named group list.
type EllipticCurve struct {
	ServerPreference string  `json:"server_preference"`
	Curves           []Curve `json:"curves"`
}

// Curve is one named group scored as a key exchange.
type Curve struct {
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Bits             int     `json:"bits"`
	CurvePQCScore    float64 `json:"curve_pqc_score"`
	CurvePQCGrade    string  `json:"curve_pqc_grade"`
	CurveIsPQC       bool    `json:"curve_is_pqc"`
	CurveIsHybrid    bool    `json:"curve_is_hybrid"`
	CurveQuantumSafe bool    `json:"curve_quantum_safe"`
}

// CertificateChain groups the presented certificates by role.
type CertificateChain struct {
	LeafCertificate          LeafCertificate    `json:"leaf_certificate"`
	IntermediateCertificates []ChainCertificate `json:"intermediate_certificates"`
	RootCertificates         []ChainCertificate `json:"root_certificates"`
	AlternateCertificates    []ChainCertificate `json:"alternate_certificates"`
	ValidityPeriodDays       int                `json:"validity_period_days"`
	CertificateTransparency  bool               `json:"certificate_transparency"`
	OCSPStapling             bool               `json:"ocsp_stapling"`
	PublicKeyPinning         bool               `json:"public_key_pinning"`
}

// LeafCertificate is the end-entity certificate.
type LeafCertificate struct {
	Certificate             string   `json:"certificate,omitempty"`
	SubjectAlternativeNames []string `json:"subject_alternative_names,omitempty"`
	CertificateTransparency bool     `json:"certificate_transparency"`
	CertScore
}

// ChainCertificate is an intermediate, root or alternate certificate.
type ChainCertificate struct {
	PublicKeyAlgorithm string `json:"public_key_algorithm"`
	PublicKeySize      int    `json:"public_key_size"`
	CertScore
}

// CertScore is the public key score attached to every chain certificate.
type CertScore struct {
	CertPQCScore    float64 `json:"cert_pqc_score"`
	CertPQCGrade    string  `json:"cert_pqc_grade,omitempty"`
	CertIsPQC       bool    `json:"cert_is_pqc"`
	CertIsHybrid    bool    `json:"cert_is_hybrid"`
	CertQuantumSafe bool    `json:"cert_quantum_safe"`
}

// SignatureAlgorithms lists certificate and handshake signatures.
type SignatureAlgorithms struct {
	CertificateSignatures []CertificateSignature `json:"certificate_signatures"`
	HandshakeSignatures   []HandshakeSignature   `json:"handshake_signatures"`
}

// CertificateSignature is the signature metadata of one chain certificate.
type CertificateSignature struct {
	Position              int    `json:"position"`
	CertificateSubject    string `json:"certificate_subject"`
	SignatureAlgorithm    string `json:"signature_algorithm"`
	HashAlgorithm         string `json:"hash_algorithm"`
	PublicKeyType         string `json:"public_key_type"`
	PublicKeySize         int    `json:"public_key_size"`
	SignatureAlgorithmOID string `json:"signature_algorithm_oid,omitempty"`
	SigScore
	HashPQCScore float64 `json:"hash_pqc_score"`
	HashPQCGrade string  `json:"hash_pqc_grade"`
}

// HandshakeSignature is one signature scheme inferred from the suites.
type HandshakeSignature struct {
	Algorithm string `json:"algorithm"`
	Protocol  string `json:"protocol"`
	SigScore
}

// SigScore is the signature score attached to signature entries.
type SigScore struct {
	SigPQCScore    float64 `json:"sig_pqc_score"`
	SigPQCGrade    string  `json:"sig_pqc_grade"`
	SigIsPQC       bool    `json:"sig_is_pqc"`
	SigIsHybrid    bool    `json:"sig_is_hybrid"`
	SigQuantumSafe bool    `json:"sig_quantum_safe"`
}

// SecurityFeatures carries HTTP level hardening facts.
type SecurityFeatures struct {
	HSTSEnabled bool `json:"hsts_enabled"`
	HSTSMaxAge  int  `json:"hsts_max_age"`
}

// emptyScan is the minimal valid structure for an endpoint without details.
func emptyScan(domain, ip string, port int) *Scan {
	return &Scan{
		Domain:   domain,
		ServerIP: ip,
		Port:     port,
		TLSConfiguration: TLSConfiguration{
			SupportedProtocols:      []string{},
			TLS12CipherSuites:       CipherSuites{ServerPreference: PreferenceDisabled, Suites: []CipherSuite{}},
			TLS13CipherSuites:       CipherSuites{ServerPreference: PreferenceDisabled, Suites: []CipherSuite{}},
			SupportedEllipticCurves: EllipticCurve{ServerPreference: PreferenceDisabled, Curves: []Curve{}},
			Renegotiation:           Renegotiation{Secure: true},
			SessionResumption:       "unknown",
			Extensions:              []string{},
			ALPNProtocols:           []string{},
		},
		CertificateChain: CertificateChain{
			IntermediateCertificates: []ChainCertificate{},
			RootCertificates:         []ChainCertificate{},
			AlternateCertificates:    []ChainCertificate{},
		},
		SignatureAlgorithms: SignatureAlgorithms{
			CertificateSignatures: []CertificateSignature{},
			HandshakeSignatures:   []HandshakeSignature{},
		},
	}
}
