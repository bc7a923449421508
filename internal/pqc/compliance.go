package pqc

import "strings"

// Compliance framework keys as they appear in FinalReport.ComplianceStatus.
const (
	FrameworkPCIDSS   = "PCI DSS 4.0"
	FrameworkNIST     = "NIST 800-52r2"
	FrameworkFIPS     = "FIPS 140-3"
	FrameworkHIPAA    = "HIPAA"
	FrameworkSOC2     = "SOC 2"
	FrameworkISO27001 = "ISO 27001"
	FrameworkCNSA     = "CNSA 2.0"
)

// Framework describes a compliance framework evaluated on every report.
type Framework struct {
	ID          string // Key in ComplianceStatus (e.g., "PCI DSS 4.0")
	Name        string // Display name
	Description string // What the TLS checklist verifies
	Region      string // Geographic region (e.g., "Global", "US")
}

// SupportedFrameworks returns the frameworks in evaluation order.
func SupportedFrameworks() []Framework {
	return []Framework{
		{
			ID:          FrameworkPCIDSS,
			Name:        "PCI DSS v4.0",
			Description: "No deprecated protocols; symmetric ciphers weighted average at least 60",
			Region:      "Global",
		},
		{
			ID:          FrameworkNIST,
			Name:        "NIST SP 800-52 Rev. 2",
			Description: "TLS 1.2 or 1.3 offered; no weak certificate signatures",
			Region:      "US",
		},
		{
			ID:          FrameworkFIPS,
			Name:        "FIPS 140-3",
			Description: "At least one FIPS-approved symmetric algorithm",
			Region:      "US",
		},
		{
			ID:          FrameworkHIPAA,
			Name:        "HIPAA Security Rule",
			Description: "No deprecated protocols",
			Region:      "US",
		},
		{
			ID:          FrameworkSOC2,
			Name:        "SOC 2",
			Description: "Every component weighted average at least 50",
			Region:      "Global",
		},
		{
			ID:          FrameworkISO27001,
			Name:        "ISO/IEC 27001:2022",
			Description: "Every component weighted average at least 50",
			Region:      "Global",
		},
		{
			ID:          FrameworkCNSA,
			Name:        "CNSA 2.0",
			Description: "Post-quantum key exchange and post-quantum signatures",
			Region:      "US",
		},
	}
}

// CheckCompliance evaluates every framework rule independently so each key
// is always present in the result.
func CheckCompliance(components map[Category]ComponentAnalysis, protocol ProtocolAnalysis, cert CertificateAnalysis) map[string]bool {
	status := map[string]bool{
		FrameworkPCIDSS:   true,
		FrameworkNIST:     true,
		FrameworkFIPS:     true,
		FrameworkHIPAA:    true,
		FrameworkSOC2:     true,
		FrameworkISO27001: true,
		FrameworkCNSA:     false,
	}

	hasDeprecated := false
	for _, v := range protocol.SupportedVersions {
		if isDeprecatedProtocol(v) {
			hasDeprecated = true
			break
		}
	}
	if hasDeprecated {
		status[FrameworkPCIDSS] = false
		status[FrameworkHIPAA] = false
	}

	sym, hasSym := components[CategorySymmetric]
	if hasSym && sym.WeightedAverage < 60 {
		status[FrameworkPCIDSS] = false
	}

	if !offersModernTLS(protocol.SupportedVersions) {
		status[FrameworkNIST] = false
	}
	if cert.WeakSignatures > 0 {
		status[FrameworkNIST] = false
	}

	if hasSym && !anyFIPSApproved(sym.Algorithms) {
		status[FrameworkFIPS] = false
	}

	kex, hasKex := components[CategoryKex]
	sig, hasSig := components[CategorySignature]
	if hasKex && hasSig && kex.PQCPercentage > 0 && sig.PQCPercentage > 0 {
		status[FrameworkCNSA] = true
	}

	for _, comp := range components {
		if comp.WeightedAverage < 50 {
			status[FrameworkSOC2] = false
			status[FrameworkISO27001] = false
			break
		}
	}

	return status
}

// offersModernTLS reports whether TLS 1.2 or TLS 1.3 is offered.
func offersModernTLS(versions []string) bool {
	for _, v := range versions {
		if v == "TLS 1.2" || v == "TLS 1.3" {
			return true
		}
	}
	return false
}

func anyFIPSApproved(scores []AlgorithmScore) bool {
	for _, s := range scores {
		if containsAny(strings.ToUpper(s.Algorithm), fipsApprovedTokens...) {
			return true
		}
	}
	return false
}
