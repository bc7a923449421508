package transform

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-pqc/internal/pqc"
)

// Certificate roles within a chain.
const (
	RoleLeaf         = "leaf"
	RoleIntermediate = "intermediate"
	RoleRoot         = "root"
)

// CertificateRole classifies the certificate at index within the chain.
func CertificateRole(c Cert, index int) string {
	switch {
	case index == 0:
		return RoleLeaf
	case c.Subject == c.IssuerSubject:
		return RoleRoot
	}
	return RoleIntermediate
}

func keyScore(c Cert, position int) CertScore {
	alg := "RSA"
	if c.KeyAlg != "" {
		alg = pqc.ClassifySignature(c.KeyAlg)
	}
	s := pqc.Score(pqc.ScoreInput{
		Algorithm: alg,
		Type:      pqc.TypeSignature,
		KeySize:   c.KeySize,
		Position:  position,
	})
	return CertScore{
		CertPQCScore:    s.FinalScore,
		CertPQCGrade:    s.Grade,
		CertIsPQC:       s.IsPQC,
		CertIsHybrid:    s.IsHybrid,
		CertQuantumSafe: s.QuantumSafe,
	}
}

func leafCertificate(c Cert) LeafCertificate {
	cn := ""
	if len(c.CommonNames) > 0 {
		cn = c.CommonNames[0]
	}
	return LeafCertificate{
		Certificate:             fmt.Sprintf("%s_%s_%d", cn, strings.ReplaceAll(c.SigAlg, "with", "_"), c.KeySize),
		SubjectAlternativeNames: c.AltNames,
		CertificateTransparency: c.SCT,
		CertScore:               keyScore(c, 0),
	}
}

func buildChain(certs []Cert, details *EndpointDetails) CertificateChain {
	chain := CertificateChain{
		IntermediateCertificates: []ChainCertificate{},
		RootCertificates:         []ChainCertificate{},
		AlternateCertificates:    []ChainCertificate{},
	}
	if details != nil {
		chain.OCSPStapling = details.OCSPStapling
		chain.PublicKeyPinning = details.HPKPPolicy != nil && details.HPKPPolicy.Status == "present"
	}
	if len(certs) == 0 {
		return chain
	}

	leaf := certs[0]
	chain.LeafCertificate = leafCertificate(leaf)
	chain.CertificateTransparency = leaf.SCT
	if leaf.NotAfter > leaf.NotBefore && leaf.NotBefore > 0 {
		validity := time.UnixMilli(leaf.NotAfter).Sub(time.UnixMilli(leaf.NotBefore))
		chain.ValidityPeriodDays = int(validity.Hours() / 24)
	}

	for i := 1; i < len(certs); i++ {
		c := certs[i]
		entry := ChainCertificate{
			PublicKeyAlgorithm: c.KeyAlg,
			PublicKeySize:      c.KeySize,
			CertScore:          keyScore(c, i),
		}
		if CertificateRole(c, i) == RoleRoot {
			chain.RootCertificates = append(chain.RootCertificates, entry)
		} else {
			chain.IntermediateCertificates = append(chain.IntermediateCertificates, entry)
		}
	}
	return chain
}

// certEnvelope is the outer SEQUENCE of an X.509 certificate; it exposes
// the signature algorithm OID that crypto/x509 does not.
type certEnvelope struct {
	TBS                asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          asn1.BitString
}

type parsedSignature struct {
	algorithm string
	hash      string
	keyType   string
	oid       string
}

// decodeDER accepts PEM or bare base64 DER.
func decodeDER(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "-----BEGIN") {
		block, _ := pem.Decode([]byte(raw))
		if block == nil {
			return nil, errors.New("invalid PEM block")
		}
		return block.Bytes, nil
	}
	return base64.StdEncoding.DecodeString(raw)
}

func parseCertSignature(raw string) (parsedSignature, error) {
	der, err := decodeDER(raw)
	if err != nil {
		return parsedSignature{}, fmt.Errorf("decode certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return parsedSignature{}, fmt.Errorf("parse certificate: %w", err)
	}

	var env certEnvelope
	oid := ""
	if _, err := asn1.Unmarshal(der, &env); err == nil {
		oid = env.SignatureAlgorithm.Algorithm.String()
	}

	keyType := cert.PublicKeyAlgorithm.String()
	hash := signatureHash(cert.SignatureAlgorithm)
	algKey := keyType
	if isPSS(cert.SignatureAlgorithm) {
		algKey = "RSASSA-PSS"
	}
	prefix := hash
	if prefix == "" {
		prefix = "UNKNOWN"
	}
	return parsedSignature{
		algorithm: prefix + "with" + algKey,
		hash:      hash,
		keyType:   keyType,
		oid:       oid,
	}, nil
}

func signatureHash(alg x509.SignatureAlgorithm) string {
	switch alg {
	case x509.MD2WithRSA:
		return "MD2"
	case x509.MD5WithRSA:
		return "MD5"
	case x509.SHA1WithRSA, x509.DSAWithSHA1, x509.ECDSAWithSHA1:
		return "SHA1"
	case x509.SHA256WithRSA, x509.DSAWithSHA256, x509.ECDSAWithSHA256, x509.SHA256WithRSAPSS:
		return "SHA256"
	case x509.SHA384WithRSA, x509.ECDSAWithSHA384, x509.SHA384WithRSAPSS:
		return "SHA384"
	case x509.SHA512WithRSA, x509.ECDSAWithSHA512, x509.SHA512WithRSAPSS:
		return "SHA512"
	}
	return ""
}

func isPSS(alg x509.SignatureAlgorithm) bool {
	return alg == x509.SHA256WithRSAPSS || alg == x509.SHA384WithRSAPSS || alg == x509.SHA512WithRSAPSS
}

func sigScore(algorithm string, keySize, position int) SigScore {
	s := pqc.Score(pqc.ScoreInput{
		Algorithm: pqc.ClassifySignature(algorithm),
		Type:      pqc.TypeSignature,
		KeySize:   keySize,
		Position:  position,
	})
	return SigScore{
		SigPQCScore:    s.FinalScore,
		SigPQCGrade:    s.Grade,
		SigIsPQC:       s.IsPQC,
		SigIsHybrid:    s.IsHybrid,
		SigQuantumSafe: s.QuantumSafe,
	}
}

// CertificateSignatures extracts one signature entry per certificate. The raw
// certificate is preferred; the SSL Labs sigAlg string is the fallback.
func CertificateSignatures(certs []Cert) []CertificateSignature {
	out := make([]CertificateSignature, 0, len(certs))
	for i, c := range certs {
		subject := c.Subject
		if subject == "" {
			subject = pqc.UnknownLabel
		}
		entry := CertificateSignature{
			Position:           i,
			CertificateSubject: subject,
			PublicKeySize:      c.KeySize,
		}

		var parsed *parsedSignature
		if c.Raw != "" {
			if p, err := parseCertSignature(c.Raw); err == nil {
				parsed = &p
			}
		}

		var hashForScore string
		if parsed != nil {
			entry.SignatureAlgorithm = parsed.algorithm
			entry.PublicKeyType = parsed.keyType
			entry.SignatureAlgorithmOID = parsed.oid
			entry.HashAlgorithm = parsed.hash
			if entry.HashAlgorithm == "" {
				entry.HashAlgorithm = "UNKNOWN"
			}
			hashForScore = entry.HashAlgorithm
		} else {
			sigAlg := c.SigAlg
			if sigAlg == "" {
				sigAlg = pqc.UnknownLabel
			}
			hash := "SHA256"
			if before, _, found := strings.Cut(sigAlg, "with"); found {
				hash = before
			}
			keyType := c.KeyAlg
			if keyType == "" {
				keyType = pqc.UnknownLabel
			}
			entry.SignatureAlgorithm = sigAlg
			entry.HashAlgorithm = hash
			entry.PublicKeyType = keyType
			hashForScore = hash
		}

		entry.SigScore = sigScore(entry.SignatureAlgorithm, c.KeySize, i)
		h := pqc.Score(pqc.ScoreInput{
			Algorithm: pqc.ClassifyHash(hashForScore),
			Type:      pqc.TypeHash,
			Position:  i,
		})
		entry.HashPQCScore = h.FinalScore
		entry.HashPQCGrade = h.Grade
		out = append(out, entry)
	}
	return out
}
