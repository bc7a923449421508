package transform

import "strings"

// Handshake signature schemes inferred from the offered suites.
const (
	SchemeECDSAP256  = "ecdsa_secp256r1_sha256"
	SchemeECDSAP384  = "ecdsa_secp384r1_sha384"
	SchemeRSAPKCS256 = "rsa_pkcs1_sha256"
	SchemeRSAPKCS384 = "rsa_pkcs1_sha384"
	SchemeRSAPSS256  = "rsa_pss_rsae_sha256"
)

type schemeKey struct {
	scheme   string
	protocol string
}

type handshakeCollector struct {
	seen map[schemeKey]bool
	out  []HandshakeSignature
}

func (h *handshakeCollector) add(scheme, protocol string) {
	key := schemeKey{scheme, protocol}
	if h.seen[key] {
		return
	}
	h.seen[key] = true
	h.out = append(h.out, HandshakeSignature{
		Algorithm: scheme,
		Protocol:  protocol,
		SigScore:  sigScore(scheme, 0, len(h.out)),
	})
}

// HandshakeSignatures infers the signature schemes a server accepts from its
// suite names. SSL Labs does not report them directly.
func HandshakeSignatures(groups []SuiteGroup) []HandshakeSignature {
	h := &handshakeCollector{seen: make(map[schemeKey]bool)}

	for _, g := range groups {
		if g.Protocol != ProtocolTLS12 {
			continue
		}
		for _, s := range g.List {
			name := strings.ToUpper(s.Name)
			if strings.Contains(name, "ECDSA") {
				if strings.Contains(name, "SHA256") {
					h.add(SchemeECDSAP256, "TLS 1.2")
				}
				if strings.Contains(name, "SHA384") {
					h.add(SchemeECDSAP384, "TLS 1.2")
				}
			}
			if strings.Contains(name, "RSA") && strings.Contains(name, "ECDHE") {
				if strings.Contains(name, "SHA256") {
					h.add(SchemeRSAPKCS256, "TLS 1.2")
				}
				if strings.Contains(name, "SHA384") {
					h.add(SchemeRSAPKCS384, "TLS 1.2")
				}
			}
		}
	}

	for _, g := range groups {
		if g.Protocol == ProtocolTLS13 {
			h.add(SchemeRSAPSS256, "TLS 1.3")
			h.add(SchemeECDSAP256, "TLS 1.3")
			h.add(SchemeECDSAP384, "TLS 1.3")
			break
		}
	}

	if len(h.out) == 0 {
		h.add(SchemeRSAPKCS256, "TLS 1.2")
	}
	return h.out
}
