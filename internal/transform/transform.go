package transform

import "strings"

// DefaultPort is assumed when the report omits the port.
const DefaultPort = 443

// NoDataError is returned when the tool output holds no host report.
type NoDataError struct {
	Domain string
}

func (e *NoDataError) Error() string {
	if e.Domain == "" {
		return "no scan data available"
	}
	return "no scan data available for " + e.Domain
}

// NormalizeDomain strips the scheme and trailing slashes from a host.
func NormalizeDomain(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

// Transform reshapes the first host report into a deduplicated Scan.
func Transform(hosts []Host) (*Scan, error) {
	if len(hosts) == 0 {
		return nil, &NoDataError{}
	}
	host := hosts[0]

	var endpoint Endpoint
	if len(host.Endpoints) > 0 {
		endpoint = host.Endpoints[0]
	}
	port := host.Port
	if port == 0 {
		port = DefaultPort
	}

	scan := emptyScan(NormalizeDomain(host.Host), endpoint.IPAddress, port)
	details := endpoint.Details
	if details == nil {
		return scan, nil
	}

	applyDetails(scan, details)
	scan.CertificateChain = buildChain(host.Certs, details)
	scan.SignatureAlgorithms = SignatureAlgorithms{
		CertificateSignatures: CertificateSignatures(host.Certs),
		HandshakeSignatures:   HandshakeSignatures(details.Suites),
	}

	return DedupeValue(scan)
}

func applyDetails(scan *Scan, d *EndpointDetails) {
	cfg := &scan.TLSConfiguration

	for _, p := range d.Protocols {
		name := p.Name
		if name == "" {
			name = "TLS"
		}
		cfg.SupportedProtocols = append(cfg.SupportedProtocols, name+" "+p.Version)
	}

	for _, g := range d.Suites {
		switch g.Protocol {
		case ProtocolTLS12:
			cfg.TLS12CipherSuites = buildSuites(g, tls12Suite)
		case ProtocolTLS13:
			cfg.TLS13CipherSuites = buildSuites(g, tls13Suite)
		}
	}

	if d.NamedGroups != nil {
		curves := make([]Curve, 0, len(d.NamedGroups.List))
		for i, g := range d.NamedGroups.List {
			curves = append(curves, namedGroup(g, i))
		}
		cfg.SupportedEllipticCurves = EllipticCurve{
			ServerPreference: preference(d.NamedGroups.Preference),
			Curves:           curves,
		}
	}

	cfg.CompressionSupport = d.CompressionMethods != 0
	// renegSupport bit 1 flags secure renegotiation; bit 0 the insecure
	// client-initiated kind.
	cfg.Renegotiation = Renegotiation{Secure: d.RenegSupport&1 == 0}
	cfg.HeartbeatExtension = d.Heartbeat
	cfg.SessionResumption = sessionResumption(d.SessionResumption)
	cfg.Extensions = extensions(d)
	if d.SupportsALPN && d.ALPNProtocols != "" {
		cfg.ALPNProtocols = strings.Fields(d.ALPNProtocols)
	}

	if d.HSTSPolicy != nil && d.HSTSPolicy.Status == "present" {
		scan.SecurityFeatures = SecurityFeatures{HSTSEnabled: true, HSTSMaxAge: d.HSTSPolicy.MaxAge}
	}
}

func sessionResumption(v int) string {
	switch v {
	case 0:
		return "disabled"
	case 1:
		return "ids_assigned_not_accepted"
	case 2:
		return "enabled"
	}
	return "unknown"
}

func extensions(d *EndpointDetails) []string {
	ext := []string{"server_name"}
	if d.RenegSupport&2 != 0 {
		ext = append(ext, "renegotiation_info")
	}
	if d.SupportsALPN {
		ext = append(ext, "application_layer_protocol_negotiation")
	}
	if d.OCSPStapling {
		ext = append(ext, "status_request")
	}
	if d.Heartbeat {
		ext = append(ext, "heartbeat")
	}
	return ext
}
