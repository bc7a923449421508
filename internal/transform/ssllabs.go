package transform

import (
	"encoding/json"
	"fmt"
)

// SSL Labs protocol identifiers used to group suites.
const (
	ProtocolTLS12 = 771
	ProtocolTLS13 = 772
)

// Host is one host report emitted by ssllabs-scan.
type Host struct {
	Host          string     `json:"host"`
	Port          int        `json:"port"`
	Protocol      string     `json:"protocol"`
	Status        string     `json:"status"`
	StatusMessage string     `json:"statusMessage"`
	StartTime     int64      `json:"startTime"`
	TestTime      int64      `json:"testTime"`
	Endpoints     []Endpoint `json:"endpoints"`
	Certs         []Cert     `json:"certs"`
}

// Endpoint is one analysed server address.
type Endpoint struct {
	IPAddress     string           `json:"ipAddress"`
	ServerName    string           `json:"serverName"`
	StatusMessage string           `json:"statusMessage"`
	Grade         string           `json:"grade"`
	Details       *EndpointDetails `json:"details,omitempty"`
}

// EndpointDetails holds the negotiated configuration of an endpoint.
type EndpointDetails struct {
	Protocols          []ProtocolEntry `json:"protocols"`
	Suites             []SuiteGroup    `json:"suites"`
	NamedGroups        *NamedGroups    `json:"namedGroups,omitempty"`
	CompressionMethods int             `json:"compressionMethods"`
	RenegSupport       int             `json:"renegSupport"`
	Heartbeat          bool            `json:"heartbeat"`
	SessionResumption  int             `json:"sessionResumption"`
	SupportsALPN       bool            `json:"supportsAlpn"`
	ALPNProtocols      string          `json:"alpnProtocols"`
	OCSPStapling       bool            `json:"ocspStapling"`
	SNIRequired        bool            `json:"sniRequired"`
	HSTSPolicy         *HSTSPolicy     `json:"hstsPolicy,omitempty"`
	HPKPPolicy         *HPKPPolicy     `json:"hpkpPolicy,omitempty"`
}

// ProtocolEntry is one supported protocol version.
type ProtocolEntry struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// SuiteGroup is the suite list offered for one protocol version.
type SuiteGroup struct {
	Protocol   int     `json:"protocol"`
	Preference bool    `json:"preference"`
	List       []Suite `json:"list"`
}

// Suite is one accepted cipher suite.
type Suite struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	CipherStrength int    `json:"cipherStrength"`
	KxType         string `json:"kxType"`
	KxStrength     int    `json:"kxStrength"`
	NamedGroupID   int    `json:"namedGroupId"`
	NamedGroupName string `json:"namedGroupName"`
	NamedGroupBits int    `json:"namedGroupBits"`
}

// NamedGroups lists the key exchange groups accepted by the server.
type NamedGroups struct {
	Preference bool         `json:"preference"`
	List       []NamedGroup `json:"list"`
}

// NamedGroup is one supported group.
type NamedGroup struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Bits           int    `json:"bits"`
	NamedGroupType string `json:"namedGroupType"`
}

// HSTSPolicy mirrors the SSL Labs HSTS policy block.
type HSTSPolicy struct {
	Status string `json:"status"`
	MaxAge int    `json:"maxAge"`
}

// HPKPPolicy mirrors the SSL Labs public key pinning block.
type HPKPPolicy struct {
	Status string `json:"status"`
}

// Cert is one certificate presented by the server.
type Cert struct {
	ID            string   `json:"id"`
	Subject       string   `json:"subject"`
	CommonNames   []string `json:"commonNames"`
	AltNames      []string `json:"altNames"`
	NotBefore     int64    `json:"notBefore"`
	NotAfter      int64    `json:"notAfter"`
	IssuerSubject string   `json:"issuerSubject"`
	SigAlg        string   `json:"sigAlg"`
	KeyAlg        string   `json:"keyAlg"`
	KeySize       int      `json:"keySize"`
	KeyStrength   int      `json:"keyStrength"`
	SCT           bool     `json:"sct"`
	Raw           string   `json:"raw"`
}

// Parse decodes the JSON array printed by ssllabs-scan.
func Parse(raw []byte) ([]Host, error) {
	var hosts []Host
	if err := json.Unmarshal(raw, &hosts); err != nil {
		return nil, fmt.Errorf("decode ssllabs output: %w", err)
	}
	return hosts, nil
}
