package transform

import (
	"math"
	"strings"

	"github.com/khanhnv2901/seca-pqc/internal/pqc"
)

func preference(on bool) string {
	if on {
		return PreferenceEnabled
	}
	return PreferenceDisabled
}

// Encryption returns the bulk cipher of a suite name or UnknownLabel.
func Encryption(suiteName string) string {
	if name, ok := pqc.ClassifySymmetric(suiteName); ok {
		return name
	}
	return pqc.UnknownLabel
}

// KeyExchange returns the TLS 1.2 key exchange of a suite. kxType is the
// SSL Labs hint used when the name carries no kex token.
func KeyExchange(suiteName, kxType string) string {
	if kex, ok := pqc.ClassifyKex(suiteName); ok {
		return kex
	}
	if strings.EqualFold(kxType, "ECDH") {
		return "ECDH"
	}
	return pqc.UnknownLabel
}

// Authentication returns the server authentication of a TLS 1.2 suite.
func Authentication(suiteName string) string {
	upper := strings.ToUpper(suiteName)
	switch {
	case strings.Contains(upper, "_ECDSA_"):
		return "ECDSA"
	case strings.Contains(upper, "_DSS_"):
		return "DSS"
	case strings.Contains(upper, "_RSA_"):
		return "RSA"
	case strings.Contains(upper, "_ANON_"):
		return "ANON"
	case strings.Contains(upper, "PSK"):
		return "PSK"
	}
	return pqc.UnknownLabel
}

func scoreEncryption(cs *CipherSuite, position int) {
	if cs.Encryption == pqc.UnknownLabel {
		return
	}
	s := pqc.Score(pqc.ScoreInput{
		Algorithm: cs.Encryption,
		Type:      pqc.TypeSymmetric,
		KeySize:   pqc.SymmetricKeySize(cs.Encryption),
		Position:  position,
	})
	cs.EncryptionPQCScore = &s.FinalScore
	cs.EncryptionPQCGrade = s.Grade
}

func applyKexScore(cs *CipherSuite, s pqc.AlgorithmScore) {
	cs.KexPQCScore = &s.FinalScore
	cs.KexPQCGrade = s.Grade
	cs.KexIsPQC = s.IsPQC
	cs.KexIsHybrid = s.IsHybrid
	cs.KexQuantumSafe = s.QuantumSafe
}

func tls12Suite(s Suite, position int) CipherSuite {
	cs := CipherSuite{
		Name:           s.Name,
		Encryption:     Encryption(s.Name),
		KeyExchange:    KeyExchange(s.Name, s.KxType),
		Authentication: Authentication(s.Name),
	}
	if s.NamedGroupName != "" {
		cs.Curve = s.NamedGroupName
		cs.CurveBits = s.NamedGroupBits
	}
	if cs.KeyExchange != pqc.UnknownLabel {
		applyKexScore(&cs, pqc.Score(pqc.ScoreInput{
			Algorithm: cs.KeyExchange,
			Type:      pqc.TypeKex,
			Curve:     cs.Curve,
			CurveBits: cs.CurveBits,
			Position:  position,
		}))
	}
	scoreEncryption(&cs, position)
	return cs
}

// tls13Suite reports the negotiated group as the key exchange.
func tls13Suite(s Suite, position int) CipherSuite {
	cs := CipherSuite{
		Name:        s.Name,
		Encryption:  Encryption(s.Name),
		KeyExchange: s.NamedGroupName,
		CurveBits:   s.NamedGroupBits,
	}
	if group := cs.KeyExchange; group != "" {
		applyKexScore(&cs, pqc.Score(pqc.ScoreInput{
			Algorithm: groupKex(group),
			Type:      pqc.TypeKex,
			Curve:     group,
			CurveBits: cs.CurveBits,
			Position:  position,
		}))
	}
	scoreEncryption(&cs, position)
	return cs
}

func buildSuites(group SuiteGroup, convert func(Suite, int) CipherSuite) CipherSuites {
	out := CipherSuites{
		ServerPreference: preference(group.Preference),
		Suites:           make([]CipherSuite, 0, len(group.List)),
	}
	for i, s := range group.List {
		out.Suites = append(out.Suites, convert(s, i))
	}

	var sum float64
	var n int
	for _, cs := range out.Suites {
		if cs.KexPQCScore != nil {
			sum += *cs.KexPQCScore
			n++
		}
	}
	if n > 0 {
		avg := round2(sum / float64(n))
		out.ComponentKexScore = &avg
		out.ComponentKexGrade = pqc.Grade(avg)
	}
	return out
}

// groupKex maps a named group onto its canonical kex name, keeping the raw
// name when it is not recognized.
func groupKex(group string) string {
	if kex, ok := pqc.ClassifyKex(group); ok {
		return kex
	}
	return group
}

func namedGroup(g NamedGroup, position int) Curve {
	s := pqc.Score(pqc.ScoreInput{
		Algorithm: groupKex(g.Name),
		Type:      pqc.TypeKex,
		Curve:     g.Name,
		CurveBits: g.Bits,
		Position:  position,
	})
	return Curve{
		Name:             g.Name,
		Type:             g.NamedGroupType,
		Bits:             g.Bits,
		CurvePQCScore:    s.FinalScore,
		CurvePQCGrade:    s.Grade,
		CurveIsPQC:       s.IsPQC,
		CurveIsHybrid:    s.IsHybrid,
		CurveQuantumSafe: s.QuantumSafe,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
