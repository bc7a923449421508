package pqc

import (
	"math"
	"strings"
)

// ScoreInput is the context for scoring a single algorithm. Zero values mean
// "not reported" and contribute no adjustment.
type ScoreInput struct {
	Algorithm string
	Type      AlgorithmType
	KeySize   int
	Curve     string
	CurveBits int
	Position  int
}

// PositionWeight is the decay applied to an entry at the given list position.
// Negative positions are treated as the head of the list.
func PositionWeight(position int) float64 {
	if position < 0 {
		return 1
	}
	return 1 / (1 + 0.05*float64(position))
}

// Score computes the resistance score for one algorithm. It never fails:
// unknown names score 0.
func Score(in ScoreInput) AlgorithmScore {
	base, _ := resistanceTables[in.Type].lookup(in.Algorithm)
	keyAdj := KeySizeAdjustment(in.Algorithm, in.KeySize)
	curveAdj := CurveAdjustment(in.Curve, in.CurveBits)

	final := round2(clamp(base+keyAdj+curveAdj, 0, 100))
	weighted := final * PositionWeight(in.Position)

	isPQC := IsPQC(in.Algorithm)
	isHybrid := IsHybrid(in.Algorithm)

	return AlgorithmScore{
		Algorithm:       in.Algorithm,
		AlgorithmType:   in.Type,
		BaseScore:       base,
		KeySize:         in.KeySize,
		KeySizeScore:    keyAdj,
		CurveStrength:   curveAdj,
		FinalScore:      final,
		Grade:           Grade(final),
		IsPQC:           isPQC,
		IsHybrid:        isHybrid,
		Position:        in.Position,
		WeightedScore:   round2(weighted),
		SecurityLevel:   SecurityLevel(final),
		QuantumSafe:     isPQC || (isHybrid && final >= 85),
		Deprecated:      IsDeprecated(in.Algorithm),
		Vulnerabilities: vulnerabilitiesFor(in.Algorithm),
	}
}

// Grade bands a score into a letter grade.
func Grade(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 85:
		return "A-"
	case score >= 80:
		return "B+"
	case score >= 75:
		return "B"
	case score >= 70:
		return "B-"
	case score >= 65:
		return "C+"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	}
	return "F"
}

// SecurityLevel bands a score into high, medium, low or critical.
func SecurityLevel(score float64) string {
	switch {
	case score >= 90:
		return LevelHigh
	case score >= 70:
		return LevelMedium
	case score >= 50:
		return LevelLow
	}
	return LevelCritical
}

type keyFamily int

const (
	familyNone keyFamily = iota
	familyPQC
	familyEC
	familyRSA
	familyAES
	familyChaCha
)

// familyOf picks the key-size rule for an algorithm. PQC and elliptic-curve
// names are tested before RSA/DSA so ML-DSA and ECDSA get their own steps.
func familyOf(upper string) keyFamily {
	switch {
	case containsAny(upper, pqcTokens...):
		return familyPQC
	case containsAny(upper, "ECDSA", "ECDH", "ED25519", "ED448") || strings.HasPrefix(upper, "EC"):
		return familyEC
	case containsAny(upper, "RSA", "DSA", "DSS"):
		return familyRSA
	case strings.Contains(upper, "AES"):
		return familyAES
	case strings.Contains(upper, "CHACHA"):
		return familyChaCha
	}
	return familyNone
}

// KeySizeAdjustment is the family-specific step for a key length. Sizes that
// fall between steps contribute 0.
func KeySizeAdjustment(algorithm string, keySize int) float64 {
	if keySize <= 0 {
		return 0
	}
	switch familyOf(strings.ToUpper(algorithm)) {
	case familyRSA:
		switch {
		case keySize < 1024:
			return -40
		case keySize < 2048:
			return -30
		case keySize == 2048:
			return 5
		case keySize == 3072:
			return 10
		case keySize >= 4096:
			return 15
		}
	case familyEC:
		switch {
		case keySize < 224:
			return -25
		case keySize < 256:
			return -15
		case keySize == 256:
			return 5
		case keySize == 384:
			return 10
		case keySize >= 521:
			return 15
		}
	case familyAES:
		switch keySize {
		case 128:
			return 0
		case 192:
			return 10
		case 256:
			return 20
		}
	case familyChaCha:
		if keySize == 256 {
			return 15
		}
	case familyPQC:
		switch {
		case keySize >= 3000:
			return 8
		case keySize >= 1500:
			return 5
		case keySize >= 800:
			return 3
		}
	}
	return 0
}

var namedCurves = []struct {
	tokens []string
	adj    float64
}{
	{[]string{"X25519", "CURVE25519"}, 15},
	{[]string{"X448", "CURVE448"}, 20},
	{[]string{"SECP256R1", "PRIME256V1"}, 5},
	{[]string{"SECP256K1"}, 4},
	{[]string{"SECP384R1"}, 10},
	{[]string{"SECP521R1"}, 12},
}

// CurveAdjustment scores a named curve, falling back to its bit length when
// the name is not recognized.
func CurveAdjustment(curve string, bits int) float64 {
	if curve == "" {
		return 0
	}
	upper := strings.ToUpper(curve)
	for _, c := range namedCurves {
		if containsAny(upper, c.tokens...) {
			return c.adj
		}
	}
	if strings.Contains(upper, "BRAINPOOL") {
		switch {
		case strings.Contains(upper, "512"):
			return 11
		case strings.Contains(upper, "384"):
			return 9
		case strings.Contains(upper, "256"):
			return 6
		}
	}
	switch {
	case bits >= 512:
		return 12
	case bits >= 384:
		return 10
	case bits >= 256:
		return 5
	case bits >= 224:
		return 3
	}
	return 0
}

func vulnerabilitiesFor(algorithm string) []string {
	upper := strings.ToUpper(algorithm)
	out := []string{}
	for _, b := range brokenAlgorithms {
		if (b.exact && upper == b.name) || (!b.exact && strings.Contains(upper, b.name)) {
			out = append(out, b.message)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
