package pqc

import "strings"

// scoreEntry is one row of a resistance table. Rows keep their declaration
// order so fallback lookups are deterministic.
type scoreEntry struct {
	name  string
	score float64
}

// scoreTable is an immutable name→score table with a fixed key order.
type scoreTable struct {
	keys    []string
	upper   []string
	scores  map[string]float64
	byUpper map[string]float64
}

func newScoreTable(entries ...scoreEntry) *scoreTable {
	t := &scoreTable{
		keys:    make([]string, 0, len(entries)),
		upper:   make([]string, 0, len(entries)),
		scores:  make(map[string]float64, len(entries)),
		byUpper: make(map[string]float64, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.scores[e.name]; dup {
			continue
		}
		t.keys = append(t.keys, e.name)
		t.upper = append(t.upper, strings.ToUpper(e.name))
		t.scores[e.name] = e.score
		if _, seen := t.byUpper[strings.ToUpper(e.name)]; !seen {
			t.byUpper[strings.ToUpper(e.name)] = e.score
		}
	}
	return t
}

// lookup resolves an exact key first (case-sensitive, then case-folded).
// Otherwise the longest key contained in the name wins, ties going to the
// earlier declaration; failing that, the first key that contains the name.
func (t *scoreTable) lookup(name string) (float64, bool) {
	if t == nil || name == "" {
		return 0, false
	}
	if score, ok := t.scores[name]; ok {
		return score, true
	}
	upper := strings.ToUpper(name)
	if score, ok := t.byUpper[upper]; ok {
		return score, true
	}
	best := -1
	for i, key := range t.upper {
		if strings.Contains(upper, key) && (best < 0 || len(key) > len(t.upper[best])) {
			best = i
		}
	}
	if best >= 0 {
		return t.scores[t.keys[best]], true
	}
	for i, key := range t.upper {
		if strings.Contains(key, upper) {
			return t.scores[t.keys[i]], true
		}
	}
	return 0, false
}

// Len reports the number of distinct entries.
func (t *scoreTable) Len() int {
	return len(t.keys)
}

var kexTable = newScoreTable(
	// classical
	scoreEntry{"RSA", 0}, scoreEntry{"DH", 0}, scoreEntry{"DH-RSA", 0}, scoreEntry{"DH-DSS", 0},
	scoreEntry{"ANON-DH", 0}, scoreEntry{"DHE", 5}, scoreEntry{"ECDH", 5}, scoreEntry{"ECDHE", 10},
	scoreEntry{"X25519", 15}, scoreEntry{"X448", 18}, scoreEntry{"CURVE25519", 15}, scoreEntry{"CURVE448", 18},

	// NIST curves
	scoreEntry{"secp224r1", 3}, scoreEntry{"secp256r1", 5}, scoreEntry{"secp256k1", 4},
	scoreEntry{"secp384r1", 8}, scoreEntry{"secp521r1", 10}, scoreEntry{"PRIME256V1", 5},

	// brainpool
	scoreEntry{"brainpoolP256r1", 6}, scoreEntry{"brainpoolP384r1", 9}, scoreEntry{"brainpoolP512r1", 11},

	// finite-field groups
	scoreEntry{"ffdhe2048", 7}, scoreEntry{"ffdhe3072", 9}, scoreEntry{"ffdhe4096", 11},
	scoreEntry{"ffdhe6144", 13}, scoreEntry{"ffdhe8192", 15},

	// PQC KEMs
	scoreEntry{"KYBER", 95}, scoreEntry{"KYBER512", 90}, scoreEntry{"KYBER768", 95}, scoreEntry{"KYBER1024", 98},
	scoreEntry{"CRYSTALS-KYBER", 95},
	scoreEntry{"ML-KEM", 95}, scoreEntry{"ML-KEM-512", 90}, scoreEntry{"ML-KEM-768", 95}, scoreEntry{"ML-KEM-1024", 98},
	scoreEntry{"BIKE", 85}, scoreEntry{"BIKE-L1", 83}, scoreEntry{"BIKE-L3", 87}, scoreEntry{"BIKE-L5", 89},
	scoreEntry{"SIKE", 0},
	scoreEntry{"NTRU", 85}, scoreEntry{"NTRUPRIME", 87},
	scoreEntry{"SNTRUP", 86}, scoreEntry{"SNTRUP761", 86}, scoreEntry{"SNTRUP857", 87}, scoreEntry{"SNTRUP1277", 89},
	scoreEntry{"SABER", 88}, scoreEntry{"LIGHTSABER", 85}, scoreEntry{"FIRESABER", 90},
	scoreEntry{"FRODO", 92}, scoreEntry{"FRODOKEM", 92},
	scoreEntry{"FRODOKEM-640", 90}, scoreEntry{"FRODOKEM-976", 92}, scoreEntry{"FRODOKEM-1344", 94},
	scoreEntry{"HQC", 88}, scoreEntry{"CLASSIC-MCELIECE", 93}, scoreEntry{"MCELIECE", 93},
	scoreEntry{"NEWHOPE", 87}, scoreEntry{"NEWHOPE512", 85}, scoreEntry{"NEWHOPE1024", 89},
	scoreEntry{"NTRU-HRSS", 87}, scoreEntry{"NTRU-HPS", 88},

	// hybrids
	scoreEntry{"X25519-KYBER768", 96}, scoreEntry{"X25519-KYBER512", 93},
	scoreEntry{"X448-KYBER768", 97}, scoreEntry{"X448-KYBER1024", 97},
	scoreEntry{"P256-KYBER512", 92}, scoreEntry{"P384-KYBER768", 95},
	scoreEntry{"ECDHE-KYBER", 94}, scoreEntry{"ECDHE-NTRU", 90},

	scoreEntry{"X25519-ML-KEM-768", 96}, scoreEntry{"P256-ML-KEM-768", 95}, scoreEntry{"P384-ML-KEM-1024", 97},

	// IANA hybrid group names as reported by scanners
	scoreEntry{"X25519MLKEM768", 96}, scoreEntry{"SecP256r1MLKEM768", 95}, scoreEntry{"SecP384r1MLKEM1024", 97},
	scoreEntry{"X25519Kyber768Draft00", 96},

	// PSK
	scoreEntry{"PSK", 40}, scoreEntry{"DHE-PSK", 45}, scoreEntry{"ECDHE-PSK", 50}, scoreEntry{"RSA-PSK", 35},
)

var signatureTable = newScoreTable(
	// classical
	scoreEntry{"RSA", 0}, scoreEntry{"DSA", 0}, scoreEntry{"DSS", 0}, scoreEntry{"ECDSA", 5},
	scoreEntry{"DSA-1024", 0}, scoreEntry{"DSA-2048", 3}, scoreEntry{"DSA-3072", 5},
	scoreEntry{"RSA-PSS", 8}, scoreEntry{"RSASSA-PSS", 8},

	// modern ECC
	scoreEntry{"EdDSA", 60}, scoreEntry{"Ed25519", 65}, scoreEntry{"Ed448", 70},

	// lattice and hash-based PQC
	scoreEntry{"DILITHIUM", 95}, scoreEntry{"DILITHIUM2", 92}, scoreEntry{"DILITHIUM3", 95}, scoreEntry{"DILITHIUM5", 98},
	scoreEntry{"ML-DSA", 95}, scoreEntry{"ML-DSA-44", 92}, scoreEntry{"ML-DSA-65", 95}, scoreEntry{"ML-DSA-87", 98},
	scoreEntry{"FALCON", 94}, scoreEntry{"FALCON512", 92}, scoreEntry{"FALCON1024", 96},
	scoreEntry{"SPHINCS", 96}, scoreEntry{"SPHINCS+", 97},
	scoreEntry{"SPHINCS+-128F", 95}, scoreEntry{"SPHINCS+-192F", 96}, scoreEntry{"SPHINCS+-256F", 97},
	scoreEntry{"SPHINCS+-128S", 96}, scoreEntry{"SPHINCS+-192S", 97}, scoreEntry{"SPHINCS+-256S", 98},
	scoreEntry{"SLH-DSA", 97},
	scoreEntry{"XMSS", 91}, scoreEntry{"LMS", 90}, scoreEntry{"HSS-LMS", 91},

	// other candidates
	scoreEntry{"RAINBOW", 0}, scoreEntry{"PICNIC", 88}, scoreEntry{"PICNIC3", 89},
	scoreEntry{"PICNIC-L1", 87}, scoreEntry{"PICNIC-L3", 89}, scoreEntry{"PICNIC-L5", 91},
	scoreEntry{"MAYO", 89}, scoreEntry{"UOV", 84}, scoreEntry{"GeMSS", 86}, scoreEntry{"LUOV", 84},

	// national standards
	scoreEntry{"SM2", 55}, scoreEntry{"GOST-SIGNATURE", 58}, scoreEntry{"GOST-2012", 60},

	// hybrids
	scoreEntry{"RSA-DILITHIUM", 85}, scoreEntry{"RSA+DILITHIUM", 85},
	scoreEntry{"ECDSA-DILITHIUM", 88}, scoreEntry{"ECDSA+DILITHIUM", 88},
	scoreEntry{"ECDSA-FALCON", 87}, scoreEntry{"ECDSA+FALCON", 87},
	scoreEntry{"RSA-SPHINCS+", 86}, scoreEntry{"RSA-FALCON", 86},
	scoreEntry{"Ed25519-DILITHIUM", 90}, scoreEntry{"Ed448-DILITHIUM3", 91}, scoreEntry{"Ed448-FALCON1024", 92},
)

var symmetricTable = newScoreTable(
	// AES
	scoreEntry{"AES-128", 70}, scoreEntry{"AES-192", 80}, scoreEntry{"AES-256", 85},
	scoreEntry{"AES-128-GCM", 75}, scoreEntry{"AES-192-GCM", 82}, scoreEntry{"AES-256-GCM", 90},
	scoreEntry{"AES-128-CCM", 72}, scoreEntry{"AES-256-CCM", 88},
	scoreEntry{"AES-128-OCB", 73}, scoreEntry{"AES-256-OCB", 89},
	scoreEntry{"AES-GCM-SIV", 89}, scoreEntry{"AES-SIV", 87}, scoreEntry{"AES-EAX", 86},

	// stream ciphers and AEADs
	scoreEntry{"AEGIS-128", 79}, scoreEntry{"AEGIS-256", 84},
	scoreEntry{"ChaCha20", 82}, scoreEntry{"ChaCha20-Poly1305", 88},
	scoreEntry{"XChaCha20", 83}, scoreEntry{"XChaCha20-Poly1305", 88},
	scoreEntry{"Salsa20", 75}, scoreEntry{"XSalsa20", 76},

	// other block ciphers
	scoreEntry{"Camellia-128", 60}, scoreEntry{"Camellia-192", 70}, scoreEntry{"Camellia-256", 80},
	scoreEntry{"ARIA-128", 62}, scoreEntry{"ARIA-192", 72}, scoreEntry{"ARIA-256", 82},
	scoreEntry{"Twofish", 70}, scoreEntry{"Twofish-256", 78},
	scoreEntry{"Serpent", 75}, scoreEntry{"Serpent-256", 82},

	// lightweight
	scoreEntry{"ASCON-128", 80}, scoreEntry{"ASCON-128A", 82}, scoreEntry{"GIFT-128", 75},
	scoreEntry{"SPARKLE", 76}, scoreEntry{"GRAIN-128AEAD", 74}, scoreEntry{"TINYJAMBU", 73},
	scoreEntry{"DEOXYS-II", 77},

	// weak
	scoreEntry{"3DES", 20}, scoreEntry{"DES", 0}, scoreEntry{"RC4", 0}, scoreEntry{"RC2", 0},
	scoreEntry{"Blowfish", 30}, scoreEntry{"IDEA", 25}, scoreEntry{"CAST5", 28},
)

var hashTable = newScoreTable(
	// broken and legacy
	scoreEntry{"MD5", 0}, scoreEntry{"MD4", 0}, scoreEntry{"MD2", 0},
	scoreEntry{"SHA1", 10}, scoreEntry{"SHA-1", 10}, scoreEntry{"RIPEMD-160", 35},

	// SHA-2
	scoreEntry{"SHA224", 50}, scoreEntry{"SHA-224", 50}, scoreEntry{"SHA256", 70}, scoreEntry{"SHA-256", 70},
	scoreEntry{"SHA384", 80}, scoreEntry{"SHA-384", 80}, scoreEntry{"SHA512", 85}, scoreEntry{"SHA-512", 85},
	scoreEntry{"SHA512/224", 78}, scoreEntry{"SHA512/256", 80},

	// SHA-3
	scoreEntry{"SHA3-224", 70}, scoreEntry{"SHA3-256", 72}, scoreEntry{"SHA3-384", 82}, scoreEntry{"SHA3-512", 88},
	scoreEntry{"SHAKE128", 73}, scoreEntry{"SHAKE256", 86},
	scoreEntry{"Keccak", 72}, scoreEntry{"Keccak-256", 72},

	// BLAKE
	scoreEntry{"BLAKE2b", 80}, scoreEntry{"BLAKE2s", 78}, scoreEntry{"BLAKE3", 85},
	scoreEntry{"BLAKE2b-256", 80}, scoreEntry{"BLAKE2b-512", 83},
	scoreEntry{"BLAKE2BP", 82}, scoreEntry{"BLAKE2SP", 81},

	// lightweight
	scoreEntry{"ASCON-HASH", 78}, scoreEntry{"ASCON-HASHA", 79},

	// national standards
	scoreEntry{"Whirlpool", 72}, scoreEntry{"SM3", 68}, scoreEntry{"GOST", 60},
	scoreEntry{"STREEBOG-256", 65}, scoreEntry{"STREEBOG-512", 70},
	scoreEntry{"LSH-256", 68}, scoreEntry{"LSH-512", 73}, scoreEntry{"GOST-HASH", 62},
)

var protocolTable = newScoreTable(
	scoreEntry{"SSL 2.0", 0}, scoreEntry{"SSL 3.0", 0},
	scoreEntry{"TLS 1.0", 20}, scoreEntry{"TLS 1.1", 40}, scoreEntry{"TLS 1.2", 75}, scoreEntry{"TLS 1.3", 90},
	scoreEntry{"DTLS 1.0", 30}, scoreEntry{"DTLS 1.2", 75}, scoreEntry{"DTLS 1.3", 90},
	scoreEntry{"QUIC", 85},
)

var resistanceTables = map[AlgorithmType]*scoreTable{
	TypeKex:       kexTable,
	TypeSignature: signatureTable,
	TypeSymmetric: symmetricTable,
	TypeHash:      hashTable,
	TypeProtocol:  protocolTable,
}

// pqcTokens are family markers; a name containing any of them is post-quantum.
var pqcTokens = []string{
	"KYBER", "BIKE", "SIKE", "NTRU", "SABER", "FRODO", "HQC", "NTRUPRIME",
	"DILITHIUM", "FALCON", "SPHINCS", "RAINBOW", "PICNIC", "GEMSS",
	"XMSS", "LMS", "MCELIECE", "CLASSIC-MCELIECE", "ML-KEM", "MLKEM", "ML-DSA",
	"SLH-DSA", "CRYSTALS", "SNTRUP", "LIGHTSABER", "FIRESABER", "FRODOKEM",
	"NEWHOPE", "LUOV",
}

// classicalTokens mark the classical half of a hybrid construction.
var classicalTokens = []string{"RSA", "ECDSA", "ECDHE", "X25519", "X448", "ED25519", "P256", "P384"}

var hybridSeparators = []string{"+", "-", "HYBRID"}

// deprecatedSubstrings flag any name that contains them.
var deprecatedSubstrings = []string{
	"MD5", "MD4", "MD2", "SHA1", "SHA-1", "3DES", "RC4", "RC2",
	"SSL 2.0", "SSL 3.0", "TLS 1.0", "TLS 1.1",
	"ANON-DH", "IDEA", "RAINBOW", "SIKE", "DSA-1024",
}

// deprecatedExact flag only names equal to them, so ECDSA and ML-DSA stay clean.
var deprecatedExact = map[string]struct{}{
	"DSA": {},
	"DSS": {},
	"DES": {},
}

// brokenAlgorithms are practically exploitable today and raise a critical
// vulnerability on the report. DES matches exactly so 3DES stays out.
var brokenAlgorithms = []struct {
	name    string
	exact   bool
	message string
}{
	{"SSL 2.0", false, "SSL 2.0 is broken (DROWN)"},
	{"SSL 3.0", false, "SSL 3.0 is broken (POODLE)"},
	{"RC4", false, "RC4 keystream biases allow plaintext recovery"},
	{"RC2", false, "RC2 is weak against related-key attacks"},
	{"DES", true, "DES 56-bit keys are brute-forceable"},
	{"MD5", false, "MD5 collisions are practical"},
	{"MD4", false, "MD4 collisions are practical"},
	{"MD2", false, "MD2 preimages are practical"},
	{"ANON-DH", false, "anonymous Diffie-Hellman offers no authentication"},
	{"SIKE", false, "SIKE was broken by a classical key-recovery attack"},
	{"RAINBOW", false, "Rainbow was broken by a classical key-recovery attack"},
}

// protocolFallbackScore is reported for versions missing from the protocol table.
const protocolFallbackScore = 50

var deprecatedProtocols = []string{"SSL 2.0", "SSL 3.0", "TLS 1.0", "TLS 1.1"}

// fipsApprovedTokens mark algorithms accepted under FIPS 140-3.
var fipsApprovedTokens = []string{"AES", "SHA256", "SHA384", "SHA512", "RSA", "ECDSA"}

// ephemeralTokens signal forward secrecy on a key exchange.
var ephemeralTokens = []string{"DHE", "ECDHE", "X25519", "X448"}
