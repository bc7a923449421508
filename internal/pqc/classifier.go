package pqc

import "strings"

// Canonicalize normalizes a raw algorithm name for the given field. The
// boolean is false when nothing matched and the caller should omit the score;
// signature and hash lookups always succeed because they fall back to RSA
// and SHA256.
func Canonicalize(raw string, field AlgorithmType) (string, bool) {
	switch field {
	case TypeKex:
		return ClassifyKex(raw)
	case TypeSymmetric:
		return ClassifySymmetric(raw)
	case TypeSignature:
		return ClassifySignature(raw), true
	case TypeHash:
		return ClassifyHash(raw), true
	case TypeProtocol:
		name := strings.TrimSpace(raw)
		return name, name != ""
	}
	return "", false
}

type pattern struct {
	tokens []string
	name   string
}

// matchFirst returns the name of the first pattern whose every token occurs in upper.
func matchFirst(upper string, patterns []pattern) (string, bool) {
	for _, p := range patterns {
		ok := true
		for _, tok := range p.tokens {
			if !strings.Contains(upper, tok) {
				ok = false
				break
			}
		}
		if ok {
			return p.name, true
		}
	}
	return "", false
}

func containsAny(s string, tokens ...string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// kemFamilies are checked most specific first so KYBER768 wins over KYBER.
// Registered group names such as X25519MLKEM768 or SecP256r1MLKEM768 resolve
// to the hyphenated hybrid form.
var kemFamilies = []struct {
	tokens []string
	name   string
}{
	{[]string{"MLKEM1024", "ML-KEM-1024"}, "ML-KEM-1024"},
	{[]string{"MLKEM768", "ML-KEM-768"}, "ML-KEM-768"},
	{[]string{"MLKEM512", "ML-KEM-512"}, "ML-KEM-512"},
	{[]string{"KYBER1024"}, "KYBER1024"},
	{[]string{"KYBER768"}, "KYBER768"},
	{[]string{"KYBER512"}, "KYBER512"},
	{[]string{"MLKEM", "ML-KEM"}, "ML-KEM"},
	{[]string{"KYBER"}, "KYBER"},
	{[]string{"NTRU"}, "NTRU"},
	{[]string{"SABER"}, "SABER"},
	{[]string{"FRODO"}, "FRODO"},
}

var ffdheGroups = []pattern{
	{[]string{"FFDHE8192"}, "ffdhe8192"},
	{[]string{"FFDHE6144"}, "ffdhe6144"},
	{[]string{"FFDHE4096"}, "ffdhe4096"},
	{[]string{"FFDHE3072"}, "ffdhe3072"},
	{[]string{"FFDHE2048"}, "ffdhe2048"},
}

// ClassifyKex extracts the key exchange from a cipher suite or group name.
func ClassifyKex(raw string) (string, bool) {
	upper := strings.ToUpper(raw)
	if upper == "" {
		return "", false
	}
	for _, fam := range kemFamilies {
		if !containsAny(upper, fam.tokens...) {
			continue
		}
		switch {
		case strings.Contains(upper, "X25519"):
			return "X25519-" + fam.name, true
		case strings.Contains(upper, "X448"):
			return "X448-" + fam.name, true
		case strings.Contains(upper, "P256"):
			return "P256-" + fam.name, true
		case strings.Contains(upper, "P384"):
			return "P384-" + fam.name, true
		}
		return fam.name, true
	}

	if strings.Contains(upper, "PSK") {
		switch {
		case strings.Contains(upper, "ECDHE"):
			return "ECDHE-PSK", true
		case strings.Contains(upper, "DHE"):
			return "DHE-PSK", true
		case strings.Contains(upper, "RSA"):
			return "RSA-PSK", true
		}
		return "PSK", true
	}

	if strings.Contains(upper, "ECDHE") {
		switch {
		case strings.Contains(upper, "X25519"):
			return "X25519", true
		case strings.Contains(upper, "X448"):
			return "X448", true
		}
		return "ECDHE", true
	}
	if name, ok := matchFirst(upper, ffdheGroups); ok {
		return name, true
	}
	if strings.Contains(upper, "DHE") {
		return "DHE", true
	}

	switch {
	case strings.Contains(upper, "DH-RSA") || strings.Contains(upper, "DH_RSA"):
		return "DH-RSA", true
	case strings.Contains(upper, "DH-DSS") || strings.Contains(upper, "DH_DSS"):
		return "DH-DSS", true
	case strings.Contains(upper, "ANON") && strings.Contains(upper, "DH"):
		return "ANON-DH", true
	case strings.Contains(upper, "_RSA_") || strings.HasPrefix(upper, "TLS_RSA_") || upper == "RSA":
		return "RSA", true
	case strings.Contains(upper, "ECDH"):
		return "ECDH", true
	case strings.Contains(upper, "_DH_") || upper == "DH":
		return "DH", true
	}

	// Bare group names reported for TLS 1.3 handshakes.
	if _, ok := kexTable.byUpper[upper]; ok {
		return raw, true
	}
	return "", false
}

var symmetricPatterns = []pattern{
	{[]string{"AES_256_GCM"}, "AES-256-GCM"},
	{[]string{"AES_192_GCM"}, "AES-192-GCM"},
	{[]string{"AES_128_GCM"}, "AES-128-GCM"},
	{[]string{"AES_256_CCM"}, "AES-256-CCM"},
	{[]string{"AES_128_CCM"}, "AES-128-CCM"},
	{[]string{"AES_256"}, "AES-256"},
	{[]string{"AES_192"}, "AES-192"},
	{[]string{"AES_128"}, "AES-128"},
	{[]string{"CHACHA20", "POLY1305"}, "ChaCha20-Poly1305"},
	{[]string{"CHACHA20"}, "ChaCha20"},
	{[]string{"CAMELLIA_256"}, "Camellia-256"},
	{[]string{"CAMELLIA_128"}, "Camellia-128"},
	{[]string{"ARIA_256"}, "ARIA-256"},
	{[]string{"ARIA_128"}, "ARIA-128"},
	{[]string{"ASCON"}, "ASCON-128"},
	{[]string{"3DES"}, "3DES"},
	{[]string{"RC4"}, "RC4"},
}

// ClassifySymmetric extracts the bulk cipher from a cipher suite name.
func ClassifySymmetric(raw string) (string, bool) {
	upper := strings.ReplaceAll(strings.ToUpper(raw), "-", "_")
	if name, ok := matchFirst(upper, symmetricPatterns); ok {
		return name, true
	}
	if strings.Contains(upper, "DES") {
		return "DES", true
	}
	return "", false
}

// SymmetricKeySize infers the key length from a canonical cipher name.
func SymmetricKeySize(name string) int {
	switch {
	case strings.Contains(name, "256"):
		return 256
	case strings.Contains(name, "192"):
		return 192
	}
	return 128
}

var signaturePatterns = []pattern{
	// hybrids
	{[]string{"RSA", "DILITHIUM"}, "RSA+DILITHIUM"},
	{[]string{"ECDSA", "DILITHIUM"}, "ECDSA+DILITHIUM"},
	{[]string{"ECDSA", "FALCON"}, "ECDSA+FALCON"},
	{[]string{"ED448", "DILITHIUM"}, "Ed448-DILITHIUM3"},
	{[]string{"ED448", "FALCON"}, "Ed448-FALCON1024"},
	{[]string{"ED25519", "DILITHIUM"}, "Ed25519-DILITHIUM"},
	{[]string{"RSA", "FALCON"}, "RSA-FALCON"},
	{[]string{"RSA", "SPHINCS"}, "RSA-SPHINCS+"},

	// PQC
	{[]string{"DILITHIUM5"}, "DILITHIUM5"},
	{[]string{"ML-DSA-87"}, "DILITHIUM5"},
	{[]string{"DILITHIUM3"}, "DILITHIUM3"},
	{[]string{"ML-DSA-65"}, "DILITHIUM3"},
	{[]string{"DILITHIUM2"}, "DILITHIUM2"},
	{[]string{"ML-DSA-44"}, "DILITHIUM2"},
	{[]string{"DILITHIUM"}, "DILITHIUM"},
	{[]string{"ML-DSA"}, "DILITHIUM"},
	{[]string{"FALCON1024"}, "FALCON1024"},
	{[]string{"FALCON512"}, "FALCON512"},
	{[]string{"FALCON"}, "FALCON"},
	{[]string{"SPHINCS+"}, "SPHINCS+"},
	{[]string{"SLH-DSA"}, "SPHINCS+"},
	{[]string{"SPHINCS"}, "SPHINCS"},
	{[]string{"XMSS"}, "XMSS"},
	{[]string{"LMS"}, "LMS"},

	// classical
	{[]string{"ED448"}, "Ed448"},
	{[]string{"ED25519"}, "Ed25519"},
	{[]string{"EDDSA"}, "Ed25519"},
	{[]string{"RSA-PSS"}, "RSA-PSS"},
	{[]string{"RSA_PSS"}, "RSA-PSS"},
	{[]string{"RSASSA-PSS"}, "RSA-PSS"},
	{[]string{"ECDSA"}, "ECDSA"},
	{[]string{"SM2"}, "SM2"},
	{[]string{"GOST"}, "GOST-SIGNATURE"},
	{[]string{"RSA"}, "RSA"},
	{[]string{"DSA"}, "DSA"},
	{[]string{"DSS"}, "DSA"},
}

// ClassifySignature maps a signature algorithm name or scheme onto a table
// key, defaulting to RSA.
func ClassifySignature(raw string) string {
	if name, ok := matchFirst(strings.ToUpper(raw), signaturePatterns); ok {
		return name
	}
	return "RSA"
}

var hashPatterns = []pattern{
	{[]string{"SHA3-512"}, "SHA3-512"},
	{[]string{"SHA3_512"}, "SHA3-512"},
	{[]string{"SHA3-384"}, "SHA3-384"},
	{[]string{"SHA3_384"}, "SHA3-384"},
	{[]string{"SHA3-256"}, "SHA3-256"},
	{[]string{"SHA3_256"}, "SHA3-256"},
	{[]string{"SHA3"}, "SHA3-256"},
	{[]string{"SHAKE256"}, "SHAKE256"},
	{[]string{"SHAKE128"}, "SHAKE128"},
	{[]string{"SHA512/256"}, "SHA512/256"},
	{[]string{"SHA512"}, "SHA512"},
	{[]string{"SHA-512"}, "SHA512"},
	{[]string{"SHA384"}, "SHA384"},
	{[]string{"SHA-384"}, "SHA384"},
	{[]string{"SHA256"}, "SHA256"},
	{[]string{"SHA-256"}, "SHA256"},
	{[]string{"SHA224"}, "SHA224"},
	{[]string{"SHA-224"}, "SHA224"},
	{[]string{"SHA1"}, "SHA1"},
	{[]string{"SHA-1"}, "SHA1"},
	{[]string{"MD5"}, "MD5"},
	{[]string{"MD4"}, "MD4"},
	{[]string{"BLAKE3"}, "BLAKE3"},
	{[]string{"BLAKE2B-512"}, "BLAKE2b-512"},
	{[]string{"BLAKE2B"}, "BLAKE2b"},
	{[]string{"BLAKE2S"}, "BLAKE2s"},
	{[]string{"ASCON"}, "ASCON-HASH"},
	{[]string{"STREEBOG-512"}, "STREEBOG-512"},
	{[]string{"STREEBOG"}, "STREEBOG-256"},
	{[]string{"LSH-512"}, "LSH-512"},
	{[]string{"LSH"}, "LSH-256"},
	{[]string{"WHIRLPOOL"}, "Whirlpool"},
	{[]string{"SM3"}, "SM3"},
	{[]string{"RIPEMD"}, "RIPEMD-160"},
	{[]string{"KECCAK"}, "Keccak"},
	{[]string{"GOST"}, "GOST-HASH"},
}

// ClassifyHash maps a digest name onto a table key, defaulting to SHA256.
func ClassifyHash(raw string) string {
	if name, ok := matchFirst(strings.ToUpper(raw), hashPatterns); ok {
		return name
	}
	return "SHA256"
}

// IsPQC reports whether a name carries a post-quantum family token.
func IsPQC(name string) bool {
	return containsAny(strings.ToUpper(name), pqcTokens...)
}

// IsHybrid reports whether a name joins a classical and a post-quantum primitive.
func IsHybrid(name string) bool {
	upper := strings.ToUpper(name)
	if !containsAny(upper, hybridSeparators...) {
		return false
	}
	return containsAny(upper, classicalTokens...) && containsAny(upper, pqcTokens...)
}

// IsDeprecated reports whether a name belongs to the deprecated set.
func IsDeprecated(name string) bool {
	upper := strings.ToUpper(name)
	if _, ok := deprecatedExact[upper]; ok {
		return true
	}
	return containsAny(upper, deprecatedSubstrings...)
}

// IsEphemeral reports whether a key exchange provides forward secrecy.
func IsEphemeral(name string) bool {
	return containsAny(strings.ToUpper(name), ephemeralTokens...)
}
