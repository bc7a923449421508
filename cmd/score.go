package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-pqc/internal/pqc"
)

var algorithmTypes = []pqc.AlgorithmType{
	pqc.TypeKex,
	pqc.TypeSignature,
	pqc.TypeSymmetric,
	pqc.TypeHash,
	pqc.TypeProtocol,
}

var scoreCmd = &cobra.Command{
	Use:   "score <algorithm>",
	Short: "Score a single algorithm for quantum resistance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		keySize, _ := cmd.Flags().GetInt("key-size")
		curve, _ := cmd.Flags().GetString("curve")
		curveBits, _ := cmd.Flags().GetInt("curve-bits")
		position, _ := cmd.Flags().GetInt("position")
		asJSON, _ := cmd.Flags().GetBool("json")

		algType, err := parseAlgorithmType(typ)
		if err != nil {
			return err
		}

		result := scoreAlgorithm(args[0], algType, keySize, curve, curveBits, position)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(jsonPrefix, jsonIndent)
			return enc.Encode(result)
		}
		printScore(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringP("type", "t", string(pqc.TypeKex), "Algorithm type: kex, signature, symmetric, hash or protocol")
	scoreCmd.Flags().Int("key-size", 0, "Key size in bits (0 = not reported)")
	scoreCmd.Flags().String("curve", "", "Elliptic curve name")
	scoreCmd.Flags().Int("curve-bits", 0, "Elliptic curve size in bits")
	scoreCmd.Flags().Int("position", 0, "Position in the server preference list")
	scoreCmd.Flags().Bool("json", false, "Print the score as JSON")
}

func parseAlgorithmType(raw string) (pqc.AlgorithmType, error) {
	v := pqc.AlgorithmType(strings.ToLower(strings.TrimSpace(raw)))
	allowed := make([]string, 0, len(algorithmTypes))
	for _, t := range algorithmTypes {
		if t == v {
			return t, nil
		}
		allowed = append(allowed, string(t))
	}
	return "", &UnsupportedOptionError{Option: "algorithm type", Value: raw, Allowed: allowed}
}

// scoreAlgorithm canonicalizes a raw name before scoring. Names the
// classifier does not recognize are scored as given.
func scoreAlgorithm(raw string, typ pqc.AlgorithmType, keySize int, curve string, curveBits, position int) pqc.AlgorithmScore {
	name := strings.TrimSpace(raw)
	if canonical, ok := pqc.Canonicalize(name, typ); ok {
		name = canonical
	}
	return pqc.Score(pqc.ScoreInput{
		Algorithm: name,
		Type:      typ,
		KeySize:   keySize,
		Curve:     curve,
		CurveBits: curveBits,
		Position:  position,
	})
}

func printScore(w io.Writer, s pqc.AlgorithmScore) {
	fmt.Fprintf(w, "%s %s (%s)\n", colorInfo("Algorithm:"), s.Algorithm, s.AlgorithmType)
	fmt.Fprintf(w, "Score: %.2f  grade: %s  level: %s\n", s.FinalScore, formatGradeWithColor(s.Grade), s.SecurityLevel)
	fmt.Fprintf(w, "Base: %.2f  key size adj: %+.2f  curve adj: %+.2f  weighted: %.2f\n",
		s.BaseScore, s.KeySizeScore, s.CurveStrength, s.WeightedScore)

	flags := []string{}
	if s.IsPQC {
		flags = append(flags, colorSuccess("post-quantum"))
	}
	if s.IsHybrid {
		flags = append(flags, colorSuccess("hybrid"))
	}
	if s.QuantumSafe {
		flags = append(flags, colorSuccess("quantum-safe"))
	}
	if s.Deprecated {
		flags = append(flags, colorError("deprecated"))
	}
	if len(flags) > 0 {
		fmt.Fprintf(w, "Flags: %s\n", strings.Join(flags, ", "))
	}
	for _, v := range s.Vulnerabilities {
		fmt.Fprintf(w, "  %s %s\n", colorWarn("!"), v)
	}
}
