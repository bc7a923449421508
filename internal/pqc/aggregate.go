package pqc

// Aggregate builds one ComponentAnalysis per non-empty category. Categories
// with no scores are absent from the result.
func Aggregate(scores map[Category][]AlgorithmScore) map[Category]ComponentAnalysis {
	components := make(map[Category]ComponentAnalysis, len(scores))
	for _, cat := range Categories {
		list := scores[cat]
		if len(list) == 0 {
			continue
		}
		components[cat] = aggregateCategory(cat, list)
	}
	return components
}

func aggregateCategory(cat Category, list []AlgorithmScore) ComponentAnalysis {
	var (
		sumFinal, sumWeighted, sumWeights float64
		pqc, hybrid, deprecated, safe     int
		pfs                               bool
	)
	best, worst := list[0], list[0]

	for _, s := range list {
		sumFinal += s.FinalScore
		sumWeighted += s.WeightedScore
		sumWeights += PositionWeight(s.Position)

		// Strict comparisons keep the first-encountered entry on ties.
		if s.FinalScore > best.FinalScore {
			best = s
		}
		if s.FinalScore < worst.FinalScore {
			worst = s
		}
		if s.IsPQC {
			pqc++
		}
		if s.IsHybrid {
			hybrid++
		}
		if s.Deprecated {
			deprecated++
		}
		if s.QuantumSafe {
			safe++
		}
		if cat == CategoryKex && IsEphemeral(s.Algorithm) {
			pfs = true
		}
	}

	n := float64(len(list))
	weightedAvg := 0.0
	if sumWeights > 0 {
		weightedAvg = sumWeighted / sumWeights
	}
	weightedAvg = round2(clamp(weightedAvg, 0, 100))

	algorithms := make([]AlgorithmScore, len(list))
	copy(algorithms, list)

	return ComponentAnalysis{
		ComponentType:    cat,
		Algorithms:       algorithms,
		AverageScore:     round2(sumFinal / n),
		WeightedAverage:  weightedAvg,
		Grade:            Grade(weightedAvg),
		WeightInFinal:    cat.Weight(),
		BestAlgorithm:    best.Algorithm,
		WorstAlgorithm:   worst.Algorithm,
		PQCPercentage:    round2(float64(pqc) / n * 100),
		HybridPercentage: round2(float64(hybrid) / n * 100),
		DeprecatedCount:  deprecated,
		QuantumSafeCount: safe,
		PFSEnabled:       pfs,
	}
}
