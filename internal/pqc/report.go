package pqc

import "time"

// BuildInput is everything the Builder combines into a FinalReport.
type BuildInput struct {
	Domain                  string
	Timestamp               time.Time
	Components              map[Category]ComponentAnalysis
	IndividualScores        []AlgorithmScore
	Protocol                ProtocolAnalysis
	Certificate             CertificateAnalysis
	Features                SecurityFeatures
	CriticalVulnerabilities []string
}

// Builder assembles FinalReports.
//
// By default the overall score sums weightedAverage × weight over the present
// categories only, so a scan missing a category scores lower on that axis.
// Renormalize divides by the sum of present weights instead.
type Builder struct {
	Renormalize bool
}

// Build combines the components into the overall verdict.
func (b Builder) Build(in BuildInput) FinalReport {
	overall := b.OverallScore(in.Components)

	kex, hasKex := in.Components[CategoryKex]
	sig, hasSig := in.Components[CategorySignature]
	pqcPresent := (hasKex && kex.PQCPercentage > 0) || (hasSig && sig.PQCPercentage > 0)
	bothStrong := hasKex && hasSig && kex.WeightedAverage >= 85 && sig.WeightedAverage >= 85

	vulns := in.CriticalVulnerabilities
	if vulns == nil {
		vulns = []string{}
	}

	hybrid := false
	for _, comp := range in.Components {
		if comp.HybridPercentage > 0 {
			hybrid = true
			break
		}
	}

	components := in.Components
	if components == nil {
		components = map[Category]ComponentAnalysis{}
	}
	scores := in.IndividualScores
	if scores == nil {
		scores = []AlgorithmScore{}
	}

	return FinalReport{
		Domain:                  in.Domain,
		Timestamp:               in.Timestamp,
		OverallScore:            overall,
		OverallGrade:            Grade(overall),
		SecurityLevel:           SecurityLevel(overall),
		Components:              components,
		IndividualScores:        scores,
		ProtocolAnalysis:        in.Protocol,
		CertificateAnalysis:     in.Certificate,
		SecurityFeatures:        in.Features,
		QuantumReady:            overall >= 80 && (pqcPresent || bothStrong) && len(vulns) == 0,
		HybridReady:             hybrid,
		CriticalVulnerabilities: vulns,
		ComplianceStatus:        CheckCompliance(components, in.Protocol, in.Certificate),
	}
}

// OverallScore weights the present components.
func (b Builder) OverallScore(components map[Category]ComponentAnalysis) float64 {
	var total, weights float64
	for _, cat := range Categories {
		comp, ok := components[cat]
		if !ok {
			continue
		}
		total += comp.WeightedAverage * cat.Weight()
		weights += cat.Weight()
	}
	if b.Renormalize && weights > 0 {
		total /= weights
	}
	return round2(total)
}

// Analyze scores a normalized scan end to end with the default Builder.
func Analyze(in AnalysisInput) FinalReport {
	return Builder{}.Analyze(in)
}

// Analyze scores a normalized scan end to end.
func (b Builder) Analyze(in AnalysisInput) FinalReport {
	byCat, all := collectScores(in)
	components := Aggregate(byCat)

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	domain := in.Domain
	if domain == "" {
		domain = UnknownLabel
	}

	return b.Build(BuildInput{
		Domain:                  domain,
		Timestamp:               ts,
		Components:              components,
		IndividualScores:        all,
		Protocol:                AnalyzeProtocol(in.Protocol),
		Certificate:             AnalyzeCertificates(in.CertificateSignatures, in.Certificate, byCat[CategorySignature]),
		Features:                AnalyzeFeatures(in.Features, byCat[CategoryKex]),
		CriticalVulnerabilities: criticalVulnerabilities(all, byCat[CategoryProtocol]),
	})
}
