package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/orchestrator"
	"github.com/khanhnv2901/seca-pqc/internal/pqc"
	"github.com/khanhnv2901/seca-pqc/internal/transform"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <ssllabs-output.json>",
	Short: "Score a saved ssllabs-scan report without contacting the target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		asJSON, _ := cmd.Flags().GetBool("json")
		domain, _ := cmd.Flags().GetString("domain")

		res, err := analyzeFile(commandContext(cmd), appCtx, args[0], domain)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(jsonPrefix, jsonIndent)
			return enc.Encode(res)
		}
		return printAnalysis(cmd.OutOrStdout(), res)
	},
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "Print the formatted scan result as JSON")
	analyzeCmd.Flags().String("domain", "", "Domain to report (default: host named in the file)")
	analyzeCmd.Flags().BoolVar(&cliConfig.Scan.RenormalizeWeights, "renormalize", cliConfig.Scan.RenormalizeWeights, "Renormalize category weights over present categories")
}

// fileTool replays a saved ssllabs-scan report.
type fileTool struct {
	hosts []transform.Host
}

func (t fileTool) Scan(ctx context.Context, domain string, useCache bool, timeout time.Duration) ([]transform.Host, error) {
	return t.hosts, nil
}

func analyzeFile(ctx context.Context, appCtx *AppContext, path, domain string) (*scan.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InputFileError{Path: path, Err: err}
	}
	hosts, err := transform.Parse(data)
	if err != nil {
		return nil, &InputFileError{Path: path, Err: err}
	}
	if len(hosts) == 0 {
		return nil, &InputFileError{Path: path, Err: &transform.NoDataError{}}
	}
	if domain == "" {
		domain = transform.NormalizeDomain(hosts[0].Host)
	}

	pipeline := &orchestrator.Pipeline{
		Tool:    fileTool{hosts: hosts},
		Builder: pqc.Builder{Renormalize: appCtx.Config.Scan.RenormalizeWeights},
		Logger:  appCtx.zapLogger(),
	}
	return pipeline.Run(ctx, domain, orchestrator.Attempt{Round: 1, UseCache: true})
}

func printAnalysis(w io.Writer, res *scan.Result) error {
	var raw struct {
		PQCAnalysis pqc.Summary `json:"pqc_analysis"`
	}
	if err := json.Unmarshal(res.RawResponse, &raw); err != nil {
		return fmt.Errorf("decode analysis: %w", err)
	}
	summary := raw.PQCAnalysis

	fmt.Fprintf(w, "%s %s\n", colorInfo("Domain:"), res.URL)
	fmt.Fprintf(w, "Quantum score: %.2f  grade: %s  level: %s\n",
		summary.OverallScore, formatGradeWithColor(summary.OverallGrade), summary.SecurityLevel)
	fmt.Fprintf(w, "Quantum ready: %t  hybrid ready: %t\n", summary.QuantumReady, summary.HybridReady)
	if res.TLSVersion != "" {
		fmt.Fprintf(w, "TLS: %s  cipher: %s\n", res.TLSVersion, res.CipherSuiteName)
	}

	cats := make([]pqc.Category, 0, len(summary.Components))
	for cat := range summary.Components {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return categoryOrder(cats[i]) < categoryOrder(cats[j]) })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tWEIGHT\tAVERAGE\tGRADE\tPQC%")
	for _, cat := range cats {
		c := summary.Components[cat]
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%s\t%.1f\n",
			cat, cat.Weight(), c.WeightedAverage, formatGradeWithColor(c.Grade), c.PQCPercentage)
	}
	return tw.Flush()
}

func categoryOrder(c pqc.Category) int {
	for i, cat := range pqc.Categories {
		if cat == c {
			return i
		}
	}
	return len(pqc.Categories)
}
