package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-pqc/internal/api"
	"github.com/khanhnv2901/seca-pqc/internal/orchestrator"
	"github.com/khanhnv2901/seca-pqc/internal/stream"
)

const (
	jsonPrefix = ""
	jsonIndent = "  "
)

var scanCmd = &cobra.Command{
	Use:   "scan <domain>[,<domain>...]",
	Short: "Scan domains and score their TLS configuration for post-quantum readiness",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		asJSON, _ := cmd.Flags().GetBool("json")
		requestID, _ := cmd.Flags().GetString("request-id")

		domains, err := orchestrator.ParseDomains(strings.Join(args, ","))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, appCtx)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}
		registry, release, err := openRegistry(ctx, appCtx)
		if err != nil {
			return err
		}
		defer release()

		orch := newOrchestrator(appCtx, store, registry)

		var emitter stream.Emitter = stream.Discard
		showProgress := appCtx.Config.Scan.ProgressEnabled && !asJSON
		var printer *progressPrinter
		if showProgress {
			printer = newProgressPrinter(len(domains), "PQC")
			printer.Start()
			emitter = printer
		}

		out, err := orch.Run(ctx, orchestrator.Request{
			Domains:        domains,
			MaxConcurrency: appCtx.Config.Scan.Concurrency,
			SaveResults:    appCtx.Config.Scan.SaveResults && store != nil,
			RequestID:      requestID,
		}, emitter)
		if printer != nil {
			printer.Stop()
		}
		if err != nil {
			return err
		}

		if appCtx.Config.Defaults.TelemetryEnabled {
			rec := api.NewTelemetryRecord("scan", out)
			if err := newTelemetryLog(appCtx.ResultsDir).Record(context.WithoutCancel(ctx), rec); err != nil {
				appCtx.Logger.Warnw("failed to record telemetry", "error", err)
			}
		}

		if asJSON {
			return writeOutcomeJSON(cmd.OutOrStdout(), out)
		}
		printOutcome(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	addScanFlags(scanCmd.Flags())
	addStoreFlags(scanCmd.Flags())
	addCancelFlags(scanCmd.Flags())
	scanCmd.Flags().BoolVar(&cliConfig.Scan.SaveResults, "save", cliConfig.Scan.SaveResults, "Persist results to the configured store")
	scanCmd.Flags().BoolVar(&cliConfig.Scan.ProgressEnabled, "progress", cliConfig.Scan.ProgressEnabled, "Show a live progress line")
	scanCmd.Flags().BoolVar(&cliConfig.Defaults.TelemetryEnabled, "telemetry", cliConfig.Defaults.TelemetryEnabled, "Append run telemetry to telemetry.jsonl")
	scanCmd.Flags().Bool("json", false, "Print the full outcome as JSON")
	scanCmd.Flags().String("request-id", "", "Request ID used for cancellation (generated when empty)")
}

func writeOutcomeJSON(w io.Writer, out *orchestrator.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent(jsonPrefix, jsonIndent)
	return enc.Encode(out)
}

func printOutcome(w io.Writer, out *orchestrator.Outcome) {
	fmt.Fprintf(w, "%s request=%s batch=%s rounds=%d\n",
		colorInfo("→"), out.RequestID, out.BatchID, out.Summary.RoundsCompleted)
	if out.Cancelled {
		fmt.Fprintf(w, "%s run was cancelled\n", colorWarn("!"))
	}

	if len(out.SuccessfulScans) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DOMAIN\tGRADE\tSCORE\tTLS\tCIPHER")
		for _, res := range out.SuccessfulScans {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n",
				res.URL, formatGradeWithColor(res.QuantumGrade), res.QuantumScore, res.TLSVersion, res.CipherSuiteName)
		}
		tw.Flush()
	}

	for _, f := range out.FailedScans {
		fmt.Fprintf(w, "%s %s: %s\n", formatStatusWithColor("failed"), f.Domain, f.Error)
	}

	fmt.Fprintf(w, "%s %d/%d successful, %d failed in %s\n",
		colorSuccess("✓"), out.Summary.Successful, out.Summary.TotalDomains, out.Summary.Failed, out.Duration.Round(time.Millisecond))
}
