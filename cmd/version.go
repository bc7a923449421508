package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-pqc/internal/pqc"
)

// Build metadata, set with -ldflags "-X .../cmd.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version    string             `json:"version"`
	GitCommit  string             `json:"git_commit"`
	BuildDate  string             `json:"build_date"`
	GoVersion  string             `json:"go_version"`
	Platform   string             `json:"platform"`
	Categories map[string]float64 `json:"category_weights"`
}

func currentVersion() versionInfo {
	weights := make(map[string]float64, len(pqc.Categories))
	for _, cat := range pqc.Categories {
		weights[string(cat)] = cat.Weight()
	}
	return versionInfo{
		Version:    Version,
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Categories: weights,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		asJSON, _ := cmd.Flags().GetBool("json")
		info := currentVersion()
		out := cmd.OutOrStdout()

		switch {
		case asJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent(jsonPrefix, jsonIndent)
			return enc.Encode(info)
		case verbose:
			fmt.Fprintln(out, "seca-pqc version information:")
			fmt.Fprintf(out, "  Version:    %s\n", info.Version)
			fmt.Fprintf(out, "  Git Commit: %s\n", info.GitCommit)
			fmt.Fprintf(out, "  Build Date: %s\n", info.BuildDate)
			fmt.Fprintf(out, "  Go Version: %s\n", info.GoVersion)
			fmt.Fprintf(out, "  OS/Arch:    %s\n", info.Platform)
			fmt.Fprintln(out, "  Category weights:")
			for _, cat := range pqc.Categories {
				fmt.Fprintf(out, "    %-20s %.2f\n", cat, cat.Weight())
			}
		default:
			fmt.Fprintf(out, "seca-pqc %s (%s)\n", info.Version, info.GitCommit)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Show build details and scoring weights")
	versionCmd.Flags().Bool("json", false, "Print version information as JSON")
}
