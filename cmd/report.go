package cmd

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/security"
	consts "github.com/khanhnv2901/seca-pqc/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
)

const (
	markdownTemplatePath = "templates/report.md"
	reportsDir           = "reports"
	pdfMaxResults        = 50
)

const (
	formatTable    = "table"
	formatMarkdown = "md"
	formatJSON     = "json"
	formatPDF      = "pdf"
)

//go:embed templates/report.md
var reportTemplateFS embed.FS

var (
	markdownTemplateFuncs = template.FuncMap{
		"add":        addInts,
		"formatTime": formatShortTimestamp,
		"yesNo":      yesNo,
	}

	markdownReportTemplate = template.Must(
		template.New("report.md").Funcs(markdownTemplateFuncs).ParseFS(reportTemplateFS, markdownTemplatePath),
	)
)

// reportData is the view of a stored batch shared by every report format.
type reportData struct {
	Batch        scan.Batch
	Operator     string
	GeneratedAt  time.Time
	Rows         []reportRow
	Failures     []scan.Failure
	AverageScore float64
	QuantumReady int
}

type reportRow struct {
	Domain       string
	Grade        string
	Score        float64
	TLSVersion   string
	Cipher       string
	KeyAlgorithm string
	QuantumReady bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a stored batch as a table, markdown, JSON or PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		batchID, _ := cmd.Flags().GetString("batch")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		if batchID == "" {
			return fmt.Errorf("--batch is required")
		}
		format = strings.ToLower(format)
		switch format {
		case formatTable, formatMarkdown, formatJSON, formatPDF:
		default:
			return &UnsupportedOptionError{
				Option:  "format",
				Value:   format,
				Allowed: []string{formatTable, formatMarkdown, formatJSON, formatPDF},
			}
		}

		ctx := commandContext(cmd)
		store, err := openStore(ctx, appCtx)
		if err != nil {
			return err
		}
		if store == nil {
			return sharedErrors.ErrStoreDisabled
		}
		defer store.Close()

		detail, err := store.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		data := buildReportData(detail, appCtx.Operator, time.Now().UTC())

		if format == formatTable {
			return writeTableReport(cmd.OutOrStdout(), data)
		}

		var content []byte
		switch format {
		case formatMarkdown:
			var s string
			s, err = generateMarkdownReport(data)
			content = []byte(s)
		case formatJSON:
			content, err = json.MarshalIndent(detail, jsonPrefix, jsonIndent)
		case formatPDF:
			content, err = generatePDFReportBytes(data)
		}
		if err != nil {
			return fmt.Errorf("failed to generate %s report: %w", format, err)
		}

		reportPath, err := resolveReportPath(appCtx.ResultsDir, output, batchID, format)
		if err != nil {
			return fmt.Errorf("resolve report path: %w", err)
		}
		if err := os.WriteFile(reportPath, content, consts.DefaultFilePerm); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Report generated: %s\n", reportPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Format: %s\n", format)
		fmt.Fprintf(cmd.OutOrStdout(), "Total domains: %d\n", detail.TotalURLs)
		return nil
	},
}

func init() {
	reportCmd.Flags().String("batch", "", "Batch ID to render")
	reportCmd.Flags().String("format", formatTable, "Report format: table, md, json or pdf")
	reportCmd.Flags().String("output", "", "Output file (default: <results_dir>/reports/<batch>.<format>)")
	addStoreFlags(reportCmd.Flags())
}

func buildReportData(detail *scan.BatchDetail, operator string, now time.Time) reportData {
	data := reportData{
		Batch:       detail.Batch,
		Operator:    operator,
		GeneratedAt: now,
		Failures:    detail.Failures,
	}

	total := 0.0
	for _, rec := range detail.Results {
		row := reportRow{
			Domain:       rec.URL,
			Grade:        rec.QuantumGrade,
			Score:        rec.QuantumScore,
			TLSVersion:   rec.TLSVersion,
			Cipher:       rec.CipherSuiteName,
			QuantumReady: quantumReady(rec.RawResponse),
		}
		if rec.PublicKeyAlgorithm != nil {
			row.KeyAlgorithm = *rec.PublicKeyAlgorithm
		}
		if row.QuantumReady {
			data.QuantumReady++
		}
		total += rec.QuantumScore
		data.Rows = append(data.Rows, row)
	}
	if len(data.Rows) > 0 {
		data.AverageScore = total / float64(len(data.Rows))
	}
	return data
}

// quantumReady reads the verdict from the stored raw response.
func quantumReady(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var doc struct {
		PQCAnalysis struct {
			QuantumReady bool `json:"quantum_ready"`
		} `json:"pqc_analysis"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	return doc.PQCAnalysis.QuantumReady
}

func resolveReportPath(resultsDir, output, batchID, format string) (string, error) {
	if output != "" {
		if err := os.MkdirAll(filepath.Dir(output), consts.DefaultDirPerm); err != nil {
			return "", err
		}
		return output, nil
	}
	if err := security.ValidateName(batchID); err != nil {
		return "", err
	}
	path, err := security.ResolveWithin(resultsDir, reportsDir, batchID+"."+format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), consts.DefaultDirPerm); err != nil {
		return "", err
	}
	return path, nil
}

func writeTableReport(w io.Writer, data reportData) error {
	fmt.Fprintf(w, "%s batch %s (%s) %d/%d successful\n",
		colorInfo("→"), data.Batch.ID, formatStatusWithColor(string(data.Batch.Status)), data.Batch.Successful, data.Batch.TotalURLs)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tGRADE\tSCORE\tTLS\tKEY\tQUANTUM READY")
	for _, r := range data.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
			r.Domain, formatGradeWithColor(r.Grade), r.Score, r.TLSVersion, r.KeyAlgorithm, yesNo(r.QuantumReady))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, f := range data.Failures {
		fmt.Fprintf(w, "%s %s: %s\n", formatStatusWithColor("failed"), f.Domain, f.Error)
	}
	if len(data.Rows) > 0 {
		fmt.Fprintf(w, "Average score: %.2f  quantum ready: %d/%d\n", data.AverageScore, data.QuantumReady, len(data.Rows))
	}
	return nil
}

func generateMarkdownReport(data reportData) (string, error) {
	var buf bytes.Buffer
	if err := markdownReportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func generatePDFReportBytes(data reportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Post-Quantum Readiness Report: %s", data.Batch.ID), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Operator: %s", data.Operator), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", formatShortTimestamp(data.GeneratedAt)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Started: %s", formatShortTimestamp(data.Batch.CreatedAt)), "", 1, "", false, 0, "")
	if data.Batch.CompletedAt != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Completed: %s", formatShortTimestamp(*data.Batch.CompletedAt)), "", 1, "", false, 0, "")
	}
	pdf.Ln(5)

	// Summary section
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Domains: %d | Successful: %d | Failed: %d",
		data.Batch.TotalURLs, data.Batch.Successful, data.Batch.Failed), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Average quantum score: %.2f | Quantum ready: %d/%d",
		data.AverageScore, data.QuantumReady, len(data.Rows)), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Results table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Results", "", 1, "", false, 0, "")
	widths := []float64{60, 18, 20, 25, 40, 27}
	headers := []string{"Domain", "Grade", "Score", "TLS", "Key", "Quantum Ready"}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i, r := range data.Rows {
		if i == pdfMaxResults {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 6, fmt.Sprintf("... %d additional domains omitted ...", len(data.Rows)-pdfMaxResults), "", 1, "", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		cells := []string{r.Domain, r.Grade, fmt.Sprintf("%.2f", r.Score), r.TLSVersion, r.KeyAlgorithm, yesNo(r.QuantumReady)}
		for j, c := range cells {
			pdf.CellFormat(widths[j], 6, c, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(data.Failures) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Failures", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, f := range data.Failures {
			pdf.MultiCell(0, 5, fmt.Sprintf("%s: %s", f.Domain, f.Error), "", "", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addInts(a, b int) int {
	return a + b
}

func formatShortTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
