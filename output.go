package recce

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/jung-kurt/gofpdf"
)

// ReportSummary counts probed ports per state.
type ReportSummary struct {
	Open     int `json:"open" xml:"open,attr"`
	Filtered int `json:"filtered" xml:"filtered,attr"`
	Closed   int `json:"closed" xml:"closed,attr"`
	Unknown  int `json:"unknown" xml:"unknown,attr"`
}

// ReportData represents the data to be included in the reports. Ports holds
// only the entries at least as interesting as MinState; Summary covers every
// probed port.
type ReportData struct {
	ScanID     string        `json:"scan_id"`
	Source     string        `json:"source"`
	Host       string        `json:"host"`
	Address    string        `json:"address"`
	Family     string        `json:"family"`
	MinState   PortState     `json:"min_state"`
	Probed     int           `json:"probed"`
	Ports      []PortEntry   `json:"ports"`
	Summary    ReportSummary `json:"summary"`
	Failures   []string      `json:"failures,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewReportData builds report data from result, keeping ports whose state is
// at least as interesting as minimum.
func NewReportData(result *ScanResult, minimum PortState, source string) ReportData {
	data := ReportData{
		ScanID:     result.ID,
		Source:     source,
		Host:       result.Host,
		Address:    result.Address,
		Family:     result.Family.String(),
		MinState:   minimum,
		Probed:     len(result.Ports()),
		Ports:      result.Filter(minimum),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Summary: ReportSummary{
			Open:     result.Count(StateOpen),
			Filtered: result.Count(StateFiltered),
			Closed:   result.Count(StateClosed),
			Unknown:  result.Count(StateUnknown),
		},
	}
	if data.Ports == nil {
		data.Ports = []PortEntry{}
	}
	for _, failure := range result.Failures() {
		data.Failures = append(data.Failures, failure.Error())
	}
	return data
}

// XMLReportData is a wrapper for XML report generation
type XMLReportData struct {
	XMLName     xml.Name      `xml:"RecceReport"`
	GeneratedAt string        `xml:"generatedAt,attr"`
	Version     string        `xml:"version,attr"`
	Target      XMLTargetData `xml:"Target"`
}

// XMLTargetData represents the scanned target for XML reporting
type XMLTargetData struct {
	ScanID   string        `xml:"scanId,attr"`
	Host     string        `xml:"host,attr"`
	Address  string        `xml:"address,attr"`
	Family   string        `xml:"family,attr"`
	MinState PortState     `xml:"minState,attr"`
	Summary  ReportSummary `xml:"Summary"`
	Ports    []PortEntry   `xml:"Ports>Port,omitempty"`
	Failures []string      `xml:"Failures>Failure,omitempty"`
}

// WriteCSVReport writes one row per reported port.
func WriteCSVReport(data ReportData, filePath string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"Scan ID", "Host", "Address", "Family", "Port", "State", "Scan Time"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	scanTime := data.StartedAt.Format(time.RFC3339)
	for _, entry := range data.Ports {
		row := []string{
			data.ScanID,
			data.Host,
			data.Address,
			data.Family,
			strconv.Itoa(int(entry.Port)),
			entry.State.String(),
			scanTime,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return writeAtomic(filePath, buf.Bytes())
}

// WriteJSONReport generates a JSON report.
func WriteJSONReport(data ReportData, filePath string) error {
	type Report struct {
		Generated time.Time  `json:"generated"`
		Version   string     `json:"version"`
		Target    ReportData `json:"target"`
	}

	jsonData, err := json.MarshalIndent(Report{
		Generated: time.Now(),
		Version:   AppVersion,
		Target:    data,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeAtomic(filePath, jsonData)
}

// WriteXMLReport generates an XML report.
func WriteXMLReport(data ReportData, filePath string) error {
	report := XMLReportData{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     AppVersion,
		Target: XMLTargetData{
			ScanID:   data.ScanID,
			Host:     data.Host,
			Address:  data.Address,
			Family:   data.Family,
			MinState: data.MinState,
			Summary:  data.Summary,
			Ports:    data.Ports,
			Failures: data.Failures,
		},
	}

	xmlData, err := xml.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}
	xmlData = append([]byte(xml.Header), xmlData...)
	return writeAtomic(filePath, xmlData)
}

// WritePDFReport generates a PDF report with a summary and a port table.
func WritePDFReport(data ReportData, filePath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAuthor("Recce", true)
	pdf.SetTitle("Port Scan Report", true)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 15)
		pdf.Cell(0, 10, "Recce Port Scan Report")
		pdf.Ln(20)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.Cell(0, 10, fmt.Sprintf("Page %d / {nb}", pdf.PageNo()))
	})
	pdf.AliasNbPages("{nb}")
	pdf.AddPage()

	pdf.SetFont("Arial", "I", 10)
	pdf.Cell(0, 10, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05 MST")))
	pdf.Ln(15)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, "Scan Summary")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{
		fmt.Sprintf("Target: %s (%s, %s)", data.Host, data.Address, data.Family),
		fmt.Sprintf("Scan ID: %s", data.ScanID),
		fmt.Sprintf("Ports probed: %d", data.Probed),
		fmt.Sprintf("Open: %d  Filtered: %d  Closed: %d  Unknown: %d",
			data.Summary.Open, data.Summary.Filtered, data.Summary.Closed, data.Summary.Unknown),
		fmt.Sprintf("Showing states at least: %s", data.MinState),
	} {
		pdf.Cell(0, 8, line)
		pdf.Ln(8)
	}
	pdf.Ln(10)

	if len(data.Ports) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(240, 240, 240)
		widths := []float64{30, 60}
		for i, header := range []string{"Port", "State"} {
			pdf.CellFormat(widths[i], 8, header, "1", 0, "", true, 0, "")
		}
		pdf.Ln(8)

		pdf.SetFont("Arial", "", 10)
		fill := false
		for _, entry := range data.Ports {
			pdf.CellFormat(widths[0], 8, strconv.Itoa(int(entry.Port)), "1", 0, "", fill, 0, "")
			pdf.CellFormat(widths[1], 8, entry.State.String(), "1", 0, "", fill, 0, "")
			pdf.Ln(8)
			fill = !fill
		}
		pdf.Ln(5)
	}

	if len(data.Failures) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(60, 8, "Probe failures:")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 9)
		for _, failure := range data.Failures {
			pdf.MultiCell(0, 6, failure, "", "", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return writeAtomic(filePath, buf.Bytes())
}

// PrintConsoleReport writes the scan header, a port table and the per-state
// summary to w.
func PrintConsoleReport(w io.Writer, data ReportData) {
	fmt.Fprintf(w, "\nResults for %s (%s)\n\n", data.Host, data.Address)

	if len(data.Ports) == 0 {
		fmt.Fprintf(w, "No ports at least %s.\n", data.MinState)
	} else {
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "PORT\tSTATE")
		for _, entry := range data.Ports {
			fmt.Fprintf(tw, "%d/tcp\t%s\n", entry.Port, stateColor(entry.State).Sprint(entry.State))
		}
		_ = tw.Flush()
	}

	fmt.Fprintf(w, "\n%d ports probed in %s: %d open, %d filtered, %d closed, %d unknown\n",
		data.Probed,
		FormatDuration(data.FinishedAt.Sub(data.StartedAt)),
		data.Summary.Open, data.Summary.Filtered, data.Summary.Closed, data.Summary.Unknown,
	)
	if n := len(data.Failures); n > 0 {
		fmt.Fprintf(w, "%d ports could not be probed (socket errors); they are reported as unknown\n", n)
	}
}

// stateColor picks the console color for a state. Colors are dropped when
// stdout is not a terminal.
func stateColor(state PortState) *color.Color {
	switch state {
	case StateOpen:
		return color.New(color.FgGreen, color.Bold)
	case StateFiltered:
		return color.New(color.FgYellow)
	case StateClosed:
		return color.New(color.FgRed)
	default:
		return color.New(color.Faint)
	}
}

// writeAtomic writes data to a temp file next to path and renames it into
// place. On failure the temp file is removed.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, "recce-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
