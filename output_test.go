package recce

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleReport(t *testing.T, minimum PortState) ReportData {
	t.Helper()
	result := newTestResult([]uint16{22, 23, 24, 25})
	result.set(22, StateOpen)
	result.set(23, StateClosed)
	result.set(24, StateFiltered)
	result.addFailure(newProbeResourceError(result.Address, 25, errors.New("too many open files")))
	result.FinishedAt = result.StartedAt
	return NewReportData(result, minimum, "scanner-host")
}

func TestNewReportData_FiltersByThreshold(t *testing.T) {
	cases := map[PortState][]uint16{
		StateOpen:     {22},
		StateFiltered: {22, 24},
		StateClosed:   {22, 23, 24},
		StateUnknown:  {22, 23, 24, 25},
	}
	for minimum, want := range cases {
		t.Run(minimum.String(), func(t *testing.T) {
			data := sampleReport(t, minimum)
			var got []uint16
			for _, entry := range data.Ports {
				got = append(got, entry.Port)
			}
			if len(got) != len(want) {
				t.Fatalf("got %v want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("got %v want %v", got, want)
				}
			}
			if data.Summary != (ReportSummary{Open: 1, Filtered: 1, Closed: 1, Unknown: 1}) {
				t.Fatalf("summary %+v", data.Summary)
			}
			if data.Probed != 4 || len(data.Failures) != 1 {
				t.Fatalf("probed %d failures %v", data.Probed, data.Failures)
			}
		})
	}
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteJSONReport(sampleReport(t, StateFiltered), path); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var report struct {
		Target struct {
			Address  string      `json:"address"`
			MinState string      `json:"min_state"`
			Ports    []PortEntry `json:"ports"`
		} `json:"target"`
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.Target.Address != "192.0.2.10" || report.Target.MinState != "filtered" {
		t.Fatalf("unexpected target %+v", report.Target)
	}
	if len(report.Target.Ports) != 2 || report.Target.Ports[1].State != StateFiltered {
		t.Fatalf("ports %+v", report.Target.Ports)
	}
}

func TestWriteCSVReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	if err := WriteCSVReport(sampleReport(t, StateClosed), path); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if rows[1][4] != "22" || rows[1][5] != "open" || rows[2][5] != "closed" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestWriteXMLReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	if err := WriteXMLReport(sampleReport(t, StateOpen), path); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte(xml.Header)) {
		t.Fatal("missing XML header")
	}
	if !bytes.Contains(raw, []byte(`<Port number="22" state="open"></Port>`)) {
		t.Fatalf("port element missing:\n%s", raw)
	}

	var report XMLReportData
	if err := xml.Unmarshal(raw, &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.Target.Summary.Closed != 1 || len(report.Target.Failures) != 1 {
		t.Fatalf("unexpected target %+v", report.Target)
	}
}

func TestWritePDFReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.pdf")
	if err := WritePDFReport(sampleReport(t, StateUnknown), path); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF-")) {
		t.Fatalf("not a PDF: %q", raw[:min(len(raw), 16)])
	}
}

func TestPrintConsoleReport(t *testing.T) {
	var buf bytes.Buffer
	PrintConsoleReport(&buf, sampleReport(t, StateFiltered))
	out := buf.String()

	for _, want := range []string{
		"Results for example.test (192.0.2.10)",
		"22/tcp",
		"24/tcp",
		"1 open, 1 filtered, 1 closed, 1 unknown",
		"1 ports could not be probed",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "23/tcp") {
		t.Fatalf("closed port shown below threshold:\n%s", out)
	}
}

func TestPrintConsoleReport_NothingToShow(t *testing.T) {
	result := newTestResult([]uint16{80})
	result.set(80, StateClosed)
	var buf bytes.Buffer
	PrintConsoleReport(&buf, NewReportData(result, StateOpen, "h"))
	if !strings.Contains(buf.String(), "No ports at least open.") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteAtomic_OverwriteAndPreserve(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(final, []byte("original"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := writeAtomic(final, []byte("newcontent")); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	got, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "newcontent" {
		t.Fatalf("content mismatch: %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "recce-*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}
