package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// ReportGenerator renders a quality report.
type ReportGenerator interface {
	Generate(r *QualityReport) ([]byte, error)
	SaveReportToFile(r *QualityReport, filePath string) error
}

// JSONReportGenerator generates JSON reports.
type JSONReportGenerator struct{}

// Generate serializes the report to indented JSON.
func (j *JSONReportGenerator) Generate(r *QualityReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// SaveReportToFile saves the JSON report to a file.
func (j *JSONReportGenerator) SaveReportToFile(r *QualityReport, filePath string) error {
	return save(j, r, filePath)
}

// HTMLReportGenerator generates HTML reports.
type HTMLReportGenerator struct{}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
}).Parse(htmlTemplate))

// HTML template for the report.
const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Data Quality Report: {{.Dataset}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        table { width: 100%; border-collapse: collapse; margin-top: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f4f4f4; }
        .better { color: green; }
        .worse { color: red; }
    </style>
</head>
<body>
    <h1>Data Quality Report: {{.Dataset}}</h1>
    <p><strong>Score:</strong> {{pct .PreScore}} &rarr;
        <span class="{{if ge .PostScore .PreScore}}better{{else}}worse{{end}}">{{pct .PostScore}}</span></p>
    <p><strong>Rows:</strong> {{.Summary.RowsBefore}} &rarr; {{.Summary.RowsAfter}}
        &nbsp; <strong>Columns:</strong> {{.Summary.ColumnsBefore}} &rarr; {{.Summary.ColumnsAfter}}
        &nbsp; <strong>Memory:</strong> {{.Summary.Memory.Before}} B &rarr; {{.Summary.Memory.After}} B</p>

    <h2>Score Components</h2>
    <table>
        <tr><th>Component</th><th>Before</th><th>After</th></tr>
        <tr><td>Completeness</td><td>{{pct .PreComponents.Completeness}}</td><td>{{pct .PostComponents.Completeness}}</td></tr>
        <tr><td>Uniqueness</td><td>{{pct .PreComponents.Uniqueness}}</td><td>{{pct .PostComponents.Uniqueness}}</td></tr>
        <tr><td>Consistency</td><td>{{pct .PreComponents.Consistency}}</td><td>{{pct .PostComponents.Consistency}}</td></tr>
        <tr><td>Duplicate rows</td><td>{{pct .PreComponents.DuplicateRows}}</td><td>{{pct .PostComponents.DuplicateRows}}</td></tr>
    </table>

    <h2>Issues</h2>
    <table>
        <tr><th>Status</th><th>Kind</th><th>Column</th><th>Severity</th><th>Rows</th></tr>
        {{range .IssuesResolved}}<tr><td class="better">resolved</td><td>{{.Kind}}</td><td>{{.Column}}</td><td>{{pct .Severity}}</td><td>{{.AffectedRows}}</td></tr>
        {{end}}{{range .IssuesRemaining}}<tr><td class="worse">remaining</td><td>{{.Kind}}</td><td>{{.Column}}</td><td>{{pct .Severity}}</td><td>{{.AffectedRows}}</td></tr>
        {{end}}{{range .IssuesIntroduced}}<tr><td class="worse">introduced</td><td>{{.Kind}}</td><td>{{.Column}}</td><td>{{pct .Severity}}</td><td>{{.AffectedRows}}</td></tr>
        {{end}}
    </table>

    <h2>Change Log</h2>
    <table>
        <tr><th>Column</th><th>Issue</th><th>Action</th><th>Source</th><th>Rows affected</th><th>Warning</th></tr>
        {{range .ChangeLog}}
        <tr>
            <td>{{.Column}}</td>
            <td>{{.IssueKind}}</td>
            <td>{{.Action}}</td>
            <td>{{.Source}}</td>
            <td>{{.RowsAffected}}</td>
            <td>{{.Warning}}</td>
        </tr>
        {{end}}
    </table>

    <h2>Columns</h2>
    <table>
        <tr><th>Column</th><th>Status</th><th>Type</th><th>Storage</th><th>Missing</th><th>Outliers</th><th>Bytes</th></tr>
        {{range .Columns}}
        <tr>
            <td>{{.Column}}</td>
            <td>{{.Status}}</td>
            <td>{{.Type.Before}} &rarr; {{.Type.After}}</td>
            <td>{{.Storage.Before}} &rarr; {{.Storage.After}}</td>
            <td>{{.Missing.Before}} &rarr; {{.Missing.After}}</td>
            <td>{{.Outliers.Before}} &rarr; {{.Outliers.After}}</td>
            <td>{{.Bytes.Before}} &rarr; {{.Bytes.After}}</td>
        </tr>
        {{end}}
    </table>

    <h2>Warnings</h2>
    <ul>
        {{range .Warnings}}<li>{{.}}</li>{{else}}<li>None</li>{{end}}
    </ul>
</body>
</html>
`

// Generate renders the report as an HTML page.
func (h *HTMLReportGenerator) Generate(r *QualityReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlReport.Execute(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveReportToFile saves the HTML report to a file.
func (h *HTMLReportGenerator) SaveReportToFile(r *QualityReport, filePath string) error {
	return save(h, r, filePath)
}

func save(g ReportGenerator, r *QualityReport, filePath string) error {
	data, err := g.Generate(r)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// SaveReports saves the JSON and HTML reports. An empty path skips that format.
func SaveReports(r *QualityReport, jsonPath, htmlPath string) error {
	if jsonPath != "" {
		if err := (&JSONReportGenerator{}).SaveReportToFile(r, jsonPath); err != nil {
			return fmt.Errorf("failed to save JSON report: %w", err)
		}
	}
	if htmlPath != "" {
		if err := (&HTMLReportGenerator{}).SaveReportToFile(r, htmlPath); err != nil {
			return fmt.Errorf("failed to save HTML report: %w", err)
		}
	}
	return nil
}

// ReportFromFilePath loads a JSON report.
func ReportFromFilePath(filePath string) (*QualityReport, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var r QualityReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// WriteSummary prints a short plain-text summary of the run.
func WriteSummary(w io.Writer, r *QualityReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Dataset:\t%s\n", r.Dataset)
	fmt.Fprintf(tw, "Score:\t%.1f%% -> %.1f%% (%+.1f)\n", r.PreScore*100, r.PostScore*100, r.ScoreDelta()*100)
	fmt.Fprintf(tw, "Rows:\t%d -> %d\n", r.Summary.RowsBefore, r.Summary.RowsAfter)
	fmt.Fprintf(tw, "Columns:\t%d -> %d\n", r.Summary.ColumnsBefore, r.Summary.ColumnsAfter)
	fmt.Fprintf(tw, "Memory:\t%d B -> %d B\n", r.Summary.Memory.Before, r.Summary.Memory.After)
	fmt.Fprintf(tw, "Issues:\t%d resolved, %d remaining, %d introduced\n",
		len(r.IssuesResolved), len(r.IssuesRemaining), len(r.IssuesIntroduced))

	effective := r.ChangeLog.Effective()
	if len(effective) > 0 {
		fmt.Fprintln(tw, "\nCOLUMN\tACTION\tROWS")
		for _, e := range effective {
			col := e.Column
			if col == "" {
				col = "<dataset>"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\n", col, e.Action, e.RowsAffected)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintln(tw, "\nWarnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(tw, "  %s\n", strings.TrimSpace(warn.String()))
		}
	}
	return tw.Flush()
}

// SummaryRows lays the report out as one spreadsheet row per metric.
func SummaryRows(r *QualityReport) ([]string, [][]any) {
	return []string{"metric", "before", "after"}, [][]any{
		{"score", r.PreScore, r.PostScore},
		{"rows", r.Summary.RowsBefore, r.Summary.RowsAfter},
		{"columns", r.Summary.ColumnsBefore, r.Summary.ColumnsAfter},
		{"memory_bytes", r.Summary.Memory.Before, r.Summary.Memory.After},
		{"issues", len(r.IssuesResolved) + len(r.IssuesRemaining), len(r.IssuesRemaining) + len(r.IssuesIntroduced)},
	}
}
