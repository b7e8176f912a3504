package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/systemstart/buildsteps/pkg/processing"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

const defaultTemplate = `
{{- range .Jobs -}}
{{ printf "%-24s" .Job }} {{ label . }}{{ if .DurationMS }} ({{ duration . }}){{ end }}
{{ range .Steps }}{{ if and .Failed .AlwaysSucceed }}    tolerated: {{ .Command }} ({{ .Error }})
{{ end }}{{ end -}}
{{ with failure . }}    step {{ add1 .Index }}: {{ .Command }}
    {{ .Error }}
{{ if .Output }}{{ .Output | trimSuffix "\n" | indent 6 }}
{{ end }}{{ else }}{{ if .Error }}    {{ .Error }}
{{ end }}{{ end }}
{{- end }}
{{ .Summary.Total }} {{ ternary "job" "jobs" (eq .Summary.Total 1) }}: {{ .Summary.Succeeded }} succeeded, {{ .Summary.Failed }} failed, {{ .Summary.Skipped }} skipped
`

// Document is the serialized form of a batch of job results.
type Document struct {
	Jobs    []Job   `json:"jobs"`
	Summary Summary `json:"summary"`
}

type Summary struct {
	Total     int  `json:"total"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	OK        bool `json:"ok"`
}

// Job is one JobResult prepared for output.
type Job struct {
	Job        string            `json:"job"`
	Status     processing.Status `json:"status"`
	DurationMS int64             `json:"durationMs"`
	FailedStep *int              `json:"failedStep,omitempty"`
	Error      string            `json:"error,omitempty"`
	Steps      []Step            `json:"steps"`
}

type Step struct {
	Command       string `json:"command"`
	ExitCode      int    `json:"exitCode"`
	Output        string `json:"output,omitempty"`
	DurationMS    int64  `json:"durationMs"`
	AlwaysSucceed bool   `json:"alwaysSucceed,omitempty"`
	Failed        bool   `json:"failed"`
	Error         string `json:"error,omitempty"`
}

// NewJob converts a JobResult. FailedStep is set only when a step failed the job.
func NewJob(r processing.JobResult) Job {
	j := Job{
		Job:        r.Job,
		Status:     r.Status,
		DurationMS: r.Duration.Milliseconds(),
		Steps:      make([]Step, 0, len(r.Steps)),
	}
	if r.Err != nil {
		j.Error = r.Err.Error()
	}
	if _, ok := r.Failure(); ok {
		idx := r.FailedStep
		j.FailedStep = &idx
	}
	for _, s := range r.Steps {
		step := Step{
			Command:       s.Command,
			ExitCode:      s.ExitCode,
			Output:        string(s.Output),
			DurationMS:    s.Duration.Milliseconds(),
			AlwaysSucceed: s.AlwaysSucceed,
			Failed:        s.Failed(),
		}
		if s.Err != nil {
			step.Error = s.Err.Error()
		}
		j.Steps = append(j.Steps, step)
	}
	return j
}

// NewDocument converts results in order and summarizes them.
func NewDocument(results []processing.JobResult) Document {
	s := processing.Summarize(results)
	doc := Document{
		Jobs: make([]Job, 0, len(results)),
		Summary: Summary{
			Total:     s.Total,
			Succeeded: s.Succeeded,
			Failed:    s.Failed,
			Skipped:   s.Skipped,
			OK:        s.OK(),
		},
	}
	for _, r := range results {
		doc.Jobs = append(doc.Jobs, NewJob(r))
	}
	return doc
}

// Render writes results in the given format.
func Render(w io.Writer, format string, results []processing.JobResult) error {
	switch format {
	case FormatText, "":
		return RenderTemplate(w, defaultTemplate, results)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(NewDocument(results)); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}

// RenderTemplate executes a text/template with sprig functions against the
// Document built from results. Besides sprig, templates can call label,
// duration and failure on a Job.
func RenderTemplate(w io.Writer, text string, results []processing.JobResult) error {
	tmpl, err := template.New("report").Funcs(sprig.FuncMap()).Funcs(funcs()).Parse(text)
	if err != nil {
		return fmt.Errorf("parsing report template: %w", err)
	}
	if err := tmpl.Execute(w, NewDocument(results)); err != nil {
		return fmt.Errorf("executing report template: %w", err)
	}
	return nil
}

// failedStep pairs the failing step with its index for templates.
type failedStep struct {
	Step
	Index int
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"label": Label,
		"duration": func(j Job) string {
			return (time.Duration(j.DurationMS) * time.Millisecond).String()
		},
		"failure": func(j Job) *failedStep {
			if j.FailedStep == nil || *j.FailedStep >= len(j.Steps) {
				return nil
			}
			return &failedStep{Step: j.Steps[*j.FailedStep], Index: *j.FailedStep}
		},
	}
}

// Label is the status shown in text reports.
func Label(j Job) string {
	if j.Status == processing.StatusSkipped {
		return "SKIPPED (retired)"
	}
	return strings.ToUpper(j.Status.String())
}
