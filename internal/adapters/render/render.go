package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/taskmaster/taskboard/internal/domain/entities"
)

// Format selects how results are written
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json or yaml (and yml)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", entities.ErrValidation, s)
	}
}

// Renderer writes command results to out
type Renderer struct {
	out    io.Writer
	format Format
}

func New(out io.Writer, format Format) *Renderer {
	return &Renderer{out: out, format: format}
}

func (r *Renderer) Format() Format {
	return r.format
}

// Structured reports whether results go out as json or yaml
func (r *Renderer) Structured() bool {
	return r.format == FormatJSON || r.format == FormatYAML
}

// Value writes v as json or yaml. In table mode it falls back to json.
func (r *Renderer) Value(v interface{}) error {
	if r.format == FormatYAML {
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

// Message prints a line of text in table mode and nothing otherwise
func (r *Renderer) Message(format string, args ...interface{}) {
	if r.Structured() {
		return
	}
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Renderer) table(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	bold := color.New(color.Bold).SprintFunc()
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = bold(h)
	}
	fmt.Fprintln(tw, strings.Join(cells, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cells ...interface{}) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

// StatusLabel colours a task status
func StatusLabel(s entities.TaskStatus) string {
	switch s {
	case entities.TaskStatusNew:
		return color.CyanString(string(s))
	case entities.TaskStatusInProgress:
		return color.YellowString(string(s))
	case entities.TaskStatusDone:
		return color.GreenString(string(s))
	default:
		return string(s)
	}
}

// PriorityLabel colours a task priority
func PriorityLabel(p entities.Priority) string {
	switch p {
	case entities.PriorityHigh:
		return color.RedString(string(p))
	case entities.PriorityMedium:
		return color.YellowString(string(p))
	case entities.PriorityLow:
		return color.WhiteString(string(p))
	default:
		return color.WhiteString("-")
	}
}

func userName(u *entities.UserRef) string {
	if u == nil {
		return "-"
	}
	return u.Username
}

func date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func hours(h float64) string {
	return fmt.Sprintf("%.1fh", h)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
