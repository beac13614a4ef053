package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/model"
)

// Renderer writes LogLine values to an output stream.
type Renderer interface {
	Render(line model.LogLine) error
}

// New returns the renderer for format ("text" or "json"), writing to w.
func New(format string, w io.Writer) (Renderer, error) {
	switch format {
	case "", "text":
		return NewTextRenderer(w), nil
	case "json":
		return NewJSONRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleVerbose = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)
	styleDebug   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))            // yellow
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleFatal   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true) // white on red
	styleSource  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
	styleUnknown = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))            // orange
)

// TextRenderer prints lines to the terminal with severity-based colors.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

// Render writes one line as
// "seq timestamp +delta LEVEL file:line thread [source] message".
func (r *TextRenderer) Render(line model.LogLine) error {
	msg := line.Message
	if line.Unrecognized {
		msg = styleUnknown.Render(msg)
	}

	out := fmt.Sprintf("%2d %12d %+10.5f %s %s:%d %s",
		line.Sequence,
		line.Timestamp,
		line.Delta,
		styleLevelTag(fwlogs.LevelName(line.Severity)),
		line.FileName,
		line.LineID,
		line.ThreadName,
	)
	if line.Source != "" {
		out += " " + styleSource.Render(filepath.Base(line.Source))
	}
	_, err := fmt.Fprintln(r.w, out+" "+msg)
	return err
}

func styleLevelTag(level string) string {
	padded := fmt.Sprintf("%-7s", level)
	switch level {
	case "VERBOSE":
		return styleVerbose.Render(padded)
	case "DEBUG":
		return styleDebug.Render(padded)
	case "WARNING":
		return styleWarn.Render(padded)
	case "ERROR":
		return styleError.Render(padded)
	case "FATAL":
		return styleFatal.Render(padded)
	default:
		return styleInfo.Render(padded)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each line as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(line model.LogLine) error {
	return r.enc.Encode(line)
}

// ---------------------------------------------------------------------------
// Filter (severity and module verbosity)
// ---------------------------------------------------------------------------

// Filter decides which lines are shown. The parser emits every record;
// filtering only happens here, at display time.
type Filter struct {
	levels    map[uint8]bool
	verbosity *fwlogs.VerbosityFilter
}

// NewFilter builds a filter from a comma-separated level list such as
// "info,warn,error". An empty list shows every severity.
func NewFilter(levels []string, verbosity *fwlogs.VerbosityFilter) (*Filter, error) {
	f := &Filter{verbosity: verbosity}
	for _, l := range levels {
		if l == "" {
			continue
		}
		sev, ok := fwlogs.ParseLevel(l)
		if !ok {
			return nil, fmt.Errorf("unknown level %q", l)
		}
		if f.levels == nil {
			f.levels = make(map[uint8]bool)
		}
		f.levels[sev] = true
	}
	return f, nil
}

// Show reports whether line passes the filter.
func (f *Filter) Show(line model.LogLine) bool {
	if f == nil {
		return true
	}
	if f.levels != nil && !f.levels[line.Severity] {
		return false
	}
	if f.verbosity != nil && !f.verbosity.Allow(line) {
		return false
	}
	return true
}
