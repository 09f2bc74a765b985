// Package render formats accumulated turn state for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/plumekit/plume/internal/llm"
)

var (
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#928374"))
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#83a598")).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#fb4934"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#fabd2f"))
)

// Renderer writes turn output. Plain mode skips glamour and styles for
// pipes and tests.
type Renderer struct {
	w     io.Writer
	plain bool
	md    *glamour.TermRenderer
}

func NewRenderer(w io.Writer, plain bool) (*Renderer, error) {
	r := &Renderer{w: w, plain: plain}
	if !plain {
		tr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return nil, fmt.Errorf("init markdown renderer: %w", err)
		}
		r.md = tr
	}
	return r, nil
}

// Markdown renders assistant prose.
func (r *Renderer) Markdown(text string) {
	if text == "" {
		return
	}
	if r.plain || r.md == nil {
		fmt.Fprintln(r.w, text)
		return
	}
	out, err := r.md.Render(text)
	if err != nil {
		fmt.Fprintln(r.w, text)
		return
	}
	fmt.Fprint(r.w, out)
}

// Delta writes streamed text as it arrives, unstyled.
func (r *Renderer) Delta(text string) {
	fmt.Fprint(r.w, text)
}

// Reasoning prints a reasoning summary step, dimmed.
func (r *Renderer) Reasoning(step llm.ReasoningStep) {
	if step.Content == "" {
		return
	}
	r.dimmed("thinking: " + firstLine(step.Content))
}

// ToolCall prints a one-line summary of a tool call's current state.
func (r *Renderer) ToolCall(tc llm.ToolCall) {
	label := toolLabel(tc)
	if r.plain {
		fmt.Fprintln(r.w, label)
		return
	}
	fmt.Fprintln(r.w, toolStyle.Render("• ")+label)
}

func toolLabel(tc llm.ToolCall) string {
	switch tc.Kind {
	case llm.ToolWebSearch:
		if tc.Query != "" {
			return fmt.Sprintf("web search (%s): %q", tc.Status, tc.Query)
		}
		return fmt.Sprintf("web search (%s)", tc.Status)
	case llm.ToolCodeExec:
		return fmt.Sprintf("code (%s): %s", tc.Status, firstLine(tc.Code))
	case llm.ToolMCPCall:
		return fmt.Sprintf("%s (%s)", tc.Name, tc.Status)
	case llm.ToolMCPApproval:
		return fmt.Sprintf("approval for %s: %s", tc.Name, tc.Status)
	default:
		return fmt.Sprintf("%s(%s)", tc.Name, truncate(tc.Arguments, 60))
	}
}

// Citations prints the source list for a finished turn.
func (r *Renderer) Citations(st *llm.TurnState) {
	if len(st.Citations) == 0 && len(st.FileCitations) == 0 {
		return
	}
	fmt.Fprintln(r.w)
	r.dimmed("Sources:")
	for _, c := range st.Citations {
		if c.Title != "" {
			r.dimmed(fmt.Sprintf("  %s - %s", c.Title, c.URL))
		} else {
			r.dimmed("  " + c.URL)
		}
	}
	for _, fc := range st.FileCitations {
		r.dimmed("  file: " + fc.Filename)
	}
}

// Turn renders a complete accumulated state: tool calls, prose,
// citations, and a truncation notice if the response was cut short.
func (r *Renderer) Turn(st *llm.TurnState) {
	for _, step := range st.ReasoningSteps {
		r.Reasoning(step)
	}
	for _, tc := range st.ToolCalls {
		r.ToolCall(tc)
	}
	r.Markdown(st.Content)
	r.Citations(st)
	if st.IsTruncated {
		r.warn("response truncated: " + st.TruncationReason)
	}
}

// Error prints a styled error line.
func (r *Renderer) Error(err error) {
	if r.plain {
		fmt.Fprintln(r.w, "error:", err)
		return
	}
	fmt.Fprintln(r.w, errStyle.Render("error: "+err.Error()))
}

func (r *Renderer) dimmed(s string) {
	if r.plain {
		fmt.Fprintln(r.w, s)
		return
	}
	fmt.Fprintln(r.w, mutedStyle.Render(s))
}

func (r *Renderer) warn(s string) {
	if r.plain {
		fmt.Fprintln(r.w, s)
		return
	}
	fmt.Fprintln(r.w, warningStyle.Render(s))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "…"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
