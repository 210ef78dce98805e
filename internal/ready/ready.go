// Package ready implements spec.md §4.3's Readiness Detector: polling a
// capture function for the point at which an interactive program has
// reached an input prompt, recognized as a per-line, ANSI-aware pattern
// match over the captured terminal output (scrollback included).
package ready

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// Pattern names one of the recognized prompt sigils.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

// Built-in patterns (spec.md §4.3's table), each anchored so that the
// sigil must appear at the start of a line, optionally preceded only by
// one or more ANSI SGR escape sequences — never mid-line.
var (
	AgentPrompt = Pattern{Name: "agent-prompt", re: regexp.MustCompile(`^(?:\x1b\[[0-9;]*m)*> `)}
	ShellPrompt = Pattern{Name: "shell-prompt", re: regexp.MustCompile(`^(?:\x1b\[[0-9;]*m)*\$ `)}
	PythonREPL  = Pattern{Name: "python-repl", re: regexp.MustCompile(`^(?:\x1b\[[0-9;]*m)*>>> `)}
	Banner      = Pattern{Name: "banner", re: regexp.MustCompile(`Claude Code v\d+\.\d+`)}
	BypassText  = Pattern{Name: "bypass-permissions", re: regexp.MustCompile(`bypass\s+permissions\s+on`)}
)

// DefaultPatterns is the full built-in set, all of which must be
// supported per spec.md §4.3.
var DefaultPatterns = []Pattern{AgentPrompt, ShellPrompt, PythonREPL, Banner, BypassText}

// Result is the outcome of WaitReady.
type Result int

const (
	TimedOut Result = iota
	Ready
)

// CaptureFunc returns the current captured output (scrollback included).
type CaptureFunc func(ctx context.Context) ([]byte, error)

// WaitReady polls capture at interval until a line in its output matches
// any of patterns, or timeout elapses. Timeout is informational, not an
// error (spec.md §4.3, §9): callers that time out should proceed, not fail.
func WaitReady(ctx context.Context, capture CaptureFunc, timeout, interval time.Duration, patterns []Pattern) (Result, error) {
	if interval <= 0 {
		interval = 150 * time.Millisecond
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	deadline := time.Now().Add(timeout)
	for {
		out, err := capture(ctx)
		if err != nil {
			return TimedOut, err
		}
		if MatchAny(string(out), patterns) {
			return Ready, nil
		}
		if time.Now().After(deadline) {
			return TimedOut, nil
		}
		select {
		case <-ctx.Done():
			return TimedOut, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// MatchAny reports whether any line of text matches any pattern.
func MatchAny(text string, patterns []Pattern) bool {
	for _, line := range strings.Split(text, "\n") {
		for _, p := range patterns {
			if p.re.MatchString(line) {
				return true
			}
		}
	}
	return false
}

// Preview renders a short, ANSI-stripped tail of text for diagnostic
// messages (e.g. a readiness-timeout warning), so stderr never carries
// raw escape sequences.
func Preview(text string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	for i, l := range lines {
		lines[i] = ansi.Strip(l)
	}
	return strings.Join(lines, "\n")
}
