// Package classify provides output analysis for detecting a supervised
// server's startup outcome. It scans raw chunks of the server's output
// stream for terminal signal phrases that indicate the server is ready to
// accept connections, or that startup has failed and why.
//
// Classification is substring-oriented: chunks arrive as the child process
// flushes its stream and are not guaranteed to align with line boundaries,
// so matching never requires a complete line. A keyword split across two
// chunks is not detected; callers that need that guarantee must buffer
// upstream.
package classify

import (
	"regexp"
	"strings"

	"github.com/procwatch/procwatch/internal/errors"
)

// Outcome is the definitive verdict extracted from server output.
type Outcome int

const (
	// OutcomeReady means the server reported readiness.
	OutcomeReady Outcome = iota

	// OutcomeError means the server reported a startup failure.
	OutcomeError
)

// String returns a human-readable string for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is a definitive classification of one output chunk.
type Result struct {
	// Outcome is the verdict.
	Outcome Outcome

	// Kind categorizes the failure when Outcome is OutcomeError.
	Kind errors.Kind

	// Message is the diagnostic text for error outcomes, with runs of
	// whitespace collapsed to single spaces.
	Message string
}

// Err returns the ServerError for an error result, or nil for a ready result.
func (r Result) Err() error {
	if r.Outcome != OutcomeError {
		return nil
	}
	return &errors.ServerError{Kind: r.Kind, Message: r.Message}
}

// Func is the classifier contract consumed by the supervisor. It returns
// (result, true) on a definitive verdict and (zero, false) when the chunk
// carries no terminal signal phrase and the caller should keep waiting.
type Func func(text string) (Result, bool)

// signalPattern recognizes the terminal signal phrases a server emits during
// startup. Matching is case-insensitive and leftmost-first: the phrase that
// appears earliest in the chunk decides the verdict.
var signalPattern = regexp.MustCompile(`(?i)now\s+ready|daemon\s+started|already\s+in\s+use|not\s+listen|denied|can't|error`)

// genericErrorLine scrapes the diagnostic line for generic failures.
// Server logs conventionally prefix warnings and errors with "# ".
var genericErrorLine = regexp.MustCompile(`(?i)#[^\r\n]*error[^\r\n]*`)

// whitespaceRun collapses runs of whitespace in scraped diagnostics.
var whitespaceRun = regexp.MustCompile(`\s+`)

// Classify inspects one decoded chunk of server output and reports whether
// it carries a definitive startup verdict. It is pure, stateless, and
// deterministic.
func Classify(text string) (Result, bool) {
	loc := signalPattern.FindStringIndex(text)
	if loc == nil {
		return Result{}, false
	}

	token := normalizeToken(text[loc[0]:loc[1]])
	switch token {
	case "nowready", "daemonstarted":
		return Result{Outcome: OutcomeReady}, true
	case "alreadyinuse":
		return Result{
			Outcome: OutcomeError,
			Kind:    errors.KindAddressInUse,
			Message: collapse(lineAround(text, loc[0])),
		}, true
	case "denied":
		return Result{
			Outcome: OutcomeError,
			Kind:    errors.KindPermissionDenied,
			Message: collapse(lineAround(text, loc[0])),
		}, true
	case "notlisten":
		return Result{
			Outcome: OutcomeError,
			Kind:    errors.KindInvalidPort,
			Message: collapse(lineAround(text, loc[0])),
		}, true
	default: // "can't", "error"
		msg := genericErrorLine.FindString(text)
		if msg == "" {
			msg = lineAround(text, loc[0])
		}
		return Result{
			Outcome: OutcomeError,
			Kind:    errors.KindGeneric,
			Message: collapse(msg),
		}, true
	}
}

// normalizeToken lowercases a matched phrase and strips all whitespace,
// so "Daemon  started" and "daemon started" map to the same token.
func normalizeToken(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(s), "")
}

// lineAround extracts the line of text containing byte offset pos.
func lineAround(text string, pos int) string {
	start := strings.LastIndexByte(text[:pos], '\n') + 1
	end := strings.IndexByte(text[pos:], '\n')
	if end < 0 {
		return text[start:]
	}
	return text[start : pos+end]
}

// collapse trims the string and replaces runs of whitespace with single spaces.
func collapse(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}
