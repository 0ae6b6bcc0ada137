package classify

import (
	"testing"

	"github.com/procwatch/procwatch/internal/errors"
)

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeReady, "ready"},
		{OutcomeError, "error"},
		{Outcome(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}

func TestClassify_Ready(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "ready to accept connections",
			text: "Ready to accept connections now ready",
		},
		{
			name: "daemon started",
			text: "daemon started",
		},
		{
			name: "mixed case",
			text: "NOW READY",
		},
		{
			name: "mid chunk",
			text: "1234:M 01 Jan 00:00:00.000 * The server is now ready to accept connections on port 6379",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Classify(tt.text)
			if !ok {
				t.Fatalf("Classify(%q) ok = false, want true", tt.text)
			}
			if res.Outcome != OutcomeReady {
				t.Errorf("Outcome = %v, want OutcomeReady", res.Outcome)
			}
			if res.Err() != nil {
				t.Errorf("Err() = %v, want nil", res.Err())
			}
		})
	}
}

func TestClassify_Errors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantKind errors.Kind
		wantCode int
	}{
		{
			name:     "address already in use",
			text:     "Could not create server TCP listening socket *:6379: bind: Address already in use",
			wantKind: errors.KindAddressInUse,
			wantCode: -1,
		},
		{
			name:     "permission denied",
			text:     "Could not create server TCP listening socket *:79: bind: Permission denied",
			wantKind: errors.KindPermissionDenied,
			wantCode: -2,
		},
		{
			name:     "invalid port",
			text:     "Warning: server will not listen on port 99999: invalid port",
			wantKind: errors.KindInvalidPort,
			wantCode: -3,
		},
		{
			name:     "generic cant",
			text:     "Can't open the append-only file: No such file or directory",
			wantKind: errors.KindGeneric,
			wantCode: -3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Classify(tt.text)
			if !ok {
				t.Fatalf("Classify(%q) ok = false, want true", tt.text)
			}
			if res.Outcome != OutcomeError {
				t.Fatalf("Outcome = %v, want OutcomeError", res.Outcome)
			}
			if res.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", res.Kind, tt.wantKind)
			}

			err := res.Err()
			var serr *errors.ServerError
			if !errors.As(err, &serr) {
				t.Fatalf("Err() = %v, want *ServerError", err)
			}
			if serr.Code() != tt.wantCode {
				t.Errorf("Code() = %d, want %d", serr.Code(), tt.wantCode)
			}
		})
	}
}

func TestClassify_NoMatch(t *testing.T) {
	tests := []string{
		"",
		"1234:M 01 Jan 00:00:00.000 * DB loaded from disk",
		"unrelated log chatter",
		"starting up...",
	}

	for _, text := range tests {
		if res, ok := Classify(text); ok {
			t.Errorf("Classify(%q) = (%+v, true), want no match", text, res)
		}
	}
}

func TestClassify_GenericScrapesHashErrorLine(t *testing.T) {
	text := "some preamble\n# Fatal   error, can't open DB\ntrailing chunk"
	res, ok := Classify(text)
	if !ok {
		t.Fatal("Classify ok = false, want true")
	}
	if res.Kind != errors.KindGeneric {
		t.Fatalf("Kind = %v, want KindGeneric", res.Kind)
	}
	// Whitespace runs collapse to single spaces.
	want := "# Fatal error, can't open DB"
	if res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}
}

func TestClassify_ErrorMessageIsMatchedLine(t *testing.T) {
	text := "line one\nbind: Address   already in use\nline three"
	res, ok := Classify(text)
	if !ok {
		t.Fatal("Classify ok = false, want true")
	}
	if res.Kind != errors.KindAddressInUse {
		t.Fatalf("Kind = %v, want KindAddressInUse", res.Kind)
	}
	if res.Message != "bind: Address already in use" {
		t.Errorf("Message = %q, want matched line with collapsed whitespace", res.Message)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	text := "Could not create server TCP listening socket *:6379: bind: Address already in use"
	first, ok1 := Classify(text)
	second, ok2 := Classify(text)
	if ok1 != ok2 || first != second {
		t.Errorf("Classify is not deterministic: %+v vs %+v", first, second)
	}
}
