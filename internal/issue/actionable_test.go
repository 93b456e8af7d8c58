// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "index bundle"},
			expected: "failed to index bundle",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "index bundle", Resource: "bundles/foo.jar"},
			expected: "failed to index bundle: bundles/foo.jar",
		},
		{
			name:     "operation with cause",
			err:      &ActionableError{Operation: "load configuration", Cause: errors.New("syntax error at line 5")},
			expected: "failed to load configuration: syntax error at line 5",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "index bundle",
				Resource:  "bundles/foo.jar",
				Cause:     errors.New("not a bundle"),
			},
			expected: "failed to index bundle: bundles/foo.jar: not a bundle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := &ActionableError{Operation: "test", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "test"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "simple error non-verbose",
			err:      &ActionableError{Operation: "load configuration"},
			contains: []string{"failed to load configuration"},
		},
		{
			name: "error with suggestions",
			err: &ActionableError{
				Operation:   "load configuration",
				Resource:    "config.cue",
				Suggestions: []string{"Run 'repoindex config init'", "Check file permissions"},
			},
			contains: []string{
				"failed to load configuration",
				"config.cue",
				"• Run 'repoindex config init'",
				"• Check file permissions",
			},
		},
		{
			name:     "error chain in verbose mode",
			err:      &ActionableError{Operation: "parse manifest", Cause: errors.New("syntax error")},
			verbose:  true,
			contains: []string{"failed to parse manifest", "Error chain:", "1. syntax error"},
		},
		{
			name:     "no error chain in non-verbose",
			err:      &ActionableError{Operation: "parse manifest", Cause: errors.New("syntax error")},
			contains: []string{"failed to parse manifest: syntax error"},
			excludes: []string{"Error chain:"},
		},
		{
			name: "nested error chain verbose",
			err: &ActionableError{
				Operation: "write index",
				Cause: &ActionableError{
					Operation: "open output",
					Cause:     errors.New("permission denied"),
				},
			},
			verbose: true,
			contains: []string{
				"Error chain:",
				"1. failed to open output: permission denied",
				"2. permission denied",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q\ngot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q\ngot:\n%s", s, got)
				}
			}
		})
	}
}

func TestActionableError_CatalogIssue(t *testing.T) {
	t.Parallel()

	err := &ActionableError{Operation: "index bundle", Issue: NotABundleId}
	if is := err.CatalogIssue(); is == nil || is.Id() != NotABundleId {
		t.Errorf("CatalogIssue() = %v, want NotABundleId", is)
	}
	if (&ActionableError{Operation: "index bundle"}).CatalogIssue() != nil {
		t.Error("CatalogIssue() without an issue should be nil")
	}
	if err.HasSuggestions() {
		t.Error("HasSuggestions() should be false without suggestions")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func() *ErrorContext
		wantNil    bool
		checkError func(t *testing.T, err *ActionableError)
	}{
		{
			name:    "missing operation returns nil",
			setup:   func() *ErrorContext { return NewErrorContext().WithResource("foo.jar") },
			wantNil: true,
		},
		{
			name: "full context",
			setup: func() *ErrorContext {
				return NewErrorContext().
					WithOperation("load configuration").
					WithResource("/etc/repoindex/config.cue").
					WithIssue(ConfigLoadFailedId).
					WithSuggestion("Check syntax").
					WithSuggestions("Verify permissions", "Run 'repoindex config show'").
					Wrap(errors.New("parse error"))
			},
			checkError: func(t *testing.T, err *ActionableError) {
				t.Helper()
				if err.Operation != "load configuration" || err.Resource != "/etc/repoindex/config.cue" {
					t.Errorf("Build() = %+v", err)
				}
				if err.Issue != ConfigLoadFailedId {
					t.Errorf("Issue = %d, want %d", err.Issue, ConfigLoadFailedId)
				}
				if len(err.Suggestions) != 3 || !err.HasSuggestions() {
					t.Errorf("Suggestions = %v, want 3", err.Suggestions)
				}
				if err.Cause == nil || err.Cause.Error() != "parse error" {
					t.Errorf("Cause = %v", err.Cause)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.setup().Build()
			if tt.wantNil {
				if err != nil {
					t.Errorf("Build() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Build() returned nil, want error")
			}
			tt.checkError(t, err)
		})
	}
}

func TestErrorContext_BuildError(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().WithOperation("test").BuildError()
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("BuildError() = %v, want *ActionableError", err)
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() should return nil when operation missing")
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithOperation("index bundle").WithSuggestion("Check the manifest")
	err1 := ctx.Wrap(errors.New("error 1")).Build()
	err2 := ctx.Wrap(errors.New("error 2")).Build()
	if err1.Cause.Error() == err2.Cause.Error() {
		t.Error("reused context should allow different causes")
	}
	err1.Suggestions[0] = "modified"
	if err2.Suggestions[0] != "Check the manifest" {
		t.Error("built errors should not share suggestion storage")
	}
}

func TestWrapHelpers(t *testing.T) {
	t.Parallel()

	cause := errors.New("original error")
	if err := WrapWithOperation(cause, "open resource"); err.Operation != "open resource" || !errors.Is(err, cause) {
		t.Errorf("WrapWithOperation() = %+v", err)
	}
	if err := WrapWithContext(cause, "open resource", "foo.jar"); err.Resource != "foo.jar" || !errors.Is(err, cause) {
		t.Errorf("WrapWithContext() = %+v", err)
	}
	if WrapWithOperation(nil, "x") != nil || WrapWithContext(nil, "x", "y") != nil {
		t.Error("wrapping a nil error should return nil")
	}
	if err := NewActionableError("test"); err.Operation != "test" || err.Cause != nil {
		t.Errorf("NewActionableError() = %+v", err)
	}
}
