package judge_test

import (
	"testing"

	"gide/internal/judge"
)

func str(s string) *string { return &s }

func TestFormatExecutionResult(t *testing.T) {
	tests := []struct {
		name       string
		in         *judge.Result
		wantKind   judge.Kind
		wantOutput *string
		wantError  *string
	}{
		{
			name:      "no result",
			in:        nil,
			wantKind:  judge.KindNoResult,
			wantError: str("No result received"),
		},
		{
			name:       "accepted with stdout",
			in:         &judge.Result{Status: judge.Status{ID: 3, Description: "Accepted"}, Stdout: str("42\n")},
			wantKind:   judge.KindSuccess,
			wantOutput: str("42\n"),
		},
		{
			name:       "accepted with empty stdout and stderr",
			in:         &judge.Result{Status: judge.Status{ID: 3}, Stdout: str(""), Stderr: str("")},
			wantKind:   judge.KindSuccess,
			wantOutput: str("Program executed successfully with no output"),
		},
		{
			name:       "accepted with warnings on stderr",
			in:         &judge.Result{Status: judge.Status{ID: 3}, Stdout: str("ok"), Stderr: str("warning")},
			wantKind:   judge.KindSuccess,
			wantOutput: str("ok"),
			wantError:  str("warning"),
		},
		{
			name:      "compilation error",
			in:        &judge.Result{Status: judge.Status{ID: 6, Description: "Compilation Error"}, CompileOutput: str("main.cpp:1: error")},
			wantKind:  judge.KindCompileError,
			wantError: str("main.cpp:1: error"),
		},
		{
			name:      "compilation error without output",
			in:        &judge.Result{Status: judge.Status{ID: 6, Description: "Compilation Error"}},
			wantKind:  judge.KindCompileError,
			wantError: str("Compilation error"),
		},
		{
			name:      "runtime error prefers stderr",
			in:        &judge.Result{Status: judge.Status{ID: 11, Description: "Runtime Error (NZEC)"}, Stderr: str("Traceback")},
			wantKind:  judge.KindRuntimeError,
			wantError: str("Traceback"),
		},
		{
			name:      "runtime error falls back to description",
			in:        &judge.Result{Status: judge.Status{ID: 5, Description: "Time Limit Exceeded"}},
			wantKind:  judge.KindRuntimeError,
			wantError: str("Time Limit Exceeded"),
		},
		{
			name:      "runtime error without detail",
			in:        &judge.Result{Status: judge.Status{ID: 13}},
			wantKind:  judge.KindRuntimeError,
			wantError: str("Runtime error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := judge.FormatExecutionResult(tt.in)
			if got.Kind != tt.wantKind {
				t.Fatalf("kind: expected %s, got %s", tt.wantKind, got.Kind)
			}
			if !equalPtr(got.Output, tt.wantOutput) {
				t.Fatalf("output: expected %v, got %v", deref(tt.wantOutput), deref(got.Output))
			}
			if !equalPtr(got.Error, tt.wantError) {
				t.Fatalf("error: expected %v, got %v", deref(tt.wantError), deref(got.Error))
			}
		})
	}
}

func TestNormalizedText(t *testing.T) {
	ok := judge.FormatExecutionResult(&judge.Result{Status: judge.Status{ID: 3}, Stdout: str("hi")})
	if ok.Text() != "hi" {
		t.Fatalf("unexpected text: %q", ok.Text())
	}
	failed := judge.FormatExecutionResult(&judge.Result{Status: judge.Status{ID: 6}})
	if failed.Text() != "Compilation error" {
		t.Fatalf("unexpected text: %q", failed.Text())
	}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
