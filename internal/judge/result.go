package judge

// Kind classifies a normalized execution result.
type Kind string

const (
	KindSuccess      Kind = "success"
	KindCompileError Kind = "compile_error"
	KindRuntimeError Kind = "runtime_error"
	KindNoResult     Kind = "no_result"
)

const (
	msgNoResult         = "No result received"
	msgCompilationError = "Compilation error"
	msgRuntimeError     = "Runtime error"
	msgNoOutput         = "Program executed successfully with no output"
)

// Normalized is the user-facing form of a judge result. On success Output is
// set and Error carries stderr if any; on failure only Error is set.
type Normalized struct {
	Output *string `json:"output,omitempty"`
	Error  *string `json:"error"`
	Kind   Kind    `json:"kind"`
}

// Text returns the output, or the error when there is no output.
func (n Normalized) Text() string {
	if n.Output != nil {
		return *n.Output
	}
	if n.Error != nil {
		return *n.Error
	}
	return ""
}

// FormatExecutionResult maps a raw judge result to a Normalized result.
// Empty strings count as absent.
func FormatExecutionResult(result *Result) Normalized {
	if result == nil {
		return Normalized{Error: ptr(msgNoResult), Kind: KindNoResult}
	}

	status := result.Status
	if status.ID == StatusCompilationError {
		return Normalized{
			Error: ptr(firstNonEmpty(deref(result.CompileOutput), msgCompilationError)),
			Kind:  KindCompileError,
		}
	}
	if status.ID > StatusAccepted {
		return Normalized{
			Error: ptr(firstNonEmpty(deref(result.Stderr), status.Description, msgRuntimeError)),
			Kind:  KindRuntimeError,
		}
	}

	normalized := Normalized{
		Output: ptr(firstNonEmpty(deref(result.Stdout), msgNoOutput)),
		Kind:   KindSuccess,
	}
	if stderr := deref(result.Stderr); stderr != "" {
		normalized.Error = ptr(stderr)
	}
	return normalized
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	return &s
}
