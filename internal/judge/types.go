package judge

// Judge status ids as reported by the remote service.
const (
	StatusInQueue          = 1
	StatusProcessing       = 2
	StatusAccepted         = 3
	StatusCompilationError = 6
)

// Request is one run of source code with its standard input.
type Request struct {
	SourceCode string `json:"source_code"`
	Language   string `json:"language"`
	Stdin      string `json:"stdin"`
}

// Handle identifies a submission on the judge.
type Handle struct {
	Token string `json:"token"`
}

// Status is the judge's verdict for a submission.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Pending reports whether the submission is still queued or running.
func (s Status) Pending() bool {
	return s.ID == StatusInQueue || s.ID == StatusProcessing
}

// Result is the submission resource returned by the judge. Optional text
// fields are nil when the judge reports null.
type Result struct {
	Token         string  `json:"token,omitempty"`
	Status        Status  `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message,omitempty"`
	Time          *string `json:"time,omitempty"`
	Memory        *int    `json:"memory,omitempty"`
}
