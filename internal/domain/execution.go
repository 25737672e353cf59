package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the lifecycle state of a code execution.
type ExecutionStatus string

const (
	StatusQueued           ExecutionStatus = "QUEUED"
	StatusCompiling        ExecutionStatus = "COMPILING"
	StatusRunning          ExecutionStatus = "RUNNING"
	StatusSuccess          ExecutionStatus = "SUCCESS"
	StatusCompilationError ExecutionStatus = "COMPILATION_ERROR"
	StatusRuntimeError     ExecutionStatus = "RUNTIME_ERROR"
	StatusTimeout          ExecutionStatus = "TIMEOUT"
	StatusInternalError    ExecutionStatus = "INTERNAL_ERROR"
)

// IsTerminal returns true if the status represents a final state.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusCompilationError, StatusRuntimeError,
		StatusTimeout, StatusInternalError:
		return true
	}
	return false
}

// Language is the tag of a supported programming language.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangC          Language = "c"
	LangCpp        Language = "cpp"
	LangJava       Language = "java"
)

// DisplayName is the capitalised name used in user-facing messages.
func (l Language) DisplayName() string {
	switch l {
	case LangPython:
		return "Python"
	case LangJavaScript:
		return "JavaScript"
	case LangC:
		return "C"
	case LangCpp:
		return "C++"
	case LangJava:
		return "Java"
	}
	return string(l)
}

// RunRequest is the body of POST /run-{lang}.
type RunRequest struct {
	Code     string            `json:"code"`
	FileName string            `json:"fileName,omitempty"`
	AllFiles map[string]string `json:"allFiles,omitempty"`
}

// ExecutionRequest is passed to the execution engine.
type ExecutionRequest struct {
	ID           uuid.UUID
	Language     Language
	MainFileName string
	MainSource   string
	AuxFiles     map[string]string
}

// ExecutionResult is returned by the execution engine after a run completes.
type ExecutionResult struct {
	ExecutionID uuid.UUID
	Status      ExecutionStatus
	Stdout      string
	Stderr      string
	ExitCode    int
	TimeUsedMs  int
}

// RunRecord is the persisted history entry of one execution.
type RunRecord struct {
	ExecutionID uuid.UUID       `json:"execution_id"`
	Language    Language        `json:"language"`
	FileName    string          `json:"file_name"`
	SourceCode  string          `json:"source_code"`
	Status      ExecutionStatus `json:"status"`
	Stdout      string          `json:"stdout"`
	Stderr      string          `json:"stderr"`
	ExitCode    int             `json:"exit_code"`
	TimeUsedMs  int             `json:"time_used_ms"`
	CreatedAt   time.Time       `json:"created_at"`
}
