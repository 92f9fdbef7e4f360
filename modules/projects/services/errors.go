package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNoDataRows     = errors.New("file has no data rows")
	ErrNoRowsProvided = errors.New("no rows provided for import")
	ErrActorRequired  = errors.New("an authenticated actor is required")

	errRowsFailed = errors.New("one or more rows failed")
)

// RowError is one failed row. Row is the 1-based spreadsheet row number,
// the header being row 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

// ImportError is returned by ConfirmImport when nothing was committed. Errors
// lists every failed row; Cause is set when the transaction itself failed.
type ImportError struct {
	RunID  uuid.UUID  `json:"runId"`
	Errors []RowError `json:"errors"`
	Cause  error      `json:"-"`
}

func (e *ImportError) Error() string {
	if len(e.Errors) == 0 {
		if e.Cause != nil {
			return fmt.Sprintf("import rolled back: %v", e.Cause)
		}
		return "import rolled back"
	}
	lines := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		lines[i] = re.String()
	}
	return fmt.Sprintf("import rolled back, %d row(s) failed: %s", len(e.Errors), strings.Join(lines, "; "))
}

func (e *ImportError) Unwrap() error { return e.Cause }
