package plugin

import (
	"encoding/json"
	"fmt"
	"io"
)

// Output is the stdout envelope the host expects back from a plugin run.
type Output struct {
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WriteResult emits a success envelope.
func WriteResult(w io.Writer, result any) error {
	return writeEnvelope(w, Output{Output: result})
}

// WriteError emits a failure envelope. The host surfaces the message in its
// task log.
func WriteError(w io.Writer, err error) error {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return writeEnvelope(w, Output{Error: msg})
}

func writeEnvelope(w io.Writer, out Output) error {
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("write plugin output: %w", err)
	}
	return nil
}
