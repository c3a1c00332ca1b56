package api

import (
	"fmt"
	"strings"
)

// Level classifies a deploy diagnostic. Errors block deployment; warnings
// do not.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Diagnostic is one finding produced while parsing and validating a
// workflow definition.
type Diagnostic struct {
	Level Level

	// Path names the offending element, e.g. "approve/decide".
	Path string

	Message string
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s: %s", d.Level, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Level, d.Path, d.Message)
}

// Diagnostics is the full finding list for one deploy attempt. Validation
// never stops at the first problem; a single deploy surfaces every defect.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic is an error.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Level == LevelError {
			return true
		}
	}
	return false
}

// Errors returns only the error-level diagnostics.
func (ds Diagnostics) Errors() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Level == LevelError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-level diagnostics.
func (ds Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Level == LevelWarning {
			out = append(out, d)
		}
	}
	return out
}

// ValidationError is returned by Deploy when the definition has error-level
// diagnostics. The full list, warnings included, is attached.
type ValidationError struct {
	Diagnostics Diagnostics
}

func (e *ValidationError) Error() string {
	errs := e.Diagnostics.Errors()
	msgs := make([]string, len(errs))
	for i, d := range errs {
		msgs[i] = d.String()
	}
	return fmt.Sprintf("workflow validation failed with %d error(s): %s",
		len(errs), strings.Join(msgs, "; "))
}
