package cmd

import (
	"fmt"
	"strings"
)

// UnsupportedOptionError reports a flag or config value outside its allowed set.
type UnsupportedOptionError struct {
	Option  string
	Value   string
	Allowed []string
}

func (e *UnsupportedOptionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("unsupported %s %q", e.Option, e.Value)
	}
	return fmt.Sprintf("unsupported %s %q (must be %s)", e.Option, e.Value, strings.Join(e.Allowed, ", "))
}

// InputFileError wraps a failure to load an offline scan dump.
type InputFileError struct {
	Path string
	Err  error
}

func (e *InputFileError) Error() string {
	return fmt.Sprintf("cannot analyze %s: %v", e.Path, e.Err)
}

func (e *InputFileError) Unwrap() error { return e.Err }
