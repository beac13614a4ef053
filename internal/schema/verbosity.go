package schema

import (
	"strconv"
	"strings"
)

// Verbosity bits, OR-ed together in a module's verbosity mask.
const (
	VerbosityNone    = 0
	VerbosityVerbose = 1
	VerbosityDebug   = 2
	VerbosityInfo    = 4
	VerbosityWarning = 8
	VerbosityError   = 16
	VerbosityFatal   = 32
)

var verbosityTokens = map[string]int{
	"NONE":    VerbosityNone,
	"VERBOSE": VerbosityVerbose,
	"DEBUG":   VerbosityDebug,
	"INFO":    VerbosityInfo,
	"WARNING": VerbosityWarning,
	"ERROR":   VerbosityError,
	"FATAL":   VerbosityFatal,
}

// ParseVerbosity reads a verbosity attribute. A value starting with a
// decimal digit must be a plain integer; anything else is a '|' separated
// list of level names, e.g. "INFO|WARNING|ERROR".
func ParseVerbosity(s string) (int, error) {
	if s == "" {
		return 0, &InvalidValueError{Context: "verbosity level", Value: s}
	}

	if s[0] >= '0' && s[0] <= '9' {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, &InvalidValueError{Context: "verbosity level", Value: s}
		}
		return v, nil
	}

	mask := 0
	for _, tok := range strings.Split(s, "|") {
		bit, ok := verbosityTokens[tok]
		if !ok {
			return 0, &InvalidValueError{Context: "verbosity token", Value: tok}
		}
		mask |= bit
	}
	return mask, nil
}
