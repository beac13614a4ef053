package fwlogs

import (
	"strconv"
	"strings"

	"github.com/atikulmunna/fwloom/internal/model"
	"github.com/atikulmunna/fwloom/internal/schema"
)

// Severity levels as carried in the record's 5-bit severity field.
// Level n corresponds to verbosity bit 1<<(n-1).
var levelNames = []string{"NONE", "VERBOSE", "DEBUG", "INFO", "WARNING", "ERROR", "FATAL"}

// LevelName returns the display name of a record severity.
func LevelName(sev uint8) string {
	if int(sev) < len(levelNames) {
		return levelNames[sev]
	}
	return "SEV" + strconv.Itoa(int(sev))
}

// ParseLevel is the inverse of LevelName; it ignores case and accepts WARN.
func ParseLevel(s string) (uint8, bool) {
	up := strings.ToUpper(strings.TrimSpace(s))
	if up == "WARN" {
		up = "WARNING"
	}
	for i, n := range levelNames {
		if n == up {
			return uint8(i), true
		}
	}
	return 0, false
}

// SeverityBit returns the verbosity mask bit selecting sev, or 0.
func SeverityBit(sev uint8) int {
	if sev == 0 || int(sev) >= len(levelNames) {
		return schema.VerbosityNone
	}
	return 1 << (sev - 1)
}

// VerbosityFilter applies per-module verbosity masks at display time.
// A line's module is its group id. Modules without a mask pass everything.
type VerbosityFilter struct {
	masks map[int]int
}

// NewVerbosityFilter builds a filter from a module id to mask table.
func NewVerbosityFilter(masks map[int]int) VerbosityFilter {
	return VerbosityFilter{masks: masks}
}

// Allow reports whether line passes its module's mask.
func (f VerbosityFilter) Allow(line model.LogLine) bool {
	mask, ok := f.masks[int(line.GroupID)]
	if !ok {
		return true
	}
	return mask&SeverityBit(line.Severity) != 0
}
