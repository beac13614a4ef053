package fwlogs

import (
	"strconv"
	"strings"
)

// EnumResolver maps an enum-typed parameter to its label.
type EnumResolver interface {
	EnumLabel(name string, key int) (string, bool)
}

// Formatter substitutes parameters into event format templates.
//
// Recognized placeholders, with i a zero-based parameter index:
//
//	{i}          decimal
//	{i:x}        lowercase hex, at least two digits
//	{i,EnumName} enum label, decimal when the key is unknown
//
// Placeholders whose index has no parameter, and anything else inside
// braces, are copied through unchanged.
type Formatter struct {
	Enums EnumResolver
}

// Format runs the zero-value Formatter.
func Format(template string, params []uint32) string {
	return Formatter{}.Format(template, params)
}

// Format scans template once; substituted text is never rescanned.
func (f Formatter) Format(template string, params []uint32) string {
	var sb strings.Builder
	sb.Grow(len(template) + 8*len(params))

	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			sb.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			sb.WriteString(rest)
			break
		}
		end += open

		sb.WriteString(rest[:open])
		if s, ok := f.expand(rest[open+1:end], params); ok {
			sb.WriteString(s)
			rest = rest[end+1:]
			continue
		}
		// Not ours: emit the brace and keep scanning after it, so a
		// placeholder nested in literal braces still resolves.
		sb.WriteByte('{')
		rest = rest[open+1:]
	}
	return sb.String()
}

func (f Formatter) expand(body string, params []uint32) (string, bool) {
	digits := 0
	for digits < len(body) && body[digits] >= '0' && body[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return "", false
	}
	idx, err := strconv.Atoi(body[:digits])
	if err != nil || idx >= len(params) {
		return "", false
	}
	v := params[idx]

	switch verb := body[digits:]; {
	case verb == "":
		return strconv.FormatUint(uint64(v), 10), true
	case verb == ":x":
		return hex2(v), true
	case len(verb) > 1 && verb[0] == ',':
		if f.Enums != nil {
			if label, ok := f.Enums.EnumLabel(verb[1:], int(v)); ok {
				return label, true
			}
		}
		return strconv.FormatUint(uint64(v), 10), true
	default:
		return "", false
	}
}

func hex2(v uint32) string {
	s := strconv.FormatUint(uint64(v), 16)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}
