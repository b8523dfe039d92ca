package engine

import (
	"regexp"
	"time"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// System variables resolved at call time, before the conversation map.
const (
	SysCurrentDate = "current_date"
	SysCurrentTime = "current_time"
	SysTimestamp   = "timestamp"
)

// Interpolate replaces every {{name}} placeholder in text. Reserved system
// variables win over the variable map; placeholders that resolve to neither
// are left verbatim so partially configured flows still render. Pure and
// idempotent on already-resolved text.
func Interpolate(text string, vars map[string]string) string {
	if text == "" {
		return text
	}
	now := time.Now()
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := systemValue(name, now); ok {
			return v
		}
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}

func systemValue(name string, now time.Time) (string, bool) {
	switch name {
	case SysCurrentDate:
		return now.Format("2006-01-02"), true
	case SysCurrentTime:
		return now.Format("15:04"), true
	case SysTimestamp:
		return now.Format(time.RFC3339), true
	}
	return "", false
}
