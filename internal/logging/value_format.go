package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// attrString renders a value without quoting, for header fields such as the
// component and shot.
func attrString(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return plainValue(v)
}

// formatValue renders a value for the key=value tail, quoting anything that
// would not survive a round trip through whitespace splitting.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool, slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindDuration, slog.KindTime:
		return plainValue(v)
	}
	s := plainValue(v)
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		}
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().In(time.Local).Format(logTimestampLayout)
	case slog.KindAny:
		switch val := v.Any().(type) {
		case []string:
			return strings.Join(val, ",")
		case []int:
			parts := make([]string, len(val))
			for i, n := range val {
				parts[i] = strconv.Itoa(n)
			}
			return strings.Join(parts, ",")
		default:
			return fmt.Sprint(val)
		}
	}
	return v.String()
}

func needsQuotes(s string) bool {
	return s == "" || strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	})
}
