package track

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Render replaces {name} placeholders with fields of d. Names ending in
// _time are formatted as intervals. Unknown names are left untouched.
func Render(template string, d Data) string {
	counters := d.Counters()
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := counters[name]
		if !ok {
			return m
		}
		if strings.HasSuffix(name, "_time") {
			return FormatInterval(time.Duration(v) * time.Millisecond)
		}
		return strconv.FormatInt(v, 10)
	})
}

// FormatInterval renders d as days, hours, minutes and seconds, dropping
// zero units. Anything under a second renders as "0s".
func FormatInterval(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	secs := int64(d / time.Second)
	units := []struct {
		size   int64
		suffix string
	}{
		{86400, "d"},
		{3600, "h"},
		{60, "m"},
		{1, "s"},
	}
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if n := secs / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			secs -= n * u.size
		}
	}
	return strings.Join(parts, " ")
}
