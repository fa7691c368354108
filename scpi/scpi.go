// Package scpi builds SCPI command and query strings and parses responses.
//
// Drivers compose these helpers with a Session instead of inheriting them.
package scpi

import (
	"fmt"
	"strconv"
	"strings"
)

// Command returns a SCPI command: the keyword, the comma-separated non-empty
// arguments and an optional channel list, e.g. "VOLT 5.0, (@1,2)".
func Command(keyword string, args []string, channels ...int) string {
	return build(keyword, args, channels)
}

// Query returns a SCPI query, the keyword suffixed with '?', e.g.
// "MEAS:VOLT? (@1)".
func Query(keyword string, args []string, channels ...int) string {
	return build(keyword+"?", args, channels)
}

// Args is a shorthand for building an argument list.
func Args(args ...string) []string {
	return args
}

func build(keyword string, args []string, channels []int) string {
	var b strings.Builder
	b.WriteString(keyword)

	argStr := joinNonEmpty(args)
	if argStr != "" {
		b.WriteByte(' ')
		b.WriteString(argStr)
	}

	chanStr := channelList(channels)
	if chanStr != "" {
		if argStr != "" {
			b.WriteByte(',')
		}
		b.WriteString(" (@")
		b.WriteString(chanStr)
		b.WriteByte(')')
	}

	return b.String()
}

func joinNonEmpty(args []string) string {
	kept := make([]string, 0, len(args))
	for _, a := range args {
		if a != "" {
			kept = append(kept, a)
		}
	}

	return strings.Join(kept, ",")
}

// channelList drops zero channels, which address no channel.
func channelList(channels []int) string {
	kept := make([]string, 0, len(channels))
	for _, ch := range channels {
		if ch != 0 {
			kept = append(kept, strconv.Itoa(ch))
		}
	}

	return strings.Join(kept, ",")
}

// ParseResponse trims the trailing newline from resp, splits it on commas
// and converts every field with conv.
func ParseResponse[T any](resp string, conv func(string) (T, error)) ([]T, error) {
	fields := strings.Split(strings.Trim(resp, "\n"), ",")

	out := make([]T, 0, len(fields))
	for i, f := range fields {
		v, err := conv(f)
		if err != nil {
			return nil, fmt.Errorf("scpi: field %d of %q: %w", i, resp, err)
		}
		out = append(out, v)
	}

	return out, nil
}

// ParseFloat parses a single numeric response such as "+1.23450000E-03".
func ParseFloat(resp string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("scpi: parse %q: %w", resp, err)
	}

	return v, nil
}

// ParseFloats parses a comma-separated numeric response.
func ParseFloats(resp string) ([]float64, error) {
	return ParseResponse(resp, ParseFloat)
}

// ParseBool parses "1"/"0" and "ON"/"OFF" responses.
func ParseBool(resp string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(resp)) {
	case "1", "ON":
		return true, nil
	case "0", "OFF":
		return false, nil
	default:
		return false, fmt.Errorf("scpi: parse bool %q", resp)
	}
}
