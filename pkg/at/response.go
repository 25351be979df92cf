package at

import (
	"fmt"
	"strconv"
	"strings"
)

// Final result codes as they appear in raw responses.
const (
	ResultOK    = "OK\r\n"
	ResultError = "ERROR\r\n"
	CMEPrefix   = "+CME ERROR:"
)

// CMEError is a modem reported command execution error.
type CMEError struct {
	Code int
}

// Error implements error.
func (e *CMEError) Error() string {
	return fmt.Sprintf("+CME ERROR: %d", e.Code)
}

// HasOK tells whether the response carries the OK result code.
func HasOK(resp string) bool {
	return strings.Contains(resp, ResultOK)
}

// ParseCMEError extracts the numeric code of a "+CME ERROR: <n>" result.
func ParseCMEError(resp string) (int, bool) {
	idx := strings.Index(resp, CMEPrefix)
	if idx < 0 {
		return 0, false
	}
	rest := resp[idx+len(CMEPrefix):]
	if end := strings.IndexAny(rest, "\r\n"); end >= 0 {
		rest = rest[:end]
	}
	code, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return code, true
}

// Body returns the text preceding the OK result code.
func Body(resp string) (string, bool) {
	idx := strings.Index(resp, ResultOK)
	if idx < 0 {
		return "", false
	}
	return resp[:idx], true
}

// Lines splits a response body into non-empty lines.
func Lines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\r\n") {
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// SplitParams splits an information response ("%CMNG: 1,0,\"a,b\"") into
// its parameters. The "<name>: " prefix is dropped, commas inside quoted
// strings don't split and quotes are kept.
func SplitParams(line string) []string {
	if idx := strings.Index(line, ": "); idx >= 0 && !strings.Contains(line[:idx], "\"") {
		line = line[idx+2:]
	}
	var (
		params []string
		quoted bool
		start  int
	)
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				params = append(params, strings.TrimSpace(line[start:i]))
				start = i + 1
			}
		}
	}
	return append(params, strings.TrimSpace(line[start:]))
}

// Unquote strips surrounding double quotes.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return strings.Trim(s, "\"")
}

// Quote wraps s in double quotes.
func Quote(s string) string {
	return "\"" + s + "\""
}
