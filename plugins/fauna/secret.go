package fauna

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var (
	// secretRE matches the key line printed by `fauna create-key`, e.g. "  secret: fnAE...".
	// The leading class also covers vertical tab, the \x1c-\x1f separators, NEL and
	// unicode spaces such as NBSP.
	secretRE = regexp.MustCompile(`^[\s\v\x1c-\x1f\x85\p{Z}]*secret: ([a-zA-Z0-9_-]+)`)

	// lineBreakRE splits on every line boundary a terminal tool may emit, including a
	// lone \r used to redraw progress lines.
	lineBreakRE = regexp.MustCompile(`\r\n|[\n\r\v\f\x1c-\x1e\x85\x{2028}\x{2029}]`)
)

// ExtractSecret returns the secret of the first line of out that carries one.
func ExtractSecret(out string) (string, bool) {
	for _, line := range lineBreakRE.Split(out, -1) {
		if m := secretRE.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// RedactSecrets replaces every secret value in out, keeping the rest of the text,
// line breaks included, intact.
func RedactSecrets(out string) string {
	var b strings.Builder
	start := 0
	for _, loc := range append(lineBreakRE.FindAllStringIndex(out, -1), []int{len(out), len(out)}) {
		b.WriteString(redactLine(out[start:loc[0]]))
		b.WriteString(out[loc[0]:loc[1]])
		start = loc[1]
	}
	return b.String()
}

func redactLine(line string) string {
	loc := secretRE.FindStringSubmatchIndex(line)
	if loc == nil {
		return line
	}
	return line[:loc[2]] + redacted + line[loc[3]:]
}
