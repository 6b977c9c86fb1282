package m3u

import "strings"

// Attributes returns every key="value" pair found on an EXTINF line.
//
// Keys are only recognised outside quoted text, so a value that itself contains `tvg-id="`
// cannot produce a second match. A value ends at the first quote not preceded by a backslash;
// \" and \\ are unescaped. The first occurrence of a key wins. An unterminated value ends the
// scan and is dropped.
func Attributes(line string) map[string]string {
	var attrs = make(map[string]string)
	var n = len(line)
	var keyStart = 0

	for i := 0; i < n; i++ {
		switch line[i] {
		case ' ', '\t', ',', ':':
			keyStart = i + 1

		case '=':
			if i+1 >= n || line[i+1] != '"' {
				continue
			}

			value, end, ok := readQuoted(line, i+2)
			if !ok {
				return attrs
			}

			var key = line[keyStart:i]
			if _, seen := attrs[key]; len(key) > 0 && !seen {
				attrs[key] = value
			}

			i = end
			keyStart = end + 1

		case '"':
			// Quoted text outside an attribute, e.g. in the title.
			_, end, ok := readQuoted(line, i+1)
			if !ok {
				return attrs
			}
			i = end
			keyStart = end + 1
		}
	}

	return attrs
}

// readQuoted reads from start up to the closing quote. It returns the unescaped value and the
// index of the closing quote.
func readQuoted(line string, start int) (value string, end int, ok bool) {
	var sb strings.Builder
	var escaped = false

	for i := start; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\'):
			if !escaped {
				sb.WriteString(line[start:i])
				escaped = true
			}
			sb.WriteByte(line[i+1])
			i++
		case c == '"':
			if !escaped {
				return line[start:i], i, true
			}
			return sb.String(), i, true
		case escaped:
			sb.WriteByte(c)
		}
	}

	return "", -1, false
}
