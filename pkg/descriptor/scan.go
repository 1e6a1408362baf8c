package descriptor

// span is a half-open byte range [start, end) of the
// descriptor text.
type span struct {
	start int
	end   int
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func skipSpace(text string, i int) int {
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	return i
}

// stringEnd returns the index just past the closing quote of
// the string starting at text[i], or -1 if it is unterminated.
func stringEnd(text string, i int) int {
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return -1
}

// closingBrace returns the index of the brace that balances
// the one at text[open], or -1 if the object never closes.
// Braces inside strings are ignored.
func closingBrace(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '"':
			end := stringEnd(text, i)
			if end < 0 {
				return -1
			}
			i = end - 1
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// keyValue looks at what follows the string token ending at end and,
// if the token is a key whose value is an object, returns the index
// of the opening and closing braces of that value.
func keyValue(text string, end int) (int, int, bool) {
	i := skipSpace(text, end)
	if i >= len(text) || text[i] != ':' {
		return 0, 0, false
	}
	i = skipSpace(text, i+1)
	if i >= len(text) || text[i] != '{' {
		return 0, 0, false
	}
	closing := closingBrace(text, i)
	if closing < 0 {
		return 0, 0, false
	}
	return i, closing, true
}

// findPair locates the first `"name": {...}` pair at or after from.
// The returned span covers the key, the object value, an optional
// trailing comma and any whitespace that follows.
func findPair(text, name string, from int) (span, bool) {
	for i := from; i < len(text); i++ {
		if text[i] != '"' {
			continue
		}
		end := stringEnd(text, i)
		if end < 0 {
			return span{}, false
		}
		if text[i+1:end-1] != name {
			i = end - 1
			continue
		}
		_, closing, ok := keyValue(text, end)
		if !ok {
			i = end - 1
			continue
		}
		tail := skipSpace(text, closing+1)
		if tail < len(text) && text[tail] == ',' {
			tail = skipSpace(text, tail+1)
		}
		return span{start: i, end: tail}, true
	}
	return span{}, false
}

// normalize drops any comma that is followed, across whitespace,
// by a closing brace or bracket. String contents are left alone.
func normalize(text string) string {
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '"':
			end := stringEnd(text, i)
			if end < 0 {
				return string(append(out, text[i:]...))
			}
			out = append(out, text[i:end]...)
			i = end - 1
			continue
		case ',':
			next := skipSpace(text, i+1)
			if next < len(text) && (text[next] == '}' || text[next] == ']') {
				continue
			}
		}
		out = append(out, c)
	}
	return string(out)
}
