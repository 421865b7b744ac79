// Package normalize blanks out comments and string/char literals in C-family
// source so that line-oriented scanners are not confused by their contents.
//
// The output always has the same length and the same newline positions as the
// input, so byte offsets and line numbers computed on normalized text are
// valid for the original file.
package normalize

type state int

const (
	stCode state = iota
	stLineComment
	stBlockComment
	stString
	stChar
)

// Normalize returns a copy of src in which:
//   - block and line comments are replaced by spaces,
//   - string literals become "" followed by padding spaces,
//   - char literals become an empty pair of single quotes plus padding.
//
// Newlines are never removed. An unterminated string or char literal ends at
// the next newline.
func Normalize(src []byte) []byte {
	out := make([]byte, len(src))
	st := stCode
	litStart := 0

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch st {
		case stCode:
			switch {
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				out[i], out[i+1] = ' ', ' '
				i++
				st = stBlockComment
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				out[i], out[i+1] = ' ', ' '
				i++
				st = stLineComment
			case c == '"':
				litStart = i
				out[i] = c
				st = stString
			case c == '\'' && inNumber(src, i):
				// C++14 digit separator, as in 1'000 or 0xFF'FF.
				out[i] = c
			case c == '\'':
				litStart = i
				out[i] = c
				st = stChar
			default:
				out[i] = c
			}

		case stLineComment:
			if c == '\n' {
				out[i] = c
				st = stCode
			} else {
				out[i] = ' '
			}

		case stBlockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				st = stCode
			} else {
				out[i] = blank(c)
			}

		case stString, stChar:
			quote := byte('"')
			if st == stChar {
				quote = '\''
			}
			switch {
			case c == '\\' && i+1 < len(src):
				out[i] = ' '
				i++
				out[i] = blank(src[i])
			case c == quote:
				closeLiteral(out, litStart, i, quote)
				st = stCode
			case c == '\n':
				out[litStart] = ' '
				out[i] = c
				st = stCode
			default:
				out[i] = ' '
			}
		}
	}
	return out
}

// String is Normalize for string input.
func String(src string) string {
	return string(Normalize([]byte(src)))
}

// closeLiteral rewrites the literal spanning out[start..end] as an empty
// literal followed by padding. Newlines inside the span are kept in place.
func closeLiteral(out []byte, start, end int, quote byte) {
	out[start] = quote
	for j := start + 1; j <= end; j++ {
		if out[j] != '\n' {
			out[j] = ' '
		}
	}
	if out[start+1] == '\n' {
		// Line continuation right after the opening quote; keep the closing
		// quote at its original offset instead.
		out[end] = quote
		return
	}
	out[start+1] = quote
}

// inNumber reports whether the quote at src[i] continues a numeric literal:
// the token running up to it starts with a digit.
func inNumber(src []byte, i int) bool {
	j := i
	for j > 0 && isNumberByte(src[j-1]) {
		j--
	}
	return j < i && src[j] >= '0' && src[j] <= '9'
}

func isNumberByte(c byte) bool {
	return c == '\'' || c == '_' || c == '.' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func blank(c byte) byte {
	if c == '\n' {
		return '\n'
	}
	return ' '
}
