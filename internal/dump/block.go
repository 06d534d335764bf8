package dump

// ExtractBalancedBlock returns the block that opens at text[start] and closes at its
// matching delimiter, inclusive, together with the index just past the block.
//
// Delimiters inside single- or double-quoted literals do not count, and a backslash
// escapes the next character. If text[start] is not '(' or '{' the result is an empty
// block at start. An unterminated block yields everything up to the end of text.
func ExtractBalancedBlock(text string, start int) (string, int) {
	if start < 0 || start >= len(text) {
		return "", start
	}

	var opener, closer byte
	switch text[start] {
	case '(':
		opener, closer = '(', ')'
	case '{':
		opener, closer = '{', '}'
	default:
		return "", start
	}

	depth := 0
	var quote byte // Active quote character, 0 outside literals
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}

		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1], i + 1
			}
		}
	}

	return text[start:], len(text)
}
