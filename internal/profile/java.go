package profile

import (
	"strings"
	"unicode"
)

// defaultJavaClass is used when the source declares no top-level type.
const defaultJavaClass = "Main"

// DeriveJavaEntry returns the name of the class the Java source must be
// saved and launched as: the first public top-level type, else the first
// top-level type, else Main. Comments and literals are ignored.
func DeriveJavaEntry(source string) string {
	tokens := javaTokens(stripJavaNoise(source))

	var first string
	depth := 0
	public := false
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case "{":
			depth++
			continue
		case "}":
			if depth > 0 {
				depth--
			}
			public = false
			continue
		case ";":
			public = false
			continue
		}
		if depth != 0 {
			continue
		}
		if tok == "public" {
			public = true
			continue
		}
		if !isTypeKeyword(tok) || i+1 >= len(tokens) || !isIdentifier(tokens[i+1]) {
			continue
		}

		name := tokens[i+1]
		if public {
			return name
		}
		if first == "" {
			first = name
		}
		i++
	}

	if first != "" {
		return first
	}
	return defaultJavaClass
}

func isTypeKeyword(tok string) bool {
	switch tok {
	case "class", "interface", "enum", "record":
		return true
	}
	return false
}

func isIdentifier(tok string) bool {
	if tok == "" {
		return false
	}
	for i, r := range tok {
		if r == '_' || r == '$' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// javaTokens splits source into identifiers and single punctuation runes.
func javaTokens(src string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}

// stripJavaNoise blanks out comments, string, text block and char literals.
func stripJavaNoise(src string) string {
	var out strings.Builder
	out.Grow(len(src))

	n := len(src)
	for i := 0; i < n; {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			for i < n && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return out.String()
			}
			i += end + 4
			out.WriteByte(' ')
		case strings.HasPrefix(src[i:], `"""`):
			end := strings.Index(src[i+3:], `"""`)
			if end < 0 {
				return out.String()
			}
			i += end + 6
			out.WriteByte(' ')
		case src[i] == '"' || src[i] == '\'':
			quote := src[i]
			i++
			for i < n && src[i] != quote && src[i] != '\n' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			i++
			out.WriteByte(' ')
		default:
			out.WriteByte(src[i])
			i++
		}
	}
	return out.String()
}
