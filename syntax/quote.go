package syntax

import (
	"fmt"
	"strings"
)

// LangVariant describes which shell dialect a parser or printer should
// target. Only LangBash is exercised by this module's own code; the
// others are kept so callers porting scripts between dialects have
// somewhere to grow into.
type LangVariant int

const (
	LangBash LangVariant = iota
	LangPOSIX
	LangMirBSDKorn
	LangAuto
)

func (l LangVariant) String() string {
	switch l {
	case LangPOSIX:
		return "POSIX shell"
	case LangMirBSDKorn:
		return "mksh"
	case LangAuto:
		return "auto"
	default:
		return "bash"
	}
}

// shellSpecial is the set of bytes that force a word to be single-quoted
// when round-tripped through Quote.
const shellSpecial = "\t\n '\"$`\\|&;()<>*?[]#~=%!{}"

// Quote returns a copy of s quoted so that a shell under lang reads it
// back as the literal string s. It errors only when s contains a NUL
// byte, which no shell quoting can represent.
func Quote(s string, lang LangVariant) (string, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return "", fmt.Errorf("cannot quote a string containing a NUL byte")
	}
	if s == "" {
		return "''", nil
	}
	if !strings.ContainsAny(s, shellSpecial) {
		return s, nil
	}
	var buf strings.Builder
	buf.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			buf.WriteString(`'\''`)
			continue
		}
		buf.WriteRune(r)
	}
	buf.WriteByte('\'')
	return buf.String(), nil
}

var keywords = map[string]bool{
	"if": true, "then": true, "elif": true, "else": true, "fi": true,
	"while": true, "until": true, "for": true, "in": true, "do": true,
	"done": true, "case": true, "esac": true, "function": true,
	"select": true, "time": true, "coproc": true,
	"[[": true, "]]": true, "{": true, "}": true, "!": true,
}

// IsKeyword reports whether s is a reserved shell keyword rather than an
// ordinary command name.
func IsKeyword(s string) bool {
	return keywords[s]
}
