package syntax

import "io"

// Parser is a reusable configuration wrapper around [Parse]. It exists so
// that callers that read from an [io.Reader] — the shell's own script files,
// -c strings, and stdin — don't each have to remember to call [io.ReadAll]
// and thread [ParseMode] flags through by hand.
type Parser struct {
	mode ParseMode
}

// ParserOption configures a [Parser] returned by [NewParser].
type ParserOption func(*Parser)

// KeepComments makes the parser attach comments to the resulting [File].
func KeepComments(keep bool) ParserOption {
	return func(p *Parser) {
		if keep {
			p.mode |= ParseComments
		} else {
			p.mode &^= ParseComments
		}
	}
}

// Posix restricts parsing to the POSIX grammar, rejecting bash extensions
// such as `[[ ]]`, `((...))`, and `declare`.
func Posix(enable bool) ParserOption {
	return func(p *Parser) {
		if enable {
			p.mode |= PosixConformant
		} else {
			p.mode &^= PosixConformant
		}
	}
}

// NewParser builds a [Parser] with the given options applied over sensible
// interactive-shell defaults (bash-compatible grammar, comments discarded).
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads all of r and parses it as a single logical program named name.
func (p *Parser) Parse(r io.Reader, name string) (*File, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(src, name, p.mode)
}

// Document reads all of r and parses it as a single word, e.g. a
// here-document body or a one-off fixture, without requiring it to form a
// complete statement.
func (p *Parser) Document(r io.Reader) (*Word, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	ip := parserFree.Get().(*parser)
	ip.reset()
	alloc := &struct {
		f File
		l [16]int
	}{}
	ip.f = &alloc.f
	ip.f.Lines = alloc.l[:1]
	ip.src, ip.mode = src, p.mode
	ip.next()
	w := ip.word()
	err = ip.err
	parserFree.Put(ip)
	return &w, err
}

// WordsSeq reads all of r and parses it as a sequence of words, e.g. an
// alias definition's replacement text, stopping once every word up to EOF
// has been yielded. Each yielded word carries its own parse error, if any;
// a non-nil error ends the sequence.
func (p *Parser) WordsSeq(r io.Reader) func(func(*Word, error) bool) {
	return func(yield func(*Word, error) bool) {
		src, err := io.ReadAll(r)
		if err != nil {
			yield(nil, err)
			return
		}
		ip := parserFree.Get().(*parser)
		ip.reset()
		alloc := &struct {
			f File
			l [16]int
		}{}
		ip.f = &alloc.f
		ip.f.Lines = alloc.l[:1]
		ip.src, ip.mode = src, p.mode
		ip.next()
		defer parserFree.Put(ip)
		for ip.tok != _EOF {
			w := ip.word()
			if ip.err != nil {
				yield(nil, ip.err)
				return
			}
			if !yield(&w, nil) {
				return
			}
		}
	}
}
