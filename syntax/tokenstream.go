package syntax

// TokenKind classifies a flattened token produced by Tokenize. It is
// coarser than the internal Token enum: Tokenize is meant for callers that
// want a simple lexical view of a command line (history search, a
// completion engine, a syntax highlighter) rather than the full AST.
type TokenKind uint8

const (
	KindWord TokenKind = iota
	KindOperator
	KindKeyword
)

func (k TokenKind) String() string {
	switch k {
	case KindOperator:
		return "operator"
	case KindKeyword:
		return "keyword"
	default:
		return "word"
	}
}

// FlatToken is one lexical unit of a command line: its raw source text,
// the offsets it spans, and — for words — how it was quoted.
type FlatToken struct {
	Kind  TokenKind
	Value string
	Quote QuoteTag
	Start Pos
	End   Pos
}

// Tokenize parses src and flattens the resulting AST into an ordered list
// of FlatTokens. It exists for callers that want the spec-shaped
// {kind, text, quote_tag} view of a line — a history viewer, a completion
// engine, a one-off linter — without driving the parser's own recursive
// descent themselves. It never mutates or bypasses the real parser: it
// runs Parse and then walks the result.
func Tokenize(src []byte) ([]FlatToken, error) {
	f, err := Parse(src, "", 0)
	if err != nil {
		return nil, err
	}
	tv := &tokenVisitor{src: src}
	Walk(tv, f)
	return tv.out, nil
}

type tokenVisitor struct {
	src []byte
	out []FlatToken
}

func (tv *tokenVisitor) emit(kind TokenKind, quote QuoteTag, start, end Pos) {
	if end < start || int(end) > len(tv.src) {
		return
	}
	tv.out = append(tv.out, FlatToken{
		Kind:  kind,
		Value: string(tv.src[int(start):int(end)]),
		Quote: quote,
		Start: start,
		End:   end,
	})
}

func (tv *tokenVisitor) Visit(node Node) Visitor {
	switch x := node.(type) {
	case *Word:
		tv.emit(KindWord, WordQuoteTag(x), x.Pos(), x.End())
		return nil // don't descend into the parts we already flattened
	case *Redirect:
		tv.emit(KindOperator, QuoteNone, x.OpPos, posAddStr(x.OpPos, x.Op.String()))
	case *BinaryCmd:
		tv.emit(KindOperator, QuoteNone, x.OpPos, posAddStr(x.OpPos, x.Op.String()))
	}
	return tv
}
