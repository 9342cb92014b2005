package syntax

// defaultPos is the zero Pos, used by the various *First/*LastEnd helpers
// in nodes.go when a node list is empty and there's no real position to
// report. It mirrors the exported DefaultPos.
const defaultPos Pos = 0

// illegalTok is the internal spelling the lexer/parser use for ILLEGAL.
const illegalTok = ILLEGAL

// _EOF, _Newl, _Lit and _LitWord are lexer-only pseudo-tokens: they never
// appear as a grammatical operator, so they live outside the ILLEGAL..GNOT
// range reserved for real operators/reserved words in tokens.go.
const (
	_EOF Token = iota + 900
	_Newl
	_Lit
	_LitWord
)

// tildeTok backs BitNegation. Bash's arithmetic bitwise-not ("~") has no
// entry of its own in the token table below it; it's carried here rather
// than added to tokens.go's table since no lexer path currently emits it.
const tildeTok Token = 901

// usrOwnTok and grpOwnTok back TsUsrOwn and TsGrpOwn, bash's -O/-G test
// operators. Like tildeTok, they have no lexer token of their own since
// the classic `test`/`[` parser recognizes these flags directly from
// their literal "-O"/"-G" spelling rather than through the tokenizer.
const (
	usrOwnTok Token = 902
	grpOwnTok Token = 903
)

// The lowercase identifiers below are the internal names the lexer and
// parser use when they produce or compare a Token; each is just a
// same-valued alias for the exported name in tokens.go's const block,
// kept distinct so the grammar code reads close to the character it
// matches (e.g. leftParen rather than LPAREN).
const (
	sglQuote = SQUOTE
	dblQuote = DQUOTE
	bckQuote = BQUOTE

	and    = AND
	andAnd = LAND
	or     = OR
	orOr   = LOR

	assgn         = ASSIGN
	dollar        = DOLLAR
	dollSglQuote  = DOLLSQ
	dollDblQuote  = DOLLDQ
	dollBrace     = DOLLBR
	dollBrack     = DOLLBK
	dollParen     = DOLLPR
	dollDblParen  = DOLLDP
	dblLeftParen  = DLPAREN
	leftBrace     = LBRACE
	leftParen     = LPAREN

	rightBrace    = RBRACE
	rightBrack    = RBRACK
	rightParen    = RPAREN
	semicolon     = SEMICOLON
	dblSemicolon  = DSEMICOLON
	semiFall      = SEMIFALL
	dblSemiFall   = DSEMIFALL
	colon         = COLON

	rdrIn  = LSS
	rdrOut = GTR
	hdoc   = SHL
	appOut = SHR

	plus      = ADD
	minus     = SUB
	perc      = REM
	star      = MUL
	slash     = QUO
	caret     = XOR
	exclMark  = NOT
	addAdd    = INC
	subSub    = DEC
	power     = POW
	comma     = COMMA
	equal     = EQL
	nequal    = NEQ
	lequal    = LEQ
	gequal    = GEQ

	addAssgn = ADDASSGN
	subAssgn = SUBASSGN
	mulAssgn = MULASSGN
	quoAssgn = QUOASSGN
	remAssgn = REMASSGN
	andAssgn = ANDASSGN
	orAssgn  = ORASSGN
	xorAssgn = XORASSGN
	shlAssgn = SHLASSGN
	shrAssgn = SHRASSGN

	pipeAll   = PIPEALL
	rdrInOut  = RDRINOUT
	dplIn     = DPLIN
	dplOut    = DPLOUT
	clbOut    = CLBOUT
	dashHdoc  = DHEREDOC
	wordHdoc  = WHEREDOC
	cmdIn     = CMDIN
	cmdOut    = CMDOUT
	rdrAll    = RDRALL
	appAll    = APPALL

	colPlus   = CADD
	colMinus  = CSUB
	quest     = QUEST
	colQuest  = CQUEST
	colAssgn  = CASSIGN
	dblPerc   = DREM
	hash      = HASH
	dblHash   = DHASH
	leftBrack = LBRACK
	dblQuo    = DQUO
	dblCaret  = DXOR
	dblComma  = DCOMMA

	tsExists  = TEXISTS
	tsRegFile = TREGFILE
	tsDirect  = TDIRECT
	tsCharSp  = TCHARSP
	tsBlckSp  = TBLCKSP
	tsNmPipe  = TNMPIPE
	tsSocket  = TSOCKET
	tsSmbLink = TSMBLINK
	tsGIDSet  = TSGIDSET
	tsUIDSet  = TSUIDSET
	tsRead    = TREAD
	tsWrite   = TWRITE
	tsExec    = TEXEC
	tsNoEmpty = TNOEMPTY
	tsFdTerm  = TFDTERM
	tsEmpStr  = TEMPSTR
	tsNempStr = TNEMPSTR
	tsOptSet  = TOPTSET
	tsVarSet  = TVARSET
	tsRefVar  = TNRFVAR

	tsReMatch = TREMATCH
	tsNewer   = TNEWER
	tsOlder   = TOLDER
	tsDevIno  = TDEVIND
	tsEql     = TEQL
	tsNeq     = TNEQ
	tsLeq     = TLEQ
	tsGeq     = TGEQ
	tsLss     = TLSS
	tsGtr     = TGTR
)

// BinAritOperator and UnAritOperator are plain aliases for Token, not
// distinct named types: BinaryArithm.Op and UnaryArithm.Op are built and
// walked throughout parser.go as bare Token values (e.g. Op: p.tok,
// recursed into arithmExpr(b.Op, ...) whose parameter is itself Token), so
// giving these a genuinely distinct underlying type would force a cast at
// every one of those sites. An alias keeps parser.go's Token-based
// plumbing untouched while still giving callers like expand's arithmetic
// evaluator a self-documenting parameter type.
type BinAritOperator = Token
type UnAritOperator = Token

// Exported, Go-identifier-cased names for the arithmetic operators, used
// by BinaryArithm.Op / UnaryArithm.Op and by expand's arithmetic
// evaluator. Plus and Minus name the unary +/- forms; Add and Sub name
// the same tokens used as binary operators.
const (
	Not         = NOT
	BitNegation = tildeTok
	Plus        = ADD
	Minus       = SUB
	Inc         = INC
	Dec         = DEC

	Add   = ADD
	Sub   = SUB
	Mul   = MUL
	Quo   = QUO
	Rem   = REM
	Pow   = POW
	Comma = COMMA

	Eql = EQL
	Neq = NEQ
	Leq = LEQ
	Geq = GEQ
	Lss = LSS
	Gtr = GTR

	And = AND
	Or  = OR
	Xor = XOR
	Shl = SHL
	Shr = SHR

	AndArit = LAND
	OrArit  = LOR

	Assgn    = ASSIGN
	AddAssgn = ADDASSGN
	SubAssgn = SUBASSGN
	MulAssgn = MULASSGN
	QuoAssgn = QUOASSGN
	RemAssgn = REMASSGN
	AndAssgn = ANDASSGN
	OrAssgn  = ORASSGN
	XorAssgn = XORASSGN
	ShlAssgn = SHLASSGN
	ShrAssgn = SHRASSGN

	TernQuest = QUEST
	TernColon = COLON
)

// The node types in nodes.go narrow Token to the specific operators valid
// in each grammatical position, so a *Redirect.Op can't accidentally hold
// a case-pattern operator and vice versa. Each is still backed by the same
// Token constants and string table.

// RedirOperator is the kind of redirection operator used in a Redirect.
type RedirOperator Token

const (
	RdrOut   = RedirOperator(GTR)
	AppOut   = RedirOperator(SHR)
	RdrIn    = RedirOperator(LSS)
	RdrInOut = RedirOperator(RDRINOUT)
	DplIn    = RedirOperator(DPLIN)
	DplOut   = RedirOperator(DPLOUT)
	ClbOut   = RedirOperator(CLBOUT)
	Hdoc     = RedirOperator(SHL)
	DashHdoc = RedirOperator(DHEREDOC)
	WordHdoc = RedirOperator(WHEREDOC)
	RdrAll   = RedirOperator(RDRALL)
	AppAll   = RedirOperator(APPALL)
)

func (o RedirOperator) String() string { return Token(o).String() }

// ProcOperator is the kind of process substitution used in a ProcSubst.
type ProcOperator Token

const (
	CmdIn  = ProcOperator(CMDIN)
	CmdOut = ProcOperator(CMDOUT)
)

func (o ProcOperator) String() string { return Token(o).String() }

// GlobOperator is the kind of extended pattern operator used in an ExtGlob.
type GlobOperator Token

const (
	GlobZeroOrOne  = GlobOperator(GQUEST)
	GlobZeroOrMore = GlobOperator(GMUL)
	GlobOneOrMore  = GlobOperator(GADD)
	GlobOne        = GlobOperator(GAT)
	GlobExcept     = GlobOperator(GNOT)
)

func (o GlobOperator) String() string { return Token(o).String() }

// ParExpOperator is the kind of parameter expansion operator used in an
// Expansion.
type ParExpOperator Token

const (
	SubstPlus      = ParExpOperator(ADD)
	SubstColPlus   = ParExpOperator(CADD)
	SubstMinus     = ParExpOperator(SUB)
	SubstColMinus  = ParExpOperator(CSUB)
	SubstQuest     = ParExpOperator(QUEST)
	SubstColQuest  = ParExpOperator(CQUEST)
	SubstAssgn     = ParExpOperator(ASSIGN)
	SubstColAssgn  = ParExpOperator(CASSIGN)
	RemSmallSuffix = ParExpOperator(REM)
	RemLargeSuffix = ParExpOperator(DREM)
	RemSmallPrefix = ParExpOperator(HASH)
	RemLargePrefix = ParExpOperator(DHASH)
	UpperFirst     = ParExpOperator(XOR)
	UpperAll       = ParExpOperator(DXOR)
	LowerFirst     = ParExpOperator(COMMA)
	LowerAll       = ParExpOperator(DCOMMA)
	OtherParamOps  = ParExpOperator(QUO)
)

func (o ParExpOperator) String() string { return Token(o).String() }

// CaseOperator is the kind of match used in a PatternList.
type CaseOperator Token

const (
	DblSemicolon = CaseOperator(DSEMICOLON)
	SemiFall     = CaseOperator(SEMIFALL)
	DblSemiFall  = CaseOperator(DSEMIFALL)
)

func (o CaseOperator) String() string { return Token(o).String() }

// BinCmdOperator is the kind of command connective used in a BinaryCmd.
type BinCmdOperator Token

const (
	AndStmt = BinCmdOperator(LAND)
	OrStmt  = BinCmdOperator(LOR)
	Pipe    = BinCmdOperator(OR)
	PipeAll = BinCmdOperator(PIPEALL)
)

func (o BinCmdOperator) String() string { return Token(o).String() }

// BinTestOperator is the kind of binary comparison used in a BinaryTest.
type BinTestOperator Token

const (
	TsMatch   = BinTestOperator(ASSIGN)
	TsNoMatch = BinTestOperator(NEQ)
	TsNewer   = BinTestOperator(TNEWER)
	TsOlder   = BinTestOperator(TOLDER)
	AndTest   = BinTestOperator(LAND)
	OrTest    = BinTestOperator(LOR)
)

func (o BinTestOperator) String() string { return Token(o).String() }

// UnTestOperator is the kind of unary test used in a UnaryTest.
type UnTestOperator Token

const (
	TsNot      = UnTestOperator(NOT)
	TsExists   = UnTestOperator(TEXISTS)
	TsRegFile  = UnTestOperator(TREGFILE)
	TsDirect   = UnTestOperator(TDIRECT)
	TsReadable = UnTestOperator(TREAD)
	TsNoEmpty  = UnTestOperator(TNOEMPTY)
	TsEmpStr   = UnTestOperator(TEMPSTR)
	TsNempStr  = UnTestOperator(TNEMPSTR)
	TsUsrOwn   = UnTestOperator(usrOwnTok)
	TsGrpOwn   = UnTestOperator(grpOwnTok)
)

func (o UnTestOperator) String() string { return Token(o).String() }
