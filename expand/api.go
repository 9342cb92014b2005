// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"context"

	"github.com/cjsh-project/cjsh/syntax"
)

// recoverErr turns a panic raised via Config.err back into a normal error
// return, the way the rest of the package-level API in this file reports
// failures to callers that don't want to install an OnError callback.
func recoverErr(errp *error) {
	if r := recover(); r != nil {
		if we, ok := r.(wordExpandError); ok {
			*errp = we.err
			return
		}
		panic(r)
	}
}

// prepareConfig makes a nil Config usable as a zero Config, and gives a
// Config with a nil Env an environment in which no variables are set.
func prepareConfig(cfg *Config) *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Env == nil {
		cfg.Env = FuncEnviron(func(string) string { return "" })
	}
	return cfg
}

// Literal expands a word as if it were within double quotes, without field
// splitting or globbing; useful for expanding a single argument such as a
// redirection target.
func Literal(cfg *Config, word *syntax.Word) (s string, err error) {
	cfg = prepareConfig(cfg)
	defer recoverErr(&err)
	return cfg.ExpandLiteral(context.Background(), word), nil
}

// Document is like Literal, but intended for heredoc bodies: the same
// parameter, command, and arithmetic substitutions apply, with no glob
// expansion.
func Document(cfg *Config, word *syntax.Word) (s string, err error) {
	cfg = prepareConfig(cfg)
	defer recoverErr(&err)
	return cfg.ExpandLiteral(context.Background(), word), nil
}

// Pattern expands a word into a shell pattern, suitable for use with
// [syntax.TranslatePattern]; any characters which were quoted or escaped
// are left as literals rather than pattern syntax.
func Pattern(cfg *Config, word *syntax.Word) (s string, err error) {
	cfg = prepareConfig(cfg)
	defer recoverErr(&err)
	return cfg.ExpandPattern(context.Background(), word), nil
}

// Fields expands a number of words as if they were arguments in a shell
// command, including brace expansion, field splitting, and globbing.
func Fields(cfg *Config, words ...*syntax.Word) (fields []string, err error) {
	cfg = prepareConfig(cfg)
	defer recoverErr(&err)
	return cfg.ExpandFields(context.Background(), words...), nil
}

// Format expands a printf-style format string, as used by the printf
// builtin, returning the result along with the number of args consumed.
func Format(cfg *Config, format string, args []string) (string, int, error) {
	return cfg.ExpandFormat(format, args)
}

// ReadFields splits s into fields the way word splitting would, driven by
// cfg's current IFS. If raw, backslashes are not treated as escape
// characters.
func ReadFields(cfg *Config, s string, n int, raw bool) []string {
	return cfg.ReadFields(s, n, raw)
}
