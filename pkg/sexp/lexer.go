package sexp

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// schematicLexer defines the lexical structure of KiCad S-expression files.
// Every token carries its byte offset, which the parser turns into node
// spans for verbatim round-tripping.
var schematicLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},

	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},

	// Quoted strings with backslash escapes.
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},

	// Everything else up to a delimiter is a bare symbol (identifiers,
	// numbers, uuids, yes/no flags).
	{Name: "Symbol", Pattern: `[^\s()"]+`},
})

var (
	tokWhitespace = schematicLexer.Symbols()["Whitespace"]
	tokLParen     = schematicLexer.Symbols()["LParen"]
	tokRParen     = schematicLexer.Symbols()["RParen"]
	tokString     = schematicLexer.Symbols()["String"]
	tokSymbol     = schematicLexer.Symbols()["Symbol"]
)
