package ast

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// ConditionLexer tokenizes join conditions such as
// "p.packageType = pt.id AND p.owner = u.id".
var ConditionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ref", Pattern: `[^\s.]+\.\S+`},
	{Name: "Text", Pattern: `\S+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var (
	refToken        = ConditionLexer.Symbols()["Ref"]
	textToken       = ConditionLexer.Symbols()["Text"]
	whitespaceToken = ConditionLexer.Symbols()["Whitespace"]
)

// Token is one element of a condition: either a reference to resolve or
// literal text (operators, AND, constants) emitted unchanged.
type Token struct {
	Text  string
	Ref   Ref
	IsRef bool
}

// Condition is a tokenized join condition.
type Condition struct {
	Raw    string
	Tokens []Token
}

// Refs returns the references in the condition in order.
func (c Condition) Refs() []Ref {
	var refs []Ref
	for _, tok := range c.Tokens {
		if tok.IsRef {
			refs = append(refs, tok.Ref)
		}
	}
	return refs
}

// ParseCondition tokenizes raw on whitespace, splitting dotted tokens into
// references.
func ParseCondition(raw string) (Condition, error) {
	lex, err := ConditionLexer.Lex("", strings.NewReader(raw))
	if err != nil {
		return Condition{}, fmt.Errorf("failed to tokenize condition %q: %w", raw, err)
	}

	cond := Condition{Raw: raw}
	for {
		tok, err := lex.Next()
		if err != nil {
			return Condition{}, fmt.Errorf("failed to tokenize condition %q: %w", raw, err)
		}
		if tok.EOF() {
			break
		}

		switch tok.Type {
		case refToken:
			cond.Tokens = append(cond.Tokens, Token{Text: tok.Value, Ref: ParseRef(tok.Value), IsRef: true})
		case textToken:
			cond.Tokens = append(cond.Tokens, Token{Text: tok.Value})
		case whitespaceToken:
		}
	}
	return cond, nil
}

// MustParseCondition is like ParseCondition but panics on error.
func MustParseCondition(raw string) Condition {
	c, err := ParseCondition(raw)
	if err != nil {
		panic(err)
	}
	return c
}
