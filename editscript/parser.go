package editscript

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"

	"github.com/mogaika/xformedit/sdf"
)

const (
	TOKEN_WORD = iota
	TOKEN_PATH
	TOKEN_NUMBER
	TOKEN_STRING
	TOKEN_NEWLINE
	TOKEN_COMMENT
)

var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	lexer.Add([]byte(`[a-zA-Z_][a-zA-Z0-9_]*`), getToken(TOKEN_WORD))
	lexer.Add([]byte(`/[a-zA-Z_][a-zA-Z0-9_]*(/[a-zA-Z_][a-zA-Z0-9_]*)*`), getToken(TOKEN_PATH))
	lexer.Add([]byte(`[\+\-]?[0-9]*\.?[0-9]+`), getToken(TOKEN_NUMBER))
	lexer.Add([]byte(`(\n|\r|\n\r)+`), getToken(TOKEN_NEWLINE))
	lexer.Add([]byte(`//[^\n]*`), getToken(TOKEN_COMMENT))
	lexer.Add([]byte(`( |\t)+`), skip)
	lexer.Add([]byte(`"(\\.|[^"])*"`), getToken(TOKEN_STRING))
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

// ParseScript splits text into statements, one per non empty line. The
// first word of a line is its verb.
func ParseScript(text []byte) ([]*Statement, error) {
	scanner, err := lexer.Scanner(text)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create lexer scanner")
	}

	result := make([]*Statement, 0, 16)

	var current *Statement
	for Itok, err, eos := scanner.Next(); !eos; Itok, err, eos = scanner.Next() {
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse token")
		}
		tok := Itok.(*lexmachine.Token)

		switch tok.Type {
		case TOKEN_WORD:
			if current == nil {
				current = &Statement{Verb: string(tok.Lexeme), Line: tok.StartLine}
				result = append(result, current)
			} else {
				current.AddArgs(string(tok.Lexeme))
			}
		case TOKEN_PATH:
			if current == nil {
				return nil, errors.Errorf("Missed verb on line %v (%q)", tok.StartLine, tok.Lexeme)
			}
			current.AddArgs(sdf.Path(tok.Lexeme))
		case TOKEN_NUMBER:
			if current == nil {
				return nil, errors.Errorf("Missed verb on line %v (%q)", tok.StartLine, tok.Lexeme)
			}
			if f, err := strconv.ParseFloat(string(tok.Lexeme), 64); err == nil {
				current.AddArgs(f)
			} else {
				return nil, errors.Errorf("Unknown number format on line %v (%q)", tok.StartLine, tok.Lexeme)
			}
		case TOKEN_STRING:
			if current == nil {
				return nil, errors.Errorf("Missed verb on line %v (%q)", tok.StartLine, tok.Lexeme)
			}
			if s, err := strconv.Unquote(string(tok.Lexeme)); err != nil {
				return nil, errors.Errorf("Unknown string format on line %v (%q)", tok.StartLine, tok.Lexeme)
			} else {
				current.AddArgs(s)
			}
		case TOKEN_NEWLINE:
			current = nil
		case TOKEN_COMMENT:
			if current != nil {
				current.Comment = strings.TrimSpace(string(tok.Lexeme[2:]))
			}
		}
	}

	return result, nil
}
