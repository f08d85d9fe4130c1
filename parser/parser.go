// Package parser implements Daffy's single-pass, character-driven
// state machine. It reduces one instruction line to a triple of
// (optype, name, args), or a SyntaxError pointing at the offending
// column.
//
// Grammar:
//
//	instruction := "$" NAME ":" TYPE "(" [arg ("," arg)*] ")" <anything>
//	arg         := NAME "=" ( "$" NAME "." NAME | FLOAT )
//	NAME        := [A-Za-z][A-Za-z0-9_]*
//	FLOAT       := digit+ ("." digit+)?
//
// Whitespace is permitted, and ignored, only immediately after ":"
// (between the colon and the type) and immediately after "," (between
// successive args). Anything after the closing ")" is a comment and
// is discarded.
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// state names the parser's position in the grammar above. There are
// sixteen of them, plus the implicit terminal state reached when ")"
// closes the argument list.
type state int

const (
	stateStart state = iota
	stateDollar
	stateName
	stateColon
	stateOptype
	stateArgs
	stateArgsName
	stateArgsEqual
	stateArgsDollar
	stateArgsTarget
	stateArgsDot
	stateArgsAttr
	stateArgsComma
	stateArgsFloat
	stateFloatDot
	stateFloatDecimal
	stateFinish
)

// Arg is one parsed argument: either a literal float value, or a
// reference to a previously declared operation's named output. Target
// is empty and Literal is valid iff this arg is a literal.
type Arg struct {
	// Name is the argument's own name (the socket it binds on the
	// operation being declared), from "name=" in the grammar.
	Name string

	// IsLiteral is true when this Arg carries a float literal
	// rather than a reference to another operation's output.
	IsLiteral bool

	// Literal holds the parsed float, valid iff IsLiteral.
	Literal float64

	// Target names the upstream operation, valid iff !IsLiteral.
	Target string

	// TargetOutput names the socket on Target to read, valid iff
	// !IsLiteral.
	TargetOutput string
}

// SyntaxError reports a character with no legal transition out of the
// parser's current state. Column is the 0-based index of that
// character within Instruction.
type SyntaxError struct {
	Instruction string
	Column      int
	Expecting   string
}

func (e *SyntaxError) Error() string {
	caret := strings.Repeat("-", e.Column) + "^"
	return fmt.Sprintf("%s\n%s\nat char %d: expecting %s", e.Instruction, caret, e.Column, e.Expecting)
}

// UndefinedStateError indicates the state machine reached a state it
// has no transition table entry for. This can only happen if the
// parser itself is broken; it is never a user-facing error.
type UndefinedStateError struct {
	Instruction string
	State       int
}

func (e *UndefinedStateError) Error() string {
	return fmt.Sprintf("parser: undefined state %d while parsing %q", e.State, e.Instruction)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnumOrUnderscore(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

func syntaxErr(instr string, col int, expecting string) error {
	return &SyntaxError{Instruction: instr, Column: col, Expecting: expecting}
}

// ParseLine parses one instruction, returning its operation type name,
// its own name, and its arguments.
func ParseLine(line string) (optype string, name string, args []Arg, err error) {
	st := stateStart

	var (
		argName   string
		argTarget string
		argAttr   string
		argFloat  string
	)

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch st {
		case stateStart:
			if c == '$' {
				st = stateDollar
			} else {
				return "", "", nil, syntaxErr(line, i, `"$"`)
			}

		case stateDollar:
			if isAlpha(c) {
				name += string(c)
				st = stateName
			} else {
				return "", "", nil, syntaxErr(line, i, "an operation name")
			}

		case stateName:
			if isAlnumOrUnderscore(c) {
				name += string(c)
			} else if c == ':' {
				st = stateColon
			} else {
				return "", "", nil, syntaxErr(line, i, `":"`)
			}

		case stateColon:
			if isSpace(c) {
				// ignore whitespace between ":" and the type
			} else if isAlpha(c) {
				optype += string(c)
				st = stateOptype
			} else {
				return "", "", nil, syntaxErr(line, i, "an operation type")
			}

		case stateOptype:
			if isAlnumOrUnderscore(c) {
				optype += string(c)
			} else if c == '(' {
				st = stateArgs
			} else {
				return "", "", nil, syntaxErr(line, i, "an operation type")
			}

		case stateArgs:
			if isAlpha(c) {
				argName += string(c)
				st = stateArgsName
			} else if c == ')' {
				st = stateFinish
			} else {
				return "", "", nil, syntaxErr(line, i, `an argument name or ")"`)
			}

		case stateArgsName:
			if isAlnumOrUnderscore(c) {
				argName += string(c)
			} else if c == '=' {
				st = stateArgsEqual
			} else {
				return "", "", nil, syntaxErr(line, i, `"="`)
			}

		case stateArgsEqual:
			if c == '$' {
				st = stateArgsDollar
			} else if isDigit(c) {
				argFloat += string(c)
				st = stateArgsFloat
			} else {
				return "", "", nil, syntaxErr(line, i, `"$" or a literal value`)
			}

		case stateArgsDollar:
			if isAlpha(c) {
				argTarget += string(c)
				st = stateArgsTarget
			} else {
				return "", "", nil, syntaxErr(line, i, "an operation name")
			}

		case stateArgsTarget:
			if isAlnumOrUnderscore(c) {
				argTarget += string(c)
			} else if c == '.' {
				st = stateArgsDot
			} else {
				return "", "", nil, syntaxErr(line, i, `"."`)
			}

		case stateArgsDot:
			if isAlpha(c) {
				argAttr += string(c)
				st = stateArgsAttr
			} else {
				return "", "", nil, syntaxErr(line, i, "an attribute name")
			}

		case stateArgsAttr:
			if isAlnumOrUnderscore(c) {
				argAttr += string(c)
			} else if c == ',' {
				args = append(args, Arg{Name: argName, Target: argTarget, TargetOutput: argAttr})
				argName, argTarget, argAttr = "", "", ""
				st = stateArgsComma
			} else if c == ')' {
				args = append(args, Arg{Name: argName, Target: argTarget, TargetOutput: argAttr})
				argName, argTarget, argAttr = "", "", ""
				st = stateFinish
			} else {
				return "", "", nil, syntaxErr(line, i, `"," or ")"`)
			}

		case stateArgsComma:
			if isSpace(c) {
				// ignore whitespace between "," and the next arg
			} else if isAlpha(c) {
				argName += string(c)
				st = stateArgsName
			} else {
				return "", "", nil, syntaxErr(line, i, "an argument name")
			}

		case stateArgsFloat:
			if isDigit(c) {
				argFloat += string(c)
			} else if c == '.' {
				argFloat += string(c)
				st = stateFloatDot
			} else if c == ',' {
				args = append(args, literalArg(argName, argFloat))
				argName, argFloat = "", ""
				st = stateArgsComma
			} else if c == ')' {
				args = append(args, literalArg(argName, argFloat))
				argName, argFloat = "", ""
				st = stateFinish
			} else {
				return "", "", nil, syntaxErr(line, i, `a digit, ".", "," or ")"`)
			}

		case stateFloatDot:
			if isDigit(c) {
				argFloat += string(c)
				st = stateFloatDecimal
			} else {
				return "", "", nil, syntaxErr(line, i, "a digit")
			}

		case stateFloatDecimal:
			if isDigit(c) {
				argFloat += string(c)
			} else if c == ',' {
				args = append(args, literalArg(argName, argFloat))
				argName, argFloat = "", ""
				st = stateArgsComma
			} else if c == ')' {
				args = append(args, literalArg(argName, argFloat))
				argName, argFloat = "", ""
				st = stateFinish
			} else {
				return "", "", nil, syntaxErr(line, i, `a digit, "," or ")"`)
			}

		case stateFinish:
			// the instruction is complete; everything from here to
			// the end of the line is a comment and is discarded.

		default:
			return "", "", nil, &UndefinedStateError{Instruction: line, State: int(st)}
		}

		if st == stateFinish {
			break
		}
	}

	if st != stateFinish {
		return "", "", nil, syntaxErr(line, len(line), `")"`)
	}

	return optype, name, args, nil
}

func literalArg(name, floatLiteral string) Arg {
	f, _ := strconv.ParseFloat(floatLiteral, 64)
	return Arg{Name: name, IsLiteral: true, Literal: f}
}
