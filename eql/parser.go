package eql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/krotik/ledgergraph/graph"
)

/*
parser walks a fully materialized token list with one token of
lookahead - the teacher's parser.go does the same "lex into a slice,
then index forward" when it doesn't need the full Pratt machinery of
that comparatively bigger grammar.
*/
type parser struct {
	tokens []Token
	pos    int
}

/*
Parse lexes and parses a single command line into its AST (§4.E). The
six grammar forms are each recognized from their first one or two
keywords.
*/
func Parse(input string) (Command, error) {
	var tokens []Token
	for t := range lex(input) {
		tokens = append(tokens, t)
		if t.ID == TokenError {
			break
		}
	}

	if len(tokens) == 0 || tokens[len(tokens)-1].ID == TokenError {
		last := tokens[len(tokens)-1]
		return nil, &Error{Detail: last.Val, Pos: last.Pos}
	}

	p := &parser{tokens: tokens}

	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}

	if p.cur().ID != TokenEOF {
		return nil, p.errorf("unexpected trailing input %q", p.cur().Val)
	}

	return cmd, nil
}

func (p *parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &Error{Detail: fmt.Sprintf(format, args...), Pos: p.cur().Pos}
}

func (p *parser) expectIdent(word string) error {
	t := p.cur()
	if t.ID != TokenIDENT || !strings.EqualFold(t.Val, word) {
		return p.errorf("expected %q, found %q", word, t.Val)
	}
	p.advance()
	return nil
}

func (p *parser) expectToken(id TokenID, what string) (Token, error) {
	t := p.cur()
	if t.ID != id {
		return Token{}, p.errorf("expected %s, found %q", what, t.Val)
	}
	p.advance()
	return t, nil
}

func (p *parser) curIs(word string) bool {
	t := p.cur()
	return t.ID == TokenIDENT && strings.EqualFold(t.Val, word)
}

func (p *parser) parseCommand() (Command, error) {
	t := p.cur()
	if t.ID != TokenIDENT {
		return nil, p.errorf("expected a command keyword, found %q", t.Val)
	}

	switch strings.ToLower(t.Val) {
	case "define":
		p.advance()
		return p.parseDefine()
	case "add":
		p.advance()
		return p.parseAdd()
	case "update":
		p.advance()
		return p.parseUpdate()
	case "fetch":
		p.advance()
		return p.parseFetch()
	default:
		return nil, p.errorf("unknown command %q", t.Val)
	}
}

func (p *parser) parseDefine() (Command, error) {
	if err := p.expectIdent("node"); err != nil {
		return nil, err
	}

	typeTok, err := p.expectToken(TokenIDENT, "type name")
	if err != nil {
		return nil, err
	}

	if _, err := p.expectToken(TokenLPAREN, "'('"); err != nil {
		return nil, err
	}

	attrs, err := p.parseAttrList()
	if err != nil {
		return nil, err
	}

	if _, err := p.expectToken(TokenRPAREN, "')'"); err != nil {
		return nil, err
	}

	var preds []PredDecl
	if p.curIs("with") {
		p.advance()
		if err := p.expectIdent("agent"); err != nil {
			return nil, err
		}
		if _, err := p.expectToken(TokenLPAREN, "'('"); err != nil {
			return nil, err
		}
		preds, err = p.parsePredList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectToken(TokenRPAREN, "')'"); err != nil {
			return nil, err
		}
	}

	return &DefineCmd{TypeName: typeTok.Val, Attrs: attrs, Predicate: preds}, nil
}

func (p *parser) parseAttrList() ([]AttrDecl, error) {
	var attrs []AttrDecl

	for {
		indexed := false
		if p.cur().ID == TokenSTAR {
			indexed = true
			p.advance()
		}

		nameTok, err := p.expectToken(TokenIDENT, "attribute name")
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, AttrDecl{Name: nameTok.Val, Indexed: indexed})

		if p.cur().ID != TokenCOMMA {
			break
		}
		p.advance()
	}

	return attrs, nil
}

func (p *parser) parsePredList() ([]PredDecl, error) {
	var preds []PredDecl

	for {
		nameTok, err := p.expectToken(TokenIDENT, "attribute name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectToken(TokenEQ, "'='"); err != nil {
			return nil, err
		}
		val, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		preds = append(preds, PredDecl{Attribute: nameTok.Val, Value: val})

		if p.cur().ID != TokenCOMMA {
			break
		}
		p.advance()
	}

	return preds, nil
}

/*
parseLiteralValue accepts a string, integer or bare identifier as a
literal value, stringifying it - attribute values are always strings
at the storage layer (§3 "Node instance").
*/
func (p *parser) parseLiteralValue() (string, error) {
	t := p.cur()
	switch t.ID {
	case TokenSTRING, TokenINT, TokenIDENT:
		p.advance()
		return t.Val, nil
	default:
		return "", p.errorf("expected a value, found %q", t.Val)
	}
}

func (p *parser) parseAdd() (Command, error) {
	t := p.cur()
	if t.ID != TokenIDENT {
		return nil, p.errorf("expected 'node' or 'connection', found %q", t.Val)
	}

	switch strings.ToLower(t.Val) {
	case "node":
		p.advance()
		return p.parseAddNode()
	case "connection":
		p.advance()
		fromType, fromSel, toType, toSel, weight, err := p.parseConnBody()
		if err != nil {
			return nil, err
		}
		return &AddConnCmd{FromType: fromType, FromSel: fromSel, ToType: toType, ToSel: toSel, Weight: weight}, nil
	default:
		return nil, p.errorf("expected 'node' or 'connection', found %q", t.Val)
	}
}

func (p *parser) parseUpdate() (Command, error) {
	if err := p.expectIdent("connection"); err != nil {
		return nil, err
	}

	fromType, fromSel, toType, toSel, weight, err := p.parseConnBody()
	if err != nil {
		return nil, err
	}

	return &UpdConnCmd{FromType: fromType, FromSel: fromSel, ToType: toType, ToSel: toSel, Weight: weight}, nil
}

func (p *parser) parseAddNode() (Command, error) {
	typeTok, err := p.expectToken(TokenIDENT, "type name")
	if err != nil {
		return nil, err
	}

	if _, err := p.expectToken(TokenLPAREN, "'('"); err != nil {
		return nil, err
	}

	assigns, err := p.parseAssignList()
	if err != nil {
		return nil, err
	}

	if _, err := p.expectToken(TokenRPAREN, "')'"); err != nil {
		return nil, err
	}

	return &AddNodeCmd{TypeName: typeTok.Val, Attrs: assigns}, nil
}

func (p *parser) parseAssignList() ([]Assign, error) {
	var assigns []Assign

	for {
		nameTok, err := p.expectToken(TokenIDENT, "attribute name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectToken(TokenEQ, "'='"); err != nil {
			return nil, err
		}
		val, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, Assign{Name: nameTok.Val, Value: val})

		if p.cur().ID != TokenCOMMA {
			break
		}
		p.advance()
	}

	return assigns, nil
}

func (p *parser) parseConnBody() (fromType string, fromSel Selector, toType string, toSel Selector, weight int64, err error) {
	if err = p.expectIdent("from"); err != nil {
		return
	}

	fromTok, e := p.expectToken(TokenIDENT, "type name")
	if e != nil {
		err = e
		return
	}
	fromType = fromTok.Val

	if _, e = p.expectToken(TokenLPAREN, "'('"); e != nil {
		err = e
		return
	}
	if fromSel, e = p.parseSelector(); e != nil {
		err = e
		return
	}
	if _, e = p.expectToken(TokenRPAREN, "')'"); e != nil {
		err = e
		return
	}

	if err = p.expectIdent("to"); err != nil {
		return
	}

	toTok, e := p.expectToken(TokenIDENT, "type name")
	if e != nil {
		err = e
		return
	}
	toType = toTok.Val

	if _, e = p.expectToken(TokenLPAREN, "'('"); e != nil {
		err = e
		return
	}
	if toSel, e = p.parseSelector(); e != nil {
		err = e
		return
	}
	if _, e = p.expectToken(TokenRPAREN, "')'"); e != nil {
		err = e
		return
	}

	if err = p.expectIdent("with"); err != nil {
		return
	}
	if err = p.expectIdent("weight"); err != nil {
		return
	}

	weightTok, e := p.expectToken(TokenINT, "integer weight")
	if e != nil {
		err = e
		return
	}
	weight, e = strconv.ParseInt(weightTok.Val, 10, 64)
	if e != nil {
		err = p.errorf("invalid weight %q", weightTok.Val)
		return
	}

	return
}

/*
parseSelector parses either a `$id = "..."` exact-id selector or a
comma-separated conjunction of attribute conditions (§4.E "selector").
*/
func (p *parser) parseSelector() (Selector, error) {
	if p.cur().ID == TokenIDENT && p.cur().Val == "$id" {
		p.advance()
		if _, err := p.expectToken(TokenEQ, "'='"); err != nil {
			return Selector{}, err
		}
		idTok, err := p.expectToken(TokenSTRING, "node id string")
		if err != nil {
			return Selector{}, err
		}
		return Selector{ByID: idTok.Val}, nil
	}

	var conds []Cond
	for {
		nameTok, err := p.expectToken(TokenIDENT, "attribute name")
		if err != nil {
			return Selector{}, err
		}
		op, err := p.parseOp()
		if err != nil {
			return Selector{}, err
		}
		val, err := p.parseLiteralValue()
		if err != nil {
			return Selector{}, err
		}
		conds = append(conds, Cond{Attr: nameTok.Val, Op: op, Value: val})

		if p.cur().ID != TokenCOMMA {
			break
		}
		p.advance()
	}

	return Selector{Conds: conds}, nil
}

func (p *parser) parseOp() (graph.PredOp, error) {
	t := p.cur()
	switch t.ID {
	case TokenEQ:
		p.advance()
		return graph.OpEq, nil
	case TokenLT:
		p.advance()
		return graph.OpLt, nil
	case TokenLE:
		p.advance()
		return graph.OpLe, nil
	case TokenGT:
		p.advance()
		return graph.OpGt, nil
	case TokenGE:
		p.advance()
		return graph.OpGe, nil
	default:
		return 0, p.errorf("expected a comparison operator, found %q", t.Val)
	}
}

func (p *parser) parseFetch() (Command, error) {
	if p.curIs("connection") {
		p.advance()
		if err := p.expectIdent("chain"); err != nil {
			return nil, err
		}
		return &FetchChainCmd{}, nil
	}

	typeTok, err := p.expectToken(TokenIDENT, "type name")
	if err != nil {
		return nil, err
	}

	if _, err := p.expectToken(TokenLPAREN, "'('"); err != nil {
		return nil, err
	}
	rootSel, err := p.parseSelector()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectToken(TokenRPAREN, "')'"); err != nil {
		return nil, err
	}

	var joins []JoinStep
	for p.curIs("join") {
		p.advance()
		targetTok, err := p.expectToken(TokenIDENT, "type name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectToken(TokenLPAREN, "'('"); err != nil {
			return nil, err
		}
		pred, err := p.parseWeightPred()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectToken(TokenRPAREN, "')'"); err != nil {
			return nil, err
		}
		joins = append(joins, JoinStep{TargetType: targetTok.Val, Pred: pred})
	}

	return &FetchNodeCmd{RootType: typeTok.Val, RootSel: rootSel, Joins: joins}, nil
}

func (p *parser) parseWeightPred() (graph.WeightPredicate, error) {
	if p.cur().ID != TokenIDENT || p.cur().Val != "$weight" {
		return graph.WeightPredicate{}, p.errorf("expected '$weight', found %q", p.cur().Val)
	}
	p.advance()

	op, err := p.parseOp()
	if err != nil {
		return graph.WeightPredicate{}, err
	}

	valTok, err := p.expectToken(TokenINT, "integer weight")
	if err != nil {
		return graph.WeightPredicate{}, err
	}
	val, perr := strconv.ParseInt(valTok.Val, 10, 64)
	if perr != nil {
		return graph.WeightPredicate{}, p.errorf("invalid weight %q", valTok.Val)
	}

	return graph.WeightPredicate{Op: op, Value: val}, nil
}
