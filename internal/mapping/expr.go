package mapping

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a parsed arithmetic expression over named variables. The grammar
// is deliberately small: identifiers, numeric literals, + - * /, unary
// minus and parentheses. Evaluation is total: any null operand, division by
// zero or unknown variable yields null instead of an error.
type Expr struct {
	src  string
	root node
}

type node interface {
	eval(vars map[string]*float64) *float64
	collectVars(set map[string]struct{})
}

type numberNode float64

func (n numberNode) eval(map[string]*float64) *float64 {
	v := float64(n)
	return &v
}
func (numberNode) collectVars(map[string]struct{}) {}

type varNode string

func (n varNode) eval(vars map[string]*float64) *float64 {
	return vars[string(n)]
}
func (n varNode) collectVars(set map[string]struct{}) {
	set[string(n)] = struct{}{}
}

type unaryNode struct {
	operand node
}

func (n unaryNode) eval(vars map[string]*float64) *float64 {
	v := n.operand.eval(vars)
	if v == nil {
		return nil
	}
	r := -*v
	return &r
}
func (n unaryNode) collectVars(set map[string]struct{}) {
	n.operand.collectVars(set)
}

type binaryNode struct {
	op          byte
	left, right node
}

func (n binaryNode) eval(vars map[string]*float64) *float64 {
	l := n.left.eval(vars)
	r := n.right.eval(vars)
	if l == nil || r == nil {
		return nil
	}
	var v float64
	switch n.op {
	case '+':
		v = *l + *r
	case '-':
		v = *l - *r
	case '*':
		v = *l * *r
	case '/':
		if *r == 0 {
			return nil
		}
		v = *l / *r
	default:
		return nil
	}
	return &v
}
func (n binaryNode) collectVars(set map[string]struct{}) {
	n.left.collectVars(set)
	n.right.collectVars(set)
}

// ParseExpr parses an arithmetic expression, failing on anything outside the
// restricted grammar.
func ParseExpr(src string) (*Expr, error) {
	p := &exprParser{src: src}
	root, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos], p.pos)
	}
	return &Expr{src: src, root: root}, nil
}

// Vars returns the distinct variable names the expression references, sorted
func (e *Expr) Vars() []string {
	set := make(map[string]struct{})
	e.root.collectVars(set)
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Eval computes the expression over the given variable bindings. A missing
// or null binding makes the whole result null.
func (e *Expr) Eval(vars map[string]*float64) *float64 {
	return e.root.eval(vars)
}

// String returns the original source text
func (e *Expr) String() string {
	return e.src
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

// parseSum handles + and - at the lowest precedence
func (p *exprParser) parseSum() (node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseProduct() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseUnary() (node, error) {
	p.skipSpace()
	switch p.peek() {
	case '-':
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{operand: operand}, nil
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (node, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	c := p.src[p.pos]
	switch {
	case c == '(':
		p.pos++
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("missing closing parenthesis at offset %d", p.pos)
		}
		p.pos++
		return inner, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case isIdentStart(rune(c)):
		return p.parseIdent(), nil
	}
	return nil, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
}

func (p *exprParser) parseNumber() (node, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	text := p.src[start:p.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q at offset %d", text, start)
	}
	return numberNode(v), nil
}

func (p *exprParser) parseIdent() node {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(rune(p.src[p.pos])) {
		p.pos++
	}
	return varNode(strings.ToLower(p.src[start:p.pos]))
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
