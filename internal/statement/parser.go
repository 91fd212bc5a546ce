package statement

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyql/internal/dates"
	"github.com/jask/moneyql/internal/filtering"
)

type parser struct {
	src  string
	toks []Token
	pos  int
}

func newParser(src string) (*parser, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return &parser{src: src, toks: toks}, nil
}

// Parse parses exactly one statement terminated by ';'.
func Parse(src string) (Statement, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	stmt, err := p.statement()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != TokEOF {
		return nil, p.fail("end of input")
	}
	return stmt, nil
}

// ParseScript parses a sequence of ';'-terminated statements. Nothing is
// returned if any statement fails to parse.
func ParseScript(src string) ([]Statement, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	var out []Statement
	for p.peek().Kind != TokEOF {
		if p.peek().Kind == TokSemicolon {
			p.next()
			continue
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	if len(out) == 0 {
		return nil, p.fail("statement")
	}
	return out, nil
}

func (p *parser) statement() (Statement, error) {
	t := p.peek()
	if t.Kind != TokIdent {
		return nil, p.fail("statement keyword")
	}
	p.next()
	var (
		stmt Statement
		err  error
	)
	switch strings.ToUpper(t.Text) {
	case "IMPORT", "COPY":
		stmt, err = p.parseImport()
	case "SELECT":
		stmt, err = p.parseSelect()
	case "LABEL":
		stmt, err = p.parseLabel()
	case "UPDATE":
		stmt, err = p.parseUpdate()
	case "INSERT":
		stmt, err = p.parseInsert()
	case "DELETE":
		stmt, err = p.parseDelete()
	case "EXPORT":
		stmt, err = p.parseExport()
	default:
		return nil, p.semantic(t, nil, "unknown statement keyword %q", t.Text)
	}
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon, "';'"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseImport() (Statement, error) {
	account, err := p.name("account name")
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("FROM"); err != nil {
		return nil, err
	}
	path, err := p.expect(TokString, "quoted path")
	if err != nil {
		return nil, err
	}
	imp := &Import{Account: account, Path: path.Text}
	if p.peek().Kind != TokLParen {
		return imp, nil
	}
	p.next()
	for p.peek().Kind != TokRParen {
		if p.peek().Kind == TokComma {
			p.next()
			continue
		}
		opt, err := p.expect(TokIdent, "import option", "')'")
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(opt.Text) {
		case "i", "inverse", "invert":
			imp.Inverse = true
		case "dryrun", "dry-run", "dry_run":
			imp.DryRun = true
		default:
			return nil, p.semantic(opt, nil, "unknown import option %q", opt.Text)
		}
	}
	p.next()
	return imp, nil
}

func (p *parser) parseSelect() (Statement, error) {
	target, err := p.target()
	if err != nil {
		return nil, err
	}
	sel := &Select{Target: target}
	if p.acceptWord("FROM") {
		if sel.Account, err = p.name("account name"); err != nil {
			return nil, err
		}
	}
	if p.acceptWord("WHERE") {
		if sel.Where, err = p.filter(); err != nil {
			return nil, err
		}
	}
	if p.acceptWord("ORDER") {
		if err := p.expectWord("BY"); err != nil {
			return nil, err
		}
		t, err := p.expect(TokIdent, "date", "amount", "id")
		if err != nil {
			return nil, err
		}
		field, ok := filtering.LookupField(t.Text)
		if !ok || (field != filtering.FieldDate && field != filtering.FieldAmount && field != filtering.FieldID) {
			return nil, p.semantic(t, nil, "cannot order by %q", t.Text)
		}
		sel.OrderBy = &OrderBy{Field: field}
		if p.acceptWord("DESC") {
			sel.OrderBy.Desc = true
		} else {
			p.acceptWord("ASC")
		}
	}
	if p.acceptWord("LIMIT") {
		n, err := p.integer("row limit")
		if err != nil {
			return nil, err
		}
		sel.Limit = int(n)
	}
	if p.acceptWord("GROUP") {
		if err := p.expectWord("BY"); err != nil {
			return nil, err
		}
		t, err := p.expect(TokIdent, "label")
		if err != nil {
			return nil, err
		}
		if f, ok := filtering.LookupField(t.Text); !ok || f != filtering.FieldLabel {
			return nil, p.semantic(t, nil, "cannot group by %q", t.Text)
		}
		switch target.Kind {
		case TargetSum, TargetCount, TargetAuto:
			return nil, p.semantic(t, nil, "GROUP BY cannot be combined with an aggregate or auto() target")
		}
		sel.GroupByLabel = true
	}
	return sel, nil
}

func (p *parser) target() (Target, error) {
	t := p.peek()
	switch t.Kind {
	case TokStar:
		p.next()
		return Target{Kind: TargetAll}, nil
	case TokNumber:
		id, err := p.integer("transaction id")
		return Target{Kind: TargetID, ID: id}, err
	case TokIdent:
		switch strings.ToLower(t.Text) {
		case "spending":
			p.next()
			return Target{Kind: TargetSpending}, nil
		case "income":
			p.next()
			return Target{Kind: TargetIncome}, nil
		case "sum", "count":
			p.next()
			kind := TargetSum
			if strings.EqualFold(t.Text, "count") {
				kind = TargetCount
			}
			scope, err := p.scopeArg()
			return Target{Kind: kind, Scope: scope}, err
		case "auto":
			p.next()
			if err := p.emptyParens(); err != nil {
				return Target{}, err
			}
			return Target{Kind: TargetAuto}, nil
		}
		return Target{}, p.semantic(t, nil, "unknown select target %q", t.Text)
	}
	return Target{}, p.fail("'*'", "transaction id", "spending", "income", "SUM", "COUNT", "auto()")
}

// scopeArg parses "(*)", "(spending)", "(income)" or "()".
func (p *parser) scopeArg() (filtering.Scope, error) {
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return 0, err
	}
	scope := filtering.ScopeAll
	t := p.peek()
	switch {
	case t.Kind == TokStar:
		p.next()
	case t.Kind == TokIdent && strings.EqualFold(t.Text, "spending"):
		p.next()
		scope = filtering.ScopeSpending
	case t.Kind == TokIdent && strings.EqualFold(t.Text, "income"):
		p.next()
		scope = filtering.ScopeIncome
	case t.Kind == TokIdent:
		return 0, p.semantic(t, nil, "cannot aggregate over %q", t.Text)
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return 0, err
	}
	return scope, nil
}

func (p *parser) parseLabel() (Statement, error) {
	lbl := &Label{}
	var err error
	if p.acceptWord("WHERE") {
		lbl.Where, err = p.filter()
	} else {
		lbl.IDs, err = p.idList()
	}
	if err != nil {
		return nil, err
	}
	if p.isAutoCall() {
		p.next()
		lbl.Auto = true
		return lbl, p.emptyParens()
	}
	var raw []string
	for {
		t := p.peek()
		switch t.Kind {
		case TokIdent, TokNumber:
			p.next()
			raw = append(raw, t.Text)
			continue
		case TokString:
			p.next()
			raw = append(raw, strings.Split(t.Text, ",")...)
			continue
		case TokComma:
			p.next()
			continue
		case TokSemicolon:
		default:
			return nil, p.fail("label", "';'")
		}
		break
	}
	lbl.Labels = filtering.NormalizeLabels(raw)
	return lbl, nil
}

// parseUpdate handles "UPDATE SET label = <labels> [WHERE <filter>]".
func (p *parser) parseUpdate() (Statement, error) {
	if err := p.expectWord("SET"); err != nil {
		return nil, err
	}
	t, err := p.expect(TokIdent, "label")
	if err != nil {
		return nil, err
	}
	if f, ok := filtering.LookupField(t.Text); !ok || f != filtering.FieldLabel {
		return nil, p.semantic(t, nil, "only label can be updated, not %q", t.Text)
	}
	if _, err := p.expectOp("="); err != nil {
		return nil, err
	}
	lbl := &Label{}
	switch v := p.peek(); {
	case p.isAutoCall():
		p.next()
		if err := p.emptyParens(); err != nil {
			return nil, err
		}
		lbl.Auto = true
	case v.Kind == TokString:
		p.next()
		lbl.Labels = SplitLabels(v.Text)
	case v.Kind == TokIdent:
		p.next()
		lbl.Labels = filtering.NormalizeLabels([]string{v.Text})
	default:
		return nil, p.fail("label string", "auto()")
	}
	if p.acceptWord("WHERE") {
		if lbl.Where, err = p.filter(); err != nil {
			return nil, err
		}
	} else {
		lbl.All = true
	}
	return lbl, nil
}

func (p *parser) parseInsert() (Statement, error) {
	if err := p.expectWord("INTO"); err != nil {
		return nil, err
	}
	account, err := p.name("account name")
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("VALUES"); err != nil {
		return nil, err
	}
	ins := &Insert{Account: account}
	for {
		row, err := p.tuple()
		if err != nil {
			return nil, err
		}
		ins.Rows = append(ins.Rows, row)
		if p.peek().Kind != TokComma {
			return ins, nil
		}
		p.next()
	}
}

// tuple parses "(<date>, <description>, <amount> [, <labels>])".
func (p *parser) tuple() (Row, error) {
	var row Row
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return row, err
	}

	t := p.peek()
	if t.Kind != TokDate && t.Kind != TokString {
		return row, p.fail("date")
	}
	p.next()
	d, err := dates.ParseDay(t.Text)
	if err != nil {
		return row, p.semantic(t, err, "invalid date")
	}
	row.Date = d

	if _, err := p.expect(TokComma, "','"); err != nil {
		return row, err
	}
	desc, err := p.expect(TokString, "description")
	if err != nil {
		return row, err
	}
	row.Description = desc.Text

	if _, err := p.expect(TokComma, "','"); err != nil {
		return row, err
	}
	if row.Amount, err = p.number("amount"); err != nil {
		return row, err
	}

	if p.peek().Kind == TokComma {
		p.next()
		labels, err := p.expect(TokString, "label string")
		if err != nil {
			return row, err
		}
		row.Labels = SplitLabels(labels.Text)
	}
	_, err = p.expect(TokRParen, "')'")
	return row, err
}

func (p *parser) parseDelete() (Statement, error) {
	ids, err := p.idList()
	if err != nil {
		return nil, err
	}
	return &Delete{IDs: ids}, nil
}

func (p *parser) parseExport() (Statement, error) {
	exp := &Export{}
	if !p.isWord("TO") {
		account, err := p.name("account name", "TO")
		if err != nil {
			return nil, err
		}
		exp.Account = account
	}
	if err := p.expectWord("TO"); err != nil {
		return nil, err
	}
	path, err := p.expect(TokString, "quoted path")
	if err != nil {
		return nil, err
	}
	exp.Path = path.Text
	return exp, nil
}

// filter parses OR-separated terms of AND-separated comparisons; AND binds
// tighter and both associate to the left.
func (p *parser) filter() (*filtering.Node, error) {
	left, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	for p.acceptWord("OR") {
		right, err := p.conjunction()
		if err != nil {
			return nil, err
		}
		left = filtering.Or(left, right)
	}
	return left, nil
}

func (p *parser) conjunction() (*filtering.Node, error) {
	left, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.acceptWord("AND") {
		right, err := p.primary()
		if err != nil {
			return nil, err
		}
		left = filtering.And(left, right)
	}
	return left, nil
}

func (p *parser) primary() (*filtering.Node, error) {
	if p.peek().Kind == TokLParen {
		p.next()
		n, err := p.filter()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return n, nil
	}
	return p.comparison()
}

func (p *parser) comparison() (*filtering.Node, error) {
	ft := p.peek()
	if ft.Kind != TokIdent {
		return nil, p.fail("field name", "'('")
	}
	yearOnly := strings.EqualFold(ft.Text, "year")
	field, ok := filtering.LookupField(ft.Text)
	if yearOnly {
		field, ok = filtering.FieldDate, true
	}
	if !ok {
		return nil, p.semantic(ft, nil, "unknown field %q", ft.Text)
	}
	p.next()

	opTok := p.peek()
	op, err := p.operator()
	if err != nil {
		return nil, err
	}
	if !field.Allowed(op) {
		return nil, p.semantic(opTok, nil, "operator %s is not valid for field %s", op, field)
	}
	pred := filtering.Predicate{Field: field, Op: op}
	if op == filtering.OpIsNull || op == filtering.OpIsNotNull {
		return filtering.Leaf(pred), nil
	}

	vt := p.peek()
	switch field {
	case filtering.FieldDate:
		if vt.Kind != TokDate && vt.Kind != TokNumber && vt.Kind != TokString {
			return nil, p.fail("date expression")
		}
		p.next()
		expr, err := dates.ParseExpr(vt.Text)
		if err != nil {
			return nil, p.semantic(vt, err, "invalid date expression")
		}
		if yearOnly && expr.Kind != dates.KindYear {
			return nil, p.semantic(vt, nil, "year expects a four digit year, got %q", vt.Text)
		}
		pred.Date = expr
	case filtering.FieldAmount, filtering.FieldSpending, filtering.FieldIncome:
		if pred.Number, err = p.number(field.String() + " value"); err != nil {
			return nil, err
		}
	case filtering.FieldID:
		if pred.ID, err = p.integer("transaction id"); err != nil {
			return nil, err
		}
	case filtering.FieldLabel, filtering.FieldDescription:
		if vt.Kind != TokString && vt.Kind != TokIdent && vt.Kind != TokNumber {
			return nil, p.fail("string")
		}
		p.next()
		pred.Text = vt.Text
	}
	return filtering.Leaf(pred), nil
}

func (p *parser) operator() (filtering.Op, error) {
	t := p.peek()
	if t.Kind == TokOp {
		p.next()
		switch t.Text {
		case "=":
			return filtering.OpEq, nil
		case "!=":
			return filtering.OpNe, nil
		case "<":
			return filtering.OpLt, nil
		case "<=":
			return filtering.OpLe, nil
		case ">":
			return filtering.OpGt, nil
		case ">=":
			return filtering.OpGe, nil
		}
	}
	if t.Kind == TokIdent {
		switch strings.ToUpper(t.Text) {
		case "LIKE", "MATCH":
			p.next()
			return filtering.OpLike, nil
		case "IS":
			p.next()
			op := filtering.OpIsNull
			if p.acceptWord("NOT") {
				op = filtering.OpIsNotNull
			}
			return op, p.expectWord("NULL")
		}
	}
	return 0, p.fail("comparison operator")
}

// idList reads ids until the next token is not a number, so a label made
// only of digits must be quoted: LABEL 1 '2022';
func (p *parser) idList() ([]int64, error) {
	var ids []int64
	for {
		id, err := p.integer("transaction id")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		if p.peek().Kind == TokComma {
			p.next()
			continue
		}
		if p.peek().Kind != TokNumber {
			return ids, nil
		}
	}
}

func (p *parser) integer(what string) (int64, error) {
	t, err := p.expect(TokNumber, what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil || n < 1 {
		return 0, p.semantic(t, nil, "%s must be a positive integer, got %q", what, t.Text)
	}
	return n, nil
}

func (p *parser) number(what string) (decimal.Decimal, error) {
	t := p.peek()
	if t.Kind != TokNumber && t.Kind != TokString {
		return decimal.Zero, p.fail(what)
	}
	p.next()
	v, err := decimal.NewFromString(strings.TrimSpace(t.Text))
	if err != nil {
		return decimal.Zero, p.semantic(t, err, "invalid %s", what)
	}
	return v, nil
}

func (p *parser) name(what string, alsoExpected ...string) (string, error) {
	t := p.peek()
	if t.Kind != TokIdent && t.Kind != TokString {
		return "", p.fail(append([]string{what}, alsoExpected...)...)
	}
	p.next()
	return t.Text, nil
}

func (p *parser) emptyParens() error {
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return err
	}
	_, err := p.expect(TokRParen, "')'")
	return err
}

func (p *parser) isAutoCall() bool {
	return p.isWord("auto") && p.toks[p.pos+1].Kind == TokLParen
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isWord(word string) bool {
	t := p.peek()
	return t.Kind == TokIdent && strings.EqualFold(t.Text, word)
}

func (p *parser) acceptWord(word string) bool {
	if p.isWord(word) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectWord(word string) error {
	if !p.acceptWord(word) {
		return p.fail(word)
	}
	return nil
}

func (p *parser) expectOp(op string) (Token, error) {
	t := p.peek()
	if t.Kind != TokOp || t.Text != op {
		return t, p.fail("'" + op + "'")
	}
	return p.next(), nil
}

func (p *parser) expect(kind TokenKind, expected ...string) (Token, error) {
	t := p.peek()
	if t.Kind != kind {
		return t, p.fail(expected...)
	}
	return p.next(), nil
}

func (p *parser) fail(expected ...string) error {
	t := p.peek()
	return syntaxAt(p.src, t.Offset, expected, t.describe())
}

func (p *parser) semantic(t Token, err error, format string, args ...any) error {
	return semanticAt(p.src, t.Offset, err, format, args...)
}

// SplitLabels splits a comma separated label string.
func SplitLabels(s string) []string {
	return filtering.NormalizeLabels(strings.Split(s, ","))
}
