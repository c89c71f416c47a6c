package strategy

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang-algotrade/internal/dto"
)

var ErrInvalidCondition = errors.New("invalid condition")

// Operator is a comparison between two operands.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpCrossAbove   Operator = "cross_above"
	OpCrossBelow   Operator = "cross_below"
)

func parseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual, OpNotEqual, OpCrossAbove, OpCrossBelow:
		return op, nil
	case "=":
		return OpEqual, nil
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, s)
}

// Expr is a compiled boolean expression over bar indexes.
type Expr interface {
	Eval(i int) bool
}

// operand is either a series aligned with the bars or a constant.
type operand struct {
	series   []float64
	constant float64
	offset   int
}

// at reads the operand at bar i shifted back by its offset and lag more
// bars. Out-of-range reads are NaN.
func (o operand) at(i, lag int) float64 {
	if o.series == nil {
		return o.constant
	}
	j := i - o.offset - lag
	if j < 0 || j >= len(o.series) {
		return math.NaN()
	}
	return o.series[j]
}

type comparison struct {
	left, right operand
	op          Operator
}

func (c comparison) Eval(i int) bool {
	l, r := c.left.at(i, 0), c.right.at(i, 0)
	if math.IsNaN(l) || math.IsNaN(r) {
		return false
	}
	switch c.op {
	case OpGreater:
		return l > r
	case OpLess:
		return l < r
	case OpGreaterEqual:
		return l >= r
	case OpLessEqual:
		return l <= r
	case OpEqual:
		return l == r
	case OpNotEqual:
		return l != r
	}
	return false
}

type cross struct {
	left, right operand
	above       bool
}

func (c cross) Eval(i int) bool {
	l, r := c.left.at(i, 0), c.right.at(i, 0)
	pl, pr := c.left.at(i, 1), c.right.at(i, 1)
	for _, v := range [...]float64{l, r, pl, pr} {
		if math.IsNaN(v) {
			return false
		}
	}
	if c.above {
		return pl <= pr && l > r
	}
	return pl >= pr && l < r
}

type logic int

const (
	logicAnd logic = iota
	logicOr
)

// group folds its terms left; joins[k] connects terms[k] and terms[k+1].
type group struct {
	terms []Expr
	joins []logic
}

func (g group) Eval(i int) bool {
	if len(g.terms) == 0 {
		return false
	}
	acc := g.terms[0].Eval(i)
	for k := 1; k < len(g.terms); k++ {
		if g.joins[k-1] == logicOr {
			acc = acc || g.terms[k].Eval(i)
		} else {
			acc = acc && g.terms[k].Eval(i)
		}
	}
	return acc
}

// anyOf is true when any of its groups is.
type anyOf []Expr

func (a anyOf) Eval(i int) bool {
	for _, e := range a {
		if e.Eval(i) {
			return true
		}
	}
	return false
}

// resolver looks up named series for operands.
type resolver struct {
	series     *dto.BarSeries
	indicators map[string]Outputs
	primary    map[string]string
}

func (r resolver) operand(name string, offset int) (operand, error) {
	name = strings.TrimSpace(name)
	if v, err := strconv.ParseFloat(name, 64); err == nil {
		return operand{constant: v}, nil
	}

	lower := strings.ToLower(name)
	if col, ok := r.series.Column(lower); ok {
		return operand{series: col, offset: offset}, nil
	}

	id, output := name, ""
	if dot := strings.Index(name, "."); dot > 0 {
		id, output = name[:dot], name[dot+1:]
	}
	outs, ok := r.indicators[id]
	if !ok {
		return operand{}, fmt.Errorf("%w: unknown operand %q", ErrInvalidCondition, name)
	}
	if output == "" {
		output = r.primary[id]
	}
	values, ok := outs[output]
	if !ok {
		return operand{}, fmt.Errorf("%w: indicator %q has no output %q", ErrInvalidCondition, id, output)
	}
	return operand{series: values, offset: offset}, nil
}

func (r resolver) condition(c dto.Condition) (Expr, error) {
	op, err := parseOperator(c.Operator)
	if err != nil {
		return nil, err
	}
	if c.LeftOffset < 0 || c.RightOffset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidCondition)
	}
	left, err := r.operand(c.Left, c.LeftOffset)
	if err != nil {
		return nil, err
	}
	right, err := r.operand(c.Right, c.RightOffset)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpCrossAbove, OpCrossBelow:
		return cross{left: left, right: right, above: op == OpCrossAbove}, nil
	default:
		return comparison{left: left, right: right, op: op}, nil
	}
}

func (r resolver) side(groups []dto.ConditionGroup) (Expr, error) {
	out := make(anyOf, 0, len(groups))
	for gi, g := range groups {
		compiled := group{}
		for ci, c := range g.Conditions {
			expr, err := r.condition(c)
			if err != nil {
				return nil, fmt.Errorf("group %d condition %d: %w", gi, ci, err)
			}
			compiled.terms = append(compiled.terms, expr)
			if strings.EqualFold(c.Logic, "OR") {
				compiled.joins = append(compiled.joins, logicOr)
			} else {
				compiled.joins = append(compiled.joins, logicAnd)
			}
		}
		out = append(out, compiled)
	}
	return out, nil
}
