package predicate

import (
	"fmt"
	"strconv"

	"strategy-lab/internal/domain"
)

// Operand is one side of a comparison: a field reference or a literal.
type Operand interface {
	value(r *domain.BarRecord) (float64, error)
	String() string
}

// FieldRef references a schema field by name.
type FieldRef string

func (f FieldRef) value(r *domain.BarRecord) (float64, error) {
	v, ok := fieldValue(r, string(f))
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, string(f))
	}
	return v, nil
}

func (f FieldRef) String() string { return string(f) }

// Literal is a numeric constant.
type Literal float64

func (l Literal) value(*domain.BarRecord) (float64, error) { return float64(l), nil }

func (l Literal) String() string {
	return strconv.FormatFloat(float64(l), 'g', -1, 64)
}

// CompareOp is a comparison operator.
type CompareOp string

// Comparison operators.
const (
	OpGT CompareOp = ">"
	OpGE CompareOp = ">="
	OpLT CompareOp = "<"
	OpLE CompareOp = "<="
	OpEQ CompareOp = "="
	OpNE CompareOp = "!="
)

// Compare evaluates Left Op Right on one bar.
type Compare struct {
	Left  Operand
	Op    CompareOp
	Right Operand
}

func (c *Compare) Eval(r *domain.BarRecord) (bool, error) {
	lv, err := c.Left.value(r)
	if err != nil {
		return false, err
	}
	rv, err := c.Right.value(r)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case OpGT:
		return lv > rv, nil
	case OpGE:
		return lv >= rv, nil
	case OpLT:
		return lv < rv, nil
	case OpLE:
		return lv <= rv, nil
	case OpEQ:
		return lv == rv, nil
	case OpNE:
		return lv != rv, nil
	}
	return false, fmt.Errorf("%w: operator %q", ErrSyntax, c.Op)
}

func (c *Compare) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

func (c *Compare) fields(dst []string) []string {
	if f, ok := c.Left.(FieldRef); ok {
		dst = append(dst, string(f))
	}
	if f, ok := c.Right.(FieldRef); ok {
		dst = append(dst, string(f))
	}
	return dst
}

// And is a short-circuit conjunction.
type And struct {
	Left, Right Expr
}

func (a *And) Eval(r *domain.BarRecord) (bool, error) {
	lv, err := a.Left.Eval(r)
	if err != nil || !lv {
		return false, err
	}
	return a.Right.Eval(r)
}

func (a *And) String() string {
	return fmt.Sprintf("%s and %s", a.Left, a.Right)
}

func (a *And) fields(dst []string) []string {
	return a.Right.fields(a.Left.fields(dst))
}

// Or is a short-circuit disjunction.
type Or struct {
	Left, Right Expr
}

func (o *Or) Eval(r *domain.BarRecord) (bool, error) {
	lv, err := o.Left.Eval(r)
	if err != nil || lv {
		return lv, err
	}
	return o.Right.Eval(r)
}

func (o *Or) String() string {
	return fmt.Sprintf("(%s or %s)", o.Left, o.Right)
}

func (o *Or) fields(dst []string) []string {
	return o.Right.fields(o.Left.fields(dst))
}

// Not negates its operand.
type Not struct {
	Expr Expr
}

func (n *Not) Eval(r *domain.BarRecord) (bool, error) {
	v, err := n.Expr.Eval(r)
	return !v, err
}

func (n *Not) String() string {
	return fmt.Sprintf("not (%s)", n.Expr)
}

func (n *Not) fields(dst []string) []string {
	return n.Expr.fields(dst)
}

// Compile-time interface checks.
var (
	_ Expr                = (*Compare)(nil)
	_ Expr                = (*And)(nil)
	_ Expr                = (*Or)(nil)
	_ Expr                = (*Not)(nil)
	_ domain.BarPredicate = (*Compare)(nil)
)
