package dal

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

type conditionOp int

const (
	opEquals conditionOp = iota
	opLessThan
	opLessOrEqual
	opGreaterThan
	opGreaterOrEqual
	opBeginsWith
	opBetween
)

// Condition is a single sort-key predicate ANDed against the fixed
// partition-key equality of a query. Only one predicate is active per query.
type Condition struct {
	op conditionOp
	lo string
	hi string
}

func SKEquals(v string) Condition         { return Condition{op: opEquals, lo: v} }
func SKLessThan(v string) Condition       { return Condition{op: opLessThan, lo: v} }
func SKLessOrEqual(v string) Condition    { return Condition{op: opLessOrEqual, lo: v} }
func SKGreaterThan(v string) Condition    { return Condition{op: opGreaterThan, lo: v} }
func SKGreaterOrEqual(v string) Condition { return Condition{op: opGreaterOrEqual, lo: v} }
func SKBeginsWith(v string) Condition     { return Condition{op: opBeginsWith, lo: v} }

// SKBetween is inclusive on both ends.
func SKBetween(lo, hi string) Condition { return Condition{op: opBetween, lo: lo, hi: hi} }

func (c Condition) keyCondition() expression.KeyConditionBuilder {
	sk := expression.Key("sk")
	switch c.op {
	case opLessThan:
		return sk.LessThan(expression.Value(c.lo))
	case opLessOrEqual:
		return sk.LessThanEqual(expression.Value(c.lo))
	case opGreaterThan:
		return sk.GreaterThan(expression.Value(c.lo))
	case opGreaterOrEqual:
		return sk.GreaterThanEqual(expression.Value(c.lo))
	case opBeginsWith:
		return sk.BeginsWith(c.lo)
	case opBetween:
		return sk.Between(expression.Value(c.lo), expression.Value(c.hi))
	default:
		return sk.Equal(expression.Value(c.lo))
	}
}

// buildQueryExpression compiles the partition-key clause plus the optional
// sort-key predicate into a native key-condition expression.
func buildQueryExpression(pk string, cond *Condition) (expression.Expression, error) {
	keyCond := expression.Key("pk").Equal(expression.Value(pk))
	if cond != nil {
		keyCond = keyCond.And(cond.keyCondition())
	}
	return expression.NewBuilder().WithKeyCondition(keyCond).Build()
}
