package template

import (
	"fmt"
	"math"
)

// applyBinary evaluates a non-short-circuit binary operation. Arithmetic
// on two integers stays integral.
func applyBinary(op BinaryOp, left, right interface{}) (interface{}, error) {
	switch op {
	case BinOpAnd:
		return IsTruthy(left) && IsTruthy(right), nil
	case BinOpOr:
		return IsTruthy(left) || IsTruthy(right), nil
	case BinOpEqual:
		return evaluateEquals(left, right), nil
	case BinOpNotEqual:
		return !evaluateEquals(left, right), nil
	case BinOpLess, BinOpGreater, BinOpLessEqual, BinOpGreaterEqual:
		return compareValues(op, left, right)
	case BinOpAdd:
		// a string on either side concatenates
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return FormatValue(left) + FormatValue(right), nil
		}
	case BinOpModulo:
		a, aok := toInt(left)
		b, bok := toInt(right)
		if !aok || !bok {
			return nil, fmt.Errorf("modulo requires integers, got %T and %T", left, right)
		}
		if b == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return a % b, nil
	}

	a, aok := toFloat64(left)
	b, bok := toFloat64(right)
	if !aok || !bok {
		return nil, fmt.Errorf("cannot apply %s to %T and %T", op, left, right)
	}

	var result float64
	switch op {
	case BinOpAdd:
		result = a + b
	case BinOpSubtract:
		result = a - b
	case BinOpMultiply:
		result = a * b
	case BinOpDivide:
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		result = a / b
	default:
		return nil, fmt.Errorf("unknown binary operator: %s", op)
	}

	if isInteger(left) && isInteger(right) && result == math.Trunc(result) {
		return int(result), nil
	}
	return result, nil
}

func applyUnary(op UnaryOp, operand interface{}) (interface{}, error) {
	if op == UnaryOpNot {
		return !IsTruthy(operand), nil
	}

	n, ok := toFloat64(operand)
	if !ok {
		return nil, fmt.Errorf("cannot apply unary %s to %T", op, operand)
	}
	if op == UnaryOpMinus {
		n = -n
	}
	if isInteger(operand) {
		return int(n), nil
	}
	return n, nil
}

// evaluateEquals compares numbers by value across int and float types and
// everything else by its formatted form
func evaluateEquals(left, right interface{}) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if a, ok := toFloat64(left); ok {
		if b, ok := toFloat64(right); ok {
			return a == b
		}
	}
	if a, ok := left.(bool); ok {
		b, ok := right.(bool)
		return ok && a == b
	}
	return FormatValue(left) == FormatValue(right)
}

func compareValues(op BinaryOp, left, right interface{}) (interface{}, error) {
	var cmp int
	a, aok := toFloat64(left)
	b, bok := toFloat64(right)
	if aok && bok {
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	} else {
		as, aok := left.(string)
		bs, bok := right.(string)
		if !aok || !bok {
			return nil, fmt.Errorf("cannot compare %T and %T", left, right)
		}
		switch {
		case as < bs:
			cmp = -1
		case as > bs:
			cmp = 1
		}
	}

	switch op {
	case BinOpLess:
		return cmp < 0, nil
	case BinOpGreater:
		return cmp > 0, nil
	case BinOpLessEqual:
		return cmp <= 0, nil
	default:
		return cmp >= 0, nil
	}
}
