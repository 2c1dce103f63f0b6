package template

import (
	"fmt"
	"strings"
)

// ExpressionNode is a node of a parsed directive expression
type ExpressionNode interface {
	String() string
	Evaluate(data Data) (interface{}, error)
}

// BinaryOp is a binary operator
type BinaryOp int

const (
	BinOpOr BinaryOp = iota
	BinOpAnd
	BinOpEqual
	BinOpNotEqual
	BinOpLess
	BinOpGreater
	BinOpLessEqual
	BinOpGreaterEqual
	BinOpAdd
	BinOpSubtract
	BinOpMultiply
	BinOpDivide
	BinOpModulo
)

var binaryOpSymbols = map[BinaryOp]string{
	BinOpOr:           "|",
	BinOpAnd:          "&",
	BinOpEqual:        "==",
	BinOpNotEqual:     "!=",
	BinOpLess:         "<",
	BinOpGreater:      ">",
	BinOpLessEqual:    "<=",
	BinOpGreaterEqual: ">=",
	BinOpAdd:          "+",
	BinOpSubtract:     "-",
	BinOpMultiply:     "*",
	BinOpDivide:       "/",
	BinOpModulo:       "%",
}

func (op BinaryOp) String() string {
	if s, ok := binaryOpSymbols[op]; ok {
		return s
	}
	return "?"
}

// UnaryOp is a prefix operator
type UnaryOp int

const (
	UnaryOpNot UnaryOp = iota
	UnaryOpMinus
	UnaryOpPlus
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryOpNot:
		return "!"
	case UnaryOpMinus:
		return "-"
	case UnaryOpPlus:
		return "+"
	}
	return "?"
}

// LiteralNode is a string, number, boolean or nil constant
type LiteralNode struct {
	Value interface{}
}

func (n *LiteralNode) String() string {
	if str, ok := n.Value.(string); ok {
		return fmt.Sprintf("Literal(%q)", str)
	}
	return fmt.Sprintf("Literal(%v)", n.Value)
}

func (n *LiteralNode) Evaluate(data Data) (interface{}, error) {
	return n.Value, nil
}

// VariableNode references a root variable of the data scope
type VariableNode struct {
	Name string
}

func (n *VariableNode) String() string {
	return fmt.Sprintf("Variable(%s)", n.Name)
}

func (n *VariableNode) Evaluate(data Data) (interface{}, error) {
	return EvaluateVariable(n.Name, data)
}

type BinaryOpNode struct {
	Left     ExpressionNode
	Operator BinaryOp
	Right    ExpressionNode
}

func (n *BinaryOpNode) String() string {
	return fmt.Sprintf("BinaryOp(%s %s %s)", n.Left, n.Operator, n.Right)
}

func (n *BinaryOpNode) Evaluate(data Data) (interface{}, error) {
	left, err := n.Left.Evaluate(data)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case BinOpAnd:
		if !IsTruthy(left) {
			return false, nil
		}
	case BinOpOr:
		if IsTruthy(left) {
			return true, nil
		}
	}

	right, err := n.Right.Evaluate(data)
	if err != nil {
		return nil, err
	}
	return applyBinary(n.Operator, left, right)
}

type UnaryOpNode struct {
	Operator UnaryOp
	Operand  ExpressionNode
}

func (n *UnaryOpNode) String() string {
	return fmt.Sprintf("UnaryOp(%s %s)", n.Operator, n.Operand)
}

func (n *UnaryOpNode) Evaluate(data Data) (interface{}, error) {
	operand, err := n.Operand.Evaluate(data)
	if err != nil {
		return nil, err
	}
	return applyUnary(n.Operator, operand)
}

// FieldAccessNode is obj.field
type FieldAccessNode struct {
	Object ExpressionNode
	Field  string
}

func (n *FieldAccessNode) String() string {
	return fmt.Sprintf("FieldAccess(%s.%s)", n.Object, n.Field)
}

func (n *FieldAccessNode) Evaluate(data Data) (interface{}, error) {
	obj, err := n.Object.Evaluate(data)
	if err != nil {
		return nil, err
	}
	return accessMapField(obj, n.Field), nil
}

// IndexAccessNode is obj[index]. String indices read map keys.
type IndexAccessNode struct {
	Object ExpressionNode
	Index  ExpressionNode
}

func (n *IndexAccessNode) String() string {
	return fmt.Sprintf("IndexAccess(%s[%s])", n.Object, n.Index)
}

func (n *IndexAccessNode) Evaluate(data Data) (interface{}, error) {
	obj, err := n.Object.Evaluate(data)
	if err != nil {
		return nil, err
	}
	index, err := n.Index.Evaluate(data)
	if err != nil {
		return nil, err
	}

	if key, ok := index.(string); ok {
		return accessMapField(obj, key), nil
	}
	if i, ok := toInt(index); ok {
		return accessArrayIndex(obj, i), nil
	}
	return nil, fmt.Errorf("invalid index type: %T", index)
}

type FunctionCallNode struct {
	Name string
	Args []ExpressionNode
}

func (n *FunctionCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("FunctionCall(%s, [%s])", n.Name, strings.Join(args, ", "))
}

func (n *FunctionCallNode) Evaluate(data Data) (interface{}, error) {
	registry, _ := data[functionsKey].(FunctionRegistry)
	if registry == nil {
		registry = GetDefaultFunctionRegistry()
	}

	fn, ok := registry.GetFunction(n.Name)
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", n.Name)
	}

	args := make([]interface{}, len(n.Args))
	for i, arg := range n.Args {
		val, err := arg.Evaluate(data)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i+1, n.Name, err)
		}
		args[i] = val
	}
	return fn.Call(args...)
}
