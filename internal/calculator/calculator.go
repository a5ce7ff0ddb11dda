package calculator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Operation is one of the arithmetic operations the calculator understands.
type Operation string

const (
	Add      Operation = "add"
	Subtract Operation = "subtract"
	Multiply Operation = "multiply"
	Divide   Operation = "divide"
)

// Operations returns the recognised operations in declaration order.
func Operations() []Operation {
	return []Operation{Add, Subtract, Multiply, Divide}
}

// Request is the parameter object of a calculator call.
type Request struct {
	Operation Operation `json:"operation"`
	A         float64   `json:"a"`
	B         float64   `json:"b"`
}

// Result is the value returned by a successful call.
type Result struct {
	Result float64 `json:"result"`
}

// MarshalJSON encodes results that overflowed to an infinity, or are NaN, as
// null since JSON has no literal for them.
func (r Result) MarshalJSON() ([]byte, error) {
	if math.IsInf(r.Result, 0) || math.IsNaN(r.Result) {
		return []byte(`{"result":null}`), nil
	}
	type plain Result
	return json.Marshal(plain(r))
}

// ErrDivisionByZero is returned when dividing by zero. The message is part of
// the wire contract and must not change.
var ErrDivisionByZero = errors.New("Division by zero is not allowed") //nolint:stylecheck

// UnknownOperationError is returned for operations outside Operations().
type UnknownOperationError struct {
	Operation string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("Unknown operation: %s", e.Operation)
}

// Calculate applies op to a and b using float64 arithmetic. It has no side
// effects and is safe for concurrent use.
func Calculate(op Operation, a, b float64) (Result, error) {
	switch op {
	case Add:
		return Result{Result: a + b}, nil
	case Subtract:
		return Result{Result: a - b}, nil
	case Multiply:
		return Result{Result: a * b}, nil
	case Divide:
		if b == 0 {
			return Result{}, ErrDivisionByZero
		}
		return Result{Result: a / b}, nil
	default:
		return Result{}, &UnknownOperationError{Operation: string(op)}
	}
}

// Handle is Calculate for a decoded Request.
func Handle(req Request) (Result, error) {
	return Calculate(req.Operation, req.A, req.B)
}
