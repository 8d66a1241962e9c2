package nodes

import (
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
)

// Kind names, as used by the registry and in project documents.
const (
	KindConstant = "constant"
	KindTime     = "time"
	KindMath     = "math"
	KindSolid    = "solid"
	KindImage    = "image"
	KindSwitch   = "switch"
	KindViewer   = "viewer"
)

// Constant outputs its value parameter unchanged. Unconnected it yields 0.
type Constant struct{}

func (Constant) Name() string { return KindConstant }

func (Constant) Inputs() []graph.PortSpec {
	return []graph.PortSpec{{Name: "value", Type: domain.TypeNumber, Default: domain.Number(0)}}
}

func (Constant) Outputs() []graph.PortSpec {
	return []graph.PortSpec{{Name: "value", Type: domain.TypeNumber}}
}

func (Constant) Evaluate(_ domain.Time, in graph.Values) (graph.Values, error) {
	return graph.Values{"value": domain.Number(in.Number("value"))}, nil
}

// Time exposes the evaluation time, both exact and in seconds.
type Time struct{}

func (Time) Name() string { return KindTime }

func (Time) Inputs() []graph.PortSpec { return nil }

func (Time) Outputs() []graph.PortSpec {
	return []graph.PortSpec{
		{Name: "time", Type: domain.TypeTime},
		{Name: "seconds", Type: domain.TypeNumber},
	}
}

func (Time) Evaluate(t domain.Time, _ graph.Values) (graph.Values, error) {
	return graph.Values{
		"time":    domain.TimeValue(t),
		"seconds": domain.Number(t.Seconds()),
	}, nil
}

// Math operators understood by the math kind.
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
	OpMin      = "min"
	OpMax      = "max"
	OpPow      = "pow"
)

var errDivideByZero = errors.New("divide by zero")

// Math combines two numbers. Unconnected operands are 0 and the operator defaults to add.
// Unknown operators and division by zero degrade the node to 0.
type Math struct{}

func (Math) Name() string { return KindMath }

func (Math) Inputs() []graph.PortSpec {
	return []graph.PortSpec{
		{Name: "a", Type: domain.TypeNumber},
		{Name: "b", Type: domain.TypeNumber},
		{Name: "op", Type: domain.TypeString, Default: domain.String(OpAdd)},
	}
}

func (Math) Outputs() []graph.PortSpec {
	return []graph.PortSpec{{Name: "result", Type: domain.TypeNumber}}
}

func (Math) Evaluate(_ domain.Time, in graph.Values) (graph.Values, error) {
	a, b := in.Number("a"), in.Number("b")

	var r float64
	switch op := in.String("op"); op {
	case OpAdd:
		r = a + b
	case OpSubtract:
		r = a - b
	case OpMultiply:
		r = a * b
	case OpDivide:
		if b == 0 {
			return nil, errDivideByZero
		}
		r = a / b
	case OpMin:
		r = math.Min(a, b)
	case OpMax:
		r = math.Max(a, b)
	case OpPow:
		r = math.Pow(a, b)
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}

	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil, fmt.Errorf("%s(%g, %g) is not finite", in.String("op"), a, b)
	}
	return graph.Values{"result": domain.Number(r)}, nil
}
