package opgraph

import (
	"fmt"
)

// InputArityError is returned when an operator is called with a number of positional inputs outside
// the bounds of its schema.
type InputArityError struct {
	Op       string
	Min, Max int
	Got      int
}

func (e *InputArityError) Error() string {
	return fmt.Sprintf("operator %s expects [%d, %d] inputs, but received %d", e.Op, e.Min, e.Max, e.Got)
}

// InputTypeError is returned when an input, an element of an input set, or an argument input is not
// a valid edge of the graph being built, or when plain edges and input sets are mixed.
type InputTypeError struct {
	Op string
	// Input is the name of the argument for argument inputs, or the position of the input ("input 1").
	Input string
	Got   string
}

func (e *InputTypeError) Error() string {
	return fmt.Sprintf("operator %s: %s: %s", e.Op, e.Input, e.Got)
}

// InputShapeMismatchError is returned when the input sets given to an operator have different lengths.
type InputShapeMismatchError struct {
	Op       string
	Index    int
	Expected int
	Got      int
}

func (e *InputShapeMismatchError) Error() string {
	if e.Expected == 0 && e.Got == 0 {
		return fmt.Sprintf("operator %s: input %d is an empty input set", e.Op, e.Index)
	}
	return fmt.Sprintf("operator %s: all input sets must have the same length %d, but input %d has length %d",
		e.Op, e.Expected, e.Index, e.Got)
}

// ArgumentTypeError is returned when a literal argument is not valid: an empty list, a value that
// cannot be converted to the type the schema declares, or an argument that can't be given at that point.
type ArgumentTypeError struct {
	Op  string
	Arg string
	Err error
}

func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("operator %s, argument %q: %v", e.Op, e.Arg, e.Err)
}

func (e *ArgumentTypeError) Unwrap() error {
	return e.Err
}

// SchemaValidationError is returned when the schema rejects the fully built spec of a node,
// e.g. because a required argument is missing.
type SchemaValidationError struct {
	Op  string
	Err error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("operator %s: invalid arguments: %v", e.Op, e.Err)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}
