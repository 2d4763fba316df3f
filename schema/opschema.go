package schema

import (
	"math"
	"reflect"
	"slices"
	"sort"

	"github.com/gomlx/opgraph/internal/utils"
	"github.com/gomlx/opgraph/spec"
	"github.com/gomlx/opgraph/types"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Names of the arguments every operator accepts.
const (
	ArgDevice             = "device"
	ArgPreserve           = "preserve"
	ArgSeed               = "seed"
	ArgBytesPerSampleHint = "bytes_per_sample_hint"

	// ArgNumInputSets is set by the graph builder when the inputs are given as input sets.
	// It is not listed by ArgumentNames.
	ArgNumInputSets = "num_input_sets"
)

// MaxNumInputUnbounded can be used as the maximum of NumInputRange for operators taking any number of inputs.
const MaxNumInputUnbounded = math.MaxInt32

type argDef struct {
	name     string
	argType  types.ArgType
	doc      string
	optional bool
	def      any
	tensor   bool
}

// OutputFn calculates a number of outputs from the node's spec.
type OutputFn func(s *spec.OpSpec) (int, error)

// OpSchema is a Schema configured with chained calls, see New.
//
// Configuration errors (e.g. an invalid default value) are kept and returned by Err; Catalog.Register
// refuses schemas with errors.
type OpSchema struct {
	name, doc                string
	minNumInput, maxNumInput int
	numOutput                int
	outputFn                 OutputFn
	outputsArg               string
	numAdditionalOutput      int
	additionalOutputFn       OutputFn
	allowMultipleInputSets   bool
	noPrune                  bool
	deprecated               bool
	inFavorOf                string
	sequenceOperator         bool
	allowSequences           bool
	args                     *orderedmap.OrderedMap[string, *argDef]
	err                      error
}

var _ Schema = (*OpSchema)(nil)

// New creates a schema for an operator with no inputs and one output. It includes the arguments
// common to all operators: device, preserve, seed and bytes_per_sample_hint.
func New(name string) *OpSchema {
	s := &OpSchema{
		name:      name,
		numOutput: 1,
		args:      orderedmap.New[string, *argDef](),
	}
	s.AddOptionalArg(ArgDevice, types.ArgString, nil,
		`Device the operator runs on, "cpu", "gpu" or "mixed". Defaults to the first class it is registered for.`)
	s.AddOptionalArg(ArgPreserve, types.ArgBool, false, "Prevents the operator from being removed from the graph even if its outputs are not used.")
	s.AddOptionalArg(ArgSeed, types.ArgInt64, int64(-1), "Random seed. If not provided, it will be populated based on the global seed of the pipeline.")
	s.AddOptionalArg(ArgBytesPerSampleHint, types.ArgInt64Vec, []int64{0}, "Output size hint, in bytes per sample.")
	return s
}

// Err returns the first configuration error, if any.
func (s *OpSchema) Err() error {
	return s.err
}

func (s *OpSchema) setErr(err error) {
	if s.err == nil {
		s.err = errors.WithMessagef(err, "schema %q", s.name)
	}
}

// DocStr sets the documentation of the operator.
func (s *OpSchema) DocStr(doc string) *OpSchema {
	s.doc = doc
	return s
}

// NumInput sets a fixed number of inputs.
func (s *OpSchema) NumInput(n int) *OpSchema {
	return s.NumInputRange(n, n)
}

// NumInputRange sets the accepted range of inputs, inclusive.
func (s *OpSchema) NumInputRange(minNum, maxNum int) *OpSchema {
	if minNum < 0 || maxNum < minNum {
		s.setErr(errors.Errorf("invalid number of inputs range [%d, %d]", minNum, maxNum))
		return s
	}
	s.minNumInput, s.maxNumInput = minNum, maxNum
	return s
}

// NumOutput sets a fixed number of outputs.
func (s *OpSchema) NumOutput(n int) *OpSchema {
	if n < 0 {
		s.setErr(errors.Errorf("invalid number of outputs %d", n))
		return s
	}
	s.numOutput = n
	s.outputFn, s.outputsArg = nil, ""
	return s
}

// OutputFn sets a function calculating the number of outputs.
func (s *OpSchema) OutputFn(fn OutputFn) *OpSchema {
	s.outputFn, s.outputsArg = fn, ""
	return s
}

// OutputsFromArg makes the number of outputs the value of an int argument, or the length of a list
// argument.
func (s *OpSchema) OutputsFromArg(argName string) *OpSchema {
	s.outputFn, s.outputsArg = nil, argName
	return s
}

// AdditionalOutputs sets a fixed number of outputs produced on top of the regular ones.
func (s *OpSchema) AdditionalOutputs(n int) *OpSchema {
	if n < 0 {
		s.setErr(errors.Errorf("invalid number of additional outputs %d", n))
		return s
	}
	s.numAdditionalOutput, s.additionalOutputFn = n, nil
	return s
}

// AdditionalOutputsFn sets a function calculating the number of additional outputs.
func (s *OpSchema) AdditionalOutputsFn(fn OutputFn) *OpSchema {
	s.additionalOutputFn = fn
	return s
}

// AllowMultipleInputSets allows the inputs to be given as input sets: the operator is then replicated
// per set, and the number of outputs is multiplied by the number of sets.
func (s *OpSchema) AllowMultipleInputSets() *OpSchema {
	s.allowMultipleInputSets = true
	return s
}

// NoPrune marks nodes of this operator to be always preserved.
func (s *OpSchema) NoPrune() *OpSchema {
	s.noPrune = true
	return s
}

// Deprecate marks the operator as deprecated. inFavorOf is the name of the replacement, it can be empty.
func (s *OpSchema) Deprecate(inFavorOf string) *OpSchema {
	s.deprecated, s.inFavorOf = true, inFavorOf
	return s
}

// SequenceOperator marks the operator as expecting sequence inputs.
func (s *OpSchema) SequenceOperator() *OpSchema {
	s.sequenceOperator = true
	return s
}

// AllowSequences marks the operator as accepting sequences as inputs.
func (s *OpSchema) AllowSequences() *OpSchema {
	s.allowSequences = true
	return s
}

// AddArg adds a required argument.
func (s *OpSchema) AddArg(name string, t types.ArgType, doc string) *OpSchema {
	return s.addArg(&argDef{name: name, argType: t, doc: doc})
}

// AddOptionalArg adds an optional argument. defaultValue may be nil for optional arguments without a default.
func (s *OpSchema) AddOptionalArg(name string, t types.ArgType, defaultValue any, doc string) *OpSchema {
	return s.addArg(&argDef{name: name, argType: t, doc: doc, optional: true, def: defaultValue})
}

// AddTensorArg adds a required argument that can also be fed per sample by an edge.
func (s *OpSchema) AddTensorArg(name string, t types.ArgType, doc string) *OpSchema {
	return s.addArg(&argDef{name: name, argType: t, doc: doc, tensor: true})
}

// AddOptionalTensorArg adds an optional argument that can also be fed per sample by an edge.
func (s *OpSchema) AddOptionalTensorArg(name string, t types.ArgType, defaultValue any, doc string) *OpSchema {
	return s.addArg(&argDef{name: name, argType: t, doc: doc, optional: true, def: defaultValue, tensor: true})
}

func (s *OpSchema) addArg(def *argDef) *OpSchema {
	if def.name == "" || def.name == ArgNumInputSets {
		s.setErr(errors.Errorf("invalid argument name %q", def.name))
		return s
	}
	if !def.argType.IsAArgType() {
		s.setErr(errors.Errorf("argument %q has invalid type %s", def.name, def.argType))
		return s
	}
	if def.def != nil {
		converted, err := types.ConvertValue(def.argType, def.def)
		if err != nil {
			s.setErr(errors.WithMessagef(err, "default value of argument %q", def.name))
			return s
		}
		def.def = converted
	}
	s.args.Set(def.name, def)
	return s
}

// Name implements Schema.
func (s *OpSchema) Name() string { return s.name }

// Doc implements Schema.
func (s *OpSchema) Doc() string { return s.doc }

// MinNumInput implements Schema.
func (s *OpSchema) MinNumInput() int { return s.minNumInput }

// MaxNumInput implements Schema.
func (s *OpSchema) MaxNumInput() int { return s.maxNumInput }

// AllowsMultipleInputSets implements Schema.
func (s *OpSchema) AllowsMultipleInputSets() bool { return s.allowMultipleInputSets }

// IsDeprecated implements Schema.
func (s *OpSchema) IsDeprecated() bool { return s.deprecated }

// DeprecatedInFavorOf implements Schema.
func (s *OpSchema) DeprecatedInFavorOf() string { return s.inFavorOf }

// IsNoPrune implements Schema.
func (s *OpSchema) IsNoPrune() bool { return s.noPrune }

// IsSequenceOperator implements Schema.
func (s *OpSchema) IsSequenceOperator() bool { return s.sequenceOperator }

// AllowsSequences implements Schema.
func (s *OpSchema) AllowsSequences() bool { return s.allowSequences }

// CalculateOutputs implements Schema.
//
// With input sets, the count is multiplied by the number of sets.
func (s *OpSchema) CalculateOutputs(sp *spec.OpSpec) (int, error) {
	var (
		n   int
		err error
	)
	switch {
	case s.outputFn != nil:
		n, err = s.outputFn(sp)
	case s.outputsArg != "":
		n, err = s.countFromArg(sp, s.outputsArg)
	default:
		n = s.numOutput
	}
	if err != nil {
		return 0, errors.WithMessagef(err, "calculating outputs of %q", s.name)
	}
	if s.allowMultipleInputSets {
		n *= numInputSets(sp)
	}
	return n, nil
}

// CalculateAdditionalOutputs implements Schema.
func (s *OpSchema) CalculateAdditionalOutputs(sp *spec.OpSpec) (int, error) {
	if s.additionalOutputFn == nil {
		return s.numAdditionalOutput, nil
	}
	n, err := s.additionalOutputFn(sp)
	if err != nil {
		return 0, errors.WithMessagef(err, "calculating additional outputs of %q", s.name)
	}
	return n, nil
}

// countFromArg returns the value of an int argument, or the length of a list argument.
func (s *OpSchema) countFromArg(sp *spec.OpSpec, argName string) (int, error) {
	value, found := sp.Arg(argName)
	if !found {
		value, found = s.ArgumentDefault(argName)
	}
	if !found {
		return 0, errors.Errorf("argument %q, which defines the number of outputs, is not set", argName)
	}
	switch v := value.(type) {
	case int64:
		if v < 0 {
			return 0, errors.Errorf("argument %q must be non-negative, got %d", argName, v)
		}
		return int(v), nil
	case int:
		if v < 0 {
			return 0, errors.Errorf("argument %q must be non-negative, got %d", argName, v)
		}
		return v, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		return rv.Len(), nil
	}
	return 0, errors.Errorf("argument %q of type %T cannot define a number of outputs", argName, value)
}

// numInputSets returns the number of input sets recorded in the spec, 1 if not set.
func numInputSets(sp *spec.OpSpec) int {
	if v, found := sp.Arg(ArgNumInputSets); found {
		if n, ok := v.(int64); ok && n > 0 {
			return int(n)
		}
	}
	return 1
}

// ArgumentNames implements Schema.
//
// Names are sorted on purpose, not returned in declaration order: generated docs and error messages
// list arguments alphabetically, the same order the operator catalogs keep them in. The declaration
// order is only used internally, to walk the arguments deterministically while validating.
func (s *OpSchema) ArgumentNames() []string {
	names := make([]string, 0, s.args.Len())
	for pair := s.args.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	sort.Strings(names)
	return names
}

// HasArgument implements Schema.
func (s *OpSchema) HasArgument(name string) bool {
	_, found := s.args.Get(name)
	return found
}

// ArgumentType implements Schema.
func (s *OpSchema) ArgumentType(name string) (types.ArgType, bool) {
	def, found := s.args.Get(name)
	if !found {
		return 0, false
	}
	return def.argType, true
}

// IsArgumentOptional implements Schema.
func (s *OpSchema) IsArgumentOptional(name string) bool {
	def, found := s.args.Get(name)
	return found && def.optional
}

// ArgumentDefault implements Schema.
func (s *OpSchema) ArgumentDefault(name string) (value any, found bool) {
	def, found := s.args.Get(name)
	if !found || def.def == nil {
		return nil, false
	}
	return def.def, true
}

// ArgumentDoc implements Schema.
func (s *OpSchema) ArgumentDoc(name string) string {
	if def, found := s.args.Get(name); found {
		return def.doc
	}
	return ""
}

// IsTensorArgument implements Schema.
func (s *OpSchema) IsTensorArgument(name string) bool {
	def, found := s.args.Get(name)
	return found && def.tensor
}

// CheckArgs implements Schema. It verifies that:
//
//   - every literal argument is known and holds a value of its declared type;
//   - every argument input feeds a known tensor argument, which is not also given as a literal;
//   - every required argument is set;
//   - input sets are only used if allowed, and the number of positional inputs fits the schema.
func (s *OpSchema) CheckArgs(sp *spec.OpSpec) error {
	known := s.ArgumentNames()
	for _, name := range sp.ArgNames() {
		if name == ArgNumInputSets {
			continue
		}
		def, found := s.args.Get(name)
		if !found {
			return errors.Errorf("operator %q got an unexpected argument %q%s", s.name, name, utils.DidYouMean(name, known))
		}
		value, _ := sp.Arg(name)
		if _, err := types.ConvertValue(def.argType, value); err != nil {
			return errors.WithMessagef(err, "operator %q argument %q", s.name, name)
		}
	}

	for _, ai := range sp.ArgumentInputs() {
		def, found := s.args.Get(ai.Arg)
		if !found {
			return errors.Errorf("operator %q got an unexpected argument input %q%s", s.name, ai.Arg, utils.DidYouMean(ai.Arg, known))
		}
		if !def.tensor {
			return errors.Errorf("argument %q of operator %q is not a tensor argument and cannot be fed by edge %q", ai.Arg, s.name, ai.Edge)
		}
		if _, isLiteral := sp.Arg(ai.Arg); isLiteral {
			return errors.Errorf("argument %q of operator %q given both as a literal and as an argument input", ai.Arg, s.name)
		}
	}

	var missing []string
	for pair := s.args.Oldest(); pair != nil; pair = pair.Next() {
		if !pair.Value.optional && !sp.HasArg(pair.Key) {
			missing = append(missing, pair.Key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.Errorf("operator %q is missing required arguments %q", s.name, missing)
	}

	numSets := numInputSets(sp)
	if numSets > 1 && !s.allowMultipleInputSets {
		return errors.Errorf("operator %q does not support multiple input sets, got %d", s.name, numSets)
	}
	numInputs := sp.NumRegularInputs()
	if numInputs%numSets != 0 {
		return errors.Errorf("operator %q got %d inputs, which is not a multiple of the %d input sets", s.name, numInputs, numSets)
	}
	perSet := numInputs / numSets
	if perSet < s.minNumInput || perSet > s.maxNumInput {
		return errors.Errorf("operator %q expects [%d, %d] inputs per input set, but got %d", s.name, s.minNumInput, s.maxNumInput, perSet)
	}
	return nil
}
