package opgraph

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gomlx/opgraph/types"
)

// GenerateDoc returns the documentation of an operator: the device classes it runs on, its schema
// documentation, notes on sequences, deprecation and pruning, and its parameters with their types
// and defaults.
func GenerateDoc(d *Descriptor) string {
	s := d.Schema()
	var sb strings.Builder
	w := func(format string, args ...any) {
		_, _ = fmt.Fprintf(&sb, format, args...)
	}

	devices := make([]string, len(d.devices))
	for i, affinity := range d.devices {
		devices[i] = "'" + affinityDocName(affinity) + "'"
	}
	w(".. _%s:\n\n", d.name)
	w("This is a %s operator\n\n", strings.Join(devices, ", "))
	w("%s\n", s.Doc())

	if s.IsSequenceOperator() {
		w("\nThis operator expects sequence inputs\n")
	} else if s.AllowsSequences() {
		w("\nThis operator allows sequence inputs\n")
	}
	if s.IsDeprecated() {
		w("\n.. warning::\n\n   This operator is now deprecated")
		if inFavorOf := s.DeprecatedInFavorOf(); inFavorOf != "" {
			w(". Use `%s` instead", inFavorOf)
		}
		w("\n")
	}
	if s.IsNoPrune() {
		w("\nThis operator will **not** be optimized out of the graph.\n")
	}

	w("\nParameters\n----------\n")
	for _, arg := range s.ArgumentNames() {
		argType, _ := s.ArgumentType(arg)
		nameDoc := "`" + arg + "` : "
		w("%s%s", nameDoc, argType.DocName(s.IsTensorArgument(arg)))
		if s.IsArgumentOptional(arg) {
			w(", optional")
			if value, found := s.ArgumentDefault(arg); found {
				w(", default = %s", defaultToDoc(value))
			}
		}
		indent := "\n" + strings.Repeat(" ", len(nameDoc))
		w("%s%s\n", indent, strings.ReplaceAll(s.ArgumentDoc(arg), "\n", indent))
	}
	return sb.String()
}

func affinityDocName(affinity types.DeviceAffinity) string {
	switch affinity {
	case types.AffinityCPU, types.AffinityGPU:
		return strings.ToUpper(affinity.String())
	}
	return affinity.String()
}

func defaultToDoc(value any) string {
	if str, ok := value.(string); ok {
		return "'" + str + "'"
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		elems := make([]string, rv.Len())
		for i := range elems {
			elems[i] = defaultToDoc(rv.Index(i).Interface())
		}
		return "[" + strings.Join(elems, ", ") + "]"
	}
	return fmt.Sprintf("%v", value)
}
