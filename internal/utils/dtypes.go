package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
)

// dtypePrefixes maps the lower-case family of a dtype name to its short form. Longer families come
// first, so "bfloat16" is not taken as "float".
var dtypePrefixes = []struct{ family, short string }{
	{"bfloat", "bf"},
	{"float", "f"},
	{"uint", "ui"},
	{"int", "i"},
}

// DTypeToText returns the short textual name of a dtype used in serialized specs: the initials of its
// family followed by its bit width, e.g. "f32", "bf16", "ui8" or "i64". Booleans are "i1".
func DTypeToText(dtype dtypes.DType) string {
	if dtype == dtypes.Bool {
		return "i1"
	}
	name := strings.ToLower(dtype.String())
	if bits, found := strings.CutPrefix(name, "complex"); found {
		// Complex numbers are named by their total size, made of two floats.
		if n, err := strconv.Atoi(bits); err == nil {
			return fmt.Sprintf("complex<f%d>", n/2)
		}
	}
	for _, p := range dtypePrefixes {
		if bits, found := strings.CutPrefix(name, p.family); found {
			if _, err := strconv.Atoi(bits); err == nil {
				return p.short + bits
			}
		}
	}
	return fmt.Sprintf("unknown_dtype<%s>", dtype)
}
