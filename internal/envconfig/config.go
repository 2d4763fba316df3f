// Package envconfig reads the configuration of the opgraph command line from environment variables.
//
// Invalid values are logged and replaced by their defaults. Flags given on the command line take
// precedence over these values.
package envconfig

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// Names of the environment variables.
const (
	SchemasVar   = "OPGRAPH_SCHEMAS"
	VerbosityVar = "OPGRAPH_VERBOSITY"
	FormatVar    = "OPGRAPH_FORMAT"
)

// Formats accepted by Format.
var Formats = []string{"text", "json"}

// Var returns the value of an environment variable, trimmed of spaces and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// Schemas returns the schema manifest files or directories to load, in addition to the builtin ones.
// It is a list separated by the OS path list separator.
func Schemas() []string {
	var paths []string
	for _, path := range filepath.SplitList(Var(SchemasVar)) {
		if path = strings.TrimSpace(path); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// Verbosity returns the klog verbosity level. Default: 0.
func Verbosity() int {
	return nonNegativeInt(VerbosityVar, 0)
}

// Format returns the output format of built graphs, "text" or "json". Default: "text".
func Format() string {
	s := strings.ToLower(Var(FormatVar))
	if s == "" {
		return Formats[0]
	}
	for _, format := range Formats {
		if s == format {
			return format
		}
	}
	klog.InfoS("invalid environment variable, using default", "key", FormatVar, "value", s, "default", Formats[0])
	return Formats[0]
}

func nonNegativeInt(key string, defaultValue int) int {
	s := Var(key)
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		klog.InfoS("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
		return defaultValue
	}
	return n
}

// EnvVar describes one environment variable and its current value.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns all configuration variables, by name.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		SchemasVar:   {SchemasVar, Schemas(), "Schema manifest files or directories to load, separated by " + string(os.PathListSeparator)},
		VerbosityVar: {VerbosityVar, Verbosity(), "Log verbosity level (default 0)"},
		FormatVar:    {FormatVar, Format(), "Output format of built graphs, text or json (default text)"},
	}
}
