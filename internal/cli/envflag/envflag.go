// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package envflag provides a wrapper around the standard flag package,
// allowing flags to be overridden by environment variables.
package envflag

import (
	"flag"
	"strconv"
)

// Type is a constraint that permits only types supported by envflag package.
type Type interface {
	int | int64 | float64 | bool | string
}

// Value sets up a flag with the given name, default value, and usage
// information.
//
// If the environment variable specified by envName is set, it overrides the
// flag's default value.
func Value[T Type](
	name, envName string, value T, usage string,
	fs *flag.FlagSet, getenv func(string) string,
) *T {
	result := value

	if envValue := getenv(envName); envValue != "" {
		switch any(value).(type) {
		case int:
			if parsed, err := strconv.Atoi(envValue); err == nil {
				result = any(parsed).(T)
			}
		case int64:
			if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
				result = any(parsed).(T)
			}
		case float64:
			if parsed, err := strconv.ParseFloat(envValue, 64); err == nil {
				result = any(parsed).(T)
			}
		case bool:
			if parsed, err := strconv.ParseBool(envValue); err == nil {
				result = any(parsed).(T)
			}
		case string:
			result = any(envValue).(T)
		}
	}

	p := new(T)
	*p = result

	switch v := any(p).(type) {
	case *int:
		fs.IntVar(v, name, any(result).(int), usage)
	case *int64:
		fs.Int64Var(v, name, any(result).(int64), usage)
	case *float64:
		fs.Float64Var(v, name, any(result).(float64), usage)
	case *bool:
		fs.BoolVar(v, name, any(result).(bool), usage)
	case *string:
		fs.StringVar(v, name, any(result).(string), usage)
	}

	return p
}
