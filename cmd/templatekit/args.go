// ABOUTME: Minimal flag parsing shared by the subcommands
// ABOUTME: Accepts "--flag value", "--flag=value" and boolean switches

package main

import (
	"fmt"
	"strings"
)

// flags describes the flags one subcommand accepts. Aliases map to the
// same target, e.g. "-o" and "--output".
type flags struct {
	bools   map[string]*bool
	strings map[string]*string
}

// parse fills the registered targets and returns positional arguments.
func (f flags) parse(args []string) ([]string, error) {
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positional = append(positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(arg, "=")
		if b, ok := f.bools[name]; ok {
			if hasValue {
				switch strings.ToLower(value) {
				case "true", "1", "yes":
					*b = true
				case "false", "0", "no":
					*b = false
				default:
					return nil, fmt.Errorf("%s expects a boolean, got %q", name, value)
				}
				continue
			}
			*b = true
			continue
		}
		if s, ok := f.strings[name]; ok {
			if !hasValue {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			*s = value
			continue
		}
		return nil, fmt.Errorf("unknown flag: %s", name)
	}
	return positional, nil
}
