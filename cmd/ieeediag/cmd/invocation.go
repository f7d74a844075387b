package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/diag"
)

// ErrUsage marks command line errors. They exit 1 like bus failures but are
// reported together with the usage text.
var ErrUsage = errors.New("usage error")

// Invocation is the parsed positional command line.
type Invocation struct {
	Help       bool
	Char       rune
	Byte       byte
	Iterations int
	// IterationsErr is set when the iteration count could not be parsed and
	// the default was used instead.
	IterationsErr error
}

// ParseInvocation interprets the positional arguments <char> [iterations].
// Arguments beyond the second are ignored. It never exits the process.
func ParseInvocation(args []string) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{}, fmt.Errorf("%w: missing character argument", ErrUsage)
	}

	arg := args[0]
	if strings.HasPrefix(arg, "-") {
		if isHelpArg(arg) {
			return Invocation{Help: true}, nil
		}
		return Invocation{}, fmt.Errorf("%w: invalid argument '%s'", ErrUsage, arg)
	}
	if arg == "" {
		return Invocation{}, fmt.Errorf("%w: empty character argument", ErrUsage)
	}

	r, _ := utf8.DecodeRuneInString(arg)
	if r == utf8.RuneError || r > 0xFF {
		return Invocation{}, fmt.Errorf("%w: character %q does not fit in a byte", ErrUsage, r)
	}

	inv := Invocation{
		Char:       r,
		Byte:       byte(r),
		Iterations: diag.DefaultIterations,
	}
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			inv.IterationsErr = fmt.Errorf("invalid iteration count %q", args[1])
		} else {
			inv.Iterations = int(n)
		}
	}
	return inv, nil
}

func isHelpArg(arg string) bool {
	return arg == "--help" || arg == "-h" || arg == "-?"
}

// normalizeArgs rewrites -? to --help; pflag cannot register '?' as a
// shorthand.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "--" {
			copy(out[i:], args[i:])
			break
		}
		if a == "-?" {
			a = "--help"
		}
		out[i] = a
	}
	return out
}
