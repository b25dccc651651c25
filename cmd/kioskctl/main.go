package main

import (
	"errors"
	"fmt"
	"os"

	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor routes error kinds to distinct exit codes so scripts can
// react without parsing messages: bad input 2, command execution failure 3,
// declined elevation 4, anything else 1.
func exitCodeFor(err error) int {
	var validationErr *kioskerrors.ValidationError
	var parseErr *kioskerrors.ParseError
	var declinedErr *kioskerrors.ElevationDeclinedError
	var execErr *kioskerrors.ExecutionError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &parseErr):
		return 2
	case errors.As(err, &declinedErr):
		return 4
	case errors.As(err, &execErr):
		return 3
	default:
		return 1
	}
}
