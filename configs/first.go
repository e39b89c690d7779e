package configs

import (
	"errors"
	"fmt"
)

// First decodes the value at path from the highest-precedence file that sets it.
// Unset keys yield T's zero value; a value that fails the schema panics with the key named.
func First[T any](loader Loader, path string) (ret T) {
	err := loader.AssignFirst(path, &ret)
	switch {
	case err == nil:
		return ret
	case errors.Is(err, ErrValueNotFound):
		var zero T
		return zero
	}
	panic(fmt.Errorf("config %s: %w", path, err))
}
