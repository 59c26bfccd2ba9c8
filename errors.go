package ndmesh

import (
	"github.com/pkg/errors"
)

// Contract violations. The engine panics with one of these wrapped in
// context; recover the value and test it with errors.Is.
var (
	ErrRankMismatch       = errors.New("ndmesh: rank mismatch")
	ErrInvalidPermutation = errors.New("ndmesh: invalid permutation")
	ErrInvalidRefinement  = errors.New("ndmesh: invalid refinement")
	ErrEmptyRange         = errors.New("ndmesh: empty range")
	ErrOutOfBounds        = errors.New("ndmesh: coordinate out of bounds")
	ErrCapacity           = errors.New("ndmesh: allocation capacity exceeded")
	ErrDuplicateIterator  = errors.New("ndmesh: iterator repeated in index list")
	ErrUnboundIterator    = errors.New("ndmesh: iterator not bound by assignment")
	ErrIndexExpression    = errors.New("ndmesh: expression used as assignment index")
	ErrOperand            = errors.New("ndmesh: invalid operand")
)

// I/O errors returned by the persistence layer.
var (
	ErrNotfound      = errors.New("not found")
	ErrExists        = errors.New("already exists")
	ErrReadOnly      = errors.New("array opened read only")
	ErrDtypeMismatch = errors.New("dtype does not match element type")
)

// violate panics with sentinel wrapped in a formatted message and a stack trace.
func violate(sentinel error, format string, args ...interface{}) {
	panic(errors.Wrapf(sentinel, format, args...))
}
