package datasets

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration is matched by every construction-time configuration
	// failure: bad or empty root, unsupported transforms, invalid options.
	ErrConfiguration = errors.New("datasets: configuration error")

	// ErrEmptyCorpus is returned when no container files, or no examples,
	// are found under the root.
	ErrEmptyCorpus = fmt.Errorf("%w: empty corpus", ErrConfiguration)

	// ErrTemporalTransformUnsupported is returned by New when a temporal
	// transform is supplied. Temporal transforms are not implemented.
	ErrTemporalTransformUnsupported = fmt.Errorf("%w: temporal transforms are not implemented", ErrConfiguration)

	// ErrContainerRead is matched by every *ContainerReadError.
	ErrContainerRead = errors.New("datasets: container read error")

	// ErrOutOfRange is matched by every *IndexError.
	ErrOutOfRange = errors.New("datasets: index out of range")
)

func configErrorf(format string, args ...any) error {
	return errors.WithStack(fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...))
}

// ContainerReadError reports a container that could not be opened or read,
// or whose labels/videos arrays are missing or corrupt.
type ContainerReadError struct {
	Path string
	Op   string
	Err  error
}

func (e *ContainerReadError) Error() string {
	return fmt.Sprintf("datasets: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ContainerReadError) Unwrap() error { return e.Err }

func (e *ContainerReadError) Is(target error) bool { return target == ErrContainerRead }

// IndexError reports a logical index outside [0, Len).
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("datasets: index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool { return target == ErrOutOfRange }
