package scoring

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOption means an answer cannot be resolved to an option of the
	// question it was given for. Normalization aborts and emits nothing.
	ErrUnknownOption = errors.New("unknown option")

	// ErrNoMajorsAvailable means there is nothing to recommend.
	ErrNoMajorsAvailable = errors.New("no majors available")
)

// UnknownOptionError identifies the offending answer.
type UnknownOptionError struct {
	QuestionID int64
	OptionID   int64
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown option %d for question %d", e.OptionID, e.QuestionID)
}

func (e *UnknownOptionError) Is(target error) bool {
	return target == ErrUnknownOption
}
