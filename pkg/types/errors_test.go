package types

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Formatting(t *testing.T) {
	plain := NewError("disk %s is full", "sda")
	assert.Equal(t, "[ERROR] disk sda is full", plain.Error())

	fatal := NewFatal("bad config")
	assert.Equal(t, "[FATAL] bad config", fatal.Error())

	wrapped := WrapError(errors.New("boom"), "running step %d", 3)
	assert.Equal(t, "[ERROR] running step 3: boom", wrapped.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := fs.ErrNotExist
	wrapped := WrapFatal(cause, "loading key")

	assert.ErrorIs(t, wrapped, fs.ErrNotExist)
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewFatal("x")))
	assert.False(t, IsFatal(NewError("x")))
	assert.False(t, IsFatal(errors.New("untagged")))
	assert.False(t, IsFatal(nil))

	// Severity survives further wrapping.
	inner := NewFatal("structural problem")
	outer := fmt.Errorf("outer context: %w", inner)
	assert.True(t, IsFatal(outer))

	step := NewStepError("1", "a", NewFatal("bad"))
	assert.True(t, IsFatal(step))
}

func TestIsFatal_FirstTagWins(t *testing.T) {
	// errors.As stops at the outermost tagged error, so re-wrapping a
	// fatal cause with ERROR severity downgrades it for callers.
	downgraded := WrapError(NewFatal("inner"), "retried")
	assert.False(t, IsFatal(downgraded))
}

func TestStepError_Formatting(t *testing.T) {
	withSub := NewStepError("2", "1", errors.New("boom"))
	assert.Equal(t, "step 2.1: boom", withSub.Error())

	withoutSub := NewStepError("2", "", errors.New("boom"))
	assert.Equal(t, "step 2: boom", withoutSub.Error())
}

func TestStepError_Unwrap(t *testing.T) {
	cause := NewError("plugin exploded")
	step := NewStepError("5", "2", cause)

	var tagged *Error
	require.True(t, errors.As(step, &tagged))
	assert.Equal(t, SeverityError, tagged.Severity)
}
