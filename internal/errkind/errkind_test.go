package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesIs(t *testing.T) {
	cause := errors.New("disk read failed")
	wrapped := Wrap(StateLoadFailure, cause)

	assert.True(t, errors.Is(wrapped, StateLoadFailure))
	assert.Contains(t, wrapped.Error(), "disk read failed")
	assert.Contains(t, wrapped.Error(), StateLoadFailure.Error())
}

func TestWrapNilCause(t *testing.T) {
	wrapped := Wrap(NameCollision, nil)
	assert.Equal(t, NameCollision, wrapped)
}

func TestKindsAreDistinct(t *testing.T) {
	kinds := []error{
		NameCollision, JournalNotActive, JournalRotated, UsnGap,
		EnumerationFailure, LinkFailure, ManifestMiss, SizeMismatch,
		NameEncoding, CopyFailure, StateLoadFailure, AlreadyExists,
	}
	for i, a := range kinds {
		for j, b := range kinds {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "kind %v should not match kind %v", a, b)
		}
	}
}
