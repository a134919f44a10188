package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(Delivery, base, "send to %s", "a@b.c"))

	assert.Equal(t, Delivery, KindOf(err))
	assert.True(t, IsKind(err, Delivery))
	assert.False(t, IsKind(err, NotFound))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "send to a@b.c", Message(err))

	assert.Equal(t, Internal, KindOf(base))
	assert.Equal(t, "boom", Message(base))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "vendor not found", New(NotFound, "vendor not found").Error())
	assert.Equal(t, "x: y", Wrap(Internal, errors.New("y"), "x").Error())
	assert.Equal(t, "conflict", Conflict.String())
}
