package eventqueue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestOnVariants_TargetExplicitQueue verifies the On helpers leave the default queue alone
// Given: A private queue and a reset default queue
// When: EachOn, LoopOn and LoopDoOn are started on the private queue
// Then: Only the private queue holds work and all three complete when it is drained
func TestOnVariants_TargetExplicitQueue(t *testing.T) {
	// Arrange
	def := ResetDefault(nil)
	t.Cleanup(DestroyDefault)
	q := NewQueue(WithName("private"))
	errLoop := errors.New("loop stop")
	var got []error
	record := func(err error) { got = append(got, err) }

	// Act
	EachOn(q, []string{"a"}, func(_ string, done Callback) { done(nil) }, record)
	LoopOn(q, nil, func(done Callback) { done(errLoop) }, record)
	LoopDoOn(q, func(done Callback) { done(nil) }, func() bool { return false }, record)

	// Assert
	assert.Equal(t, 0, def.LocalSize())
	assert.Equal(t, 3, q.LocalSize())
	q.Run(0)
	assert.ElementsMatch(t, []error{nil, errLoop, nil}, got)
}
