package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunError_FormatsWithoutElement(t *testing.T) {
	err := &RunError{
		Graph:   "pipeline",
		Node:    "fetch",
		Phase:   PhaseExec,
		Element: -1,
		Err:     errors.New("boom"),
	}
	assert.Equal(t, `graph "pipeline": node "fetch": exec phase: boom`, err.Error())
}

func TestRunError_FormatsWithElement(t *testing.T) {
	err := &RunError{
		Graph:   "pipeline",
		Node:    "fanout",
		Phase:   PhaseExec,
		Element: 2,
		Err:     errors.New("boom"),
	}
	assert.Contains(t, err.Error(), "element 2")
}

func TestRunError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("root cause")
	err := &RunError{Graph: "g", Node: "n", Phase: PhasePost, Element: -1, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), cause)
}

func TestElementError_Unwrap(t *testing.T) {
	cause := errors.New("bad item")
	err := &ElementError{Index: 3, Item: "x", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "element 3")

	var elem *ElementError
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &elem))
	assert.Equal(t, 3, elem.Index)
}
