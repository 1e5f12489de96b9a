package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("Hello {{.name}}")
	assert.True(t, inst.IsStatic())
	assert.False(t, inst.IsZero())

	text, err := inst.Resolve(context.Background(), map[string]any{"name": "wrapmesh"})
	require.NoError(t, err)
	assert.Equal(t, "Hello wrapmesh", text)
}

func TestInstruction_Provider(t *testing.T) {
	inst := NewInstructionFromProvider(Func(func(_ context.Context, state map[string]any) (string, error) {
		return "dyn", nil
	}))
	assert.False(t, inst.IsStatic())
	text, err := inst.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "dyn", text)
}

func TestInstruction_Zero(t *testing.T) {
	assert.True(t, Instruction{}.IsZero())
}

func TestDefaultInstruction_WithoutWraps(t *testing.T) {
	text, err := NewInstructionFromText(DefaultInstruction).Resolve(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, text, "You are wrapmesh,")
	assert.NotContains(t, text, "Wraps available")
}
