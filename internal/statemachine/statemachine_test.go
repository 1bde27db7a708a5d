package statemachine_test

import (
	"errors"
	"testing"

	"resell/internal/errs"
	"resell/internal/statemachine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type light string

const (
	red    light = "RED"
	green  light = "GREEN"
	yellow light = "YELLOW"
	off    light = "OFF"
)

type lamp struct{ status light }

func (l *lamp) GetStatus() light  { return l.status }
func (l *lamp) SetStatus(s light) { l.status = s }

func newLightMachine() *statemachine.Machine[light] {
	return statemachine.New("light", statemachine.Table[light]{
		red:    {green, off},
		green:  {yellow, off},
		yellow: {red, off},
	})
}

func TestMachine_CanTransition(t *testing.T) {
	m := newLightMachine()

	assert.True(t, m.CanTransition(red, green))
	assert.True(t, m.CanTransition(yellow, off))
	assert.False(t, m.CanTransition(red, yellow))
	assert.False(t, m.CanTransition(off, red))
	assert.False(t, m.CanTransition("UNKNOWN", red))
}

func TestMachine_TransitionError(t *testing.T) {
	m := newLightMachine()

	next, err := m.Transition(red, green)
	require.NoError(t, err)
	assert.Equal(t, green, next)

	next, err = m.Transition(green, red)
	require.Error(t, err)
	assert.Equal(t, green, next)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
	assert.Contains(t, err.Error(), "light")
	assert.Contains(t, err.Error(), "GREEN -> RED")
}

func TestMachine_Apply(t *testing.T) {
	m := newLightMachine()
	l := &lamp{status: red}

	require.NoError(t, m.Apply(l, green))
	assert.Equal(t, green, l.status)

	err := m.Apply(l, green)
	assert.Error(t, err)
	assert.Equal(t, green, l.status, "status must not change on a rejected transition")
}

func TestMachine_TerminalAndStates(t *testing.T) {
	m := newLightMachine()

	assert.True(t, m.IsTerminal(off), "states only reachable as targets are terminal")
	assert.False(t, m.IsTerminal(red))
	assert.False(t, m.IsTerminal("UNKNOWN"))
	assert.Equal(t, []light{green, off, red, yellow}, m.States())
}
