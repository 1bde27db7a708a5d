// Package statemachine validates status transitions against static transition tables.
package statemachine

import (
	"sort"

	"resell/internal/errs"
)

// Table maps a state to the states it may move to. States without successors are terminal
// and should still be listed with an empty slice so they are known to the machine.
type Table[S ~string] map[S][]S

// Stateful is an entity whose status is driven by a Machine.
type Stateful[S ~string] interface {
	GetStatus() S
	SetStatus(S)
}

// Machine is an immutable transition validator.
type Machine[S ~string] struct {
	name  string
	edges map[S]map[S]struct{}
}

// New builds a machine named name from table.
func New[S ~string](name string, table Table[S]) *Machine[S] {
	m := &Machine[S]{
		name:  name,
		edges: make(map[S]map[S]struct{}, len(table)),
	}
	for from, tos := range table {
		set := make(map[S]struct{}, len(tos))
		for _, to := range tos {
			set[to] = struct{}{}
			if _, ok := m.edges[to]; !ok {
				m.edges[to] = make(map[S]struct{})
			}
		}
		if existing, ok := m.edges[from]; ok {
			for to := range existing {
				set[to] = struct{}{}
			}
		}
		m.edges[from] = set
	}
	return m
}

// Name returns the machine name used in errors.
func (m *Machine[S]) Name() string {
	return m.name
}

// CanTransition reports whether from -> to is a declared edge.
func (m *Machine[S]) CanTransition(from, to S) bool {
	tos, ok := m.edges[from]
	if !ok {
		return false
	}
	_, ok = tos[to]
	return ok
}

// Transition returns to when the edge is declared and an invalid_state_transition error otherwise.
func (m *Machine[S]) Transition(from, to S) (S, error) {
	if !m.CanTransition(from, to) {
		return from, errs.InvalidTransition(m.name, string(from), string(to))
	}
	return to, nil
}

// Apply validates the edge from the entity's current status and sets the new status.
func (m *Machine[S]) Apply(entity Stateful[S], to S) error {
	next, err := m.Transition(entity.GetStatus(), to)
	if err != nil {
		return err
	}
	entity.SetStatus(next)
	return nil
}

// IsTerminal reports whether s is known and has no successors.
func (m *Machine[S]) IsTerminal(s S) bool {
	tos, ok := m.edges[s]
	return ok && len(tos) == 0
}

// States lists every known state in lexical order.
func (m *Machine[S]) States() []S {
	out := make([]S, 0, len(m.edges))
	for s := range m.edges {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
