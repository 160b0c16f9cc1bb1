// Package workflow holds the status graphs of every procurement document.
// Services consult a Machine before writing a new status so that an illegal
// request leaves the stored state untouched.
package workflow

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError describes a rejected status change. It unwraps to
// ErrInvalidTransition.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move from %q to %q", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Machine is an immutable transition table over a string-backed status type.
type Machine[S ~string] struct {
	entity string
	edges  map[S]map[S]struct{}
	known  map[S]struct{}
}

func NewMachine[S ~string](entity string, edges map[S][]S) *Machine[S] {
	m := &Machine[S]{
		entity: entity,
		edges:  make(map[S]map[S]struct{}, len(edges)),
		known:  make(map[S]struct{}),
	}
	for from, tos := range edges {
		m.known[from] = struct{}{}
		set := make(map[S]struct{}, len(tos))
		for _, to := range tos {
			set[to] = struct{}{}
			m.known[to] = struct{}{}
		}
		m.edges[from] = set
	}
	return m
}

func (m *Machine[S]) Entity() string { return m.entity }

// Known reports whether s appears anywhere in the graph.
func (m *Machine[S]) Known(s S) bool {
	_, ok := m.known[s]
	return ok
}

func (m *Machine[S]) Can(from, to S) bool {
	_, ok := m.edges[from][to]
	return ok
}

// Check returns a *TransitionError when from -> to is not an edge.
func (m *Machine[S]) Check(from, to S) error {
	if m.Can(from, to) {
		return nil
	}
	return &TransitionError{Entity: m.entity, From: string(from), To: string(to)}
}

// Next lists the statuses reachable from s in one step, sorted.
func (m *Machine[S]) Next(s S) []S {
	out := make([]S, 0, len(m.edges[s]))
	for to := range m.edges[s] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Terminal reports whether no transition leaves s.
func (m *Machine[S]) Terminal(s S) bool {
	return len(m.edges[s]) == 0
}
