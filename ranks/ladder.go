// Package ranks holds the ordered rank ladder members of the roster can
// hold and the rules for moving along it.
package ranks

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// UnknownRank is displayed for a stored index that is not part of the ladder
const UnknownRank = "Unknown"

// Direction is the direction of a single rank step
type Direction int

const (
	// Promote moves towards more authority
	Promote Direction = iota
	// Demote moves towards less authority
	Demote
)

// String implements the fmt.Stringer interface
func (d Direction) String() string {
	switch d {
	case Promote:
		return "promote"
	case Demote:
		return "demote"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// OutOfRangeError is returned when a rank index is not part of the ladder
type OutOfRangeError struct {
	Index int
	Len   int
}

// Error implements the error interface
func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("rank index %d out of range [0, %d]", e.Index, e.Len-1)
}

// Ladder is an immutable, ordered list of rank names stored lowest rank
// first. Index 0 is the lowest rank, Len()-1 the highest.
type Ladder struct {
	names []string
}

// DefaultNames is the PNP rank ladder, lowest rank first
var DefaultNames = []string{
	"Patrolman/Patrolwoman",
	"Police Corporal",
	"Police Staff Sergeant",
	"Police Master Sergeant",
	"Police Senior Master Sergeant",
	"Police Chief Master Sergeant",
	"Police Executive Master Sergeant",
	"Police Lieutenant",
	"Police Captain",
	"Police Major",
	"Police Lieutenant Colonel",
	"Police Colonel",
	"Police Brigadier General",
	"Police Major General",
	"Police Lieutenant General",
	"Police General",
}

// NewLadder creates a Ladder from the passed names, lowest rank first.
// Names must be non-empty and unique.
func NewLadder(names []string) (*Ladder, error) {
	if len(names) == 0 {
		return nil, errors.New("rank ladder must not be empty")
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, errors.Errorf("rank %d has an empty name", i)
		}
		if _, ok := seen[n]; ok {
			return nil, errors.Errorf("duplicate rank '%s'", n)
		}
		seen[n] = struct{}{}
		out[i] = n
	}
	return &Ladder{names: out}, nil
}

// MustNewLadder is like NewLadder but panics on error
func MustNewLadder(names []string) *Ladder {
	l, err := NewLadder(names)
	if err != nil {
		panic(err)
	}
	return l
}

// Default returns the default PNP ladder
func Default() *Ladder {
	return MustNewLadder(DefaultNames)
}

// Len returns the number of ranks
func (l *Ladder) Len() int {
	return len(l.names)
}

// Names returns a copy of the rank names, lowest first
func (l *Ladder) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Lowest returns the index of the lowest rank
func (l *Ladder) Lowest() int {
	return 0
}

// Highest returns the index of the highest rank
func (l *Ladder) Highest() int {
	return len(l.names) - 1
}

// Valid reports whether index is part of the ladder
func (l *Ladder) Valid(index int) bool {
	return index >= 0 && index < len(l.names)
}

// Clamp returns index limited to the ladder bounds
func (l *Ladder) Clamp(index int) int {
	if index < 0 {
		return 0
	}
	if index > l.Highest() {
		return l.Highest()
	}
	return index
}

// Name returns the name of the rank at index
func (l *Ladder) Name(index int) (string, error) {
	if !l.Valid(index) {
		return "", OutOfRangeError{
			Index: index,
			Len:   len(l.names),
		}
	}
	return l.names[index], nil
}

// DisplayName returns the name of the rank at index or UnknownRank
func (l *Ladder) DisplayName(index int) string {
	name, err := l.Name(index)
	if err != nil {
		return UnknownRank
	}
	return name
}

// Index returns the index of the rank with the passed name (case-insensitive)
func (l *Ladder) Index(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, n := range l.names {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return 0, false
}

// Step moves index one rank in the passed direction.
// At the top (promote) or bottom (demote) of the ladder the index is returned
// unchanged and changed is false. An index outside the ladder is clamped
// before stepping.
func (l *Ladder) Step(index int, d Direction) (next int, changed bool) {
	cur := l.Clamp(index)
	switch d {
	case Promote:
		next = cur + 1
	case Demote:
		next = cur - 1
	default:
		return index, false
	}
	if !l.Valid(next) {
		return index, false
	}
	return next, next != index
}
