// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection

import (
	"strings"

	"github.com/samber/oops"
)

// FlagType identifies a capability toggle on a protection.
//
// Flag tags are persisted by ordinal and append-only, same as Kind.
type FlagType int

const (
	// FlagRedstone allows the protection to be operated by redstone.
	FlagRedstone FlagType = 0
	// FlagMagnet pulls nearby dropped items into the protection.
	FlagMagnet FlagType = 1
	// FlagExemption exempts the protection from bulk cleanup jobs.
	FlagExemption FlagType = 2
	// FlagAutoClose closes the protected door automatically.
	FlagAutoClose FlagType = 3
)

var flagNames = map[FlagType]string{
	FlagRedstone:  "redstone",
	FlagMagnet:    "magnet",
	FlagExemption: "exemption",
	FlagAutoClose: "autoclose",
}

func (t FlagType) String() string {
	if name, ok := flagNames[t]; ok {
		return name
	}
	return "unknown"
}

// MatchFlagType resolves a flag type from its string form, case-insensitively.
// Unrecognized names are a caller-input error and fail loudly.
func MatchFlagType(text string) (FlagType, error) {
	for ft, name := range flagNames {
		if strings.EqualFold(name, text) {
			return ft, nil
		}
	}
	return 0, oops.
		Code("UNKNOWN_FLAG").
		With("flag", text).
		Errorf("no flag type found for %q", text)
}

// Flag is a typed capability toggle with an opaque payload. A protection
// holds at most one flag per type.
type Flag struct {
	Type FlagType
	Data map[string]any
}

// HasFlag reports whether a flag of the given type is enabled.
func (p *Protection) HasFlag(ft FlagType) bool {
	_, ok := p.FlagOf(ft)
	return ok
}

// FlagOf returns the enabled flag of the given type, if any.
// The flag set is small; a linear scan is deliberate.
func (p *Protection) FlagOf(ft FlagType) (Flag, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, flag := range p.flags {
		if flag.Type == ft {
			return flag, true
		}
	}
	return Flag{}, false
}

// Flags returns a copy of the enabled flags.
func (p *Protection) Flags() []Flag {
	p.mu.Lock()
	defer p.mu.Unlock()

	flags := make([]Flag, len(p.flags))
	copy(flags, p.flags)
	return flags
}

// AddFlag enables a flag. Unlike access rights, adding a flag whose type
// is already enabled is a no-op: the original payload is retained. The
// protection is marked dirty only on actual insertion.
func (p *Protection) AddFlag(flag Flag) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removed {
		return false
	}
	for _, existing := range p.flags {
		if existing.Type == flag.Type {
			return false
		}
	}

	p.flags = append(p.flags, flag)
	p.modified = true
	return true
}

// RemoveFlag disables the flag with the given flag's type. No-op on a
// removed protection.
func (p *Protection) RemoveFlag(flag Flag) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removed {
		return
	}

	kept := p.flags[:0]
	for _, existing := range p.flags {
		if existing.Type == flag.Type {
			p.modified = true
			continue
		}
		kept = append(kept, existing)
	}
	p.flags = kept
}
