// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection

import "strings"

// SubjectKind tags who an access right is granted to.
//
// Like Kind, subject tags are persisted by ordinal and append-only.
type SubjectKind int

const (
	// SubjectGroup grants access to every member of a named group.
	SubjectGroup SubjectKind = 0
	// SubjectPlayer grants access to a single named player.
	SubjectPlayer SubjectKind = 1
	// SubjectList grants access to an externally managed access list.
	SubjectList SubjectKind = 2
	// SubjectTemporary is a session-scoped grant, expired in bulk when the
	// owning protection is removed.
	SubjectTemporary SubjectKind = 3
)

// Rights levels. RightsNone is the documented "no such right" sentinel
// returned by Access; it is never a valid stored level.
const (
	RightsNone   = -1
	RightsPlayer = 1
	RightsAdmin  = 2
)

// Wildcard is the subject name that matches any name during bulk removal.
// It is only treated as a wildcard by RemoveAccessRightsMatching; everywhere
// else "*" is an ordinary literal name.
const Wildcard = "*"

// AccessRight is a single grant on a protection: who, and at what level.
// Rights are uniquely keyed by (SubjectKind, SubjectName).
type AccessRight struct {
	SubjectKind SubjectKind
	SubjectName string
	Rights      int
}

// Access returns the rights level granted to the given subject, or
// RightsNone when no matching right exists. Name comparison is
// case-insensitive; kind comparison is exact.
func (p *Protection) Access(kind SubjectKind, name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, right := range p.accessRights {
		if right.SubjectKind == kind && strings.EqualFold(right.SubjectName, name) {
			return right.Rights
		}
	}
	return RightsNone
}

// AccessRights returns a copy of the current access rights.
func (p *Protection) AccessRights() []AccessRight {
	p.mu.Lock()
	defer p.mu.Unlock()

	rights := make([]AccessRight, len(p.accessRights))
	copy(rights, p.accessRights)
	return rights
}

// AddAccessRight grants an access right, replacing any existing right
// with the same (kind, name) key. No-op on a removed protection or a
// right with an empty subject name.
func (p *Protection) AddAccessRight(right AccessRight) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removed || right.SubjectName == "" {
		return
	}

	p.removeAccessRightsMatchingLocked(right.SubjectName, right.SubjectKind)
	p.accessRights = append(p.accessRights, right)
	p.modified = true
}

// RemoveAccessRightsMatching removes every right whose kind matches
// exactly and whose name matches case-sensitively, or every right of the
// kind when name is the Wildcard. No-op on a removed protection.
func (p *Protection) RemoveAccessRightsMatching(name string, kind SubjectKind) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removed {
		return
	}
	p.removeAccessRightsMatchingLocked(name, kind)
}

// RemoveTemporaryAccessRights expires every temporary grant.
func (p *Protection) RemoveTemporaryAccessRights() {
	p.RemoveAccessRightsMatching(Wildcard, SubjectTemporary)
}

func (p *Protection) removeAccessRightsMatchingLocked(name string, kind SubjectKind) {
	wildcard := name == Wildcard

	kept := p.accessRights[:0]
	for _, right := range p.accessRights {
		match := right.SubjectKind == kind && (wildcard || right.SubjectName == name)
		if match {
			p.modified = true
			continue
		}
		kept = append(kept, right)
	}
	p.accessRights = kept
}
