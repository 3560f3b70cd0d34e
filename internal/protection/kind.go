// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

// Package protection contains the protected resource record and its
// access-control, flag, and history collections.
package protection

import (
	"strings"

	"github.com/samber/oops"
)

// Kind is the access-control category of a protection.
//
// Kind tags are persisted by ordinal value. The assignment below is
// append-only: tags must never be reordered or reused once a record
// referencing them has been stored.
type Kind int

const (
	// KindPublic is usable by anyone but owned; nobody else may claim it.
	KindPublic Kind = 0
	// KindPassword requires a password to be entered before access is granted.
	KindPassword Kind = 1
	// KindPrivate is usable only by the owner and subjects granted access.
	KindPrivate Kind = 2
	// KindTrapKick acts as a honeypot: accessors are kicked.
	KindTrapKick Kind = 3
	// KindTrapBan acts as a honeypot: accessors are banned.
	KindTrapBan Kind = 4
	// KindDonation allows anyone to deposit, only the owner to withdraw.
	KindDonation Kind = 5
)

var kindNames = map[Kind]string{
	KindPublic:   "public",
	KindPassword: "password",
	KindPrivate:  "private",
	KindTrapKick: "trap_kick",
	KindTrapBan:  "trap_ban",
	KindDonation: "donation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is one of the defined kind tags.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// MatchKind resolves a kind from its string form, case-insensitively.
// Unrecognized names are a caller-input error and fail loudly.
func MatchKind(text string) (Kind, error) {
	for kind, name := range kindNames {
		if strings.EqualFold(name, text) {
			return kind, nil
		}
	}
	return 0, oops.
		Code("UNKNOWN_KIND").
		With("kind", text).
		Errorf("no protection kind found for %q", text)
}
