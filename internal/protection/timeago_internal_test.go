// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeToWords(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "sub-second", d: 300 * time.Millisecond, want: "moments"},
		{name: "seconds", d: 45 * time.Second, want: "45 seconds"},
		{name: "singular", d: time.Minute + time.Second, want: "1 minute 1 second"},
		{name: "two most significant units", d: 49*time.Hour + 3*time.Minute + 5*time.Second, want: "2 days 1 hour"},
		{name: "skips empty units", d: 24*time.Hour + 30*time.Second, want: "1 day 30 seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timeToWords(tt.d))
		})
	}
}
