// Package system supplies the wall clock behind frontier transition
// timestamps. Times are normalized to UTC so events compare cleanly no
// matter which store or broker they pass through.
package system

import (
	"time"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// Clock reads the system time in UTC.
type Clock struct{}

var _ frontier.Clock = (*Clock)(nil)

// New returns a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
