// Package significance decides whether a raw filesystem completion is worth
// delivering to a subscriber.
//
// Editors, copy tools and access-time updates produce completions that do not
// reflect a real change to the watched object. The Filter compares attribute
// and ACL snapshots taken before and after the completion, together with the
// moment the subscriber started monitoring, and suppresses such noise.
package significance

import (
	"time"

	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/fsattr"
)

// Thresholds tunes the access-time heuristics. Last-access semantics differ
// between filesystems (FAT truncates to whole days, relatime delays updates),
// so the values are configurable rather than fixed.
type Thresholds struct {
	// StaleAccessWindow: an access time this much older than the start of
	// monitoring is treated as stale stamping, and the change is delivered.
	// Zero disables the check.
	StaleAccessWindow time.Duration

	// MidnightHeuristic treats an access time of exactly 00:00:00 UTC as a
	// day-granularity stamp, and the change is delivered.
	MidnightHeuristic bool
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StaleAccessWindow: 60 * time.Second,
		MidnightHeuristic: true,
	}
}

// Input is everything the filter looks at for one candidate target.
type Input struct {
	Action event.Action

	// Old is nil when no snapshot existed before the completion.
	Old *fsattr.Attributes
	// New is nil when the object could not be read after the completion.
	New *fsattr.Attributes

	OldACL fsattr.ACLDigest
	NewACL fsattr.ACLDigest

	// LastAction and LastCompletion describe the previous completion seen
	// by the entry.
	LastAction     event.Action
	LastCompletion time.Time

	Completion      time.Time
	MonitoringStart time.Time
}

// Filter applies the significance rules.
type Filter struct {
	thresholds Thresholds
}

// New creates a filter with the given thresholds.
func New(t Thresholds) *Filter {
	return &Filter{thresholds: t}
}

// Significant reports whether in should be delivered.
func (f *Filter) Significant(in Input) bool {
	if in.Action != event.Added && in.Action != event.Modified {
		return true
	}
	if in.New == nil {
		return true
	}

	if in.Action == event.Added {
		return f.ChangedAfterStart(*in.New, in.Completion, in.MonitoringStart)
	}

	// Some editors produce two identical completions per save.
	if in.Completion.Equal(in.LastCompletion) {
		return in.LastAction != event.Modified
	}

	if in.Old == nil {
		return true
	}

	// ACL edits do not reliably touch the access time.
	if in.OldACL.Changed(in.NewACL) {
		return true
	}

	return f.ChangedAfterStart(*in.New, in.Completion, in.MonitoringStart)
}

// ChangedAfterStart reports whether the state in attrs may have been produced
// after monitoring began at start. It returns false only when every stamp
// indicates the observed state predates monitoring.
func (f *Filter) ChangedAfterStart(attrs fsattr.Attributes, completion, start time.Time) bool {
	access := attrs.LastAccess

	if f.thresholds.StaleAccessWindow > 0 && access.Add(f.thresholds.StaleAccessWindow).Before(start) {
		return true
	}
	if completion.After(start) {
		return true
	}
	if access.Before(attrs.LastWrite) {
		return true
	}
	if f.thresholds.MidnightHeuristic && isMidnight(access) {
		return true
	}
	return !access.Before(start)
}

func isMidnight(t time.Time) bool {
	u := t.UTC()
	return u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0
}
