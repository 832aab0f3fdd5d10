// Package event defines the notification contract shared by the change
// notification engine and its subscribers.
//
// A subscriber implements Callback (or wraps a function with NewCallback) and
// receives the Action that occurred together with the alias it registered.
//
// Example usage:
//
//	cb := event.NewCallback(func(action event.Action, alias string) {
//	    fmt.Printf("%s: %s\n", alias, action)
//	})
//	lastWrite, err := mgr.StartMonitoringFile("/srv/app/web.config", cb)
package event

// Action describes what happened to a watched path.
type Action int

// Actions delivered to callbacks.
const (
	ActionUnknown Action = iota
	Added
	Removed
	Modified
	RenamedOldName
	RenamedNewName
	// Overwhelming reports that too many changes happened to enumerate them
	// individually. Subscribers must assume everything in the directory changed.
	Overwhelming
	// Error reports that the directory can no longer be watched.
	Error
	// Dispose is the terminal value a native completion delivers once no
	// further raw changes will arrive. It is never delivered to subscribers.
	Dispose
)

// String returns a human-readable action name.
func (a Action) String() string {
	switch a {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	case RenamedOldName:
		return "renamed_old_name"
	case RenamedNewName:
		return "renamed_new_name"
	case Overwhelming:
		return "overwhelming"
	case Error:
		return "error"
	case Dispose:
		return "dispose"
	default:
		return "unknown"
	}
}

// DirectoryWide reports whether the action applies to every entry of a
// directory rather than to a single name.
func (a Action) DirectoryWide() bool {
	return a == Overwhelming || a == Error
}

// Callback receives change notifications.
//
// Callback values are used as map keys to count repeated registrations, so
// implementations must be comparable (pointer receivers are the norm).
type Callback interface {
	OnFileChange(action Action, alias string)
}

// funcCallback adapts a function to Callback. It is always used through a
// pointer so that two wrappers of the same function stay distinct targets.
type funcCallback struct {
	fn func(Action, string)
}

// OnFileChange implements Callback.OnFileChange.
func (c *funcCallback) OnFileChange(action Action, alias string) {
	c.fn(action, alias)
}

// NewCallback wraps fn into a Callback. Keep the returned value to
// unregister later; wrapping the same function twice yields two targets.
func NewCallback(fn func(action Action, alias string)) Callback {
	return &funcCallback{fn: fn}
}
