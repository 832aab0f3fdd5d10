package watch

import (
	"time"

	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/fsattr"
)

// target is one subscriber of an entry.
type target struct {
	callback event.Callback
	alias    string
	start    time.Time
	refs     int
}

// fileEntry is the state of one watched name within a directory. The entry
// with anyFile == true stands for every file in the directory. All fields are
// guarded by the owning directoryWatch's mutex.
type fileEntry struct {
	name      string
	shortName string
	anyFile   bool

	exists bool
	attrs  *fsattr.Attributes
	acl    fsattr.ACLDigest

	lastAction     event.Action
	lastCompletion time.Time
	// lastName is the raw name of the last completion seen by the any-file
	// entry.
	lastName string

	targets map[event.Callback]*target
}

func newFileEntry(name string, anyFile bool) *fileEntry {
	return &fileEntry{
		name:    name,
		anyFile: anyFile,
		targets: make(map[event.Callback]*target),
	}
}

// addTarget registers cb or increments its reference count.
func (e *fileEntry) addTarget(cb event.Callback, alias string, start time.Time) {
	if t, ok := e.targets[cb]; ok {
		t.refs++
		return
	}
	e.targets[cb] = &target{callback: cb, alias: alias, start: start, refs: 1}
}

// removeTarget decrements cb's reference count. It reports whether cb was
// registered.
func (e *fileEntry) removeTarget(cb event.Callback) bool {
	t, ok := e.targets[cb]
	if !ok {
		return false
	}
	t.refs--
	if t.refs <= 0 {
		delete(e.targets, cb)
	}
	return true
}

// snapshot copies the attributes so they can leave the lock.
func (e *fileEntry) snapshot() *fsattr.Attributes {
	if e.attrs == nil {
		return nil
	}
	a := *e.attrs
	return &a
}

func (e *fileEntry) info() EntryInfo {
	name := e.name
	if e.anyFile {
		name = "*"
	}
	return EntryInfo{
		Name:           name,
		ShortName:      e.shortName,
		Exists:         e.exists,
		Targets:        len(e.targets),
		LastAction:     e.lastAction.String(),
		LastCompletion: e.lastCompletion,
	}
}
