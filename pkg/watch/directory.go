package watch

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/fsattr"
	"github.com/0xmhha/filechange/pkg/native"
	"github.com/0xmhha/filechange/pkg/significance"
)

// errWatchDisposed is returned by addTarget on a watch that was disposed
// after the manager looked it up. The manager replaces it and retries.
var errWatchDisposed = errors.New("directory watch disposed")

// candidate is a target that may be notified, with everything the
// significance filter needs copied out of the lock.
type candidate struct {
	callback event.Callback
	alias    string
	input    significance.Input
}

// directoryWatch owns the entries of one directory and the completion that
// watches it. The live completion exists iff at least one entry does.
type directoryWatch struct {
	m         *Manager
	dir       string
	recursive bool
	wellKnown map[string]bool

	mu       sync.Mutex
	files    map[string]*fileEntry
	short    map[string]*fileEntry
	anyEntry *fileEntry
	live     *native.Completion
	closing  map[*native.Completion]struct{}
	disposed bool
}

func newDirectoryWatch(m *Manager, dir string, recursive bool, wellKnown map[string]bool) *directoryWatch {
	return &directoryWatch{
		m:         m,
		dir:       dir,
		recursive: recursive,
		wellKnown: wellKnown,
		files:     make(map[string]*fileEntry),
		short:     make(map[string]*fileEntry),
		closing:   make(map[*native.Completion]struct{}),
	}
}

func (dw *directoryWatch) countLocked() int {
	n := len(dw.files)
	if dw.anyEntry != nil {
		n++
	}
	return n
}

func (dw *directoryWatch) isDisposed() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.disposed
}

func (dw *directoryWatch) pathOf(e *fileEntry) string {
	if e.anyFile {
		return dw.dir
	}
	return filepath.Join(dw.dir, e.name)
}

// findEntryLocked resolves name by long name, then by short name. The empty
// name is the any-file entry.
func (dw *directoryWatch) findEntryLocked(name string) *fileEntry {
	if name == "" {
		return dw.anyEntry
	}
	if e, ok := dw.files[name]; ok {
		return e
	}
	return dw.short[name]
}

// addEntryLocked creates the entry for name and reads its initial state.
func (dw *directoryWatch) addEntryLocked(name string) *fileEntry {
	e := newFileEntry(name, name == "")
	dw.refreshLocked(e)
	if e.anyFile {
		dw.anyEntry = e
	} else {
		dw.files[name] = e
	}
	return e
}

func (dw *directoryWatch) removeEntryLocked(e *fileEntry) {
	if e.anyFile {
		if dw.anyEntry == e {
			dw.anyEntry = nil
		}
		return
	}
	delete(dw.files, e.name)
	if e.shortName != "" && dw.short[e.shortName] == e {
		delete(dw.short, e.shortName)
	}
}

// refreshLocked re-reads existence, attributes and ACL of e. The short name
// is re-resolved when e did not exist before.
func (dw *directoryWatch) refreshLocked(e *fileEntry) {
	path := dw.pathOf(e)
	existed := e.exists

	attrs, err := dw.m.prober.Stat(path)
	if err != nil {
		e.exists = false
		e.attrs = nil
		e.acl = fsattr.ACLDigest{}
		return
	}

	e.exists = true
	e.attrs = &attrs
	e.acl = dw.m.prober.ACL(path)

	if !existed && !e.anyFile {
		dw.indexShortNameLocked(e, dw.m.prober.ShortName(path))
	}
}

func (dw *directoryWatch) indexShortNameLocked(e *fileEntry, short string) {
	if short == e.name {
		short = ""
	}
	if e.shortName == short {
		return
	}
	if e.shortName != "" && dw.short[e.shortName] == e {
		delete(dw.short, e.shortName)
	}
	e.shortName = short
	if short != "" {
		dw.short[short] = e
	}
}

// ensureOpenLocked opens the live completion if there is none.
func (dw *directoryWatch) ensureOpenLocked() error {
	if dw.live != nil {
		return nil
	}

	c, err := native.Open(dw.dir, dw.onRawChange, native.Options{
		Recursive:   dw.recursive,
		Open:        dw.m.opener,
		Impersonate: dw.m.impersonate,
		Clock:       dw.m.clock,
		Tracker:     dw.m.tracker,
		Logger:      dw.m.nativeLogger,
	})
	if err != nil {
		return err
	}
	dw.live = c
	return nil
}

// addTarget registers cb for name and returns the entry's attributes. The
// completion is opened when the first entry is added; if that fails the
// entry is dropped again.
func (dw *directoryWatch) addTarget(name string, cb event.Callback, alias string, start time.Time) (*fsattr.Attributes, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.disposed {
		return nil, errWatchDisposed
	}

	e := dw.findEntryLocked(name)
	created := false
	if e == nil {
		e = dw.addEntryLocked(name)
		created = true
	}

	if err := dw.ensureOpenLocked(); err != nil {
		if created {
			dw.removeEntryLocked(e)
		}
		return nil, err
	}

	e.addTarget(cb, alias, start)
	return e.snapshot(), nil
}

// removeTarget unregisters cb from name. When the last entry goes the watch
// is disposed and the completion to close is returned; the caller closes it
// outside every lock.
func (dw *directoryWatch) removeTarget(name string, cb event.Callback) (removed, empty bool, toClose *native.Completion) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.disposed {
		return false, false, nil
	}

	e := dw.findEntryLocked(name)
	if e == nil || !e.removeTarget(cb) {
		return false, false, nil
	}

	if len(e.targets) == 0 {
		dw.removeEntryLocked(e)
	}
	if dw.countLocked() > 0 {
		return true, false, nil
	}
	return true, true, dw.disposeLocked()
}

// cachedAttributes returns the snapshot held for name, if any.
func (dw *directoryWatch) cachedAttributes(name string) (fsattr.Attributes, bool) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.disposed {
		return fsattr.Attributes{}, false
	}
	e := dw.findEntryLocked(name)
	if e == nil || e.attrs == nil {
		return fsattr.Attributes{}, false
	}
	return *e.attrs, true
}

// dispose marks the watch disposed and returns the live completion, which
// the caller must close.
func (dw *directoryWatch) dispose() *native.Completion {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.disposeLocked()
}

func (dw *directoryWatch) disposeLocked() *native.Completion {
	dw.disposed = true
	c := dw.live
	if c != nil {
		dw.closing[c] = struct{}{}
		dw.live = nil
	}
	return c
}

// onRawChange is the completion handler.
func (dw *directoryWatch) onRawChange(c *native.Completion, action event.Action, name string, at time.Time) {
	if action == event.Dispose {
		dw.onDispose(c, at)
		return
	}

	dw.mu.Lock()
	if c != dw.live || dw.countLocked() == 0 {
		dw.mu.Unlock()
		return
	}

	var (
		cands   []candidate
		toClose *native.Completion
	)
	if action.DirectoryWide() {
		cands = dw.invalidateLocked(action, at)
		if action == event.Error {
			toClose = dw.disposeLocked()
		}
	} else {
		cands = dw.collectLocked(action, name, at)
	}
	dw.mu.Unlock()

	switch action {
	case event.Overwhelming:
		if dw.m.tracker.GrowBuffer() {
			dw.m.logger.Warn("event buffer overflowed, growing buffer for new watches",
				"dir", dw.dir,
				"buffer_size", dw.m.tracker.BufferSize())
		}
	case event.Error:
		dw.m.logger.Warn("directory watch failed, disposing", "dir", dw.dir)
		dw.m.forget(dw)
		if toClose != nil {
			_ = toClose.RequestClose() // nolint:errcheck
		}
	}

	dw.m.deliver(cands)
}

// onDispose releases a completion that has confirmed it will deliver no more
// callbacks. A live completion that disposes on its own lost its
// subscription, which is handled like Error.
func (dw *directoryWatch) onDispose(c *native.Completion, at time.Time) {
	dw.mu.Lock()
	delete(dw.closing, c)
	lost := c == dw.live
	var cands []candidate
	if lost {
		if dw.countLocked() > 0 {
			cands = dw.invalidateLocked(event.Error, at)
		}
		dw.disposeLocked()
		delete(dw.closing, c)
	}
	dw.mu.Unlock()

	if lost {
		dw.m.logger.Warn("directory subscription closed unexpectedly", "dir", dw.dir)
		dw.m.forget(dw)
		dw.m.deliver(cands)
	}
}

// invalidateLocked handles a directory-wide action: every entry loses its
// cached state and every target is a candidate.
func (dw *directoryWatch) invalidateLocked(action event.Action, at time.Time) []candidate {
	var cands []candidate
	for _, e := range dw.sortedEntriesLocked() {
		e.exists = false
		e.attrs = nil
		e.acl = fsattr.ACLDigest{}
		e.lastAction = action
		e.lastCompletion = at
		cands = appendTargets(cands, e, significance.Input{Action: action, Completion: at})
	}
	return cands
}

// collectLocked updates the entries a named change affects and returns
// their targets plus the any-file entry's targets.
func (dw *directoryWatch) collectLocked(action event.Action, name string, at time.Time) []candidate {
	var cands []candidate

	for _, h := range dw.resolveLocked(action, name) {
		cands = append(cands, dw.updateLocked(h.entry, action, at, h.direct)...)
	}

	if dw.anyEntry != nil {
		cands = append(cands, dw.anyCandidatesLocked(action, name, at)...)
	}
	return cands
}

// hit is an entry a raw change affects. direct is false when the change was
// mapped to a well-known subdirectory holding the changed path.
type hit struct {
	entry  *fileEntry
	direct bool
}

// resolveLocked finds the entries a raw change names: the entry itself, the
// entries beneath it when a subdirectory went away, and the well-known
// subdirectory the change happened in.
func (dw *directoryWatch) resolveLocked(action event.Action, name string) []hit {
	if name == "" {
		return nil
	}

	var hits []hit
	if e := dw.findEntryLocked(name); e != nil {
		hits = append(hits, hit{entry: e, direct: true})
	}
	if !dw.recursive {
		return hits
	}

	if action == event.Removed || action == event.RenamedOldName {
		prefix := name + string(filepath.Separator)
		var beneath []*fileEntry
		for n, e := range dw.files {
			if strings.HasPrefix(n, prefix) {
				beneath = append(beneath, e)
			}
		}
		sort.Slice(beneath, func(i, j int) bool { return beneath[i].name < beneath[j].name })
		for _, e := range beneath {
			hits = append(hits, hit{entry: e, direct: true})
		}
	}

	if first, _, nested := strings.Cut(name, string(filepath.Separator)); nested && dw.wellKnown[first] {
		if e := dw.files[first]; e != nil && !containsEntry(hits, e) {
			hits = append(hits, hit{entry: e, direct: false})
		}
	}
	return hits
}

func containsEntry(hits []hit, e *fileEntry) bool {
	for _, h := range hits {
		if h.entry == e {
			return true
		}
	}
	return false
}

// updateLocked applies action to e and returns its targets as candidates.
func (dw *directoryWatch) updateLocked(e *fileEntry, action event.Action, at time.Time, direct bool) []candidate {
	in := significance.Input{
		Action:         action,
		Old:            e.snapshot(),
		OldACL:         e.acl,
		LastAction:     e.lastAction,
		LastCompletion: e.lastCompletion,
		Completion:     at,
	}

	if direct && (action == event.Removed || action == event.RenamedOldName) {
		e.exists = false
		e.attrs = nil
		e.acl = fsattr.ACLDigest{}
	} else {
		dw.refreshLocked(e)
	}
	e.lastAction = action
	e.lastCompletion = at

	in.New = e.snapshot()
	in.NewACL = e.acl
	return appendTargets(nil, e, in)
}

// anyCandidatesLocked builds the any-file entry's candidates. The entry has
// no prior snapshot of individual files, so only creations are checked
// against the monitoring start, and duplicates are only recognized for the
// same name.
func (dw *directoryWatch) anyCandidatesLocked(action event.Action, name string, at time.Time) []candidate {
	e := dw.anyEntry

	in := significance.Input{
		Action:     action,
		LastAction: e.lastAction,
		Completion: at,
	}
	if e.lastName == name {
		in.LastCompletion = e.lastCompletion
	}
	if action == event.Added || action == event.Modified {
		if attrs, err := dw.m.prober.Stat(filepath.Join(dw.dir, name)); err == nil {
			in.New = &attrs
		}
	}

	e.lastAction = action
	e.lastCompletion = at
	e.lastName = name
	return appendTargets(nil, e, in)
}

func appendTargets(cands []candidate, e *fileEntry, in significance.Input) []candidate {
	for _, t := range e.targets {
		ti := in
		ti.MonitoringStart = t.start
		cands = append(cands, candidate{callback: t.callback, alias: t.alias, input: ti})
	}
	return cands
}

func (dw *directoryWatch) sortedEntriesLocked() []*fileEntry {
	entries := make([]*fileEntry, 0, dw.countLocked())
	for _, e := range dw.files {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	if dw.anyEntry != nil {
		entries = append(entries, dw.anyEntry)
	}
	return entries
}

func (dw *directoryWatch) describe() DirectoryInfo {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	info := DirectoryInfo{
		Dir:       dw.dir,
		Recursive: dw.recursive,
		Live:      dw.live != nil,
		Closing:   len(dw.closing),
	}
	for _, e := range dw.sortedEntriesLocked() {
		info.Entries = append(info.Entries, e.info())
	}
	return info
}
