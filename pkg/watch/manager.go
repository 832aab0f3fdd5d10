package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/0xmhha/filechange/pkg/audit"
	"github.com/0xmhha/filechange/pkg/dispatch"
	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/fsattr"
	"github.com/0xmhha/filechange/pkg/logger"
	"github.com/0xmhha/filechange/pkg/native"
	"github.com/0xmhha/filechange/pkg/significance"
)

// aliasRecord remembers where an alias was placed and how it was classified.
type aliasRecord struct {
	dw    *directoryWatch
	name  string
	isDir bool
	refs  int
}

// placement is where a path is watched: an entry name within a directory
// watch. root selects the recursive application root watch.
type placement struct {
	dir  string
	name string
	root bool
}

// Manager owns the alias and directory tables.
type Manager struct {
	mode      Mode
	appRoot   string
	wellKnown map[string]bool
	mapPath   func(string) (string, error)

	prober      fsattr.Prober
	opener      native.Opener
	impersonate func(func())
	clock       func() time.Time
	poll        time.Duration
	audit       audit.Recorder

	filter     *significance.Filter
	dispatcher *dispatch.Dispatcher
	tracker    *native.Tracker

	logger       logger.Logger
	nativeLogger logger.Logger
	noise        logger.Logger

	// disposeMu is held for reading by registrations and for writing by Stop.
	disposeMu sync.RWMutex
	disposed  bool

	// mu guards the tables. It is never held across native I/O.
	mu      sync.RWMutex
	dirs    map[string]*directoryWatch
	root    *directoryWatch
	aliases map[string]*aliasRecord
}

// NewManager creates a manager. Each manager has its own dispatcher and
// completion tracker.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	if opts.Prober == nil {
		opts.Prober = fsattr.NewProber()
	}
	if opts.Opener == nil {
		opts.Opener = native.FSNotify
	}
	if opts.Impersonate == nil {
		opts.Impersonate = func(fn func()) { fn() }
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	thresholds := significance.DefaultThresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}
	if opts.Mode == "" {
		opts.Mode = ModeDefault
	}
	if opts.WellKnownDirs == nil {
		opts.WellKnownDirs = DefaultWellKnownDirs
	}

	log := opts.Logger.Named("watch")

	appRoot := ""
	if opts.AppRoot != "" {
		appRoot = filepath.Clean(opts.AppRoot)
	}
	if opts.Mode == ModeSingle && !filepath.IsAbs(appRoot) {
		log.Warn("single mode needs an absolute application root, using default mode",
			"app_root", opts.AppRoot)
		opts.Mode = ModeDefault
	}

	wellKnown := make(map[string]bool, len(opts.WellKnownDirs))
	for _, d := range opts.WellKnownDirs {
		wellKnown[d] = true
	}

	m := &Manager{
		mode:         opts.Mode,
		appRoot:      appRoot,
		wellKnown:    wellKnown,
		mapPath:      opts.MapPath,
		prober:       opts.Prober,
		opener:       opts.Opener,
		impersonate:  opts.Impersonate,
		clock:        opts.Clock,
		poll:         opts.PollInterval,
		audit:        opts.Audit,
		filter:       significance.New(thresholds),
		dispatcher:   dispatch.New(logger.Throttled(opts.Logger.Named("dispatch"), time.Second, 5)),
		tracker:      native.NewTracker(opts.BufferSize),
		logger:       log,
		nativeLogger: logger.Throttled(opts.Logger.Named("native"), time.Second, 10),
		noise:        logger.Throttled(log, time.Second, 20),
		dirs:         make(map[string]*directoryWatch),
		aliases:      make(map[string]*aliasRecord),
	}

	log.Debug("watch manager created",
		"mode", string(m.mode),
		"app_root", m.appRoot,
		"buffer_size", opts.BufferSize)

	return m
}

// Mode returns the effective watch mode.
func (m *Manager) Mode() Mode {
	return m.mode
}

// StartMonitoringFile watches a single file that may not exist yet. It
// returns the file's last-write time, or fsattr.UnknownTime if it does not
// exist.
func (m *Manager) StartMonitoringFile(alias string, cb event.Callback) (time.Time, error) {
	if cb == nil {
		return fsattr.UnknownTime, invalidPath(alias, "nil callback")
	}
	if !comparableCallback(cb) {
		return fsattr.UnknownTime, invalidPath(alias, "callback is not comparable")
	}

	m.disposeMu.RLock()
	defer m.disposeMu.RUnlock()
	if m.disposed {
		return fsattr.UnknownTime, ErrStopped
	}

	path, err := m.resolve(alias)
	if err != nil {
		return fsattr.UnknownTime, err
	}

	attrs, statErr := m.prober.Stat(path)
	if statErr == nil && attrs.IsDir {
		return fsattr.UnknownTime, invalidPath(alias, "is a directory")
	}

	if m.mode == ModeDisabled {
		if statErr != nil {
			return fsattr.UnknownTime, nil
		}
		return attrs.LastWrite, nil
	}

	cached, err := m.register(alias, path, false, cb)
	if err != nil {
		return fsattr.UnknownTime, err
	}
	return lastWrite(cached), nil
}

// StartMonitoringPath watches a file, a directory (any change within) or a
// path that does not exist yet. It returns the last-write time and the
// attributes, which are nil for a missing path.
func (m *Manager) StartMonitoringPath(alias string, cb event.Callback) (time.Time, *fsattr.Attributes, error) {
	if cb == nil {
		return fsattr.UnknownTime, nil, invalidPath(alias, "nil callback")
	}
	if !comparableCallback(cb) {
		return fsattr.UnknownTime, nil, invalidPath(alias, "callback is not comparable")
	}

	m.disposeMu.RLock()
	defer m.disposeMu.RUnlock()
	if m.disposed {
		return fsattr.UnknownTime, nil, ErrStopped
	}

	path, err := m.resolve(alias)
	if err != nil {
		return fsattr.UnknownTime, nil, err
	}

	isDir, known := m.knownClassification(alias)
	if !known || m.mode == ModeDisabled {
		attrs, statErr := m.prober.Stat(path)
		switch {
		case statErr == nil:
			isDir = attrs.IsDir
			if m.mode == ModeDisabled {
				return attrs.LastWrite, &attrs, nil
			}
		case errors.Is(statErr, os.ErrNotExist):
			parent, perr := m.prober.Stat(filepath.Dir(path))
			if perr != nil || !parent.IsDir {
				return fsattr.UnknownTime, nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
			}
			if m.mode == ModeDisabled {
				return fsattr.UnknownTime, nil, nil
			}
		default:
			if m.mode == ModeDisabled {
				return fsattr.UnknownTime, nil, nil
			}
		}
	}

	cached, err := m.register(alias, path, isDir, cb)
	if err != nil {
		return fsattr.UnknownTime, nil, err
	}
	return lastWrite(cached), cached, nil
}

// StopMonitoringFile removes one registration of cb for alias. Unknown
// aliases are ignored.
func (m *Manager) StopMonitoringFile(alias string, cb event.Callback) {
	m.unregister(alias, cb)
}

// StopMonitoringPath removes one registration of cb for alias. Unknown
// aliases are ignored.
func (m *Manager) StopMonitoringPath(alias string, cb event.Callback) {
	m.unregister(alias, cb)
}

// GetFileAttributes returns the cached attributes of an actively watched
// alias, or probes the filesystem. ok is false when the path does not exist.
func (m *Manager) GetFileAttributes(alias string) (attrs fsattr.Attributes, ok bool, err error) {
	path, err := m.resolve(alias)
	if err != nil {
		return fsattr.Attributes{}, false, err
	}

	m.mu.RLock()
	rec := m.aliases[alias]
	m.mu.RUnlock()
	if rec != nil {
		if cached, found := rec.dw.cachedAttributes(rec.name); found {
			return cached, true, nil
		}
	}

	attrs, err = m.prober.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fsattr.Attributes{}, false, nil
		}
		return fsattr.Attributes{}, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return attrs, true, nil
}

// Stop shuts the manager down. New registrations fail with ErrStopped. Stop
// waits for running callbacks, disposes every directory watch, and returns
// once every completion has delivered Dispose and the dispatcher is idle,
// or with ctx's error.
func (m *Manager) Stop(ctx context.Context) error {
	m.disposeMu.Lock()
	if m.disposed {
		m.disposeMu.Unlock()
		return nil
	}
	m.disposed = true
	m.disposeMu.Unlock()

	m.logger.Info("stopping watch manager")

	if err := m.waitFor(ctx, func() bool { return m.dispatcher.InFlight() == 0 }); err != nil {
		return fmt.Errorf("waiting for callbacks: %w", err)
	}

	m.mu.Lock()
	watches := make([]*directoryWatch, 0, len(m.dirs)+1)
	for _, dw := range m.dirs {
		watches = append(watches, dw)
	}
	if m.root != nil {
		watches = append(watches, m.root)
	}
	m.dirs = make(map[string]*directoryWatch)
	m.root = nil
	m.aliases = make(map[string]*aliasRecord)
	m.mu.Unlock()

	for _, dw := range watches {
		if c := dw.dispose(); c != nil {
			_ = c.RequestClose() // nolint:errcheck
		}
	}

	if err := m.tracker.WaitClosed(ctx, m.poll); err != nil {
		return fmt.Errorf("waiting for completions: %w", err)
	}
	if err := m.waitFor(ctx, m.dispatcher.Idle); err != nil {
		return fmt.Errorf("waiting for dispatcher: %w", err)
	}

	m.logger.Info("watch manager stopped",
		"directories", len(watches),
		"delivered", m.dispatcher.Stats().Delivered)
	return nil
}

// Describe returns the structure of every active directory watch, sorted by
// directory.
func (m *Manager) Describe() []DirectoryInfo {
	m.mu.RLock()
	watches := make([]*directoryWatch, 0, len(m.dirs)+1)
	for _, dw := range m.dirs {
		watches = append(watches, dw)
	}
	if m.root != nil {
		watches = append(watches, m.root)
	}
	m.mu.RUnlock()

	infos := make([]DirectoryInfo, 0, len(watches))
	for _, dw := range watches {
		infos = append(infos, dw.describe())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Dir < infos[j].Dir })
	return infos
}

// OpenCompletions returns the number of completions that have not yet
// delivered Dispose.
func (m *Manager) OpenCompletions() int64 {
	return m.tracker.Open()
}

// InFlight returns the number of callbacks currently running.
func (m *Manager) InFlight() int64 {
	return m.dispatcher.InFlight()
}

// DispatchStats returns the dispatcher counters.
func (m *Manager) DispatchStats() dispatch.Stats {
	return m.dispatcher.Stats()
}

// resolve maps an alias to a clean absolute path.
func (m *Manager) resolve(alias string) (string, error) {
	if strings.TrimSpace(alias) == "" {
		return "", invalidPath(alias, "empty")
	}
	if strings.ContainsRune(alias, 0) {
		return "", invalidPath(alias, "contains NUL")
	}

	path := alias
	switch {
	case m.mapPath != nil:
		mapped, err := m.mapPath(alias)
		if err != nil {
			return "", invalidPath(alias, err.Error())
		}
		path = mapped
	case strings.HasPrefix(alias, "~/"):
		if m.appRoot == "" {
			return "", invalidPath(alias, "no application root configured")
		}
		path = filepath.Join(m.appRoot, alias[2:])
	}

	if !filepath.IsAbs(path) {
		return "", invalidPath(alias, "not absolute")
	}
	if fsattr.LooksLikeShortName(path) {
		return "", invalidPath(alias, "looks like a short file name")
	}
	return filepath.Clean(path), nil
}

func (m *Manager) knownClassification(alias string) (isDir, known bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec := m.aliases[alias]
	if rec == nil || rec.dw.isDisposed() {
		return false, false
	}
	return rec.isDir, true
}

// place decides which directory watch and entry serve path.
func (m *Manager) place(path string, isDir bool) placement {
	if m.mode == ModeSingle {
		if path == m.appRoot && isDir {
			return placement{dir: m.appRoot, root: true}
		}
		if rel, err := filepath.Rel(m.appRoot, path); err == nil && rel != "." &&
			rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			if !isDir || m.wellKnown[rel] {
				return placement{dir: m.appRoot, name: rel, root: true}
			}
		}
	}
	if isDir {
		return placement{dir: path}
	}
	return placement{dir: filepath.Dir(path), name: filepath.Base(path)}
}

// register adds cb to the entry serving path and returns the entry's
// attributes. A new watch opens its completion before it is published, so
// the table lock only covers lookups and inserts.
func (m *Manager) register(alias, path string, isDir bool, cb event.Callback) (*fsattr.Attributes, error) {
	p := m.place(path, isDir)
	start := m.clock()

	for {
		dw, created, err := m.directoryFor(p)
		if err != nil {
			return nil, m.openFailed(err, alias)
		}

		attrs, err := dw.addTarget(p.name, cb, alias, start)
		if errors.Is(err, errWatchDisposed) {
			m.forget(dw)
			continue
		}
		if err != nil {
			return nil, m.openFailed(classifyOpenError(err, p.dir), alias)
		}

		if !m.publish(p, dw, created, alias, isDir) {
			// Another registration published a watch for this directory
			// first. Drop ours and join that one.
			if _, _, toClose := dw.removeTarget(p.name, cb); toClose != nil {
				_ = toClose.RequestClose() // nolint:errcheck
			}
			continue
		}

		if created {
			m.logger.Debug("directory watch opened",
				"dir", p.dir,
				"recursive", dw.recursive)
		}
		return attrs, nil
	}
}

// directoryFor returns the live watch for p, or a new unpublished one.
func (m *Manager) directoryFor(p placement) (dw *directoryWatch, created bool, err error) {
	m.mu.RLock()
	if p.root {
		dw = m.root
	} else {
		dw = m.dirs[p.dir]
	}
	m.mu.RUnlock()
	if dw != nil && !dw.isDisposed() {
		return dw, false, nil
	}

	attrs, err := m.prober.Stat(p.dir)
	switch {
	case err == nil && !attrs.IsDir:
		return nil, false, fmt.Errorf("%w: %s: not a directory", ErrDirectoryNotFound, p.dir)
	case err != nil:
		return nil, false, classifyOpenError(err, p.dir)
	}

	var wellKnown map[string]bool
	if p.root {
		wellKnown = m.wellKnown
	}
	return newDirectoryWatch(m, p.dir, p.root, wellKnown), true, nil
}

// publish inserts a newly created watch and records the alias. It reports
// false when a live watch for the same directory was published first. A
// watch that failed before it could be published is not inserted; the alias
// record then points at a disposed watch and counts as absent.
func (m *Manager) publish(p placement, dw *directoryWatch, created bool, alias string, isDir bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if created {
		current := m.dirs[p.dir]
		if p.root {
			current = m.root
		}
		if current != nil && current != dw && !current.isDisposed() {
			return false
		}
		if !dw.isDisposed() {
			if p.root {
				m.root = dw
			} else {
				m.dirs[p.dir] = dw
			}
		}
	}

	rec := m.aliases[alias]
	if rec == nil || rec.dw != dw || rec.name != p.name {
		rec = &aliasRecord{dw: dw, name: p.name, isDir: isDir}
		m.aliases[alias] = rec
	}
	rec.refs++
	return true
}

// openFailed logs a registration failure and reports permission and
// resource failures to the audit recorder.
func (m *Manager) openFailed(err error, alias string) error {
	var kind audit.Kind
	switch {
	case errors.Is(err, ErrAccessDenied):
		kind = audit.KindAccessDenied
	case errors.Is(err, ErrResourceLimitExceeded):
		kind = audit.KindResourceLimit
	}

	m.logger.Warn("failed to open watch",
		"alias", alias,
		"error", err)

	if kind != "" && m.audit != nil {
		path, _ := m.resolve(alias) // nolint:errcheck
		if recErr := m.audit.Record(audit.Event{
			Time:  m.clock(),
			Kind:  kind,
			Path:  path,
			Alias: alias,
			Error: err.Error(),
		}); recErr != nil {
			m.logger.Error("failed to record audit event", "error", recErr)
		}
	}
	return err
}

func (m *Manager) unregister(alias string, cb event.Callback) {
	if cb == nil || !comparableCallback(cb) {
		return
	}

	m.disposeMu.RLock()
	defer m.disposeMu.RUnlock()
	if m.disposed {
		return
	}

	m.mu.RLock()
	rec := m.aliases[alias]
	m.mu.RUnlock()
	if rec == nil {
		return
	}

	removed, empty, toClose := rec.dw.removeTarget(rec.name, cb)

	m.mu.Lock()
	switch {
	case removed:
		rec.refs--
		if rec.refs <= 0 && m.aliases[alias] == rec {
			delete(m.aliases, alias)
		}
	case rec.dw.isDisposed():
		// The watch failed and took the registration with it.
		if m.aliases[alias] == rec {
			delete(m.aliases, alias)
		}
	}
	if empty {
		m.forgetLocked(rec.dw)
		m.logger.Debug("directory watch disposed", "dir", rec.dw.dir)
	}
	m.mu.Unlock()

	if toClose != nil {
		_ = toClose.RequestClose() // nolint:errcheck
	}
}

// forget removes dw from the directory table if it is still there.
func (m *Manager) forget(dw *directoryWatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgetLocked(dw)
}

func (m *Manager) forgetLocked(dw *directoryWatch) {
	if m.root == dw {
		m.root = nil
		return
	}
	if m.dirs[dw.dir] == dw {
		delete(m.dirs, dw.dir)
	}
}

// deliver filters candidates and queues the significant ones.
func (m *Manager) deliver(cands []candidate) {
	if len(cands) == 0 {
		return
	}

	items := make([]dispatch.Item, 0, len(cands))
	for _, c := range cands {
		if !m.filter.Significant(c.input) {
			m.noise.Debug("change suppressed",
				"alias", c.alias,
				"action", c.input.Action.String())
			continue
		}
		items = append(items, dispatch.Item{
			Callback: c.callback,
			Action:   c.input.Action,
			Alias:    c.alias,
		})
	}
	m.dispatcher.Enqueue(items...)
}

func (m *Manager) waitFor(ctx context.Context, done func() bool) error {
	for !done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.poll):
		}
	}
	return nil
}

func lastWrite(attrs *fsattr.Attributes) time.Time {
	if attrs == nil {
		return fsattr.UnknownTime
	}
	return attrs.LastWrite
}

// comparableCallback reports whether cb can key the target tables. A
// callback whose dynamic type holds a slice, map or func cannot.
func comparableCallback(cb event.Callback) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	keys := map[event.Callback]struct{}{}
	keys[cb] = struct{}{}
	return len(keys) == 1
}
