package watch

import (
	"io/fs"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/fsattr"
	"github.com/0xmhha/filechange/pkg/native"
)

// fakeProber serves attributes from memory.
type fakeProber struct {
	mu    sync.Mutex
	attrs map[string]fsattr.Attributes
	acls  map[string]fsattr.ACLDigest
	short map[string]string
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		attrs: make(map[string]fsattr.Attributes),
		acls:  make(map[string]fsattr.ACLDigest),
		short: make(map[string]string),
	}
}

func (p *fakeProber) Stat(path string) (fsattr.Attributes, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attrs[path]
	if !ok {
		return fsattr.Attributes{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return a, nil
}

func (p *fakeProber) ACL(path string) fsattr.ACLDigest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d, ok := p.acls[path]; ok {
		return d
	}
	return fsattr.ACLDigest{Sum: 1, Known: true}
}

func (p *fakeProber) ShortName(path string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.short[path]
}

func (p *fakeProber) setDir(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attrs[path] = fsattr.Attributes{IsDir: true}
}

func (p *fakeProber) setFile(path string, size int64, write, access time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attrs[path] = fsattr.Attributes{Size: size, LastWrite: write, LastAccess: access, Created: write}
}

func (p *fakeProber) setACL(path string, sum uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acls[path] = fsattr.ACLDigest{Sum: sum, Known: true}
}

func (p *fakeProber) remove(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.attrs, path)
}

// fakeSubscription is a native.Subscription driven by the test.
type fakeSubscription struct {
	events chan fsnotify.Event
	errors chan error
	addErr error
}

func (s *fakeSubscription) Add(string) error              { return s.addErr }
func (s *fakeSubscription) Events() <-chan fsnotify.Event { return s.events }
func (s *fakeSubscription) Errors() <-chan error          { return s.errors }
func (s *fakeSubscription) Close() error                  { return nil }

// fakeOpener hands out fake subscriptions.
type fakeOpener struct {
	mu     sync.Mutex
	subs   []*fakeSubscription
	sizes  []uint
	addErr error

	// When gate is set, open reports on entered and waits for gate.
	gate    chan struct{}
	entered chan struct{}
}

func (o *fakeOpener) open(size uint) (native.Subscription, error) {
	o.mu.Lock()
	gate, entered := o.gate, o.entered
	o.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	s := &fakeSubscription{
		events: make(chan fsnotify.Event, 256),
		errors: make(chan error, 4),
		addErr: o.addErr,
	}
	o.subs = append(o.subs, s)
	o.sizes = append(o.sizes, size)
	return s, nil
}

func (o *fakeOpener) setAddErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.addErr = err
}

// hold makes the next opens block until the returned release is called.
func (o *fakeOpener) hold() (entered <-chan struct{}, release func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	gate := make(chan struct{})
	o.gate = gate
	o.entered = make(chan struct{}, 1)
	return o.entered, func() {
		o.mu.Lock()
		o.gate, o.entered = nil, nil
		o.mu.Unlock()
		close(gate)
	}
}

func (o *fakeOpener) last() *fakeSubscription {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.subs[len(o.subs)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type notification struct {
	action event.Action
	alias  string
}

// recorder is a subscriber that remembers what it was told.
type recorder struct {
	mu    sync.Mutex
	got   []notification
	delay time.Duration
}

func (r *recorder) OnFileChange(action event.Action, alias string) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, notification{action: action, alias: alias})
}

func (r *recorder) notifications() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.got...)
}

func (r *recorder) actions() []event.Action {
	var out []event.Action
	for _, n := range r.notifications() {
		out = append(out, n.action)
	}
	return out
}

// sliceCallback has a value receiver over a slice, so it cannot key a map.
type sliceCallback struct {
	seen []string
}

func (c sliceCallback) OnFileChange(event.Action, string) {}
