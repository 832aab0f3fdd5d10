// Package watch is the change notification engine.
//
// A Manager maps caller aliases to file watch entries grouped by directory.
// Each directory with at least one entry owns one native completion (an OS
// change subscription). Raw changes are resolved to entries, filtered for
// significance, and queued on a dispatcher that invokes subscriber callbacks
// on its own goroutine.
//
// Example usage:
//
//	m := watch.NewManager(watch.Options{Logger: logger.Default()})
//	defer m.Stop(context.Background())
//
//	cb := event.NewCallback(func(action event.Action, alias string) {
//	    fmt.Println(action, alias)
//	})
//	lastWrite, err := m.StartMonitoringFile("/srv/app/web.config", cb)
package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xmhha/filechange/pkg/audit"
	"github.com/0xmhha/filechange/pkg/fsattr"
	"github.com/0xmhha/filechange/pkg/logger"
	"github.com/0xmhha/filechange/pkg/native"
	"github.com/0xmhha/filechange/pkg/significance"
)

// Mode selects how registrations are served.
type Mode string

const (
	// ModeDefault opens one watch per directory.
	ModeDefault Mode = "default"

	// ModeDisabled probes once per registration and never watches.
	ModeDisabled Mode = "disabled"

	// ModeSingle serves everything beneath the application root from one
	// recursive watch.
	ModeSingle Mode = "single"
)

// ParseMode converts a configuration value to a Mode. "" is ModeDefault.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeDefault:
		return ModeDefault, nil
	case ModeDisabled:
		return ModeDisabled, nil
	case ModeSingle:
		return ModeSingle, nil
	default:
		return "", fmt.Errorf("unknown watch mode %q: must be default, disabled, or single", s)
	}
}

// DefaultWellKnownDirs are the application root subdirectories that map back
// to their own entry in ModeSingle.
var DefaultWellKnownDirs = []string{
	"bin",
	"App_Code",
	"App_GlobalResources",
	"App_LocalResources",
	"App_Browsers",
	"App_WebReferences",
}

// Options configures a Manager. The zero value watches per directory with
// the OS prober and fsnotify.
type Options struct {
	Mode Mode

	// AppRoot is the application root. Aliases starting with "~/" are
	// relative to it, and ModeSingle watches it recursively.
	AppRoot string

	// WellKnownDirs overrides DefaultWellKnownDirs.
	WellKnownDirs []string

	// MapPath maps an alias to a physical path. When set it replaces the
	// built-in "~/" handling.
	MapPath func(alias string) (string, error)

	Prober fsattr.Prober
	Opener native.Opener

	// Impersonate wraps every raw callback in the host's identity context.
	Impersonate func(fn func())

	Clock func() time.Time

	// Thresholds tunes the significance filter. nil means
	// significance.DefaultThresholds.
	Thresholds *significance.Thresholds

	// BufferSize is the initial native event buffer. Default: 64.
	BufferSize uint

	// PollInterval is the sleep between checks while Stop waits.
	// Default: 10ms.
	PollInterval time.Duration

	// Audit receives access-denied and resource-limit failures.
	Audit audit.Recorder

	Logger logger.Logger
}

// EntryInfo describes one file watch entry.
type EntryInfo struct {
	Name           string    `json:"name"`
	ShortName      string    `json:"short_name,omitempty"`
	Exists         bool      `json:"exists"`
	Targets        int       `json:"targets"`
	LastAction     string    `json:"last_action"`
	LastCompletion time.Time `json:"last_completion"`
}

// DirectoryInfo describes one directory watch.
type DirectoryInfo struct {
	Dir       string      `json:"dir"`
	Recursive bool        `json:"recursive"`
	Live      bool        `json:"live"`
	Closing   int         `json:"closing"`
	Entries   []EntryInfo `json:"entries"`
}

const (
	defaultBufferSize   = 64
	defaultPollInterval = 10 * time.Millisecond
)
