// Package fsattr captures the filesystem state the change notification engine
// compares between completions: attribute snapshots (size, timestamps,
// directory bit) and a digest of the object's access control list.
//
// Snapshots are plain values; callers copy them before handing them to other
// goroutines.
package fsattr

import (
	"time"
)

// UnknownTime is returned for the last-write time of a path that does not
// exist.
var UnknownTime = time.Time{}

// Attributes is an immutable snapshot of a filesystem object.
type Attributes struct {
	Size       int64     `json:"size"`
	Created    time.Time `json:"created"`
	LastWrite  time.Time `json:"last_write"`
	LastAccess time.Time `json:"last_access"`
	IsDir      bool      `json:"is_dir"`
}

// ACLDigest summarizes ownership, permission bits and the extended ACL of an
// object. A digest with Known == false could not be read.
type ACLDigest struct {
	Sum   uint64
	Known bool
}

// Changed reports whether two digests differ or either could not be read.
func (d ACLDigest) Changed(other ACLDigest) bool {
	if !d.Known || !other.Known {
		return true
	}
	return d.Sum != other.Sum
}

// Prober reads the current state of paths.
type Prober interface {
	// Stat returns the attributes of path. A missing path yields an error
	// matching os.ErrNotExist.
	Stat(path string) (Attributes, error)

	// ACL returns the ACL digest of path. Unreadable ACLs yield a digest with
	// Known == false.
	ACL(path string) ACLDigest

	// ShortName returns the alternate short name of path, or "" when the
	// filesystem has none.
	ShortName(path string) string
}

// osProber implements Prober against the local filesystem.
type osProber struct{}

// NewProber returns a Prober backed by the operating system.
func NewProber() Prober {
	return osProber{}
}
