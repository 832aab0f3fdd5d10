//go:build linux

package fsattr

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/unix"
)

// posixACLAttr is the extended attribute holding the access ACL.
const posixACLAttr = "system.posix_acl_access"

// Stat implements Prober.Stat.
func (osProber) Stat(path string) (Attributes, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return Attributes{}, &os.PathError{Op: "stat", Path: path, Err: err}
	}

	attrs := Attributes{
		Size:       st.Size,
		LastWrite:  timespec(st.Mtim),
		LastAccess: timespec(st.Atim),
		Created:    timespec(st.Ctim),
		IsDir:      st.Mode&unix.S_IFMT == unix.S_IFDIR,
	}

	// Prefer the birth time where the kernel and filesystem report one.
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stx); err == nil &&
		stx.Mask&unix.STATX_BTIME != 0 {
		attrs.Created = time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)).UTC()
	}

	return attrs, nil
}

// ACL implements Prober.ACL.
func (osProber) ACL(path string) ACLDigest {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return ACLDigest{}
	}

	acl, err := readXattr(path, posixACLAttr)
	if err != nil {
		return ACLDigest{}
	}

	h := xxhash.New()
	_, _ = fmt.Fprintf(h, "%o:%d:%d:", st.Mode&07777, st.Uid, st.Gid)
	_, _ = h.Write(acl)

	return ACLDigest{Sum: h.Sum64(), Known: true}
}

// ShortName implements Prober.ShortName. Linux filesystems carry no short
// names.
func (osProber) ShortName(string) string {
	return ""
}

// readXattr reads an extended attribute, treating an absent attribute or a
// filesystem without xattr support as empty.
func readXattr(path, name string) ([]byte, error) {
	size, err := unix.Getxattr(path, name, nil)
	if err != nil {
		if errors.Is(err, unix.ENODATA) || errors.Is(err, unix.ENOTSUP) {
			return nil, nil
		}
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	n, err := unix.Getxattr(path, name, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func timespec(ts unix.Timespec) time.Time {
	return time.Unix(ts.Unix()).UTC()
}
