//go:build !linux

package fsattr

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Stat implements Prober.Stat. Platforms without a Linux stat layout report
// the modification time for every timestamp.
func (osProber) Stat(path string) (Attributes, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attributes{}, err
	}

	mod := info.ModTime().UTC()
	return Attributes{
		Size:       info.Size(),
		Created:    mod,
		LastWrite:  mod,
		LastAccess: mod,
		IsDir:      info.IsDir(),
	}, nil
}

// ACL implements Prober.ACL using permission bits only.
func (osProber) ACL(path string) ACLDigest {
	info, err := os.Stat(path)
	if err != nil {
		return ACLDigest{}
	}

	h := xxhash.New()
	_, _ = fmt.Fprintf(h, "%o", info.Mode().Perm())
	return ACLDigest{Sum: h.Sum64(), Known: true}
}

// ShortName implements Prober.ShortName.
func (osProber) ShortName(string) string {
	return ""
}
