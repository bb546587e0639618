package upload

import (
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ResolveConflict returns rel when nothing exists at root/rel, otherwise the
// first free name of the sequence stem_1.ext, stem_2.ext, ... Names without
// an extension become stem_1, stem_2, ...
//
// The answer is only a snapshot: another writer may take the name before it
// is used. Set.Save therefore walks the same sequence with exclusive creates
// instead of calling this.
func ResolveConflict(root, rel string) string {
	for n := 0; ; n++ {
		name := candidate(rel, n)
		if _, err := os.Lstat(filepath.Join(root, filepath.FromSlash(name))); err != nil {
			return name
		}
	}
}

// candidate returns the n-th name tried for rel; n == 0 is rel itself.
func candidate(rel string, n int) string {
	if n == 0 {
		return rel
	}
	dir, base := path.Split(rel)
	ext := path.Ext(base)
	if ext == base {
		// ".env" is a stem, not an extension
		ext = ""
	}
	stem := strings.TrimSuffix(base, ext)
	return dir + stem + "_" + strconv.Itoa(n) + ext
}
