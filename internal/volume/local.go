package volume

import (
	"errors"
	"os"

	"github.com/ejrh/backup/internal/errkind"
)

// LocalLinks implements the Hardlink/DirSymlink half of Adapter with the
// standard library. Go's os.Link and os.Symlink already do the right thing
// cross-platform (including creating a *directory* symlink correctly on
// Windows), which is why the change-journal adapters below embed this
// instead of reimplementing reparse-point construction by hand the way the
// Python original's links.py had to (see DESIGN.md).
type LocalLinks struct{}

// Hardlink creates dst as a hard link to src, the file implementation of
// spec.md's reuse_link.
func (LocalLinks) Hardlink(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return errkind.AlreadyExists
		}
		return err
	}
	return nil
}

// DirSymlink creates dst as a directory symlink pointing at src, the
// directory implementation of spec.md's reuse_link.
func (LocalLinks) DirSymlink(src, dst string) error {
	if err := os.Symlink(src, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return errkind.AlreadyExists
		}
		return err
	}
	return nil
}

// SameFile reports whether two paths refer to the same underlying file,
// i.e. the same FRN (Windows) or device+inode (everywhere else). Used by
// internal/dedupe as a cheap pre-check before hashing, grounded in
// dedupe.py's get_file_frn short-circuit: os.SameFile is the portable
// equivalent of comparing FRNs by hand against win32file, so that one check
// is implemented on the standard library rather than a third-party
// dependency (see DESIGN.md).
func SameFile(a, b string) bool {
	fa, err := os.Lstat(a)
	if err != nil {
		return false
	}
	fb, err := os.Lstat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
