// Package fixtimes corrects modification times that drifted during a copy,
// grounded on original_source/fix_times.py: a hard-linked or copied file's
// mtime should track its source's mtime, not the time of the backup run.
package fixtimes

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ejrh/backup/internal/notify"
)

// toleranceSeconds mirrors fix_times.py's "< -1 or > 1" drift check.
const toleranceSeconds = 1.0

// Fixer walks a target tree in parallel with its source tree, correcting
// any file whose mtime has drifted by more than toleranceSeconds.
type Fixer struct {
	notifier notify.Notifier
	Fixed    int
}

// New returns a Fixer reporting progress via notifier.
func New(notifier notify.Notifier) *Fixer {
	return &Fixer{notifier: notifier}
}

// Walk visits every regular file under targetDir, comparing its mtime
// against the corresponding path under sourceDir and correcting it in place
// when the drift exceeds toleranceSeconds.
func (f *Fixer) Walk(targetDir, sourceDir string) error {
	return filepath.Walk(targetDir, func(targetPath string, info os.FileInfo, err error) error {
		if err != nil {
			f.notifier.Warning(targetPath, "enumeration failure: %v", err)
			return nil
		}
		if info.IsDir() {
			return nil
		}

		rel := strings.TrimPrefix(targetPath, targetDir)
		sourcePath := filepath.Join(sourceDir, rel)

		sourceInfo, err := os.Stat(sourcePath)
		if err != nil {
			f.notifier.Warning(sourcePath, "source stat failed, skipping: %v", err)
			return nil
		}

		drift := sourceInfo.ModTime().Sub(info.ModTime()).Seconds()
		if math.Abs(drift) <= toleranceSeconds {
			return nil
		}

		f.notifier.Notice(targetPath, "changing mtime from %s to %s", info.ModTime(), sourceInfo.ModTime())
		atime := atimeOf(info)
		if err := os.Chtimes(targetPath, atime, sourceInfo.ModTime()); err != nil {
			f.notifier.Warning(targetPath, "unable to change mtime: %v", err)
			return nil
		}
		f.Fixed++
		return nil
	})
}

// atimeOf returns the access time handed to os.Chtimes, which requires both
// times. os.FileInfo carries no portable access time, so it returns the
// target file's current mtime; the file's access time is therefore
// overwritten with that value, not preserved.
func atimeOf(info os.FileInfo) time.Time {
	return info.ModTime()
}
