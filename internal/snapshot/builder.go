package snapshot

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/ejrh/backup/internal/errkind"
	"github.com/ejrh/backup/internal/hashutil"
	"github.com/ejrh/backup/internal/pathutil"
)

// backupItem implements spec.md §4.5's recursive walk. relPath is relative
// to both the source root and the new snapshot root, using forward slashes
// throughout ("" denotes the root itself).
func (s *Session) backupItem(relPath string) error {
	if s.excluded(relPath) {
		s.notifier.Notice(relPath, "excluded, skipping")
		return nil
	}

	if s.reusable(relPath) {
		if err := s.reuseLink(relPath); err == nil {
			s.notifier.Notice(relPath, "linked to previous snapshot")
			return nil
		}
		// Fall through to copy/descend on link failure, per spec.md §4.5.
	}

	sourcePath := s.sourcePath(relPath)
	info, err := os.Lstat(sourcePath)
	if err != nil {
		return errkind.Wrap(errkind.CopyFailure, err)
	}

	if info.Mode().IsRegular() {
		if err := s.copyOrDedup(relPath); err != nil {
			return err
		}
	} else {
		if err := os.Mkdir(s.targetPath(relPath), 0755); err != nil {
			return errkind.Wrap(errkind.CopyFailure, err)
		}
		for _, child := range s.getChildren(relPath) {
			if err := s.backupItem(pathutil.Join(relPath, child)); err != nil {
				return err
			}
		}
	}

	s.notifier.Notice(relPath, "backed up")
	return nil
}

// reusable implements spec.md §4.5: it returns false unless the journal was
// enabled and resolved this run, a previous snapshot exists, directory reuse
// is enabled (when the source item is a directory), and the replayer
// considers the source item unaffected.
func (s *Session) reusable(relPath string) bool {
	if !s.journalActive || !s.hasPrevious {
		return false
	}

	sourcePath := s.sourcePath(relPath)
	if info, err := os.Lstat(sourcePath); err == nil && info.IsDir() && !s.cfg.EnableDirReuse {
		return false
	}

	return !s.replayer.Affected(sourcePath)
}

// reuseLink implements spec.md §4.5's reuse_link: a hard link for a file, a
// directory symlink (terminating the recursion) for a directory.
func (s *Session) reuseLink(relPath string) error {
	prevPath := s.previousPath(relPath)
	newPath := s.targetPath(relPath)

	info, err := os.Lstat(prevPath)
	if err != nil {
		return errkind.Wrap(errkind.LinkFailure, err)
	}

	if info.IsDir() {
		if err := s.adapter.DirSymlink(prevPath, newPath); err != nil {
			return errkind.Wrap(errkind.LinkFailure, err)
		}
		return nil
	}

	if err := s.adapter.Hardlink(prevPath, newPath); err != nil {
		s.notifier.Warning(relPath, "hard link to previous snapshot failed: %v", err)
		return errkind.Wrap(errkind.LinkFailure, err)
	}
	return nil
}

// copyOrDedup implements spec.md §4.5's copy_or_dedup: hash the source file
// once, try a manifest-based reuse, and only materialise a fresh copy when
// no manifest candidate matched.
func (s *Session) copyOrDedup(relPath string) error {
	sourcePath := s.sourcePath(relPath)

	result, err := hashutil.HashFile(sourcePath, hashutil.DefaultChunkSize, hashutil.DefaultMaxChunks)
	if err != nil {
		return errkind.Wrap(errkind.CopyFailure, err)
	}

	manifestPath := pathutil.Join(s.cfg.Name, relPath)
	if s.manifestIdx.Reuse(result.Hex, result.Size, manifestPath) {
		return nil
	}

	destPath := s.targetPath(relPath)
	if result.Buffered {
		return writeChunks(destPath, result.Chunks)
	}
	return copyFile(sourcePath, destPath)
}

// getChildren implements spec.md §4.5's get_children: a failed directory
// listing is warned about and treated as empty rather than aborting the
// whole run.
func (s *Session) getChildren(relPath string) []string {
	entries, err := os.ReadDir(s.sourcePath(relPath))
	if err != nil {
		s.notifier.Warning(relPath, "enumeration failure, treating as empty: %v", err)
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (s *Session) excluded(relPath string) bool {
	return s.exclusions[filepath.Clean(s.sourcePath(relPath))]
}

func (s *Session) sourcePath(relPath string) string {
	if relPath == "" {
		return s.cfg.Source
	}
	return filepath.Join(s.cfg.Source, filepath.FromSlash(relPath))
}

func (s *Session) targetPath(relPath string) string {
	base := filepath.Join(s.cfg.Target, s.cfg.Name)
	if relPath == "" {
		return base
	}
	return filepath.Join(base, filepath.FromSlash(relPath))
}

func (s *Session) previousPath(relPath string) string {
	base := filepath.Join(s.cfg.Target, s.previousName)
	if relPath == "" {
		return base
	}
	return filepath.Join(base, filepath.FromSlash(relPath))
}

// writeChunks writes previously-hashed, in-memory chunks to destPath in a
// single pass, avoiding a second read of the source file for files that fit
// within hashutil's buffering cap.
func writeChunks(destPath string, chunks [][]byte) error {
	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errkind.Wrap(errkind.CopyFailure, err)
	}
	defer f.Close()
	for _, c := range chunks {
		if _, err := f.Write(c); err != nil {
			return errkind.Wrap(errkind.CopyFailure, err)
		}
	}
	return nil
}

// copyFile streams src to dst for files too large to have been buffered
// during hashing.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errkind.Wrap(errkind.CopyFailure, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errkind.Wrap(errkind.CopyFailure, err)
	}
	defer out.Close()

	buf := make([]byte, hashutil.DefaultChunkSize)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return errkind.Wrap(errkind.CopyFailure, werr)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return errkind.Wrap(errkind.CopyFailure, rerr)
		}
	}
}
