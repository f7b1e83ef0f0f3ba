package tarbuilder

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/xerrors"
)

// WalkFunc is called once per filesystem entry Walk visits, including the
// root itself. Its return value is a tri-state that stands in for the
// original C code's function-pointer-plus-context-pointer callback pair:
//
//	< 0   abort the walk; Walk returns an error identifying where
//	  0   visit the entry but do not descend into it, even if it's a directory
//	> 0   if the entry is a directory, descend into it
type WalkFunc func(path string, fi fs.FileInfo) (int, error)

// WalkFlags controls how Walk stats the entries it visits.
type WalkFlags uint32

const (
	// FollowSymlinks makes Walk stat through a symlink (stat(2)) rather
	// than reporting the link itself (lstat(2), the default).
	FollowSymlinks WalkFlags = 1 << iota
)

func statFor(path string, flags WalkFlags) (fs.FileInfo, error) {
	if flags&FollowSymlinks != 0 {
		return os.Stat(path)
	}
	return os.Lstat(path)
}

func statChild(entry fs.DirEntry, childPath string, flags WalkFlags) (fs.FileInfo, error) {
	if flags&FollowSymlinks != 0 {
		return os.Stat(childPath)
	}
	return entry.Info()
}

type walkFrame struct {
	dir  *os.File
	path string
}

// closeFrames drains st, closing every directory handle still on it. It's
// called on every abort path so a callback refusal or error partway
// through a walk never leaks the open directory iterators still stacked
// above the one that triggered it.
func closeFrames(st *stack[*walkFrame]) {
	for {
		frame, ok := st.pop()
		if !ok {
			return
		}
		frame.dir.Close()
	}
}

// Walk performs an iterative, depth-first walk of root, calling fn for
// every entry under it. It keeps an explicit stack of open directory
// handles rather than recursing, so walk depth is bounded by memory, not
// goroutine stack size.
//
// flags selects lstat-vs-stat semantics for every entry Walk visits,
// root included.
//
// A subdirectory Walk can't open because of permissions is skipped rather
// than aborting the whole walk, as is a child that vanished before it
// could be statted; every other open or stat failure aborts, and every
// directory handle still on the stack at that point is closed before Walk
// returns. An error while reading a directory's entries ends that
// directory's listing without aborting the walk.
func Walk(root string, flags WalkFlags, fn WalkFunc) error {
	root = Clean(root)

	rootInfo, err := statFor(root, flags)
	if err != nil {
		return xerrors.Errorf("tarbuilder: walk: %w", err)
	}

	ret, err := fn(root, rootInfo)
	if err != nil {
		return err
	}
	if ret < 0 {
		return xerrors.Errorf("tarbuilder: walk: aborted at %s", root)
	}
	if ret <= 0 || !rootInfo.IsDir() {
		return nil
	}

	f, err := os.Open(root)
	if err != nil {
		return xerrors.Errorf("tarbuilder: walk: %w", err)
	}

	st := newStack[*walkFrame]()
	st.push(&walkFrame{dir: f, path: root})

	for st.len() > 0 {
		frame, _ := st.pop()

		entries, rerr := frame.dir.ReadDir(1)
		if rerr != nil {
			frame.dir.Close()
			continue
		}
		// More entries may remain in this directory: push it back
		// before any child directory goes on top, so it resumes once
		// the child subtree has been fully walked.
		st.push(frame)

		entry := entries[0]
		childPath := joinChild(frame.path, entry.Name())

		info, ierr := statChild(entry, childPath, flags)
		if ierr != nil {
			if errors.Is(ierr, fs.ErrNotExist) {
				continue
			}
			closeFrames(st)
			return xerrors.Errorf("tarbuilder: walk: %s: %w", childPath, ierr)
		}

		ret, err := fn(childPath, info)
		if err != nil {
			closeFrames(st)
			return err
		}
		if ret < 0 {
			closeFrames(st)
			return xerrors.Errorf("tarbuilder: walk: aborted at %s", childPath)
		}
		if ret <= 0 || !info.IsDir() {
			continue
		}

		child, oerr := os.Open(childPath)
		if oerr != nil {
			if errors.Is(oerr, fs.ErrPermission) {
				continue
			}
			closeFrames(st)
			return xerrors.Errorf("tarbuilder: walk: %s: %w", childPath, oerr)
		}
		st.push(&walkFrame{dir: child, path: childPath})
	}

	return nil
}
