package tarbuilder

import (
	"io/fs"
	"strings"

	"golang.org/x/xerrors"
)

// AddTree walks root and writes every entry under it into the archive,
// rewriting member names so they're relative to root and prefixed by
// memberRoot (pass "" to use root's own base name, or "." for archive
// members with no prefix at all). flags is passed straight through to
// Walk, so FollowSymlinks governs stat-vs-lstat for this tree exactly as
// it would for a direct Walk call. It's the convenience driver
// b_builder.c left to its caller (tar(1) itself, via b_find's callback)
// — here it's folded into the library since Walk and WriteFile are both
// already exported and gluing them is exactly this one loop.
//
// A directory entry the Builder's Matcher excludes is skipped along with
// its entire subtree, since WalkFunc's tri-state return tells Walk not to
// descend.
func (b *Builder) AddTree(root, memberRoot string, flags WalkFlags) error {
	root = Clean(root)

	return Walk(root, flags, func(path string, fi fs.FileInfo) (int, error) {
		if b.matcher != nil && b.matcher.Excluded(path, fi) {
			b.skipped++
			return 0, nil
		}

		memberName := memberNameFor(root, memberRoot, path)

		ret, err := b.WriteFile(path, memberName, fi)
		if err != nil {
			var archErr *Error
			if xerrors.As(err, &archErr) && archErr.Severity == SeverityWarn {
				b.warnings++
				b.metrics.observeWarning()
				return 0, nil
			}
			return -1, err
		}

		return ret, nil
	})
}

// memberNameFor rewrites path (always rooted at root) to an archive
// member name rooted at memberRoot instead.
func memberNameFor(root, memberRoot, path string) string {
	rel := strings.TrimPrefix(path, root)
	rel = strings.TrimPrefix(rel, "/")

	switch {
	case memberRoot == "":
		base := root
		if i := strings.LastIndexByte(root, '/'); i >= 0 && i < len(root)-1 {
			base = root[i+1:]
		}
		if rel == "" {
			return base
		}
		return joinChild(base, rel)
	case memberRoot == ".":
		if rel == "" {
			return "."
		}
		return rel
	case rel == "":
		return memberRoot
	default:
		return joinChild(memberRoot, rel)
	}
}
