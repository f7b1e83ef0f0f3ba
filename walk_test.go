package tarbuilder

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func buildTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	if err := os.MkdirAll(filepath.Join(root, "sub", "deeper"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "top.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "mid.txt"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "deeper", "bottom.txt"), []byte("!"), 0o644); err != nil {
		t.Fatal(err)
	}

	return root
}

func TestWalkVisitsEveryEntry(t *testing.T) {
	root := buildTestTree(t)

	var visited []string
	err := Walk(root, 0, func(path string, fi fs.FileInfo) (int, error) {
		visited = append(visited, path)
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	want := []string{
		root,
		filepath.Join(root, "sub"),
		filepath.Join(root, "sub", "deeper"),
		filepath.Join(root, "sub", "deeper", "bottom.txt"),
		filepath.Join(root, "sub", "mid.txt"),
		filepath.Join(root, "top.txt"),
	}
	sort.Strings(visited)
	sort.Strings(want)

	if len(visited) != len(want) {
		t.Fatalf("visited %d entries, want %d: %v", len(visited), len(want), visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestWalkSkipsSubtreeWhenToldNotToDescend(t *testing.T) {
	root := buildTestTree(t)

	var visited []string
	err := Walk(root, 0, func(path string, fi fs.FileInfo) (int, error) {
		visited = append(visited, path)
		if filepath.Base(path) == "sub" {
			return 0, nil
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	for _, p := range visited {
		if filepath.Base(filepath.Dir(p)) == "sub" {
			t.Errorf("descended into sub despite a zero return: %q", p)
		}
	}
}

func TestWalkFollowSymlinksStatsThroughLink(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target.txt")
	if err := os.WriteFile(target, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	modes := map[string]fs.FileMode{}
	err := Walk(root, 0, func(path string, fi fs.FileInfo) (int, error) {
		modes[path] = fi.Mode().Type()
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if modes[link]&fs.ModeSymlink == 0 {
		t.Fatalf("default flags: expected link.txt reported as a symlink, got mode %v", modes[link])
	}

	modes = map[string]fs.FileMode{}
	err = Walk(root, FollowSymlinks, func(path string, fi fs.FileInfo) (int, error) {
		modes[path] = fi.Mode().Type()
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if modes[link]&fs.ModeSymlink != 0 {
		t.Fatalf("FollowSymlinks: expected link.txt reported as a regular file, got mode %v", modes[link])
	}
}

func TestWalkAbortsOnNegativeReturn(t *testing.T) {
	root := buildTestTree(t)

	called := 0
	err := Walk(root, 0, func(path string, fi fs.FileInfo) (int, error) {
		called++
		return -1, nil
	})
	if err == nil {
		t.Fatal("expected an error from an aborted walk")
	}
	if called != 1 {
		t.Fatalf("callback invoked %d times, want exactly 1", called)
	}
}
