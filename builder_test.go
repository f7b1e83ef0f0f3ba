package tarbuilder_test

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xantronix/tarbuilder"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuilderRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.txt"), "hello")
	writeTestFile(t, filepath.Join(root, "sub", "b.txt"), "world")

	var out bytes.Buffer
	b := tarbuilder.NewBuilder(&out)
	require.NoError(t, b.AddTree(root, ".", 0))
	require.NoError(t, b.WriteTrailer())

	stats := b.Stats()
	require.EqualValues(t, 4, stats.FilesWritten) // root dir, sub dir, a.txt, sub/b.txt

	rd := tar.NewReader(&out)
	contents := map[string]string{}
	for {
		hdr, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(rd)
		require.NoError(t, err)
		contents[hdr.Name] = string(data)
	}

	require.Equal(t, "hello", contents["a.txt"])
	require.Equal(t, "world", contents["sub/b.txt"])
}

func TestBuilderLongNameUsesGNULongLink(t *testing.T) {
	root := t.TempDir()
	longName := strings.Repeat("a", 80) + "/" + strings.Repeat("b", 80) + "/" + strings.Repeat("c", 80) + ".txt"
	writeTestFile(t, filepath.Join(root, longName), "payload")

	var out bytes.Buffer
	b := tarbuilder.NewBuilder(&out, tarbuilder.WithOptions(tarbuilder.OptGNULongLink))
	require.NoError(t, b.AddTree(root, ".", 0))
	require.NoError(t, b.WriteTrailer())

	rd := tar.NewReader(&out)
	found := false
	for {
		hdr, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if strings.HasSuffix(hdr.Name, "c.txt") {
			data, err := io.ReadAll(rd)
			require.NoError(t, err)
			require.Equal(t, "payload", string(data))
			found = true
		}
	}
	require.True(t, found, "long-name entry not found in archive")
}

func TestBuilderExcludesMatchedPaths(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "keep.txt"), "keep")
	writeTestFile(t, filepath.Join(root, "skip.log"), "skip")

	var out bytes.Buffer
	b := tarbuilder.NewBuilder(&out, tarbuilder.WithMatcher(tarbuilder.NewGlobMatcher("*.log")))
	require.NoError(t, b.AddTree(root, ".", 0))
	require.NoError(t, b.WriteTrailer())

	rd := tar.NewReader(&out)
	var names []string
	for {
		hdr, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}

	require.Contains(t, names, "keep.txt")
	require.NotContains(t, names, "skip.log")
}

func TestBuilderWriteFileReturnsWarnOnNameTooLongWithNoDialect(t *testing.T) {
	root := t.TempDir()
	longName := strings.Repeat("a", 80) + "/" + strings.Repeat("b", 80) + "/" + strings.Repeat("c", 80) + ".txt"
	path := filepath.Join(root, longName)
	writeTestFile(t, path, "payload")

	fi, err := os.Lstat(path)
	require.NoError(t, err)

	var out bytes.Buffer
	b := tarbuilder.NewBuilder(&out, tarbuilder.WithOptions(0))

	ret, err := b.WriteFile(path, longName, fi)
	require.Equal(t, -1, ret)
	require.Error(t, err)
	require.ErrorIs(t, err, tarbuilder.ErrNameTooLong)

	var archErr *tarbuilder.Error
	require.ErrorAs(t, err, &archErr)
	require.Equal(t, tarbuilder.SeverityWarn, archErr.Severity)
}

func TestBuilderWriteFileThroughPipeSink(t *testing.T) {
	root := t.TempDir()
	content := strings.Repeat("x", 3*tarbuilder.BlockSize+17)
	path := filepath.Join(root, "big.txt")
	writeTestFile(t, path, content)

	fi, err := os.Lstat(path)
	require.NoError(t, err)

	pr, pw, err := os.Pipe()
	require.NoError(t, err)

	var out bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(&out, pr)
	}()

	b := tarbuilder.NewBuilder(pw)
	ret, err := b.WriteFile(path, "big.txt", fi)
	require.NoError(t, err)
	require.Equal(t, 1, ret)
	require.NoError(t, b.WriteTrailer())
	require.NoError(t, pw.Close())
	<-done

	rd := tar.NewReader(&out)
	hdr, err := rd.Next()
	require.NoError(t, err)
	require.Equal(t, "big.txt", hdr.Name)
	data, err := io.ReadAll(rd)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestBuilderSymlink(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "target.txt"), "target")
	require.NoError(t, os.Symlink("target.txt", filepath.Join(root, "link.txt")))

	var out bytes.Buffer
	b := tarbuilder.NewBuilder(&out)
	require.NoError(t, b.AddTree(root, ".", 0))
	require.NoError(t, b.WriteTrailer())

	rd := tar.NewReader(&out)
	var sawLink bool
	for {
		hdr, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if hdr.Name == "link.txt" {
			require.Equal(t, byte(tar.TypeSymlink), byte(hdr.Typeflag))
			require.Equal(t, "target.txt", hdr.Linkname)
			sawLink = true
		}
	}
	require.True(t, sawLink)
}
