// Command tarbuilder walks a directory tree and writes a USTAR/GNU/PAX
// tar stream to stdout. It exists to exercise the library end to end; it
// is not the deliverable.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/xantronix/tarbuilder"
)

func main() {
	var (
		pax            = flag.Bool("pax", false, "use PAX extended headers instead of GNU LongLink")
		lookup         = flag.Bool("names", false, "resolve numeric uid/gid to symbolic owner names")
		followSymlinks = flag.Bool("follow-symlinks", false, "stat through symlinks instead of archiving the link itself")
		excludes       stringList
	)
	flag.Var(&excludes, "exclude", "glob pattern to exclude (repeatable)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tarbuilder [flags] <directory>")
		os.Exit(2)
	}

	opts := tarbuilder.DefaultOptions
	if *pax {
		opts = tarbuilder.OptPAX
	}

	builderOpts := []tarbuilder.BuilderOption{
		tarbuilder.WithOptions(opts),
	}
	if *lookup {
		builderOpts = append(builderOpts, tarbuilder.WithLookup(tarbuilder.NewOSUserLookup()))
	}
	if len(excludes) > 0 {
		builderOpts = append(builderOpts, tarbuilder.WithMatcher(tarbuilder.NewGlobMatcher(excludes...)))
	}

	out := bufio.NewWriter(os.Stdout)
	b := tarbuilder.NewBuilder(out, builderOpts...)

	var flags tarbuilder.WalkFlags
	if *followSymlinks {
		flags |= tarbuilder.FollowSymlinks
	}

	if err := b.AddTree(flag.Arg(0), ".", flags); err != nil {
		log.Fatalf("tarbuilder: %v", err)
	}
	if err := b.WriteTrailer(); err != nil {
		log.Fatalf("tarbuilder: %v", err)
	}
	if err := out.Flush(); err != nil {
		log.Fatalf("tarbuilder: %v", err)
	}

	stats := b.Stats()
	fmt.Fprintf(os.Stderr, "tarbuilder: %d files, %d bytes, %d warnings\n",
		stats.FilesWritten, stats.BytesWritten, stats.Warnings)
}

type stringList []string

func (l *stringList) String() string {
	return fmt.Sprint([]string(*l))
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}
