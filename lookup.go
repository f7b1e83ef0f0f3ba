package tarbuilder

import (
	"os/user"
	"strconv"
	"sync"
)

// UserLookup resolves a numeric uid/gid pair to the symbolic names that go
// into a header's Uname/Gname fields. It replaces the C builder's
// b_lookup_service function-pointer-plus-context-pointer pair (see
// b_builder.h) with a plain interface rather than a closure like the
// walker's WalkFunc: a capability with real state (a cache, a handle to
// nsswitch) deserves an interface.
type UserLookup interface {
	Lookup(uid, gid uint32) (uname, gname string, err error)
}

// OSUserLookup resolves names via the host's user/group database
// (os/user, which is libc nsswitch-backed on cgo builds, pure-Go parsing
// of /etc/passwd otherwise), caching every answer including name-space
// lookup misses so a large tree with few distinct owners costs at most
// one os/user call per distinct uid and gid.
type OSUserLookup struct {
	mu     sync.Mutex
	users  map[uint32]string
	groups map[uint32]string
}

// NewOSUserLookup returns a ready-to-use OSUserLookup.
func NewOSUserLookup() *OSUserLookup {
	return &OSUserLookup{
		users:  make(map[uint32]string),
		groups: make(map[uint32]string),
	}
}

func (l *OSUserLookup) Lookup(uid, gid uint32) (string, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	uname, ok := l.users[uid]
	if !ok {
		uname = l.resolveUser(uid)
		l.users[uid] = uname
	}

	gname, ok := l.groups[gid]
	if !ok {
		gname = l.resolveGroup(gid)
		l.groups[gid] = gname
	}

	return uname, gname, nil
}

func (l *OSUserLookup) resolveUser(uid uint32) string {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return ""
	}
	return u.Username
}

func (l *OSUserLookup) resolveGroup(gid uint32) string {
	g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10))
	if err != nil {
		return ""
	}
	return g.Name
}
