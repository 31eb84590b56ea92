package directory

import (
	"context"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuhak/pbs-cache/pkg/config"
	"github.com/thuhak/pbs-cache/pkg/errors"
)

// fakeConn answers searches from a canned filter-to-entries table.
type fakeConn struct {
	entries map[string][]*ldap.Entry
	closed  bool
}

func (f *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	for filter, entries := range f.entries {
		if strings.Contains(req.Filter, filter) {
			return &ldap.SearchResult{Entries: entries}, nil
		}
	}
	return &ldap.SearchResult{}, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func entry(dn string, attrs map[string][]string) *ldap.Entry {
	e := &ldap.Entry{DN: dn}
	for name, values := range attrs {
		e.Attributes = append(e.Attributes, &ldap.EntryAttribute{Name: name, Values: values})
	}
	return e
}

func testDirectory(conn *fakeConn) *Directory {
	d := New(config.DirectoryConfig{
		URL:    "ldap://ldap.cluster:389",
		BaseDN: "dc=cluster",
		Group:  "hpc",
	})
	d.dial = func(context.Context) (searcher, error) { return conn, nil }
	return d
}

func TestUsernames(t *testing.T) {
	conn := &fakeConn{entries: map[string][]*ldap.Entry{
		"(cn=hpc)": {entry("cn=hpc,dc=cluster", map[string][]string{
			"gidNumber": {"5000"},
			"memberUid": {"bob", "alice"},
		})},
		"(gidNumber=5000)": {entry("uid=carol,dc=cluster", map[string][]string{
			"uid": {"carol"},
		})},
	}}

	names, err := testDirectory(conn).Usernames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, names)
	assert.True(t, conn.closed)
}

func TestUsernamesGroupMissing(t *testing.T) {
	conn := &fakeConn{entries: map[string][]*ldap.Entry{}}

	_, err := testDirectory(conn).Usernames(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestLookup(t *testing.T) {
	conn := &fakeConn{entries: map[string][]*ldap.Entry{
		"(uid=alice)": {entry("uid=alice,dc=cluster", map[string][]string{
			"uid":           {"alice"},
			"uidNumber":     {"10001"},
			"gidNumber":     {"5000"},
			"homeDirectory": {"/home/alice"},
			"cn":            {"Alice Song"},
		})},
		"(memberUid=alice)": {entry("cn=hpc,dc=cluster", map[string][]string{
			"cn": {"hpc"},
		})},
		"(gidNumber=5000)": {entry("cn=hpc,dc=cluster", map[string][]string{
			"cn": {"hpc"},
		})},
	}}

	user, err := testDirectory(conn).Lookup(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, "10001", user.UID)
	assert.Equal(t, "hpc", user.Group)
	assert.Equal(t, []string{"hpc"}, user.Groups)
	assert.Equal(t, "/home/alice", user.HomeDirectory)
}

func TestLookupUnknownUser(t *testing.T) {
	conn := &fakeConn{entries: map[string][]*ldap.Entry{}}

	_, err := testDirectory(conn).Lookup(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestLookupOutsideAccessGroup(t *testing.T) {
	conn := &fakeConn{entries: map[string][]*ldap.Entry{
		"(uid=dave)": {entry("uid=dave,dc=cluster", map[string][]string{
			"uid":       {"dave"},
			"uidNumber": {"10002"},
			"gidNumber": {"6000"},
		})},
		"(memberUid=dave)": {entry("cn=staff,dc=cluster", map[string][]string{
			"cn": {"staff"},
		})},
		"(gidNumber=6000)": {entry("cn=staff,dc=cluster", map[string][]string{
			"cn": {"staff"},
		})},
	}}

	_, err := testDirectory(conn).Lookup(context.Background(), "dave")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}
