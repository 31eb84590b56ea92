package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"

	"github.com/go-ldap/ldap/v3"

	"github.com/thuhak/pbs-cache/pkg/config"
	"github.com/thuhak/pbs-cache/pkg/defaults"
	"github.com/thuhak/pbs-cache/pkg/errors"
)

// User describes one directory account.
type User struct {
	Name          string   `json:"name"`
	UID           string   `json:"uid"`
	GID           string   `json:"gid"`
	Group         string   `json:"group"`
	Groups        []string `json:"additional_groups"`
	HomeDirectory string   `json:"home_dir"`
	CN            string   `json:"cn"`
}

// searcher is the subset of the ldap connection the directory uses.
type searcher interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// Directory answers account and group membership queries against an
// LDAP server. Every call dials a fresh short-lived connection; the
// query API's traffic is far too light to justify pooling.
type Directory struct {
	cfg  config.DirectoryConfig
	dial func(ctx context.Context) (searcher, error)
}

// New creates a Directory from its configuration block.
func New(cfg config.DirectoryConfig) *Directory {
	d := &Directory{cfg: cfg}
	d.dial = d.connect
	return d
}

func (d *Directory) connect(ctx context.Context) (searcher, error) {
	dialer := &net.Dialer{Timeout: defaults.DirectoryTimeout}
	conn, err := ldap.DialURL(d.cfg.URL, ldap.DialWithDialer(dialer))
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeUnavailable,
			"directory unreachable", err, map[string]any{"url": d.cfg.URL})
	}
	conn.SetTimeout(defaults.DirectoryTimeout)

	if d.cfg.BindDN != "" {
		if err := conn.Bind(d.cfg.BindDN, d.cfg.Password); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.ErrCodeUnauthorized, "directory bind rejected", err)
		}
	}
	return conn, nil
}

// Usernames lists the members of the configured access group: its
// memberUid entries plus every account whose primary gid is the
// group's, deduplicated and sorted.
func (d *Directory) Usernames(ctx context.Context) ([]string, error) {
	conn, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	gid, members, err := d.group(conn, d.cfg.Group)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(members))
	for _, name := range members {
		seen[name] = true
	}

	if gid != "" {
		req := ldap.NewSearchRequest(
			d.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
			fmt.Sprintf("(&(objectClass=posixAccount)(gidNumber=%s))", ldap.EscapeFilter(gid)),
			[]string{"uid"}, nil)
		res, err := conn.Search(req)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeUnavailable, "directory search failed", err)
		}
		for _, entry := range res.Entries {
			if uid := entry.GetAttributeValue("uid"); uid != "" {
				seen[uid] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Lookup resolves one account by username. The account must be a member
// of the configured access group; anything else reports not found.
func (d *Directory) Lookup(ctx context.Context, name string) (*User, error) {
	conn, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := ldap.NewSearchRequest(
		d.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(&(objectClass=posixAccount)(uid=%s))", ldap.EscapeFilter(name)),
		[]string{"uid", "uidNumber", "gidNumber", "homeDirectory", "cn"}, nil)
	res, err := conn.Search(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "directory search failed", err)
	}
	if len(res.Entries) == 0 {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound,
			"user not found", map[string]any{"user": name})
	}
	entry := res.Entries[0]

	user := &User{
		Name:          entry.GetAttributeValue("uid"),
		UID:           entry.GetAttributeValue("uidNumber"),
		GID:           entry.GetAttributeValue("gidNumber"),
		HomeDirectory: entry.GetAttributeValue("homeDirectory"),
		CN:            entry.GetAttributeValue("cn"),
	}

	groups, err := d.memberOf(conn, user.Name)
	if err != nil {
		return nil, err
	}
	user.Groups = groups
	user.Group = d.groupName(conn, user.GID)

	if !d.inAccessGroup(user) {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound,
			"user not found", map[string]any{"user": name})
	}
	return user, nil
}

// group resolves a posixGroup by name into its gid and memberUid list.
func (d *Directory) group(conn searcher, name string) (string, []string, error) {
	req := ldap.NewSearchRequest(
		d.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(&(objectClass=posixGroup)(cn=%s))", ldap.EscapeFilter(name)),
		[]string{"gidNumber", "memberUid"}, nil)
	res, err := conn.Search(req)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeUnavailable, "directory search failed", err)
	}
	if len(res.Entries) == 0 {
		return "", nil, errors.NewWithContext(errors.ErrCodeNotFound,
			"group not found", map[string]any{"group": name})
	}
	entry := res.Entries[0]
	return entry.GetAttributeValue("gidNumber"), entry.GetAttributeValues("memberUid"), nil
}

// memberOf lists the names of every group carrying the user as a member.
func (d *Directory) memberOf(conn searcher, name string) ([]string, error) {
	req := ldap.NewSearchRequest(
		d.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(&(objectClass=posixGroup)(memberUid=%s))", ldap.EscapeFilter(name)),
		[]string{"cn"}, nil)
	res, err := conn.Search(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "directory search failed", err)
	}
	groups := make([]string, 0, len(res.Entries))
	for _, entry := range res.Entries {
		if cn := entry.GetAttributeValue("cn"); cn != "" {
			groups = append(groups, cn)
		}
	}
	sort.Strings(groups)
	return groups, nil
}

// groupName resolves a gid to its group name. Failures degrade to the
// numeric gid; the main group is cosmetic in the query output.
func (d *Directory) groupName(conn searcher, gid string) string {
	if gid == "" {
		return ""
	}
	if _, err := strconv.Atoi(gid); err != nil {
		return gid
	}
	req := ldap.NewSearchRequest(
		d.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(&(objectClass=posixGroup)(gidNumber=%s))", gid),
		[]string{"cn"}, nil)
	res, err := conn.Search(req)
	if err != nil || len(res.Entries) == 0 {
		slog.Debug("gid has no group entry", "gid", gid)
		return gid
	}
	return res.Entries[0].GetAttributeValue("cn")
}

// inAccessGroup reports whether the user belongs to the configured
// access group, either as its primary group or as a listed member.
func (d *Directory) inAccessGroup(user *User) bool {
	if user.Group == d.cfg.Group {
		return true
	}
	for _, g := range user.Groups {
		if g == d.cfg.Group {
			return true
		}
	}
	return false
}
