package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/thuhak/pbs-cache/pkg/aggregator"
	"github.com/thuhak/pbs-cache/pkg/defaults"
	"github.com/thuhak/pbs-cache/pkg/errors"
	"github.com/thuhak/pbs-cache/pkg/pbs"
	"github.com/thuhak/pbs-cache/pkg/store"
)

// Document subjects a query may address.
const (
	SubjectServer = "Server"
	SubjectQueue  = "Queue"
	SubjectJobs   = "Jobs"
	SubjectNodes  = "nodes"
)

func validSubject(subject string) bool {
	switch subject {
	case SubjectServer, SubjectQueue, SubjectJobs, SubjectNodes:
		return true
	default:
		return false
	}
}

// RestoreJobKey undoes the store-path sanitization of a job identifier.
// Only the first substitution is reversible: the sequence id never
// contains an underscore, while the server name may.
func RestoreJobKey(key string) string {
	return strings.Replace(key, "_", ".", 1)
}

func (s *Server) knownSite(site string) bool {
	for _, known := range s.config.Sites {
		if known.Location == site {
			return true
		}
	}
	return false
}

// checkFresh verifies the site document exists and is younger than the
// freshness threshold.
func (s *Server) checkFresh(ctx context.Context, site string) error {
	if !s.knownSite(site) {
		return errors.NewWithContext(errors.ErrCodeNotFound,
			fmt.Sprintf("invalid site %s", site), map[string]any{"site": site})
	}
	ts, err := s.store.Timestamp(ctx, store.SiteKey(site))
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return errors.NewWithContext(errors.ErrCodeNotFound,
				fmt.Sprintf("invalid site %s", site), map[string]any{"site": site})
		}
		return err
	}
	if time.Since(time.Unix(ts, 0)) > defaults.Freshness {
		return errors.NewWithContext(errors.ErrCodeStaleData,
			"pbs info too old", map[string]any{"site": site, "timestamp": ts})
	}
	return nil
}

// handleSites handles GET /pbs
func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]any{
		"result": true,
		"site":   s.config.Sites,
	})
}

// handleSiteData handles GET /pbs/{site}
func (s *Server) handleSiteData(w http.ResponseWriter, r *http.Request) {
	site := r.PathValue("site")
	if err := s.checkFresh(r.Context(), site); err != nil {
		writeStructured(w, r, err)
		return
	}

	data, err := s.store.QueryOne(r.Context(), store.SiteKey(site), "$")
	if err != nil {
		writeStructured(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"result": true, "data": data})
}

// handleSubjectList handles GET /pbs/{site}/{subject}
func (s *Server) handleSubjectList(w http.ResponseWriter, r *http.Request) {
	site := r.PathValue("site")
	subject := r.PathValue("subject")
	if !validSubject(subject) {
		writeStructured(w, r, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid subject %s", subject), nil))
		return
	}
	if err := s.checkFresh(r.Context(), site); err != nil {
		writeStructured(w, r, err)
		return
	}

	raw, err := s.store.QueryOne(r.Context(), store.SiteKey(site), "$."+subject)
	if err != nil {
		writeStructured(w, r, err)
		return
	}
	var records map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		writeStructured(w, r, errors.Wrap(errors.ErrCodeInternal, "backend failure", err))
		return
	}

	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	resp := map[string]any{"result": true}
	switch subject {
	case SubjectJobs:
		ids := make([]string, len(keys))
		for i, key := range keys {
			ids[i] = RestoreJobKey(key)
		}
		resp["count"] = len(ids)
		resp["data"] = ids
	case SubjectNodes:
		hosts := hostNames(keys)
		resp["count"] = len(hosts)
		resp["data"] = hosts
	case SubjectQueue:
		resp["count"] = len(keys)
		resp["data"] = keys
	default:
		// A deployment has one server record; return it whole.
		for _, key := range keys {
			resp["data"] = records[key]
			break
		}
	}
	RespondJSON(w, http.StatusOK, resp)
}

// hostNames reduces vnode identifiers to their distinct host names.
// Multi-vnode hosts publish records like host_0, host_1.
func hostNames(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		host, _, _ := strings.Cut(key, "_")
		seen[host] = true
	}
	hosts := make([]string, 0, len(seen))
	for host := range seen {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// handleSubjectDetail handles GET /pbs/{site}/{subject}/{name}
//
// The optional repeated item parameter narrows the result to the named
// attributes, e.g. /pbs/hpc1/Queue/work?item=statistics.
func (s *Server) handleSubjectDetail(w http.ResponseWriter, r *http.Request) {
	site := r.PathValue("site")
	subject := r.PathValue("subject")
	name := aggregator.TransKey(r.PathValue("name"))
	items := r.URL.Query()["item"]

	if !validSubject(subject) {
		writeStructured(w, r, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid subject %s", subject), nil))
		return
	}
	if err := s.checkFresh(r.Context(), site); err != nil {
		writeStructured(w, r, err)
		return
	}

	var search string
	if subject == SubjectNodes {
		// Node queries address the host, not the vnode records.
		search = fmt.Sprintf(`$.nodes.*[?(@.Mom=="%s")]`, name)
	} else {
		root := ""
		if name == "*" || len(items) > 0 {
			root = "$"
		}
		search = fmt.Sprintf("%s.%s.%s", root, subject, name)
	}
	if len(items) > 0 {
		selector, err := json.Marshal(items)
		if err != nil {
			writeStructured(w, r, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid item", err))
			return
		}
		search += "." + string(selector)
	}

	data, err := s.store.Query(r.Context(), store.SiteKey(site), search)
	if err != nil {
		writeStructured(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"result": true,
		"data":   json.RawMessage(data),
	})
}

// handleUserList handles GET /user
func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	names, err := s.directory.Usernames(r.Context())
	if err != nil {
		writeStructured(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"result": true, "data": names})
}

// handleUserInfo handles GET /user/{username}
func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	user, err := s.directory.Lookup(r.Context(), r.PathValue("username"))
	if err != nil {
		writeStructured(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"result": true, "data": user})
}

// handleUserJobs handles GET /user/{username}/jobs
//
// Collects the user's job identifiers across every configured site.
func (s *Server) handleUserJobs(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	jobs := []string{}

	for _, site := range s.config.Sites {
		if err := s.checkFresh(r.Context(), site.Location); err != nil {
			writeStructured(w, r, err)
			return
		}
		raw, err := s.store.QueryOne(r.Context(), store.SiteKey(site.Location), "$."+SubjectJobs)
		if err != nil {
			writeStructured(w, r, err)
			return
		}
		var records map[string]pbs.Attributes
		if err := json.Unmarshal(raw, &records); err != nil {
			writeStructured(w, r, errors.Wrap(errors.ErrCodeInternal, "backend failure", err))
			return
		}
		for key, attrs := range records {
			if attrs.Owner() == username {
				jobs = append(jobs, RestoreJobKey(key))
			}
		}
	}
	sort.Strings(jobs)

	RespondJSON(w, http.StatusOK, map[string]any{
		"result": true,
		"data":   map[string]any{"jobs": jobs},
	})
}

// handleAppList handles GET /app
func (s *Server) handleAppList(w http.ResponseWriter, r *http.Request) {
	raw, err := s.store.QueryOne(r.Context(), store.AppKey, "$")
	if err != nil {
		writeStructured(w, r, err)
		return
	}
	var registry map[string]json.RawMessage
	if err := json.Unmarshal(raw, &registry); err != nil {
		writeStructured(w, r, errors.Wrap(errors.ErrCodeInternal, "backend failure", err))
		return
	}
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	RespondJSON(w, http.StatusOK, map[string]any{"result": true, "data": names})
}

// handleAppInfo handles GET /app/{name}
func (s *Server) handleAppInfo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := s.store.QueryOne(r.Context(), store.AppKey, "$."+name)
	if err != nil {
		writeStructured(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"result": true, "data": data})
}
