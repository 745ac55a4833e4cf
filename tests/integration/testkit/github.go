package testkit

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"sync"
	"time"
)

// PropGitHubURL is the property holding the fake GitHub API base URL.
const PropGitHubURL = "github_url"

// FakeGitHub serves a minimal GitHub REST API for a single repository.
type FakeGitHub struct {
	Owner string
	Repo  string

	files map[string][]byte
	srv   *httptest.Server

	mu     sync.Mutex
	ranges []string
	tokens []string
}

// NewFakeGitHub creates a fake API serving files (path to content) as owner/repo.
func NewFakeGitHub(owner, repo string, files map[string]string) *FakeGitHub {
	f := &FakeGitHub{Owner: owner, Repo: repo, files: make(map[string][]byte, len(files))}
	for p, content := range files {
		f.files[p] = []byte(content)
	}
	return f
}

func (f *FakeGitHub) GetName() string { return "fake-github" }

func (f *FakeGitHub) Start() (map[string]any, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}", f.withRepo(f.handleRepo))
	mux.HandleFunc("GET /repos/{owner}/{repo}/commits", f.withRepo(f.handleCommits))
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", f.withRepo(f.handleContents))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/blobs/{sha}", f.withRepo(f.handleBlob))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/trees/{ref}", f.withRepo(f.handleTree))

	f.srv = httptest.NewServer(mux)
	return map[string]any{PropGitHubURL: f.srv.URL + "/"}, nil
}

func (f *FakeGitHub) Stop() error {
	if f.srv != nil {
		f.srv.Close()
	}
	return nil
}

// Ranges returns the Range headers of all blob requests served so far.
func (f *FakeGitHub) Ranges() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ranges...)
}

// Tokens returns the Authorization headers of all requests served so far.
func (f *FakeGitHub) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *FakeGitHub) withRepo(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokens = append(f.tokens, r.Header.Get("Authorization"))
		f.mu.Unlock()

		if r.PathValue("owner") != f.Owner || r.PathValue("repo") != f.Repo {
			notFound(w)
			return
		}
		next(w, r)
	}
}

func (f *FakeGitHub) handleRepo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"name":           f.Repo,
		"full_name":      f.Owner + "/" + f.Repo,
		"default_branch": "main",
	})
}

func (f *FakeGitHub) handleCommits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, []map[string]any{
		{"sha": "c0ffee", "per_page": r.URL.Query().Get("per_page")},
	})
}

func (f *FakeGitHub) handleContents(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("path")
	data, ok := f.files[p]
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, map[string]any{
		"type":     "file",
		"name":     path.Base(p),
		"path":     p,
		"size":     len(data),
		"sha":      blobSHA(data),
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString(data),
	})
}

func (f *FakeGitHub) handleBlob(w http.ResponseWriter, r *http.Request) {
	sha := r.PathValue("sha")
	for _, data := range f.files {
		if blobSHA(data) != sha {
			continue
		}
		f.mu.Lock()
		f.ranges = append(f.ranges, r.Header.Get("Range"))
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
		return
	}
	notFound(w)
}

func (f *FakeGitHub) handleTree(w http.ResponseWriter, r *http.Request) {
	paths := make([]string, 0, len(f.files))
	for p := range f.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]map[string]any, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, map[string]any{
			"path": p,
			"type": "blob",
			"mode": "100644",
			"sha":  blobSHA(f.files[p]),
			"size": len(f.files[p]),
		})
	}
	writeJSON(w, map[string]any{
		"sha":       r.PathValue("ref"),
		"tree":      entries,
		"truncated": false,
	})
}

func blobSHA(data []byte) string {
	h := sha1.New()
	_, _ = fmt.Fprintf(h, "blob %d\x00", len(data))
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`))
}
