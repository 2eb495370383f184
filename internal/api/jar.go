package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// FileJar is a cookie jar that survives process restarts.
//
// The CLI runs one command per process, so the session cookie set by
// "login" must be on disk for "whoami" to find it. Only cookies for the API
// origin are kept; the file is written with 0600 permissions since it holds
// a bearer credential.
type FileJar struct {
	mu     sync.Mutex
	jar    *cookiejar.Jar
	path   string
	origin *url.URL
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OpenFileJar loads the jar at path for origin. A missing file is an empty jar.
func OpenFileJar(path string, origin *url.URL) (*FileJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("api: creating cookie jar: %w", err)
	}
	j := &FileJar{jar: inner, path: path, origin: origin}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("api: reading session file %s: %w", path, err)
	}

	var stored map[string][]storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		// A corrupt session file just means "signed out".
		return j, nil
	}
	cookies := make([]*http.Cookie, 0, len(stored[origin.Host]))
	for _, sc := range stored[origin.Host] {
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value, Path: "/"})
	}
	inner.SetCookies(origin, cookies)
	return j, nil
}

// SetCookies implements http.CookieJar.
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Save writes the origin's cookies to disk, replacing the file atomically.
// Cookies for other origins already in the file are preserved.
func (j *FileJar) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	stored := map[string][]storedCookie{}
	if raw, err := os.ReadFile(j.path); err == nil {
		_ = json.Unmarshal(raw, &stored)
	}

	current := []storedCookie{}
	for _, c := range j.jar.Cookies(j.origin) {
		current = append(current, storedCookie{Name: c.Name, Value: c.Value})
	}
	if len(current) == 0 {
		delete(stored, j.origin.Host)
	} else {
		stored[j.origin.Host] = current
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("api: encoding session file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("api: creating session directory: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("api: writing session file: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("api: replacing session file: %w", err)
	}
	return nil
}

// Clear forgets every cookie for the origin, in memory and on disk.
func (j *FileJar) Clear() error {
	j.mu.Lock()
	inner, err := cookiejar.New(nil)
	if err != nil {
		j.mu.Unlock()
		return fmt.Errorf("api: creating cookie jar: %w", err)
	}
	j.jar = inner
	j.mu.Unlock()
	return j.Save()
}
