package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/cv-builder/internal/api"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	testToken    = "tok-1"
	testPassword = "Secret123"
)

// backend is an in-process stand-in for the CV Builder API.
type backend struct {
	mu       sync.Mutex
	cvs      map[string]*types.CV
	nextID   int
	credits  int
	updates  []types.UpdateCVRequest
	letters  []types.SaveLetterRequest
	loggedIn int
	server   *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{cvs: map[string]*types.CV{}, credits: 3}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.login)
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusCreated, map[string]any{"user": map[string]string{"email": "ada@example.com"}})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{})
	})
	mux.HandleFunc("GET /auth/verify-email", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "verify-me" {
			writeTestJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid or expired token"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
	})

	mux.HandleFunc("GET /api/cv", b.authed(b.listCVs))
	mux.HandleFunc("POST /api/cv", b.authed(b.createCV))
	mux.HandleFunc("GET /api/cv/{id}", b.authed(b.getCV))
	mux.HandleFunc("PUT /api/cv/{id}", b.authed(b.updateCV))
	mux.HandleFunc("DELETE /api/cv/{id}", b.authed(b.deleteCV))
	mux.HandleFunc("POST /api/cv/preview", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var req types.RenderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeTestJSON(w, http.StatusOK, types.PreviewResponse{HTML: "<h1>" + req.TemplateID + "</h1>"})
	}))
	mux.HandleFunc("POST /api/cv/export/{format}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("CV " + r.PathValue("format")))
	}))
	mux.HandleFunc("GET /api/ai/credits", b.authed(func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeTestJSON(w, http.StatusOK, types.CreditsResponse{Credits: b.credits})
	}))
	mux.HandleFunc("POST /api/ai", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var form types.CoverLetterFormData
		_ = json.NewDecoder(r.Body).Decode(&form)
		writeTestJSON(w, http.StatusOK, types.GeneratedLetter{
			ID:            "letter-1",
			Content:       fmt.Sprintf("Dear %s team, (%s/%s)", form.CompanyName, form.Context.Style, form.Context.Tone),
			MatchingScore: 87,
		})
	}))
	mux.HandleFunc("POST /api/ai/save", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var req types.SaveLetterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.letters = append(b.letters, req)
		b.credits--
		b.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("GET /api/ai/letters/{id}/export/{format}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("letter " + r.PathValue("id") + " " + r.PathValue("format")))
	}))

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	switch {
	case req.Password != testPassword:
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
	case req.Email == "new@example.com":
		writeTestJSON(w, http.StatusUnauthorized, map[string]string{"detail": api.UnverifiedDetail})
	default:
		b.mu.Lock()
		b.loggedIn++
		b.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]any{
			"access_token":  testToken,
			"refresh_token": "ref-1",
			"user":          map[string]string{"full_name": "Ada Lovelace", "email": req.Email},
		})
	}
}

func (b *backend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeTestJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		next(w, r)
	}
}

func (b *backend) listCVs(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := []types.CV{}
	for _, cv := range b.cvs {
		list = append(list, *cv)
	}
	writeTestJSON(w, http.StatusOK, list)
}

func (b *backend) createCV(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCVRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := fmt.Sprintf("cv-%d", b.nextID)
	b.cvs[id] = &types.CV{ID: id, Title: "My CV", Status: types.StatusDraft, TemplateID: req.TemplateID, Sections: req.Sections}
	writeTestJSON(w, http.StatusCreated, types.CreateCVResponse{ID: id})
}

func (b *backend) getCV(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cv, ok := b.cvs[r.PathValue("id")]
	if !ok {
		writeTestJSON(w, http.StatusNotFound, map[string]string{"detail": "CV not found"})
		return
	}
	writeTestJSON(w, http.StatusOK, cv)
}

func (b *backend) updateCV(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateCVRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	defer b.mu.Unlock()
	cv, ok := b.cvs[r.PathValue("id")]
	if !ok {
		writeTestJSON(w, http.StatusNotFound, map[string]string{"detail": "CV not found"})
		return
	}
	cv.Sections = req.Sections
	cv.Status = req.Status
	cv.TemplateID = req.TemplateID
	b.updates = append(b.updates, req)
	writeTestJSON(w, http.StatusOK, map[string]string{})
}

func (b *backend) deleteCV(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cvs, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// cli runs commands in process against a backend and a SQLite store that
// persists across runs, like consecutive invocations of the binary.
type cli struct {
	t       *testing.T
	backend *backend
	dsn     string
	dir     string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	for _, key := range []string{"CVBUILDER_S3_BUCKET", "CVBUILDER_EXPORT_DIR", "CVBUILDER_USE_BROWSER"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	return &cli{t: t, backend: newBackend(t), dsn: filepath.Join(dir, "state.db"), dir: dir}
}

// run executes one command line with stdin and returns what it printed.
func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	full := append([]string{"--api-url", c.backend.server.URL, "--storage-dsn", c.dsn, "--log-level", "error"}, args...)
	rootCmd.SetArgs(full)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	err := rootCmd.ExecuteContext(context.Background())
	closeApp()
	return out.String(), err
}

func (c *cli) login() {
	c.t.Helper()
	if _, err := c.run("", "auth", "login", "--email", "ada@example.com", "--password", testPassword); err != nil {
		c.t.Fatalf("login: %v", err)
	}
}

// fillRequired fills in every field validation requires.
func (c *cli) fillRequired(args ...string) {
	c.t.Helper()
	for _, kv := range [][2]string{{"name", "Ada Lovelace"}, {"email", "ada@example.com"}, {"phone", "+44 20 0000"}, {"location", "London"}} {
		if _, err := c.run("", append([]string{"draft", "set", "contact", kv[0], kv[1]}, args...)...); err != nil {
			c.t.Fatalf("set %s: %v", kv[0], err)
		}
	}
	if _, err := c.run("", append([]string{"draft", "text", "profile", "--text", "Mathematician"}, args...)...); err != nil {
		c.t.Fatalf("set profile: %v", err)
	}
}

// resetFlags restores every flag to its default between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
