package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/voicelayer/retellsync/cmd/retellsync/cmd"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"retellsync": func() {
			if err := cmd.Execute(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	})
}

func TestScript(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:                 filepath.Join("testdata", "script"),
		RequireExplicitExec: true,
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			// start-retell-stub starts an in-memory Retell API server and
			// points every workspace slot's credentials at it.
			// Usage: start-retell-stub
			"start-retell-stub": cmdStartRetellStub,

			// file-contains asserts that a file contains (or doesn't contain) a substring.
			// Usage: [!] file-contains <path> <substring>
			"file-contains": cmdFileContains,
		},
	})
}

// retellStub emulates the four LLM and four agent routes with in-memory state.
type retellStub struct {
	mu     sync.Mutex
	next   int
	llms   map[string]json.RawMessage
	agents map[string]json.RawMessage
}

func newRetellStub() *retellStub {
	return &retellStub{
		llms:   make(map[string]json.RawMessage),
		agents: make(map[string]json.RawMessage),
	}
}

func (s *retellStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"error_message":"missing bearer token"}`, http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var body json.RawMessage
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	path := r.URL.Path
	switch {
	case path == "/create-retell-llm":
		s.next++
		id := "llm_stub_" + strconv.Itoa(s.next)
		s.llms[id] = body
		writeJSON(w, http.StatusCreated, map[string]string{"llm_id": id})
	case path == "/create-agent":
		s.next++
		id := "agent_stub_" + strconv.Itoa(s.next)
		s.agents[id] = body
		writeJSON(w, http.StatusCreated, map[string]string{"agent_id": id})
	case strings.HasPrefix(path, "/update-retell-llm/"):
		s.upsert(w, s.llms, strings.TrimPrefix(path, "/update-retell-llm/"), body)
	case strings.HasPrefix(path, "/update-agent/"):
		s.upsert(w, s.agents, strings.TrimPrefix(path, "/update-agent/"), body)
	case strings.HasPrefix(path, "/get-retell-llm/"):
		s.get(w, s.llms, strings.TrimPrefix(path, "/get-retell-llm/"))
	case strings.HasPrefix(path, "/get-agent/"):
		s.get(w, s.agents, strings.TrimPrefix(path, "/get-agent/"))
	case strings.HasPrefix(path, "/delete-retell-llm/"):
		delete(s.llms, strings.TrimPrefix(path, "/delete-retell-llm/"))
		w.WriteHeader(http.StatusNoContent)
	case strings.HasPrefix(path, "/delete-agent/"):
		delete(s.agents, strings.TrimPrefix(path, "/delete-agent/"))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, `{"error_message":"unknown route"}`, http.StatusNotFound)
	}
}

func (s *retellStub) upsert(w http.ResponseWriter, store map[string]json.RawMessage, id string, body json.RawMessage) {
	if _, ok := store[id]; !ok {
		http.Error(w, `{"error_message":"resource not found"}`, http.StatusNotFound)
		return
	}
	store[id] = body
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *retellStub) get(w http.ResponseWriter, store map[string]json.RawMessage, id string) {
	payload, ok := store[id]
	if !ok {
		http.Error(w, `{"error_message":"resource not found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cmdStartRetellStub(ts *testscript.TestScript, neg bool, args []string) {
	if neg || len(args) != 0 {
		ts.Fatalf("usage: start-retell-stub")
	}
	srv := httptest.NewServer(newRetellStub())
	ts.Defer(srv.Close)

	for _, slot := range []string{"STAGING", "PRODUCTION"} {
		ts.Setenv("RETELL_"+slot+"_API_KEY", "key_"+strings.ToLower(slot))
		ts.Setenv("RETELL_"+slot+"_BASE_URL", srv.URL)
	}
}

func cmdFileContains(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 2 {
		ts.Fatalf("usage: file-contains <path> <substring>")
	}
	data, err := os.ReadFile(ts.MkAbs(args[0]))
	if err != nil {
		ts.Fatalf("reading %s: %v", args[0], err)
	}
	found := strings.Contains(string(data), args[1])
	if neg && found {
		ts.Fatalf("%s contains %q (expected not to)", args[0], args[1])
	}
	if !neg && !found {
		ts.Fatalf("%s does not contain %q", args[0], args[1])
	}
}
