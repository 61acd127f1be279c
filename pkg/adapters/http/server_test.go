package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/turing/internal/logging"
	"github.com/aretw0/turing/internal/metrics"
	"github.com/aretw0/turing/pkg/adapters/memory"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/aretw0/turing/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t       *testing.T
	handler http.Handler
}

func newClient(t *testing.T, opts ...Option) (*client, *memory.Store) {
	store := memory.NewStore()
	return &client{t: t, handler: NewHandler(session.NewManager(store), opts...)}, store
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (c *client) create() string {
	c.t.Helper()
	w := c.do("POST", "/machines", nil)
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[Created](c.t, w).ID
}

func TestServer_EditRunFlow(t *testing.T) {
	c, store := newClient(t)
	id := c.create()
	base := "/machines/" + id

	w := c.do("POST", base+"/states", NewState{Name: "s0"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = c.do("POST", base+"/states", NewState{Name: "s1", X: 100})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[machine.View](t, w).States)

	w = c.do("PATCH", base+"/states/1", map[string]any{"start": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = c.do("PATCH", base+"/states/2", map[string]any{"final": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do("POST", base+"/transitions", NewTransition{From: 1, To: 2, Read: "a", Write: "b", Dir: "R"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = c.do("PUT", base+"/tape", TapeRequest{Tape: "a"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a", decode[machine.View](t, w).Tape)

	snap, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "s0", snap.StartState, "edits are persisted")
	require.Len(t, snap.States, 2)
	assert.Len(t, snap.States[0].Transitions, 1)

	w = c.do("POST", base+"/run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "s0", decode[machine.View](t, w).CurrentState)

	w = c.do("PUT", base+"/tape", TapeRequest{Tape: "b"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = c.do("POST", base+"/step", nil)
	require.Equal(t, http.StatusOK, w.Code)
	step := decode[StepResult](t, w)
	assert.True(t, step.Moved)
	assert.Equal(t, "b_", step.View.Tape)
	assert.Equal(t, "s1", step.View.CurrentState)

	w = c.do("POST", base+"/step", nil)
	step = decode[StepResult](t, w)
	assert.False(t, step.Moved)
	assert.Equal(t, domain.HaltSuccessful, step.Outcome)

	w = c.do("POST", base+"/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	back := decode[BackResult](t, w)
	assert.True(t, back.AtStart)
	assert.Equal(t, "a_", back.View.Tape)

	w = c.do("POST", base+"/seek", map[string]any{"step": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[machine.View](t, w).Step)

	w = c.do("POST", base+"/seek", map[string]any{"step": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.do("POST", base+"/seek", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do("POST", base+"/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode[machine.View](t, w).CurrentState)
}

func TestServer_UndoRedo(t *testing.T) {
	c, _ := newClient(t)
	base := "/machines/" + c.create()

	w := c.do("POST", base+"/undo", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	c.do("POST", base+"/states", NewState{Name: "q"})
	w = c.do("POST", base+"/undo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ReplayResult](t, w)
	assert.Equal(t, "add_state", resp.Kind)
	assert.Equal(t, 0, resp.View.States)
	assert.True(t, resp.View.CanRedo)

	w = c.do("POST", base+"/redo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[ReplayResult](t, w).View.States)
}

func TestServer_ErrorMapping(t *testing.T) {
	c, _ := newClient(t)
	base := "/machines/" + c.create()
	c.do("POST", base+"/states", NewState{Name: "q"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown machine", "GET", "/machines/nope/view", nil, http.StatusNotFound},
		{"unknown state", "DELETE", base + "/states/42", nil, http.StatusNotFound},
		{"bad state id", "DELETE", base + "/states/x", nil, http.StatusBadRequest},
		{"name taken", "POST", base + "/states", NewState{Name: "q"}, http.StatusUnprocessableEntity},
		{"bad direction", "POST", base + "/transitions", NewTransition{From: 1, To: 1, Dir: "U"}, http.StatusUnprocessableEntity},
		{"no start", "POST", base + "/run", nil, http.StatusUnprocessableEntity},
		{"step in edit mode", "POST", base + "/step", nil, http.StatusConflict},
		{"bad body", "PUT", base + "/tape", "{", http.StatusBadRequest},
		{"bad format", "POST", "/machines?format=csv", "a,b", http.StatusUnprocessableEntity},
		{"malformed machine", "POST", "/machines?format=tm", "<turingmachine/>", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := c.do(tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestServer_ImportExport(t *testing.T) {
	c, _ := newClient(t)
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<turingmachine>
  <initialtape>ab</initialtape>
  <initialstate name="q0"></initialstate>
  <finalstates></finalstates>
  <states>
    <state name="q0" xpos="10" ypos="20"></state>
  </states>
</turingmachine>`

	w := c.do("POST", "/machines?format=tm", doc)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[Created](t, w).ID

	w = c.do("GET", "/machines/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[domain.Snapshot](t, w)
	assert.Equal(t, "ab", snap.Tape)
	assert.Equal(t, "q0", snap.StartState)

	w = c.do("GET", "/machines/"+id+"?format=yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "start_state: q0")

	w = c.do("GET", "/machines", nil)
	assert.Equal(t, []string{id}, decode[[]string](t, w))

	w = c.do("DELETE", "/machines/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = c.do("GET", "/machines/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	col, err := metrics.New(reg)
	require.NoError(t, err)

	store := memory.NewStore()
	mgr := session.NewManager(store, session.WithMachineOptions(machine.WithLifecycleHooks(col.Hooks())))
	c := &client{t: t, handler: NewHandler(mgr, WithMetrics(reg))}

	base := "/machines/" + c.create()
	c.do("POST", base+"/states", NewState{Name: "q"})

	w := c.do("GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `turing_edits_total{kind="add_state"} 1`)
}

func TestServer_Health(t *testing.T) {
	c, _ := newClient(t, WithVersion("1.2.3\n"))

	w := c.do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do("GET", "/info", nil)
	info := decode[map[string]string](t, w)
	assert.Equal(t, "1.2.3", info["version"])

	w = c.do("OPTIONS", "/machines", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	methods := w.Header().Get("Access-Control-Allow-Methods")
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		assert.Contains(t, methods, m)
	}
}

func TestServer_PatchIsAllOrNothing(t *testing.T) {
	c, store := newClient(t)
	id := c.create()
	base := "/machines/" + id

	w := c.do("POST", base+"/states", NewState{Name: "s0"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = c.do("POST", base+"/transitions", NewTransition{From: 1, To: 1, Read: "a", Write: "a", Dir: "R"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	readOf := func(snap domain.Snapshot) string {
		t.Helper()
		require.Len(t, snap.States, 1)
		require.Len(t, snap.States[0].Transitions, 1)
		return snap.States[0].Transitions[0].Read
	}

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad direction", map[string]any{"read": "z", "dir": "X"}},
		{"bad write after good read", map[string]any{"read": "z", "write": " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := c.do("PATCH", base+"/transitions/2", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

			w = c.do("GET", base, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "a", readOf(decode[domain.Snapshot](t, w)))

			saved, err := store.Load(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, "a", readOf(*saved))
		})
	}

	w = c.do("GET", base+"/view", nil)
	assert.False(t, decode[machine.View](t, w).CanRedo, "a failed patch leaves nothing to redo")
	w = c.do("POST", base+"/undo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "add_transition", decode[ReplayResult](t, w).Kind)

	w = c.do("POST", base+"/redo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do("PATCH", base+"/transitions/2", map[string]any{"read": "z", "write": "y", "dir": "L"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = c.do("GET", base, nil)
	tr := decode[domain.Snapshot](t, w).States[0].Transitions[0]
	assert.Equal(t, "z", tr.Read)
	assert.Equal(t, "y", tr.Write)
	assert.Equal(t, domain.Left, tr.Direction)
}

func TestServer_OpenAPI(t *testing.T) {
	c, _ := newClient(t)

	w := c.do("GET", "/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	doc, err := loadSpec()
	require.NoError(t, err)

	s := &Server{Streams: NewStreamManager(), logger: logging.NewNop()}
	err = chi.Walk(s.routes(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		path := strings.TrimSuffix(route, "/")
		if path == "/openapi.yaml" || path == "/metrics" {
			return nil
		}
		item := doc.Paths.Find(path)
		if item == nil || item.GetOperation(method) == nil {
			t.Errorf("%s %s is not described by the OpenAPI document", method, path)
		}
		return nil
	})
	require.NoError(t, err)

	base := "/machines/" + c.create()
	tests := []struct {
		name string
		path string
		want int
	}{
		{"integer count", base + "/view?count=3", http.StatusOK},
		{"text count", base + "/view?count=abc", http.StatusBadRequest},
		{"text from", base + "/view?from=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := c.do("GET", tt.path, nil)
			if w.Code != tt.want {
				t.Errorf("GET %s = %d, want %d (%s)", tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestSubscribeEvents(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	srv := httptest.NewServer(NewHandler(mgr))
	defer srv.Close()

	id, _, err := mgr.Create(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/machines/"+id+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	// The ping is flushed after subscribing, so this edit is delivered.
	body := strings.NewReader(`{"tape":"ab"}`)
	put, err := http.NewRequest("PUT", srv.URL+"/machines/"+id+"/tape", body)
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(put)
	require.NoError(t, err)
	putResp.Body.Close()

	for lines.Scan() {
		line := lines.Text()
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var view machine.View
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &view))
		assert.Equal(t, "ab", view.Tape)
		return
	}
	t.Fatal("no view event received")
}
