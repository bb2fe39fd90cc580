package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/louisbranch/broadside/internal/battleship/domain"
	"github.com/louisbranch/broadside/internal/battleship/engine"
	"github.com/louisbranch/broadside/internal/battleship/proof"
	"github.com/louisbranch/broadside/internal/storage/memory"
	"github.com/louisbranch/broadside/internal/token"
)

type testGame struct {
	handler http.Handler
	trees   map[domain.Address]*proof.Tree
	cells   map[domain.Address][]bool
}

// newTestGame wires a real engine behind the HTTP surface: a 2x2 board per
// player, one ship each, alice on turn first.
func newTestGame(t *testing.T) *testGame {
	t.Helper()

	cells := map[domain.Address][]bool{
		"alice": {true, false, false, false},
		"bob":   {false, false, false, true},
	}
	trees := make(map[domain.Address]*proof.Tree)
	for addr, c := range cells {
		tree, err := proof.NewTree(c)
		if err != nil {
			t.Fatalf("build tree: %v", err)
		}
		trees[addr] = tree
	}

	ledger := token.NewInMemoryLedger(map[domain.Address]uint64{"alice": 100, "bob": 100})
	service := engine.New(memory.New(), ledger)
	err := service.Instantiate(context.Background(), engine.InstantiateParams{
		TokenAddress: "token",
		Ships:        1,
		Players: [2]engine.PlayerSetup{
			{Address: "alice", Stake: 100, Board: trees["alice"].Root()},
			{Address: "bob", Stake: 100, Board: trees["bob"].Root()},
		},
	})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	return &testGame{handler: New(service).Handler(), trees: trees, cells: cells}
}

func (g *testGame) execute(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/execute", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)
	return rec
}

func (g *testGame) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)
	return rec
}

func TestExecuteStartGame(t *testing.T) {
	g := newTestGame(t)

	rec := g.execute(t, `{"sender":"alice","msg":{"start_game":{}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var transition engine.Transition
	if err := json.Unmarshal(rec.Body.Bytes(), &transition); err != nil {
		t.Fatalf("decode transition: %v", err)
	}
	if len(transition.Attributes) == 0 || transition.Attributes[0].Value != "start_game" {
		t.Fatalf("expected start_game attribute, got %+v", transition.Attributes)
	}

	rec = g.get(t, "/v1/game_state")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var state domain.GameState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !state.Started {
		t.Fatal("expected started game")
	}
}

func TestExecutePlayWinsGame(t *testing.T) {
	g := newTestGame(t)
	g.execute(t, `{"sender":"alice","msg":{"start_game":{}}}`)

	// Alice reveals bob's single ship cell at (1,1), index 3.
	path, err := g.trees["bob"].Prove(3)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	pathJSON, _ := json.Marshal(path)
	body := fmt.Sprintf(`{"sender":"alice","msg":{"play":{"field":[1,1],"value":true,"proof":%s}}}`, pathJSON)

	rec := g.execute(t, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var transition engine.Transition
	if err := json.Unmarshal(rec.Body.Bytes(), &transition); err != nil {
		t.Fatalf("decode transition: %v", err)
	}
	if len(transition.Signals) != 1 || transition.Signals[0].Type != "game_won" {
		t.Fatalf("expected game_won signal, got %+v", transition.Signals)
	}
}

func TestExecuteErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"play before start", `{"sender":"alice","msg":{"play":{"field":[0,0],"value":false,"proof":[]}}}`, http.StatusConflict},
		{"stranger start", `{"sender":"mallory","msg":{"start_game":{}}}`, http.StatusForbidden},
		{"missing sender", `{"msg":{"start_game":{}}}`, http.StatusBadRequest},
		{"unknown variant", `{"sender":"alice","msg":{}}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGame(t)
			rec := g.execute(t, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestErrorBodyCarriesCodeAndGRPCStatus(t *testing.T) {
	g := newTestGame(t)
	rec := g.execute(t, `{"sender":"alice","msg":{"play":{"field":[0,0],"value":false,"proof":[]}}}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Code   string `json:"code"`
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "GAME_NOT_STARTED" {
		t.Fatalf("expected code GAME_NOT_STARTED, got %q", body.Code)
	}
	if body.Status != "FailedPrecondition" {
		t.Fatalf("expected status FailedPrecondition, got %q", body.Status)
	}
	if body.Error == "" {
		t.Fatal("expected a message in the error body")
	}
}

func TestMissingSenderErrorIncludesMetadata(t *testing.T) {
	g := newTestGame(t)
	rec := g.execute(t, `{"msg":{"start_game":{}}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Code     string            `json:"code"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "INVALID_REQUEST" {
		t.Fatalf("expected code INVALID_REQUEST, got %q", body.Code)
	}
	if body.Metadata["field"] != "sender" {
		t.Fatalf("expected metadata naming the missing field, got %+v", body.Metadata)
	}
}

func TestExecuteLogsSignals(t *testing.T) {
	g := newTestGame(t)
	g.execute(t, `{"sender":"alice","msg":{"start_game":{}}}`)

	// Alice reveals bob's empty cell at (0,0), index 0.
	path, err := g.trees["bob"].Prove(0)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	pathJSON, _ := json.Marshal(path)
	body := fmt.Sprintf(`{"sender":"alice","msg":{"play":{"field":[0,0],"value":false,"proof":%s}}}`, pathJSON)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	rec := g.execute(t, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(buf.String(), "ship_missed missed=(0, 0)") {
		t.Fatalf("expected missed-signal log line, got %q", buf.String())
	}
}

func TestExecuteAssignsRequestID(t *testing.T) {
	g := newTestGame(t)
	rec := g.execute(t, `{"sender":"alice","msg":{"start_game":{}}}`)
	if got := rec.Header().Get("X-Request-Id"); len(got) != 26 {
		t.Fatalf("expected 26-char request id, got %q", got)
	}
}

func TestExecuteRejectsGet(t *testing.T) {
	g := newTestGame(t)
	rec := g.get(t, "/v1/execute")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestQueryEndpoints(t *testing.T) {
	g := newTestGame(t)

	rec := g.get(t, "/v1/game_config")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var config domain.GameConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &config); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if config.Ships != 1 || config.TokenAddress != "token" {
		t.Fatalf("unexpected config %+v", config)
	}

	rec = g.get(t, "/v1/players")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var players []domain.Player
	if err := json.Unmarshal(rec.Body.Bytes(), &players); err != nil {
		t.Fatalf("decode players: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
}

func TestCORSPreflight(t *testing.T) {
	g := newTestGame(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/execute", nil)
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}
