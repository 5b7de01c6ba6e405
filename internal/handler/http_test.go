package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/americano-tennis/internal/auth"
	"github.com/americano-tennis/internal/config"
	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/matchmaker"
	"github.com/americano-tennis/internal/memstore"
	"github.com/americano-tennis/internal/metrics"
	"github.com/americano-tennis/internal/service"
)

const adminPassword = "court-captain"

type testServer struct {
	srv   *httptest.Server
	token string
}

func newTestServer(t *testing.T, checks map[string]ReadinessCheck) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	cfg.Auth.JWTSecret = "handler-test"
	cfg.Auth.AdminPasswordHash = string(hash)
	authn, err := auth.NewAuthenticator(&cfg.Auth)
	require.NoError(t, err)

	st := memstore.New()
	engine := matchmaker.NewEngine(rand.New(rand.NewSource(7)), cfg.Scheduler.TrialBudget)
	m := metrics.New()

	h := NewHandler(Dependencies{
		Tournaments: service.NewTournamentService(st, engine, nil, nil, m, &cfg.Scheduler, &cfg.Standings, logger),
		Players:     service.NewPlayerService(st, nil, logger),
		Auth:        authn,
		Metrics:     m,
		Checks:      checks,
	}, logger)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv}
}

// do sends a request and decodes the envelope; data is unmarshaled into out
// when out is non-nil
func (ts *testServer) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, resp.StatusCode < 300, envelope.Success, "success flag for %s %s: %s", method, path, envelope.Error)
	if out != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return resp.StatusCode
}

func (ts *testServer) login(t *testing.T) {
	t.Helper()
	var resp LoginResponse
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Password: adminPassword}, &resp))
	require.NotEmpty(t, resp.Token)
	ts.token = resp.Token
}

func (ts *testServer) seedTournament(t *testing.T, players, courts int) CreateTournamentResponse {
	t.Helper()
	ids := make([]int64, 0, players)
	for i := 0; i < players; i++ {
		var p domain.Player
		code := ts.do(t, http.MethodPost, "/api/v1/players", domain.CreatePlayerRequest{Name: fmt.Sprintf("Player %02d", i+1)}, &p)
		require.Equal(t, http.StatusCreated, code)
		ids = append(ids, p.ID)
	}

	var created CreateTournamentResponse
	code := ts.do(t, http.MethodPost, "/api/v1/tournaments", domain.CreateTournamentRequest{
		Date:            time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC),
		Location:        "Club Norte",
		CourtsAvailable: courts,
		PlayerIDs:       ids,
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	return created
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil, nil))
}

func TestReady(t *testing.T) {
	ok := newTestServer(t, map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, ok.do(t, http.MethodGet, "/ready", nil, nil))

	down := newTestServer(t, map[string]ReadinessCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	var status map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, down.do(t, http.MethodGet, "/ready", nil, &status))
	assert.Equal(t, "unavailable", status["redis"])
}

func TestMutatingRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/v1/players", domain.CreatePlayerRequest{Name: "Ana"}, nil))
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Password: "nope"}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{}, nil))

	// Reads stay public
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/players", nil, nil))
}

func TestTournamentFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.login(t)

	created := ts.seedTournament(t, 8, 2)
	require.NotNil(t, created.Tournament)
	assert.Equal(t, domain.StatusInProgress, created.Tournament.Status)
	require.Len(t, created.Matches, 2)

	tid := created.Tournament.ID
	match := created.Matches[0]

	// Both courts hold an unscored match
	code := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tournaments/%d/next-match", tid), nil, nil)
	assert.Equal(t, http.StatusConflict, code)

	// 16 puntos caps the sum at 16
	code = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/matches/%d/score", match.ID), map[string]int{"team1Score": 10, "team2Score": 10}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var scored domain.Match
	code = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/matches/%d/score", match.ID), map[string]int{"team1Score": 10, "team2Score": 6}, &scored)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, scored.IsScored())

	// A scored match cannot be re-paired
	code = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/matches/%d/shuffle", match.ID), nil, nil)
	assert.Equal(t, http.StatusConflict, code)

	var standings []domain.Standing
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tournaments/%d/standings", tid), nil, &standings))
	require.Len(t, standings, 8)
	assert.Equal(t, 10, standings[0].CurrentScore)

	var mine domain.Standing
	winner := scored.Team(domain.Team1)[0].PlayerID
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tournaments/%d/standings/players/%d", tid, winner), nil, &mine))
	assert.Equal(t, 1, mine.Rank)

	var top []domain.Standing
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tournaments/%d/standings/top?limit=2", tid), nil, &top))
	assert.Len(t, top, 2)

	var state map[string]domain.ScheduleState
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tournaments/%d/state", tid), nil, &state))
	assert.Equal(t, domain.StateInProgress, state["state"])

	var plan []domain.Match
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tournaments/%d/plan", tid), nil, &plan))
	assert.NotEmpty(t, plan)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/matches/%d", match.ID), nil, nil))
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tournaments/%d/standings", tid), nil, &standings))
	for _, s := range standings {
		assert.Zero(t, s.CurrentScore)
	}

	var summaries []domain.TournamentSummary
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/tournaments", nil, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, len(plan)+1, summaries[0].TotalMatches)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.login(t)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/tournaments/999", nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/tournaments/abc", nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/v1/matches/42", nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPatch, "/api/v1/tournaments/1/status", StatusRequest{Status: "paused"}, nil))

	// Fewer than eight players
	created := ts.do(t, http.MethodPost, "/api/v1/tournaments", domain.CreateTournamentRequest{
		Date:            time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC),
		CourtsAvailable: 1,
		PlayerIDs:       []int64{1, 2, 3},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, created)
}

func TestSubmitScoreRequiresBothScores(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.login(t)
	created := ts.seedTournament(t, 8, 2)
	match := created.Matches[0]
	path := fmt.Sprintf("/api/v1/matches/%d/score", match.ID)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, path, map[string]int{"team1Score": 9, "team2Score": 7}, nil))

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, path, map[string]int{}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, path, map[string]int{"team1Score": 4}, nil))

	var stored domain.Match
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/matches/%d", match.ID), nil, &stored))
	assert.True(t, stored.IsScored())
	raw1, raw2 := stored.RawScores()
	assert.Equal(t, 9, raw1)
	assert.Equal(t, 7, raw2)

	// an explicit 0-0 still clears the result
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, path, map[string]int{"team1Score": 0, "team2Score": 0}, &stored))
	assert.False(t, stored.IsScored())
}

func TestSwapPlayerConflict(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.login(t)

	created := ts.seedTournament(t, 8, 2)
	match := created.Matches[0]
	seated := match.Participations[0].PlayerID
	other := match.Participations[1].PlayerID

	code := ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/matches/%d/players", match.ID), domain.SwapRequest{OldPlayerID: seated, NewPlayerID: other}, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
