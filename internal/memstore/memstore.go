// Package memstore is an in-memory store.Store. Every call is serialized by a
// single mutex; WithTx works on a private copy of the data that replaces the
// live copy only when the callback succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/store"
)

type data struct {
	nextPlayerID     int64
	nextTournamentID int64
	nextMatchID      int64

	players     map[int64]domain.Player
	tournaments map[int64]domain.Tournament
	// tournament id -> player id -> current score
	enrollments map[int64]map[int64]int
	matches     map[int64]domain.Match
}

func newData() *data {
	return &data{
		players:     make(map[int64]domain.Player),
		tournaments: make(map[int64]domain.Tournament),
		enrollments: make(map[int64]map[int64]int),
		matches:     make(map[int64]domain.Match),
	}
}

func (d *data) clone() *data {
	c := &data{
		nextPlayerID:     d.nextPlayerID,
		nextTournamentID: d.nextTournamentID,
		nextMatchID:      d.nextMatchID,
		players:          make(map[int64]domain.Player, len(d.players)),
		tournaments:      make(map[int64]domain.Tournament, len(d.tournaments)),
		enrollments:      make(map[int64]map[int64]int, len(d.enrollments)),
		matches:          make(map[int64]domain.Match, len(d.matches)),
	}
	for id, p := range d.players {
		c.players[id] = p
	}
	for id, t := range d.tournaments {
		c.tournaments[id] = t
	}
	for tid, roster := range d.enrollments {
		r := make(map[int64]int, len(roster))
		for pid, score := range roster {
			r[pid] = score
		}
		c.enrollments[tid] = r
	}
	for id, m := range d.matches {
		c.matches[id] = copyMatch(m)
	}
	return c
}

func copyMatch(m domain.Match) domain.Match {
	parts := make([]domain.Participation, len(m.Participations))
	copy(parts, m.Participations)
	m.Participations = parts
	return m
}

// Store is a mutex-guarded in-memory implementation of store.Store
type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{data: newData(), now: time.Now}
}

// WithTx runs fn against a snapshot and publishes it only if fn succeeds
func (s *Store) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txn{d: snapshot, now: s.now}); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) live() *txn {
	return &txn{d: s.data, now: s.now}
}

func (s *Store) CreatePlayer(ctx context.Context, name string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().CreatePlayer(ctx, name)
}

func (s *Store) GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().GetPlayer(ctx, playerID)
}

func (s *Store) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().ListPlayers(ctx)
}

func (s *Store) UpdatePlayer(ctx context.Context, player domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().UpdatePlayer(ctx, player)
}

func (s *Store) CreateTournament(ctx context.Context, t *domain.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().CreateTournament(ctx, t)
}

func (s *Store) GetTournament(ctx context.Context, tournamentID int64) (*domain.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().GetTournament(ctx, tournamentID)
}

func (s *Store) ListTournaments(ctx context.Context) ([]domain.TournamentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().ListTournaments(ctx)
}

func (s *Store) UpdateTournament(ctx context.Context, t domain.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().UpdateTournament(ctx, t)
}

func (s *Store) DeleteTournament(ctx context.Context, tournamentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().DeleteTournament(ctx, tournamentID)
}

func (s *Store) AddEnrollment(ctx context.Context, tournamentID, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().AddEnrollment(ctx, tournamentID, playerID)
}

func (s *Store) RemoveEnrollment(ctx context.Context, tournamentID, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().RemoveEnrollment(ctx, tournamentID, playerID)
}

func (s *Store) GetEnrollment(ctx context.Context, tournamentID, playerID int64) (*domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().GetEnrollment(ctx, tournamentID, playerID)
}

func (s *Store) ListEnrollments(ctx context.Context, tournamentID int64) ([]domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().ListEnrollments(ctx, tournamentID)
}

func (s *Store) SetCurrentScore(ctx context.Context, tournamentID, playerID int64, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().SetCurrentScore(ctx, tournamentID, playerID, score)
}

func (s *Store) CreateMatch(ctx context.Context, m *domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().CreateMatch(ctx, m)
}

func (s *Store) GetMatch(ctx context.Context, matchID int64) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().GetMatch(ctx, matchID)
}

func (s *Store) ListMatches(ctx context.Context, tournamentID int64) ([]domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().ListMatches(ctx, tournamentID)
}

func (s *Store) ReplaceParticipations(ctx context.Context, matchID int64, parts []domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().ReplaceParticipations(ctx, matchID, parts)
}

func (s *Store) SetTeamScore(ctx context.Context, matchID int64, teamID, rawScore, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().SetTeamScore(ctx, matchID, teamID, rawScore, points)
}

func (s *Store) DeleteMatch(ctx context.Context, matchID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().DeleteMatch(ctx, matchID)
}

func (s *Store) DeleteTournamentMatches(ctx context.Context, tournamentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().DeleteTournamentMatches(ctx, tournamentID)
}

func (s *Store) SumCountedPoints(ctx context.Context, tournamentID, playerID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live().SumCountedPoints(ctx, tournamentID, playerID)
}

// txn implements store.Queries directly on a data set. Callers hold the
// store mutex.
type txn struct {
	d   *data
	now func() time.Time
}

func (t *txn) CreatePlayer(ctx context.Context, name string) (*domain.Player, error) {
	t.d.nextPlayerID++
	p := domain.Player{
		ID:        t.d.nextPlayerID,
		Name:      name,
		Active:    true,
		CreatedAt: t.now(),
	}
	t.d.players[p.ID] = p
	return &p, nil
}

func (t *txn) GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	p, ok := t.d.players[playerID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return &p, nil
}

func (t *txn) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	players := make([]domain.Player, 0, len(t.d.players))
	for _, p := range t.d.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Name != players[j].Name {
			return players[i].Name < players[j].Name
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

func (t *txn) UpdatePlayer(ctx context.Context, player domain.Player) error {
	existing, ok := t.d.players[player.ID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	player.CreatedAt = existing.CreatedAt
	t.d.players[player.ID] = player
	return nil
}

func (t *txn) CreateTournament(ctx context.Context, tour *domain.Tournament) error {
	t.d.nextTournamentID++
	tour.ID = t.d.nextTournamentID
	tour.CreatedAt = t.now()
	t.d.tournaments[tour.ID] = *tour
	t.d.enrollments[tour.ID] = make(map[int64]int)
	return nil
}

func (t *txn) GetTournament(ctx context.Context, tournamentID int64) (*domain.Tournament, error) {
	tour, ok := t.d.tournaments[tournamentID]
	if !ok {
		return nil, domain.ErrTournamentNotFound
	}
	return &tour, nil
}

func (t *txn) ListTournaments(ctx context.Context) ([]domain.TournamentSummary, error) {
	summaries := make(map[int64]*domain.TournamentSummary, len(t.d.tournaments))
	for id, tour := range t.d.tournaments {
		summaries[id] = &domain.TournamentSummary{Tournament: tour}
	}
	for _, m := range t.d.matches {
		s, ok := summaries[m.TournamentID]
		if !ok {
			continue
		}
		s.TotalMatches++
		if m.IsScored() {
			s.CompletedMatches++
		}
	}

	out := make([]domain.TournamentSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *txn) UpdateTournament(ctx context.Context, tour domain.Tournament) error {
	existing, ok := t.d.tournaments[tour.ID]
	if !ok {
		return domain.ErrTournamentNotFound
	}
	tour.CreatedAt = existing.CreatedAt
	t.d.tournaments[tour.ID] = tour
	return nil
}

func (t *txn) DeleteTournament(ctx context.Context, tournamentID int64) error {
	if _, ok := t.d.tournaments[tournamentID]; !ok {
		return domain.ErrTournamentNotFound
	}
	for id, m := range t.d.matches {
		if m.TournamentID == tournamentID {
			delete(t.d.matches, id)
		}
	}
	delete(t.d.enrollments, tournamentID)
	delete(t.d.tournaments, tournamentID)
	return nil
}

func (t *txn) AddEnrollment(ctx context.Context, tournamentID, playerID int64) error {
	roster, ok := t.d.enrollments[tournamentID]
	if !ok {
		return domain.ErrTournamentNotFound
	}
	if _, ok := t.d.players[playerID]; !ok {
		return fmt.Errorf("enrolling player %d: %w", playerID, domain.ErrPlayerNotFound)
	}
	if _, exists := roster[playerID]; !exists {
		roster[playerID] = 0
	}
	return nil
}

func (t *txn) RemoveEnrollment(ctx context.Context, tournamentID, playerID int64) error {
	roster := t.d.enrollments[tournamentID]
	if _, ok := roster[playerID]; !ok {
		return domain.ErrEnrollmentNotFound
	}
	delete(roster, playerID)
	return nil
}

func (t *txn) GetEnrollment(ctx context.Context, tournamentID, playerID int64) (*domain.Enrollment, error) {
	score, ok := t.d.enrollments[tournamentID][playerID]
	if !ok {
		return nil, domain.ErrEnrollmentNotFound
	}
	return &domain.Enrollment{
		TournamentID: tournamentID,
		PlayerID:     playerID,
		PlayerName:   t.d.players[playerID].Name,
		CurrentScore: score,
	}, nil
}

func (t *txn) ListEnrollments(ctx context.Context, tournamentID int64) ([]domain.Enrollment, error) {
	roster, ok := t.d.enrollments[tournamentID]
	if !ok {
		return nil, domain.ErrTournamentNotFound
	}
	out := make([]domain.Enrollment, 0, len(roster))
	for pid, score := range roster {
		out = append(out, domain.Enrollment{
			TournamentID: tournamentID,
			PlayerID:     pid,
			PlayerName:   t.d.players[pid].Name,
			CurrentScore: score,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (t *txn) SetCurrentScore(ctx context.Context, tournamentID, playerID int64, score int) error {
	roster := t.d.enrollments[tournamentID]
	if _, ok := roster[playerID]; !ok {
		return domain.ErrEnrollmentNotFound
	}
	roster[playerID] = score
	return nil
}

func (t *txn) CreateMatch(ctx context.Context, m *domain.Match) error {
	if _, ok := t.d.tournaments[m.TournamentID]; !ok {
		return domain.ErrTournamentNotFound
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("creating match: %w", err)
	}
	t.d.nextMatchID++
	m.ID = t.d.nextMatchID
	m.CreatedAt = t.now()
	for i := range m.Participations {
		m.Participations[i].MatchID = m.ID
	}
	t.d.matches[m.ID] = copyMatch(*m)
	return nil
}

func (t *txn) GetMatch(ctx context.Context, matchID int64) (*domain.Match, error) {
	m, ok := t.d.matches[matchID]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	out := t.withNames(m)
	return &out, nil
}

func (t *txn) ListMatches(ctx context.Context, tournamentID int64) ([]domain.Match, error) {
	var out []domain.Match
	for _, m := range t.d.matches {
		if m.TournamentID == tournamentID {
			out = append(out, t.withNames(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		if out[i].CourtNumber != out[j].CourtNumber {
			return out[i].CourtNumber < out[j].CourtNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *txn) withNames(m domain.Match) domain.Match {
	m = copyMatch(m)
	for i := range m.Participations {
		m.Participations[i].PlayerName = t.d.players[m.Participations[i].PlayerID].Name
	}
	return m
}

func (t *txn) ReplaceParticipations(ctx context.Context, matchID int64, parts []domain.Participation) error {
	m, ok := t.d.matches[matchID]
	if !ok {
		return domain.ErrMatchNotFound
	}
	m.Participations = make([]domain.Participation, len(parts))
	copy(m.Participations, parts)
	for i := range m.Participations {
		m.Participations[i].MatchID = matchID
		m.Participations[i].PlayerName = ""
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("replacing participations: %w", err)
	}
	t.d.matches[matchID] = m
	return nil
}

func (t *txn) SetTeamScore(ctx context.Context, matchID int64, teamID, rawScore, points int) error {
	m, ok := t.d.matches[matchID]
	if !ok {
		return domain.ErrMatchNotFound
	}
	for i := range m.Participations {
		if m.Participations[i].TeamID == teamID {
			m.Participations[i].RawScore = rawScore
			m.Participations[i].Points = points
		}
	}
	t.d.matches[matchID] = m
	return nil
}

func (t *txn) DeleteMatch(ctx context.Context, matchID int64) error {
	if _, ok := t.d.matches[matchID]; !ok {
		return domain.ErrMatchNotFound
	}
	delete(t.d.matches, matchID)
	return nil
}

func (t *txn) DeleteTournamentMatches(ctx context.Context, tournamentID int64) error {
	for id, m := range t.d.matches {
		if m.TournamentID == tournamentID {
			delete(t.d.matches, id)
		}
	}
	return nil
}

func (t *txn) SumCountedPoints(ctx context.Context, tournamentID, playerID int64) (int, error) {
	total := 0
	for _, m := range t.d.matches {
		if m.TournamentID != tournamentID || !m.IsScored() {
			continue
		}
		for _, p := range m.Participations {
			if p.PlayerID == playerID && !p.IsFiller {
				total += p.Points
			}
		}
	}
	return total, nil
}
