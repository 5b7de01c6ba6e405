package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/americano-tennis/internal/config"
	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/store"
)

// querier is the subset of pgx shared by the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository provides PostgreSQL-based data access
type Repository struct {
	*queries
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ store.Store = (*Repository)(nil)

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		queries: &queries{db: pool},
		pool:    pool,
		logger:  logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithTx runs fn in a transaction, committing only when fn succeeds
func (r *Repository) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op
	defer tx.Rollback(ctx)

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tournaments (
		id BIGSERIAL PRIMARY KEY,
		date DATE NOT NULL,
		location VARCHAR(255) NOT NULL DEFAULT '',
		courts_available INT NOT NULL CHECK (courts_available > 0),
		matches_per_player INT NOT NULL CHECK (matches_per_player > 0),
		modality VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'planned',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tournament_players (
		tournament_id BIGINT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		player_id BIGINT NOT NULL REFERENCES players(id),
		current_score INT NOT NULL DEFAULT 0,
		PRIMARY KEY (tournament_id, player_id)
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id BIGSERIAL PRIMARY KEY,
		tournament_id BIGINT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		round_number INT NOT NULL,
		court_number INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS match_players (
		match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		player_id BIGINT NOT NULL REFERENCES players(id),
		partner_id BIGINT NOT NULL REFERENCES players(id),
		team_id SMALLINT NOT NULL CHECK (team_id IN (1, 2)),
		score_obtained INT NOT NULL DEFAULT 0,
		points_won INT NOT NULL DEFAULT 0,
		is_filler BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (match_id, player_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_tournament ON matches(tournament_id, round_number, court_number)`,
	`CREATE INDEX IF NOT EXISTS idx_match_players_player ON match_players(player_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tournament_players_player ON tournament_players(player_id)`,
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// queries implements store.Queries on top of a pool or a transaction
type queries struct {
	db querier
}

// CreatePlayer adds a player to the roster
func (q *queries) CreatePlayer(ctx context.Context, name string) (*domain.Player, error) {
	p := domain.Player{Name: name, Active: true}
	err := q.db.QueryRow(ctx, `
		INSERT INTO players (name, active) VALUES ($1, TRUE)
		RETURNING id, created_at
	`, name).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}
	return &p, nil
}

// GetPlayer retrieves a player by ID
func (q *queries) GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	var p domain.Player
	err := q.db.QueryRow(ctx, `
		SELECT id, name, active, created_at FROM players WHERE id = $1
	`, playerID).Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return &p, nil
}

// ListPlayers returns every player ordered by name
func (q *queries) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, active, created_at FROM players ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	players := []domain.Player{}
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// UpdatePlayer stores a player's name and active flag
func (q *queries) UpdatePlayer(ctx context.Context, player domain.Player) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE players SET name = $2, active = $3 WHERE id = $1
	`, player.ID, player.Name, player.Active)
	if err != nil {
		return fmt.Errorf("updating player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// CreateTournament inserts a tournament and fills in its ID
func (q *queries) CreateTournament(ctx context.Context, t *domain.Tournament) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO tournaments (date, location, courts_available, matches_per_player, modality, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`,
		t.Date,
		t.Location,
		t.CourtsAvailable,
		t.MatchesPerPlayer,
		string(t.Modality),
		string(t.Status),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating tournament: %w", err)
	}
	return nil
}

const tournamentColumns = `t.id, t.date, t.location, t.courts_available, t.matches_per_player, t.modality, t.status, t.created_at`

func scanTournament(row pgx.Row, extra ...any) (domain.Tournament, error) {
	var (
		t                domain.Tournament
		modality, status string
	)
	dest := append([]any{
		&t.ID, &t.Date, &t.Location, &t.CourtsAvailable, &t.MatchesPerPlayer, &modality, &status, &t.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return t, err
	}
	t.Modality = domain.Modality(modality)
	t.Status = domain.TournamentStatus(status)
	return t, nil
}

// GetTournament retrieves a tournament by ID
func (q *queries) GetTournament(ctx context.Context, tournamentID int64) (*domain.Tournament, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments t WHERE t.id = $1`, tournamentID)
	t, err := scanTournament(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTournamentNotFound
		}
		return nil, fmt.Errorf("getting tournament: %w", err)
	}
	return &t, nil
}

// ListTournaments returns every tournament, newest first, with match counts
func (q *queries) ListTournaments(ctx context.Context) ([]domain.TournamentSummary, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+tournamentColumns+`,
			(SELECT COUNT(*) FROM matches m WHERE m.tournament_id = t.id),
			(SELECT COUNT(*) FROM matches m WHERE m.tournament_id = t.id AND EXISTS (
				SELECT 1 FROM match_players mp WHERE mp.match_id = m.id AND mp.score_obtained <> 0
			))
		FROM tournaments t
		ORDER BY t.created_at DESC, t.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing tournaments: %w", err)
	}
	defer rows.Close()

	out := []domain.TournamentSummary{}
	for rows.Next() {
		var s domain.TournamentSummary
		t, err := scanTournament(rows, &s.TotalMatches, &s.CompletedMatches)
		if err != nil {
			return nil, fmt.Errorf("scanning tournament: %w", err)
		}
		s.Tournament = t
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateTournament stores a tournament's mutable fields
func (q *queries) UpdateTournament(ctx context.Context, t domain.Tournament) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE tournaments
		SET date = $2, location = $3, courts_available = $4, matches_per_player = $5, modality = $6, status = $7
		WHERE id = $1
	`,
		t.ID,
		t.Date,
		t.Location,
		t.CourtsAvailable,
		t.MatchesPerPlayer,
		string(t.Modality),
		string(t.Status),
	)
	if err != nil {
		return fmt.Errorf("updating tournament: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTournamentNotFound
	}
	return nil
}

// DeleteTournament removes a tournament; enrollments and matches cascade
func (q *queries) DeleteTournament(ctx context.Context, tournamentID int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM tournaments WHERE id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("deleting tournament: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTournamentNotFound
	}
	return nil
}

func (q *queries) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := q.db.QueryRow(ctx, `SELECT EXISTS(`+query+`)`, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

// AddEnrollment enrolls a player with a zero score. Enrolling twice is a no-op.
func (q *queries) AddEnrollment(ctx context.Context, tournamentID, playerID int64) error {
	ok, err := q.exists(ctx, `SELECT 1 FROM tournaments WHERE id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("checking tournament: %w", err)
	}
	if !ok {
		return domain.ErrTournamentNotFound
	}
	ok, err = q.exists(ctx, `SELECT 1 FROM players WHERE id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("checking player: %w", err)
	}
	if !ok {
		return fmt.Errorf("enrolling player %d: %w", playerID, domain.ErrPlayerNotFound)
	}

	_, err = q.db.Exec(ctx, `
		INSERT INTO tournament_players (tournament_id, player_id, current_score)
		VALUES ($1, $2, 0)
		ON CONFLICT (tournament_id, player_id) DO NOTHING
	`, tournamentID, playerID)
	if err != nil {
		return fmt.Errorf("enrolling player: %w", err)
	}
	return nil
}

// RemoveEnrollment removes a player from a tournament
func (q *queries) RemoveEnrollment(ctx context.Context, tournamentID, playerID int64) error {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM tournament_players WHERE tournament_id = $1 AND player_id = $2
	`, tournamentID, playerID)
	if err != nil {
		return fmt.Errorf("removing enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}

// GetEnrollment retrieves one player's membership in a tournament
func (q *queries) GetEnrollment(ctx context.Context, tournamentID, playerID int64) (*domain.Enrollment, error) {
	e := domain.Enrollment{TournamentID: tournamentID, PlayerID: playerID}
	err := q.db.QueryRow(ctx, `
		SELECT p.name, tp.current_score
		FROM tournament_players tp
		JOIN players p ON p.id = tp.player_id
		WHERE tp.tournament_id = $1 AND tp.player_id = $2
	`, tournamentID, playerID).Scan(&e.PlayerName, &e.CurrentScore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("getting enrollment: %w", err)
	}
	return &e, nil
}

// ListEnrollments returns a tournament's roster ordered by player ID
func (q *queries) ListEnrollments(ctx context.Context, tournamentID int64) ([]domain.Enrollment, error) {
	ok, err := q.exists(ctx, `SELECT 1 FROM tournaments WHERE id = $1`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("checking tournament: %w", err)
	}
	if !ok {
		return nil, domain.ErrTournamentNotFound
	}

	rows, err := q.db.Query(ctx, `
		SELECT tp.player_id, p.name, tp.current_score
		FROM tournament_players tp
		JOIN players p ON p.id = tp.player_id
		WHERE tp.tournament_id = $1
		ORDER BY tp.player_id
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing enrollments: %w", err)
	}
	defer rows.Close()

	out := []domain.Enrollment{}
	for rows.Next() {
		e := domain.Enrollment{TournamentID: tournamentID}
		if err := rows.Scan(&e.PlayerID, &e.PlayerName, &e.CurrentScore); err != nil {
			return nil, fmt.Errorf("scanning enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetCurrentScore stores a player's cached tournament total
func (q *queries) SetCurrentScore(ctx context.Context, tournamentID, playerID int64, score int) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE tournament_players SET current_score = $3
		WHERE tournament_id = $1 AND player_id = $2
	`, tournamentID, playerID, score)
	if err != nil {
		return fmt.Errorf("setting current score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}

// CreateMatch inserts a match with its four participations
func (q *queries) CreateMatch(ctx context.Context, m *domain.Match) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("creating match: %w", err)
	}
	ok, err := q.exists(ctx, `SELECT 1 FROM tournaments WHERE id = $1`, m.TournamentID)
	if err != nil {
		return fmt.Errorf("checking tournament: %w", err)
	}
	if !ok {
		return domain.ErrTournamentNotFound
	}

	err = q.db.QueryRow(ctx, `
		INSERT INTO matches (tournament_id, round_number, court_number)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.TournamentID, m.RoundNumber, m.CourtNumber).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating match: %w", err)
	}

	for i := range m.Participations {
		m.Participations[i].MatchID = m.ID
	}
	return q.insertParticipations(ctx, m.Participations)
}

// insertParticipations writes seats in a single batch round trip
func (q *queries) insertParticipations(ctx context.Context, parts []domain.Participation) error {
	batch := &pgx.Batch{}
	for _, p := range parts {
		batch.Queue(`
			INSERT INTO match_players (match_id, player_id, partner_id, team_id, score_obtained, points_won, is_filler)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, p.MatchID, p.PlayerID, p.PartnerID, p.TeamID, p.RawScore, p.Points, p.IsFiller)
	}

	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	for range parts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("inserting participation: %w", err)
		}
	}
	return nil
}

const participationQuery = `
	SELECT mp.match_id, mp.player_id, p.name, mp.partner_id, mp.team_id, mp.score_obtained, mp.points_won, mp.is_filler
	FROM match_players mp
	JOIN players p ON p.id = mp.player_id
`

func scanParticipations(rows pgx.Rows) ([]domain.Participation, error) {
	defer rows.Close()

	var parts []domain.Participation
	for rows.Next() {
		var p domain.Participation
		if err := rows.Scan(&p.MatchID, &p.PlayerID, &p.PlayerName, &p.PartnerID, &p.TeamID, &p.RawScore, &p.Points, &p.IsFiller); err != nil {
			return nil, fmt.Errorf("scanning participation: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// GetMatch retrieves a match with its participations
func (q *queries) GetMatch(ctx context.Context, matchID int64) (*domain.Match, error) {
	var m domain.Match
	err := q.db.QueryRow(ctx, `
		SELECT id, tournament_id, round_number, court_number, created_at FROM matches WHERE id = $1
	`, matchID).Scan(&m.ID, &m.TournamentID, &m.RoundNumber, &m.CourtNumber, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, fmt.Errorf("getting match: %w", err)
	}

	rows, err := q.db.Query(ctx, participationQuery+`
		WHERE mp.match_id = $1
		ORDER BY mp.team_id, mp.player_id
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("getting participations: %w", err)
	}
	m.Participations, err = scanParticipations(rows)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMatches returns a tournament's matches ordered by round and court
func (q *queries) ListMatches(ctx context.Context, tournamentID int64) ([]domain.Match, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tournament_id, round_number, court_number, created_at
		FROM matches
		WHERE tournament_id = $1
		ORDER BY round_number, court_number, id
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	index := make(map[int64]int)
	for rows.Next() {
		var m domain.Match
		if err := rows.Scan(&m.ID, &m.TournamentID, &m.RoundNumber, &m.CourtNumber, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		index[m.ID] = len(matches)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	if len(matches) == 0 {
		return matches, nil
	}

	partRows, err := q.db.Query(ctx, participationQuery+`
		JOIN matches m ON m.id = mp.match_id
		WHERE m.tournament_id = $1
		ORDER BY mp.match_id, mp.team_id, mp.player_id
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing participations: %w", err)
	}
	parts, err := scanParticipations(partRows)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		if i, ok := index[p.MatchID]; ok {
			matches[i].Participations = append(matches[i].Participations, p)
		}
	}
	return matches, nil
}

// ReplaceParticipations swaps the full seat list of a match
func (q *queries) ReplaceParticipations(ctx context.Context, matchID int64, parts []domain.Participation) error {
	m := domain.Match{ID: matchID, Participations: make([]domain.Participation, len(parts))}
	copy(m.Participations, parts)
	for i := range m.Participations {
		m.Participations[i].MatchID = matchID
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("replacing participations: %w", err)
	}

	ok, err := q.exists(ctx, `SELECT 1 FROM matches WHERE id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("checking match: %w", err)
	}
	if !ok {
		return domain.ErrMatchNotFound
	}

	if _, err := q.db.Exec(ctx, `DELETE FROM match_players WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("clearing participations: %w", err)
	}
	return q.insertParticipations(ctx, m.Participations)
}

// SetTeamScore records the raw and normalized score of one team
func (q *queries) SetTeamScore(ctx context.Context, matchID int64, teamID, rawScore, points int) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE match_players SET score_obtained = $3, points_won = $4
		WHERE match_id = $1 AND team_id = $2
	`, matchID, teamID, rawScore, points)
	if err != nil {
		return fmt.Errorf("setting team score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

// DeleteMatch removes a match; participations cascade
func (q *queries) DeleteMatch(ctx context.Context, matchID int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM matches WHERE id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("deleting match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

// DeleteTournamentMatches removes every match of a tournament
func (q *queries) DeleteTournamentMatches(ctx context.Context, tournamentID int64) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("deleting tournament matches: %w", err)
	}
	return nil
}

// SumCountedPoints totals a player's non-filler points in scored matches
func (q *queries) SumCountedPoints(ctx context.Context, tournamentID, playerID int64) (int, error) {
	var total int
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(mp.points_won), 0)
		FROM match_players mp
		JOIN matches m ON m.id = mp.match_id
		WHERE m.tournament_id = $1
		  AND mp.player_id = $2
		  AND NOT mp.is_filler
		  AND EXISTS (
			SELECT 1 FROM match_players s WHERE s.match_id = mp.match_id AND s.score_obtained <> 0
		  )
	`, tournamentID, playerID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing points: %w", err)
	}
	return total, nil
}
