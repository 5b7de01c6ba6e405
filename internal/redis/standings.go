package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/americano-tennis/internal/config"
	"github.com/americano-tennis/internal/domain"
	"github.com/redis/go-redis/v9"
)

// standingsTTL bounds how long a finished tournament lingers in Redis
const standingsTTL = 7 * 24 * time.Hour

// StandingsCache keeps tournament standings in sorted sets for fast top-N
// reads. The relational store remains the source of truth.
type StandingsCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStandingsCache creates a new Redis standings cache
func NewStandingsCache(cfg *config.RedisConfig, logger *slog.Logger) (*StandingsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &StandingsCache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *StandingsCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *StandingsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// standingsKey returns the Redis key for a tournament's sorted set
func standingsKey(tournamentID int64) string {
	return fmt.Sprintf("tournament:%d:standings", tournamentID)
}

// playerInfoKey returns the Redis key for player info cache
func playerInfoKey(playerID int64) string {
	return fmt.Sprintf("player:%d:info", playerID)
}

func member(playerID int64) string {
	return strconv.FormatInt(playerID, 10)
}

// SetScores replaces the cached standings of a tournament and refreshes the
// names of its players in one MULTI/EXEC block.
func (c *StandingsCache) SetScores(ctx context.Context, tournamentID int64, standings []domain.Standing) error {
	key := standingsKey(tournamentID)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(standings) > 0 {
		members := make([]redis.Z, len(standings))
		for i, s := range standings {
			members[i] = redis.Z{
				Score:  float64(s.CurrentScore),
				Member: member(s.PlayerID),
			}
			pipe.HSet(ctx, playerInfoKey(s.PlayerID), "name", s.Name)
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, standingsTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("setting standings: %w", err)
	}
	return nil
}

// GetTopN returns the n best players of a tournament with their names
func (c *StandingsCache) GetTopN(ctx context.Context, tournamentID int64, n int) ([]domain.Standing, error) {
	key := standingsKey(tournamentID)
	results, err := c.client.ZRevRangeWithScores(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	names, err := c.names(ctx, results)
	if err != nil {
		return nil, err
	}
	return toStandings(results, names)
}

func (c *StandingsCache) names(ctx context.Context, results []redis.Z) (map[string]string, error) {
	pipe := c.client.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(results))
	for _, r := range results {
		id, ok := r.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member type %T", r.Member)
		}
		playerID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing member %q: %w", id, err)
		}
		cmds[id] = pipe.HGet(ctx, playerInfoKey(playerID), "name")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("getting player names: %w", err)
	}

	names := make(map[string]string, len(cmds))
	for id, cmd := range cmds {
		name, err := cmd.Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("getting name of player %s: %w", id, err)
		}
		names[id] = name
	}
	return names, nil
}

// toStandings converts a descending ZRANGE result into ranked standings.
// Equal scores share a rank.
func toStandings(results []redis.Z, names map[string]string) ([]domain.Standing, error) {
	standings := make([]domain.Standing, len(results))
	for i, r := range results {
		id, ok := r.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member type %T", r.Member)
		}
		playerID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing member %q: %w", id, err)
		}
		standings[i] = domain.Standing{
			Rank:         i + 1,
			PlayerID:     playerID,
			Name:         names[id],
			CurrentScore: int(r.Score),
		}
		if i > 0 && results[i-1].Score == r.Score {
			standings[i].Rank = standings[i-1].Rank
		}
	}
	return standings, nil
}

// GetPlayerRank returns a player's competition rank and score
func (c *StandingsCache) GetPlayerRank(ctx context.Context, tournamentID, playerID int64) (*domain.Standing, error) {
	key := standingsKey(tournamentID)

	score, err := c.client.ZScore(ctx, key, member(playerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("getting player score: %w", err)
	}

	// Use pipeline to get both the better-ranked count and the name
	pipe := c.client.Pipeline()
	aboveCmd := pipe.ZCount(ctx, key, "("+strconv.FormatFloat(score, 'f', -1, 64), "+inf")
	nameCmd := pipe.HGet(ctx, playerInfoKey(playerID), "name")
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("getting player rank: %w", err)
	}

	above, err := aboveCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("getting rank result: %w", err)
	}

	return &domain.Standing{
		Rank:         int(above) + 1,
		PlayerID:     playerID,
		Name:         nameCmd.Val(),
		CurrentScore: int(score),
	}, nil
}

// DeleteTournament removes a tournament's cached standings
func (c *StandingsCache) DeleteTournament(ctx context.Context, tournamentID int64) error {
	if err := c.client.Del(ctx, standingsKey(tournamentID)).Err(); err != nil {
		return fmt.Errorf("deleting standings: %w", err)
	}
	return nil
}

// SetPlayerInfo caches player information
func (c *StandingsCache) SetPlayerInfo(ctx context.Context, info domain.PlayerInfo) error {
	err := c.client.HSet(ctx, playerInfoKey(info.ID), "name", info.Name).Err()
	if err != nil {
		return fmt.Errorf("setting player info: %w", err)
	}
	return nil
}

// Exists checks if a tournament has cached standings
func (c *StandingsCache) Exists(ctx context.Context, tournamentID int64) (bool, error) {
	exists, err := c.client.Exists(ctx, standingsKey(tournamentID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking existence: %w", err)
	}
	return exists > 0, nil
}
