package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noirbyte/gumshoe/internal/game/state"
)

// GameStateRepository persists player state documents. It implements the
// engine's Store interface.
type GameStateRepository struct {
	db *pgxpool.Pool
}

// NewGameStateRepository creates a GameStateRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewGameStateRepository(db *pgxpool.Pool) *GameStateRepository {
	return &GameStateRepository{db: db}
}

// Load retrieves the state document for one player and game.
//
// Precondition: playerID and gameID must be non-empty.
// Postcondition: Returns the decoded state with nil maps repaired, or
// state.ErrNotFound when no document exists.
func (r *GameStateRepository) Load(ctx context.Context, playerID, gameID string) (*state.PlayerState, error) {
	var doc []byte
	err := r.db.QueryRow(ctx,
		`SELECT state FROM game_states WHERE player_id = $1 AND game_id = $2`,
		playerID, gameID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, state.ErrNotFound
		}
		return nil, fmt.Errorf("querying game state: %w", err)
	}

	var st state.PlayerState
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, fmt.Errorf("decoding game state: %w", err)
	}
	st.PlayerID = playerID
	st.GameID = gameID
	st.Normalize()
	return &st, nil
}

// Save upserts the state document. Last writer wins; each save rewrites the
// whole document atomically.
//
// Precondition: st.PlayerID and st.GameID must be non-empty.
// Postcondition: A subsequent Load returns the saved document.
func (r *GameStateRepository) Save(ctx context.Context, st *state.PlayerState) error {
	if st.PlayerID == "" || st.GameID == "" {
		return fmt.Errorf("saving game state: missing player or game id")
	}
	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding game state: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO game_states (player_id, game_id, state, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (player_id, game_id)
		 DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		st.PlayerID, st.GameID, doc,
	)
	if err != nil {
		return fmt.Errorf("upserting game state: %w", err)
	}
	return nil
}

// Delete removes the state document, used by a full account wipe.
//
// Postcondition: Returns state.ErrNotFound when nothing was deleted.
func (r *GameStateRepository) Delete(ctx context.Context, playerID, gameID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM game_states WHERE player_id = $1 AND game_id = $2`,
		playerID, gameID,
	)
	if err != nil {
		return fmt.Errorf("deleting game state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return state.ErrNotFound
	}
	return nil
}
