package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

type credentialRow struct {
	bun.BaseModel `bun:"table:user_credentials,alias:uc"`

	UserID       string    `bun:"user_id,pk"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token,notnull"`
	Cookie       string    `bun:"cookie,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// PostgresStore persists credentials in Postgres via bun. Alternative
// to FileStore for deployments where the flat file won't do.
type PostgresStore struct {
	db *bun.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects, verifies the connection, and ensures the
// credentials table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*credentialRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create credentials table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (tgtgx.Credentials, error) {
	row := new(credentialRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tgtgx.Credentials{}, ErrNoSession
		}
		return tgtgx.Credentials{}, fmt.Errorf("select credentials: %w", err)
	}

	creds := tgtgx.Credentials{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		Cookie:       row.Cookie,
	}
	if !creds.Valid() {
		return tgtgx.Credentials{}, ErrNoSession
	}
	return creds, nil
}

func (s *PostgresStore) Put(ctx context.Context, userID string, creds tgtgx.Credentials) error {
	if userID == "" {
		return errors.New("user id is empty")
	}
	if !creds.Valid() {
		return errors.New("refusing to store a partial credential triple")
	}

	row := &credentialRow{
		UserID:       userID,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Cookie:       creds.Cookie,
		UpdatedAt:    time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("cookie = EXCLUDED.cookie").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert credentials: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
