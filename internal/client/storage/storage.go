// Package storage opens the client's local SQLite database and applies
// the embedded goose migrations.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/foodshare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/foodshare/internal/dbx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store bundles the database handle with the repositories built on it.
type Store struct {
	DB       *sql.DB
	Metadata metadata.Repository
}

// RunMigrations applies every pending migration to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, mustSub(migrations, "migrations"))
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; one connection also keeps :memory: stable
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		DB:       db,
		Metadata: metadata.NewSQLiteRepository(db),
	}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// ForgetUser removes everything stored about email together with the
// persisted session, atomically.
func (s *Store) ForgetUser(ctx context.Context, email string) error {
	return dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, metadata.LastVisitedKey(email)); err != nil {
			return err
		}
		return repo.Delete(ctx, metadata.SessionKey)
	})
}
