package repomanager

import (
	"context"
	"database/sql"

	"github.com/gieogita/portal-auth/internal/dbx"
	"github.com/gieogita/portal-auth/internal/repositories/otps"
	"github.com/gieogita/portal-auth/internal/repositories/sessions"
	"github.com/gieogita/portal-auth/internal/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// repository code runs against the pool or inside a transaction.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	OTPs(db dbx.DBTX) otps.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
