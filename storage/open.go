package storage

import (
	"fmt"

	"relaychat/config"
	"relaychat/model"
)

// LocalUserID owns conversations in the local database when no user id is configured.
const LocalUserID = "local"

// Open returns the conversation store selected by the database URL:
// https → REST gateway, postgres(ql) → Postgres, empty → SQLite in dataDir.
func Open(db config.DatabaseConfig, creds *config.CredentialStore, dataDir string) (model.ConversationStore, error) {
	kind, u, err := config.ParseDatabaseURL(db.URL)
	if err != nil {
		return nil, err
	}

	switch kind {
	case config.DatabaseREST:
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Storage] Using REST store at %s", u.Redacted())
		}
		return NewRESTStore(u.String(), creds.Get("database"), db.UserID, nil), nil

	case config.DatabasePostgres:
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Storage] Using Postgres store at %s", u.Redacted())
		}
		return OpenPostgres(u.String(), db.UserID)

	default:
		userID := db.UserID
		if userID == "" {
			userID = LocalUserID
		}
		path := config.LocalDatabasePath(dataDir)
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Storage] Using local database %s", path)
		}
		store, err := OpenSQLite(path, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to open local database: %w", err)
		}
		return store, nil
	}
}
