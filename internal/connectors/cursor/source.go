// Package cursor harvests Cursor chat history from its SQLite databases.
//
// Databases are discovered recursively under the workspace storage
// directory and opened read-only. Cursor's schema has changed across
// releases, so each database is tried against a list of known table
// layouts and the first one that answers is used.
package cursor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/xtctx/internal/connectors"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Name is the source name recorded on every item.
const Name = "cursor"

// queryCandidates select (id, session, role, content, timestamp, model, mode)
// from each known layout, oldest first.
var queryCandidates = []string{
	`SELECT id, session_id, role, content, created_at, model, composer_mode
	 FROM messages ORDER BY created_at ASC`,
	`SELECT id, conversation_id, author, text, timestamp, model, mode
	 FROM chat_messages ORDER BY timestamp ASC`,
	`SELECT id, sessionId, role, content, timestamp, model, composerMode
	 FROM cursor_messages ORDER BY timestamp ASC`,
}

var databaseExts = []string{".sqlite", ".sqlite3", ".db", ".vscdb"}

var roles = map[string]domain.Role{
	"ai": domain.RoleAssistant,
}

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

// Source reads Cursor chat databases.
type Source struct {
	connectors.Base
	storePath string
}

// New creates a source reading storePath, a directory or a single database.
func New(storePath string, checkpoints driven.CheckpointStore) *Source {
	return &Source{
		Base:      connectors.NewBase(Name, checkpoints),
		storePath: storePath,
	}
}

// DefaultPath returns Cursor's workspace storage directory. On Windows it
// lives under %APPDATA%.
func DefaultPath(home string) string {
	if appData := os.Getenv("APPDATA"); appData != "" && runtime.GOOS == "windows" {
		return filepath.Join(appData, "Cursor", "User", "workspaceStorage")
	}
	return filepath.Join(home, ".cursor", "workspaceStorage")
}

// Detect reports whether at least one candidate database exists.
func (s *Source) Detect(ctx context.Context) bool {
	paths, err := connectors.FindFiles(ctx, s.storePath, databaseExts...)
	return err == nil && len(paths) > 0
}

// StorePaths returns the storage path.
func (s *Source) StorePaths() []string {
	return []string{s.storePath}
}

// ExtractSince yields items strictly newer than the checkpoint.
func (s *Source) ExtractSince(ctx context.Context, checkpoint *domain.Checkpoint) driven.ItemSeq {
	since := connectors.Cutoff(checkpoint)
	return connectors.Sequence(ctx, func(ctx context.Context, emit func(domain.Item) bool) error {
		return s.extract(ctx, since, emit)
	})
}

// ExtractAll yields every item.
func (s *Source) ExtractAll(ctx context.Context) driven.ItemSeq {
	return s.ExtractSince(ctx, nil)
}

func (s *Source) extract(ctx context.Context, since time.Time, emit func(domain.Item) bool) error {
	paths, err := connectors.FindFiles(ctx, s.storePath, databaseExts...)
	if err != nil {
		return err
	}

	for _, path := range paths {
		items, err := readDatabase(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Debug("%s: skipping %s: %v", Name, path, err)
			continue
		}
		for _, item := range items {
			if !item.Timestamp.After(since) {
				continue
			}
			if !emit(item) {
				return nil
			}
		}
	}
	return nil
}

// readDatabase loads every message from one database. The connection is
// closed before any item is handed out.
func readDatabase(ctx context.Context, path string) ([]domain.Item, error) {
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	fallbackSession := connectors.SessionFromPath(path)
	for _, query := range queryCandidates {
		items, err := queryItems(ctx, db, query, fallbackSession)
		if err == nil {
			return items, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func queryItems(ctx context.Context, db *sql.DB, query, fallbackSession string) ([]domain.Item, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indexBySession := make(map[string]int)
	var items []domain.Item
	for rows.Next() {
		var id, session, role, content, created, model, mode any
		if err := rows.Scan(&id, &session, &role, &content, &created, &model, &mode); err != nil {
			return nil, err
		}

		text := connectors.Scalar(content)
		if strings.TrimSpace(text) == "" {
			continue
		}

		sessionID := connectors.Scalar(session)
		if sessionID == "" {
			sessionID = fallbackSession
		}
		index := indexBySession[sessionID]
		indexBySession[sessionID] = index + 1

		item := connectors.NewItem(Name, sessionID, connectors.ParseTimestamp(created),
			connectors.NormalizeRole(connectors.Scalar(role), roles), text, index)
		item.Metadata.Extra = map[string]string{
			"message_id":    connectors.Scalar(id),
			"model":         orDefault(connectors.Scalar(model), "unknown"),
			"composer_mode": composerMode(connectors.Scalar(mode)),
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func composerMode(v string) string {
	if v == "agent" {
		return v
	}
	return "normal"
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
