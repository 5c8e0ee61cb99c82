// Package copilot harvests GitHub Copilot chat history exports.
package copilot

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/xtctx/internal/connectors"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Name is the source name recorded on every item.
const Name = "copilot"

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

// Source reads Copilot history JSON files: a bare message array, an object
// with messages, or an object with conversations each holding messages.
type Source struct {
	connectors.Base
	historyPath string
}

// New creates a source reading historyPath, a directory or a .json file.
func New(historyPath string, checkpoints driven.CheckpointStore) *Source {
	return &Source{
		Base:        connectors.NewBase(Name, checkpoints),
		historyPath: historyPath,
	}
}

// DefaultPath returns the standard history directory under home.
func DefaultPath(home string) string {
	return filepath.Join(home, ".copilot", "history")
}

// Detect reports whether the history path exists.
func (s *Source) Detect(_ context.Context) bool {
	return connectors.Exists(s.historyPath, false)
}

// StorePaths returns the history path.
func (s *Source) StorePaths() []string {
	return []string{s.historyPath}
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
	files, err := connectors.FindFiles(ctx, s.historyPath, ".json")
	if err != nil {
		return err
	}

	indexBySession := make(map[string]int)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := connectors.ReadJSON(file)
		if err != nil {
			logger.Debug("%s: skipping %s: %v", Name, file, err)
			continue
		}

		for _, item := range extractItems(doc, connectors.SessionFromPath(file)) {
			index := indexBySession[item.SessionID]
			indexBySession[item.SessionID] = index + 1
			if !item.Timestamp.After(since) {
				continue
			}
			item.Metadata.MessageIndex = index
			if !emit(item) {
				return nil
			}
		}
	}
	return nil
}

func extractItems(doc any, fallbackSession string) []domain.Item {
	switch v := doc.(type) {
	case []any:
		return messageItems(v, fallbackSession)
	case map[string]any:
		if msgs, ok := v["messages"].([]any); ok {
			session := connectors.String(v, "sessionId", "session_id")
			if session == "" {
				session = fallbackSession
			}
			return messageItems(msgs, session)
		}
		conversations, _ := connectors.Objects(v, "conversations")
		var items []domain.Item
		for _, conv := range conversations {
			msgs, ok := conv["messages"].([]any)
			if !ok {
				continue
			}
			session := connectors.String(conv, "sessionId", "session_id", "id")
			if session == "" {
				session = fallbackSession
			}
			items = append(items, messageItems(msgs, session)...)
		}
		return items
	}
	return nil
}

func messageItems(msgs []any, session string) []domain.Item {
	var items []domain.Item
	for _, el := range msgs {
		msg, ok := el.(map[string]any)
		if !ok {
			continue
		}
		content := connectors.Text(connectors.Value(msg, "content", "text"))
		if strings.TrimSpace(content) == "" {
			continue
		}
		role := connectors.NormalizeRole(connectors.String(msg, "role", "author"), nil)
		ts := connectors.ParseTimestamp(connectors.Value(msg, "timestamp", "created_at", "createdAt"))

		item := connectors.NewItem(Name, session, ts, role, content, 0)
		extra := make(map[string]string)
		if model := connectors.String(msg, "model"); model != "" {
			extra["model"] = model
		}
		if kind := connectors.String(msg, "completionType", "completion_type"); kind != "" {
			extra["completion_type"] = kind
		}
		if len(extra) > 0 {
			item.Metadata.Extra = extra
		}
		items = append(items, item)
	}
	return items
}
