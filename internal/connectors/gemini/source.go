// Package gemini harvests Gemini CLI chat history.
//
// History files are JSON documents in one of three shapes: a bare array of
// messages, an object with a messages array, or an object with a sessions
// array whose entries hold prompt/response turns and/or messages.
package gemini

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
const Name = "gemini"

var roles = map[string]domain.Role{
	"model":  domain.RoleAssistant,
	"gemini": domain.RoleAssistant,
}

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

// Source reads Gemini CLI history files.
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
	return filepath.Join(home, ".gemini", "history")
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

// extractItems recognises the supported document shapes. Unknown shapes
// yield nothing.
func extractItems(doc any, fallbackSession string) []domain.Item {
	switch v := doc.(type) {
	case []any:
		return messageItems(v, fallbackSession)
	case map[string]any:
		if msgs, ok := v["messages"].([]any); ok {
			session := orDefault(connectors.String(v, "sessionId", "session_id"), fallbackSession)
			return messageItems(msgs, session)
		}
		sessions, ok := connectors.Objects(v, "sessions")
		if !ok {
			return nil
		}
		var items []domain.Item
		for _, sess := range sessions {
			session := orDefault(connectors.String(sess, "sessionId", "session_id", "id"), fallbackSession)
			turns, _ := connectors.Objects(sess, "turns")
			for _, turn := range turns {
				items = append(items, turnItems(turn, session)...)
			}
			if msgs, ok := sess["messages"].([]any); ok {
				items = append(items, messageItems(msgs, session)...)
			}
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
		content := connectors.Text(connectors.Value(msg, "content", "text", "parts"))
		if strings.TrimSpace(content) == "" {
			continue
		}
		role := connectors.NormalizeRole(connectors.String(msg, "role", "author", "type"), roles)
		ts := connectors.ParseTimestamp(connectors.Value(msg, "timestamp", "created_at", "createdAt"))

		item := connectors.NewItem(Name, session, ts, role, content, 0)
		item.Metadata.Extra = withModel(nil, connectors.String(msg, "model"))
		items = append(items, item)
	}
	return items
}

// turnItems splits a prompt/response turn into a user and an assistant item
// sharing the turn's timestamp.
func turnItems(turn map[string]any, session string) []domain.Item {
	ts := connectors.ParseTimestamp(turn["timestamp"])
	model := connectors.String(turn, "model")

	var items []domain.Item
	if prompt := connectors.String(turn, "prompt"); strings.TrimSpace(prompt) != "" {
		item := connectors.NewItem(Name, session, ts, domain.RoleUser, prompt, 0)
		item.Metadata.Extra = withModel(tokenExtra("prompt_tokens", turn["promptTokens"]), model)
		items = append(items, item)
	}
	if response := connectors.String(turn, "response"); strings.TrimSpace(response) != "" {
		item := connectors.NewItem(Name, session, ts, domain.RoleAssistant, response, 0)
		item.Metadata.Extra = withModel(tokenExtra("response_tokens", turn["responseTokens"]), model)
		items = append(items, item)
	}
	return items
}

func tokenExtra(key string, v any) map[string]string {
	if s := connectors.Scalar(v); s != "" {
		return map[string]string{key: s}
	}
	return nil
}

func withModel(extra map[string]string, model string) map[string]string {
	out := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		out[k] = v
	}
	out["model"] = orDefault(model, "unknown")
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
