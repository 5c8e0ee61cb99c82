// Package codex harvests Codex CLI session logs.
//
// Sessions are JSON-lines files found anywhere under the sessions
// directory (or a single .jsonl file). Flat message lines and rollout
// envelopes ({type: "response_item", payload: {type: "message", ...}})
// are both read; a session_meta envelope names the session.
package codex

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/xtctx/internal/connectors"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Name is the source name recorded on every item.
const Name = "codex"

// Approval modes recorded in item metadata.
const (
	ApprovalSuggest  = "suggest"
	ApprovalAutoEdit = "auto-edit"
	ApprovalFullAuto = "full-auto"
)

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

// Source reads Codex CLI sessions.
type Source struct {
	connectors.Base
	sessionsPath string
}

// New creates a source reading sessionsPath, a directory or a .jsonl file.
func New(sessionsPath string, checkpoints driven.CheckpointStore) *Source {
	return &Source{
		Base:         connectors.NewBase(Name, checkpoints),
		sessionsPath: sessionsPath,
	}
}

// DefaultPath returns the standard sessions directory under home.
func DefaultPath(home string) string {
	return filepath.Join(home, ".codex", "sessions")
}

// Detect reports whether the sessions path exists.
func (s *Source) Detect(_ context.Context) bool {
	return connectors.Exists(s.sessionsPath, false)
}

// StorePaths returns the sessions path.
func (s *Source) StorePaths() []string {
	return []string{s.sessionsPath}
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
	files, err := connectors.FindFiles(ctx, s.sessionsPath, ".jsonl")
	if err != nil {
		return err
	}

	for _, file := range files {
		session := connectors.SessionFromPath(file)
		index := 0
		stopped := false

		err := connectors.ReadJSONLines(ctx, file, func(obj map[string]any) bool {
			if connectors.String(obj, "type") == "session_meta" {
				if id := connectors.String(connectors.Object(obj, "payload"), "id"); id != "" {
					session = id
				}
				return true
			}
			item, ok := parseLine(obj, session, index)
			if !ok {
				return true
			}
			index++
			if !item.Timestamp.After(since) {
				return true
			}
			if !emit(item) {
				stopped = true
			}
			return !stopped
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Debug("%s: skipping %s: %v", Name, file, err)
		}
		if stopped {
			return nil
		}
	}
	return nil
}

func parseLine(obj map[string]any, session string, index int) (domain.Item, bool) {
	ts := connectors.ParseTimestamp(connectors.Value(obj, "timestamp", "created_at", "createdAt"))
	msg := obj

	if connectors.String(obj, "type") == "response_item" {
		payload := connectors.Object(obj, "payload")
		if connectors.String(payload, "type") != "message" {
			return domain.Item{}, false
		}
		msg = payload
	}

	content := connectors.Text(msg["content"])
	if strings.TrimSpace(content) == "" {
		return domain.Item{}, false
	}

	if id := connectors.String(obj, "sessionId", "session_id"); id != "" {
		session = id
	}

	roleName := connectors.String(msg, "role")
	if roleName == "" {
		roleName = connectors.String(msg, "type")
	}

	item := connectors.NewItem(Name, session, ts, connectors.NormalizeRole(roleName, nil), content, index)
	item.Metadata.Extra = map[string]string{
		"approval_mode": approvalMode(connectors.String(obj, "approvalMode", "approval_mode")),
		"sandboxed":     strconv.FormatBool(connectors.Bool(obj["sandboxed"])),
	}
	return item, true
}

func approvalMode(v string) string {
	switch v {
	case ApprovalAutoEdit, ApprovalFullAuto:
		return v
	default:
		return ApprovalSuggest
	}
}
