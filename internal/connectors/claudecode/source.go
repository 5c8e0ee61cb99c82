// Package claudecode harvests Claude Code session transcripts.
//
// Claude Code writes one JSON-lines file per session under
// ~/.claude/projects/<project>/<session>.jsonl. Both the flat line shape
// ({type, content, timestamp}) and the message envelope shape
// ({type, message: {role, content: [...]}, timestamp}) are understood.
package claudecode

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
const Name = "claude-code"

var roles = map[string]domain.Role{
	"tool_use":    domain.RoleTool,
	"tool_result": domain.RoleTool,
}

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

// Source reads Claude Code project transcripts.
type Source struct {
	connectors.Base
	projectsDir string
}

// New creates a source rooted at projectsDir.
func New(projectsDir string, checkpoints driven.CheckpointStore) *Source {
	return &Source{
		Base:        connectors.NewBase(Name, checkpoints),
		projectsDir: projectsDir,
	}
}

// DefaultPath returns the standard projects directory under home.
func DefaultPath(home string) string {
	return filepath.Join(home, ".claude", "projects")
}

// Detect reports whether the projects directory exists.
func (s *Source) Detect(_ context.Context) bool {
	return connectors.Exists(s.projectsDir, true)
}

// StorePaths returns the projects directory.
func (s *Source) StorePaths() []string {
	return []string{s.projectsDir}
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
	files, err := connectors.FindFiles(ctx, s.projectsDir, ".jsonl")
	if err != nil {
		return err
	}

	for _, file := range files {
		session := connectors.SessionFromPath(file)
		project := filepath.Base(filepath.Dir(file))
		index := 0
		stopped := false

		err := connectors.ReadJSONLines(ctx, file, func(obj map[string]any) bool {
			item, ok := parseLine(obj, session, index)
			if !ok {
				return true
			}
			index++
			if !item.Timestamp.After(since) {
				return true
			}
			item.Metadata.Extra["project"] = project
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

// parseLine converts one transcript line. Lines without textual content
// (summaries, snapshots, empty tool calls) are not messages and report false.
func parseLine(obj map[string]any, session string, index int) (domain.Item, bool) {
	ts := connectors.ParseTimestamp(obj["timestamp"])
	typ := connectors.String(obj, "type")
	extra := map[string]string{"session_type": "interactive"}

	var (
		role    domain.Role
		content string
		tools   []string
		files   []string
	)

	if msg := connectors.Object(obj, "message"); msg != nil {
		var toolOnly bool
		content, tools, files, toolOnly = messageContent(msg["content"])
		roleName := connectors.String(msg, "role")
		if roleName == "" {
			roleName = typ
		}
		role = connectors.NormalizeRole(roleName, roles)
		if toolOnly {
			role = domain.RoleTool
		}
		if model := connectors.String(msg, "model"); model != "" {
			extra["model"] = model
		}
	} else {
		content = connectors.String(obj, "content")
		role = connectors.NormalizeRole(typ, roles)
		if typ == "tool_use" {
			tools = append(tools, connectors.String(obj, "name"))
		}
	}

	if strings.TrimSpace(content) == "" {
		return domain.Item{}, false
	}

	if len(tools) > 0 {
		extra["tool_calls"] = strings.Join(tools, ",")
	}
	if cost := connectors.Scalar(obj["costUsd"]); cost != "" {
		extra["cost_usd"] = cost
	}

	item := connectors.NewItem(Name, session, ts, role, content, index)
	item.Metadata.ReferencedFiles = files
	item.Metadata.Extra = extra
	return item, true
}

// messageContent flattens an envelope's content. toolOnly is true when the
// message carries tool blocks and no prose.
func messageContent(v any) (text string, tools, files []string, toolOnly bool) {
	blocks, ok := v.([]any)
	if !ok {
		return connectors.Text(v), nil, nil, false
	}

	var parts []string
	hasProse := false
	seen := make(map[string]bool)
	for _, el := range blocks {
		block, ok := el.(map[string]any)
		if !ok {
			continue
		}
		switch connectors.String(block, "type") {
		case "text":
			if t := connectors.String(block, "text"); t != "" {
				parts = append(parts, t)
				hasProse = true
			}
		case "tool_use":
			name := connectors.String(block, "name")
			tools = append(tools, name)
			line := "[tool: " + name + "]"
			if input := connectors.Object(block, "input"); input != nil {
				if path := connectors.String(input, "file_path", "notebook_path", "path"); path != "" {
					line += " " + path
					if !seen[path] {
						seen[path] = true
						files = append(files, path)
					}
				}
			}
			parts = append(parts, line)
		case "tool_result":
			if t := connectors.Text(block["content"]); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, "\n"), tools, files, !hasProse && len(parts) > 0
}
