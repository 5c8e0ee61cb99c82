package detail

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driving"
)

// mockKnowledgeService serves Get from a fixed record.
type mockKnowledgeService struct {
	driving.KnowledgeService
	record *domain.KnowledgeRecord
	err    error
	lastID string
}

func (m *mockKnowledgeService) Get(_ context.Context, id string) (*domain.KnowledgeRecord, error) {
	m.lastID = id
	return m.record, m.err
}

func contextHit() domain.SearchResult {
	return domain.SearchResult{
		ID:       "r1",
		Text:     "Set busy_timeout to 5000.",
		Metadata: `{"source_tool":"claude-code","source_session":"s1","role":"assistant","timestamp":"2025-05-01T09:00:00.000Z","referenced_files":["db.go"]}`,
		Score:    0.0325,
	}
}

func sampleRecord() domain.KnowledgeRecord {
	return domain.KnowledgeRecord{
		ID:         "k2",
		Type:       domain.KnowledgeDecision,
		Title:      "Use WAL",
		Body:       "Readers never block.",
		CreatedAt:  time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		SourceTool: "codex",
		Supersedes: "k1",
		DomainTags: []string{"storage"},
	}
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil)

	require.NotNil(t, v)
	assert.Equal(t, messages.ViewSearch, v.Back())
	assert.Nil(t, v.Init())
	assert.Contains(t, v.View(), "Detail")
}

func TestView_ShowContextResult(t *testing.T) {
	svc := &mockKnowledgeService{}
	v := NewView(nil, svc)

	cmd := v.ShowResult(contextHit(), domain.TableContext, messages.ViewSearch)

	assert.Nil(t, cmd, "context hits need no lookup")
	assert.Empty(t, svc.lastID)
	assert.Equal(t, "claude-code / assistant", v.Title())

	view := v.View()
	assert.Contains(t, view, "Session: s1")
	assert.Contains(t, view, "When: 2025-05-01T09:00:00.000Z")
	assert.Contains(t, view, "Files: db.go")
	assert.Contains(t, view, "Score: 0.0325")
	assert.Contains(t, view, "Set busy_timeout to 5000.")
	assert.NotContains(t, view, "Type:")
}

func TestView_ShowKnowledgeResultLoadsRecord(t *testing.T) {
	rec := sampleRecord()
	svc := &mockKnowledgeService{record: &rec}
	v := NewView(nil, svc)
	hit := domain.SearchResult{ID: "k2", Text: "Use WAL\nReaders", Metadata: `{"type":"decision","title":"Use WAL"}`}

	cmd := v.ShowResult(hit, domain.TableKnowledge, messages.ViewSearch)
	require.NotNil(t, cmd)
	assert.True(t, v.Loading())
	assert.Contains(t, v.View(), "Loading record...")

	v.Update(cmd())

	assert.Equal(t, "k2", svc.lastID)
	assert.False(t, v.Loading())
	assert.Equal(t, "Readers never block.", v.Body())
	view := v.View()
	assert.Contains(t, view, "Supersedes: k1")
	assert.Contains(t, view, "Created: 2025-05-01T12:00:00.000Z")
	assert.Contains(t, view, "Tags: storage")
}

func TestView_RecordLoadFailureKeepsIndexCopy(t *testing.T) {
	v := NewView(nil, &mockKnowledgeService{err: domain.ErrNotFound})
	hit := domain.SearchResult{ID: "k9", Text: "stale", Metadata: `{"title":"Gone"}`}

	cmd := v.ShowResult(hit, domain.TableKnowledge, messages.ViewSearch)
	v.Update(cmd())

	assert.ErrorIs(t, v.Err(), domain.ErrNotFound)
	assert.Equal(t, "stale", v.Body())
	assert.Equal(t, "Gone", v.Title())
}

func TestView_NoKnowledgeService(t *testing.T) {
	v := NewView(nil, nil)

	cmd := v.ShowResult(domain.SearchResult{ID: "k1"}, domain.TableKnowledge, messages.ViewSearch)
	msg := cmd()

	assert.Equal(t, messages.RecordLoaded{ID: "k1", Err: ErrNoKnowledgeService}, msg)
}

func TestView_ShowRecordAndBack(t *testing.T) {
	v := NewView(nil, nil)
	v.ShowRecord(sampleRecord(), messages.ViewKnowledge)

	assert.Equal(t, "Use WAL", v.Title())

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewKnowledge}, cmd())
}

func TestView_ZeroCreatedAtIsOmitted(t *testing.T) {
	v := NewView(nil, nil)
	v.ShowRecord(domain.KnowledgeRecord{ID: "k1", Title: "t"}, messages.ViewKnowledge)

	assert.NotContains(t, v.View(), "Created:")
}

func TestView_Scrolling(t *testing.T) {
	v := NewView(nil, nil)
	v.SetDimensions(80, 10)
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %02d", i)
	}
	v.ShowResult(domain.SearchResult{Text: strings.Join(lines, "\n")}, domain.TableContext, messages.ViewSearch)

	key := func(s string) {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}

	key("k")
	assert.Equal(t, 0, v.scrollOffset, "cannot scroll above the top")

	key("j")
	assert.Equal(t, 1, v.scrollOffset)

	key("G")
	assert.Equal(t, v.maxScrollOffset(), v.scrollOffset)
	assert.Contains(t, v.View(), "line 29")
	assert.Contains(t, v.View(), "[100%]")

	key("j")
	assert.Equal(t, v.maxScrollOffset(), v.scrollOffset, "cannot scroll past the end")

	key("g")
	assert.Equal(t, 0, v.scrollOffset)

	v.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, v.visibleLines(), v.scrollOffset)
}

func TestView_WrapsLongLines(t *testing.T) {
	v := NewView(nil, nil)
	v.SetDimensions(24, 40)

	v.ShowResult(domain.SearchResult{Text: strings.Repeat("a", 45)}, domain.TableContext, messages.ViewSearch)

	// 20 usable columns: the Score field, a blank line, then 20+20+5.
	require.Len(t, v.lines, 2+3)
	assert.Len(t, v.lines[2], 20)
	assert.Len(t, v.lines[4], 5)
}
