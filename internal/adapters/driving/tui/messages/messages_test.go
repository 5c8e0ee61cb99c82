package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view     ViewType
		expected string
	}{
		{ViewMenu, "menu"},
		{ViewSearch, "search"},
		{ViewKnowledge, "knowledge"},
		{ViewSources, "sources"},
		{ViewDetail, "detail"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.view.String())
		})
	}
}

func TestViewType_ValuesAreDistinct(t *testing.T) {
	seen := make(map[ViewType]bool)
	for _, v := range []ViewType{ViewMenu, ViewSearch, ViewKnowledge, ViewSources, ViewDetail, ViewHelp} {
		assert.False(t, seen[v], "duplicate view value %d", v)
		seen[v] = true
	}
}

func TestSearchCompleted_CarriesError(t *testing.T) {
	err := errors.New("index unavailable")
	msg := SearchCompleted{Query: "wal", Table: domain.TableContext, Err: err}

	assert.Equal(t, "wal", msg.Query)
	assert.ErrorIs(t, msg.Err, err)
	assert.Nil(t, msg.Results)
}

func TestResultOpened_KeepsTable(t *testing.T) {
	msg := ResultOpened{Result: domain.SearchResult{ID: "k1"}, Table: domain.TableKnowledge}

	assert.Equal(t, "k1", msg.Result.ID)
	assert.Equal(t, domain.TableKnowledge, msg.Table)
}
