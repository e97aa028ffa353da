package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/documents/stockcheck"
)

func TestExtractDBColumns_StockCheck(t *testing.T) {
	cols := ExtractDBColumns[stockcheck.StockCheck]()

	assert.Equal(t, []string{
		"id", "version", "created_at", "updated_at", "deleted_at",
		"outlet", "date", "timestamp", "completed_by", "replace_all_inventory",
	}, cols)
	assert.NotContains(t, cols, "counts")
}

func TestStructToMap_StockCheck(t *testing.T) {
	check := stockcheck.New("Main", types.MustDate("2024-03-02"), "alice")
	check.ReplaceAllInventory = true
	check.MarkDeleted()

	m := StructToMap(check)

	assert.Equal(t, check.ID, m["id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, "Main", m["outlet"])
	assert.Equal(t, types.MustDate("2024-03-02"), m["date"])
	assert.Equal(t, true, m["replace_all_inventory"])
	require.IsType(t, (*time.Time)(nil), m["deleted_at"])
	assert.NotNil(t, m["deleted_at"])
	_, hasCounts := m["counts"]
	assert.False(t, hasCounts)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap((*stockcheck.StockCheck)(nil)))
}

func TestSelectColumns(t *testing.T) {
	cols := SelectColumns([]string{"id", "date", "outlet"}, map[string]string{"date": "date::text"})
	assert.Equal(t, []string{"id", "date::text AS date", "outlet"}, cols)
}

func TestWithout(t *testing.T) {
	assert.Equal(t, []string{"outlet"}, Without([]string{"id", "outlet", "version"}, "id", "version"))
}
