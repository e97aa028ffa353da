package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outletstock/internal/core/types"
)

func TestBuildWindow(t *testing.T) {
	dates := BuildWindow(types.MustDate("2024-03-02"), ModeShort)
	require.Len(t, dates, 7)
	assert.Equal(t, types.MustDate("2024-02-25"), dates[0])
	assert.Equal(t, types.MustDate("2024-02-29"), dates[4], "leap day included")
	assert.Equal(t, types.MustDate("2024-03-02"), dates[6])

	long := BuildWindow(types.MustDate("2024-01-15"), ModeLong)
	require.Len(t, long, 30)
	assert.Equal(t, types.MustDate("2023-12-17"), long[0])
	for i := 1; i < len(long); i++ {
		assert.True(t, long[i-1].Before(long[i]))
	}

	assert.Nil(t, BuildWindow(types.MustDate("2024-01-15"), Mode(0)))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeShort, m)

	m, err = ParseMode("30")
	require.NoError(t, err)
	assert.Equal(t, ModeLong, m)

	for _, bad := range []string{"14", "x", "-7"} {
		_, err := ParseMode(bad)
		assert.Error(t, err, bad)
	}
}

func TestRequest(t *testing.T) {
	r := req(mainOutlet, "2024-03-10", ModeShort)
	assert.Equal(t, "Main|2024-03-10|7", r.Key())

	from, to := r.SourceRange()
	assert.Equal(t, types.MustDate("2024-03-03"), from)
	assert.Equal(t, types.MustDate("2024-03-10"), to)
	assert.Equal(t, from.AddDays(1), r.Dates()[0])

	assert.NoError(t, r.Validate())
	assert.Error(t, Request{Anchor: r.Anchor, Mode: ModeShort}.Validate())
	assert.Error(t, Request{Outlet: mainOutlet, Anchor: "2024-02-30", Mode: ModeShort}.Validate())
}
