package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/ledger"
)

func TestEntryKey(t *testing.T) {
	r := ledger.Request{Outlet: "Main", Anchor: types.MustDate("2024-03-08"), Mode: ledger.ModeLong}

	assert.Equal(t, "outletstock:ledger:Main:g0:2024-03-08:30", entryKey(r, 0))
	assert.Equal(t, "outletstock:ledger:Main:g3:2024-03-08:30", entryKey(r, 3))
	assert.Equal(t, "outletstock:ledger:Main:gen", generationKey("Main"))
}

func TestEntryKey_GenerationSeparatesEntries(t *testing.T) {
	r := ledger.Request{Outlet: "Main", Anchor: types.MustDate("2024-03-08"), Mode: ledger.ModeShort}
	assert.NotEqual(t, entryKey(r, 1), entryKey(r, 2))
}

type recordingInvalidator struct {
	outlets []string
	err     error
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, outlet string) error {
	r.outlets = append(r.outlets, outlet)
	return r.err
}

func TestSourceListener_Handle(t *testing.T) {
	inv := &recordingInvalidator{}
	l := NewSourceListener(nil, inv)
	ctx := context.Background()

	l.handle(ctx, SourceChangedChannel, " Main ")
	l.handle(ctx, SourceChangedChannel, "")
	l.handle(ctx, "other_channel", "Kitchen")

	assert.Equal(t, []string{"Main"}, inv.outlets)
}

func TestSourceListener_HandleSurvivesInvalidationError(t *testing.T) {
	inv := &recordingInvalidator{err: errors.New("redis down")}
	l := NewSourceListener(nil, inv)

	assert.NotPanics(t, func() {
		l.handle(context.Background(), SourceChangedChannel, "Main")
	})
	assert.Equal(t, []string{"Main"}, inv.outlets)
}

func TestSourceListener_StopWithoutStart(t *testing.T) {
	l := NewSourceListener(nil, &recordingInvalidator{})
	assert.NotPanics(t, l.Stop)
}
