package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerFilterActive(t *testing.T) {
	red := Faction{ID: 2, Name: "Red"}
	name := "Bob"
	gid := "B-42"

	tests := []struct {
		name   string
		filter *PlayerFilter
		want   FilterKind
	}{
		{"nil filter", nil, FilterNone},
		{"empty filter", &PlayerFilter{}, FilterNone},
		{"faction only", &PlayerFilter{Faction: &red}, FilterFaction},
		{"name only", &PlayerFilter{Name: &name}, FilterName},
		{"game id only", &PlayerFilter{GameID: &gid}, FilterGameID},
		{"faction wins over name", &PlayerFilter{Faction: &red, Name: &name}, FilterFaction},
		{"name wins over game id", &PlayerFilter{Name: &name, GameID: &gid}, FilterName},
		{"all set", &PlayerFilter{Faction: &red, Name: &name, GameID: &gid}, FilterFaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Active())
		})
	}
}

func TestReservedRows(t *testing.T) {
	assert.True(t, UnknownFaction().IsUnknown())
	assert.Equal(t, "Unknown", UnknownFaction().Name)
	assert.True(t, DefaultUser().IsDefault())
	assert.False(t, User{ID: 2}.IsDefault())
}

func TestGameIDOr(t *testing.T) {
	assert.Equal(t, "<N/A>", Player{}.GameIDOr("<N/A>"))
	assert.Equal(t, "G-1", Player{GameID: StringPtr("G-1")}.GameIDOr("<N/A>"))
}

func TestNotFoundError(t *testing.T) {
	err := NotFound("player", 7)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsStoreFailure(err))
	assert.Equal(t, `player "7" not found`, err.Error())

	wrapped := fmt.Errorf("find player: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))

	var nf *NotFoundError
	require.True(t, errors.As(wrapped, &nf))
	assert.Equal(t, "player", nf.Entity)
}

func TestStoreFailure(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := StoreFailure("insert faction", cause)

	assert.True(t, IsStoreFailure(err))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "insert faction: disk I/O error", err.Error())
	assert.NoError(t, StoreFailure("noop", nil))
}

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"int64", int64(-3), "-3"},
		{"uint64", uint64(18446744073709551615), "18446744073709551615"},
		{"bool", true, "true"},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"sorted keys", map[string]any{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{"nested", []any{map[string]any{"name": "Red"}}, `[{"name":"Red"}]`},
		{"nfc", "e\u0301", "\"\u00e9\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": 1.5})
	assert.Error(t, err)

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestDigestStable(t *testing.T) {
	a, err := Digest(map[string]any{"x": "1", "y": "2"})
	require.NoError(t, err)
	b, err := Digest(map[string]any{"y": "2", "x": "1"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
