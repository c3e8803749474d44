package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateEntityError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("create client: %w", &DuplicateEntityError{Entity: "client", Field: "phone", Value: "0711000111"})

	require.True(t, errors.Is(err, ErrDuplicateEntity))
	assert.Contains(t, err.Error(), `client with phone "0711000111" already exists`)

	var de *DuplicateEntityError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "phone", de.Field)
}

func TestFormatTimestamp_UTCWithMillis(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	ts := time.Date(2024, 5, 1, 12, 30, 45, 123456789, loc)

	assert.Equal(t, "2024-05-01T09:30:45.123Z", FormatTimestamp(ts))
}

func TestFormatTimestamp_LexicalOrderMatchesTimeOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := FormatTimestamp(base.Add(999 * time.Millisecond))
	b := FormatTimestamp(base.Add(1 * time.Second))

	assert.Less(t, a, b)
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("2024-05-01T09:30:45.123Z")
	require.NoError(t, err)
	assert.Equal(t, 123*time.Millisecond, time.Duration(got.Nanosecond()))

	got, err = ParseTimestamp("2024-05-01T12:30:45+03:00")
	require.NoError(t, err)
	assert.Equal(t, 9, got.UTC().Hour())

	_, err = ParseTimestamp("yesterday")
	require.Error(t, err)
}

func TestUUIDGenerator_ProducesDistinctUUIDs(t *testing.T) {
	g := UUIDGenerator{}
	a, b := g.NewID(), g.NewID()

	require.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	s, err := MakeRandHexString(16)
	require.NoError(t, err)
	require.Len(t, s, 32)
	_, err = hex.DecodeString(s)
	require.NoError(t, err)

	empty, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte{1, 2, 3}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0}, buf)

	WipeByteArray(nil)
}
