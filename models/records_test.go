package models

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestampRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 12, 30, 0, 123456789, time.UTC),
		time.Date(2024, 6, 1, 21, 30, 0, 0, time.FixedZone("JST", 9*3600)),
	}

	for _, ts := range cases {
		got, err := ParseTimestamp(FormatTimestamp(ts))
		require.NoError(t, err)
		assert.True(t, got.Equal(ts))
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTimestamp("2024-06-01")
	assert.Error(t, err)
	_, err = ParseTimestamp("")
	assert.Error(t, err)
}

func TestTimestampOrderIsLexicographic(t *testing.T) {
	times := []time.Time{
		MinTimestamp,
		time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 1, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC),
		MaxTimestamp,
	}

	encoded := make([]string, len(times))
	for i, ts := range times {
		encoded[i] = FormatTimestamp(ts)
		assert.Len(t, encoded[i], len(encoded[0]), "encoding must be fixed width")
	}

	assert.True(t, sort.StringsAreSorted(encoded), "chronological order must survive encoding: %v", encoded)

	// A whole-second value must sort before the same second plus one
	// nanosecond, regardless of input precision.
	whole := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Less(t, FormatTimestamp(whole), FormatTimestamp(whole.Add(time.Nanosecond)))
}

func TestRecordKeys(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		rec    Item
		pk     string
		prefix string
		sk     string
	}{
		{Device{ID: "d1", Place: "home"}, "DEVICE", "", "d1"},
		{Place{ID: "home", Name: "Home"}, "PLACE", "", "home"},
		{RawData{ID: "nature-devices"}, "RAW_DATA", "", "nature-devices"},
		{User{Email: "a@example.com"}, "USER", "", "a@example.com"},
		{ApiKey{KeyHash: "abc"}, "abc", "", "APIKEY"},
		{Electricity{Device: "d1", Timestamp: ts}, "d1", "TS#", "2024-06-01T12:00:00.000000000Z"},
		{FinalElectricity{Device: "d1", Timestamp: ts}, "d1", "FIN#TS#", "2024-06-01T12:00:00.000000000Z"},
		{PlaceCondition{Device: "d1", Timestamp: ts}, "d1", "TS#", "2024-06-01T12:00:00.000000000Z"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.pk, tc.rec.PK())
		assert.Equal(t, tc.prefix, tc.rec.SKPrefix())
		assert.Equal(t, tc.sk, tc.rec.SKValue())
	}
}

func TestTimeSeriesSetKeyRejectsBadTimestamp(t *testing.T) {
	var e Electricity
	assert.Error(t, e.SetKey("d1", "not-a-time"))

	var f FinalElectricity
	assert.Error(t, f.SetKey("d1", ""))
}

func TestApiKeyIsExpired(t *testing.T) {
	assert.False(t, ApiKey{}.IsExpired())

	future := time.Now().Add(time.Hour)
	assert.False(t, ApiKey{ExpiresAt: &future}.IsExpired())

	past := time.Now().Add(-time.Hour)
	assert.True(t, ApiKey{ExpiresAt: &past}.IsExpired())
}
