package attendance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePercentage(t *testing.T) {
	tests := []struct {
		name     string
		attended int
		total    int
		want     string
	}{
		{"two subjects", 30, 35, "85.71"},
		{"perfect", 20, 20, "100.00"},
		{"none attended", 0, 12, "0.00"},
		{"exact eighth", 1, 8, "12.50"},
		{"two thirds", 2, 3, "66.67"},
		{"no classes", 0, 0, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputePercentage(tt.attended, tt.total).String())
		})
	}
}

func TestComputePercentage_MatchesRoundedRatio(t *testing.T) {
	for total := 1; total <= 60; total++ {
		for attended := 0; attended <= total; attended++ {
			v, ok := ComputePercentage(attended, total).Value()
			require.True(t, ok)
			assert.InDelta(t, float64(attended)/float64(total)*100, v, 0.005+1e-9)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestPercentageJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A Percentage `json:"a"`
		B Percentage `json:"b"`
	}{KnownPercentage(85.71), Unknown})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 85.71, "b": "unknown"}`, string(out))

	var back struct {
		A Percentage `json:"a"`
		B Percentage `json:"b"`
		C Percentage `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 85.71, "b": "unknown", "c": null}`), &back))
	assert.Equal(t, KnownPercentage(85.71), back.A)
	assert.False(t, back.B.IsKnown())
	assert.False(t, back.C.IsKnown())

	assert.Error(t, json.Unmarshal([]byte(`{"a": "lots"}`), &back))
}

func TestPercentagePtr(t *testing.T) {
	assert.Nil(t, Unknown.Ptr())
	p := KnownPercentage(50)
	require.NotNil(t, p.Ptr())
	assert.Equal(t, 50.0, *p.Ptr())
	assert.Equal(t, p, PercentageFromPtr(p.Ptr()))
	assert.Equal(t, Unknown, PercentageFromPtr(nil))
}

func TestRecordValidate(t *testing.T) {
	ok := Record{Owner: "me", TotalClasses: 35, ClassesAttended: 30, Percentage: KnownPercentage(85.71)}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.ClassesAttended = 36
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Owner = ""
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Percentage = KnownPercentage(120)
	assert.Error(t, bad.Validate())

	empty := Record{Owner: "me", Percentage: Unknown}
	assert.NoError(t, empty.Validate())
}

func TestDateOf(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on the 1st is already the 2nd in India.
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-02", DateOf(at, ist).Format(time.DateOnly))
	assert.Equal(t, "2026-03-01", DateOf(at, time.UTC).Format(time.DateOnly))
	assert.Equal(t, time.UTC, DateOf(at, ist).Location())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, StatusOnTrack, Classify(KnownPercentage(75), 75))
	assert.Equal(t, StatusOnTrack, Classify(KnownPercentage(85.71), 75))
	assert.Equal(t, StatusBelowGoal, Classify(KnownPercentage(74.99), 75))
	assert.Equal(t, StatusUnknown, Classify(Unknown, 75))
}
