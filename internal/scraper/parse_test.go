package scraper

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFragment(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		want    Fact
		wantErr error
	}{
		{
			name:   "portal fragment",
			markup: `<div id="viewSession_81">Present session <b>10 out of 15 | Percentage <b>66.67%</b></b></div>`,
			want:   Fact{Attended: 10, Total: 15, Percentage: "66.67"},
		},
		{
			name:   "full attendance",
			markup: `<span>Present session <b>20 out of 20 | Percentage <b>100%</b></b></span>`,
			want:   Fact{Attended: 20, Total: 20, Percentage: "100"},
		},
		{
			name:   "surrounding markup is ignored",
			markup: "<div>\n<img src=\"x.png\">Present session <b>0 out of 3 | Percentage <b>0.00%</b></b>\n</div>",
			want:   Fact{Attended: 0, Total: 3, Percentage: "0.00"},
		},
		{
			name:    "placeholder fragment",
			markup:  `<div id="viewSession_82">Present session <b>-</b></div>`,
			wantErr: ErrPatternNotFound,
		},
		{
			name:    "preloader still showing",
			markup:  `<div id="viewSession_83"><img src="assets/Ring-Preloader.gif"></div>`,
			wantErr: ErrPatternNotFound,
		},
		{
			name:    "more attended than held",
			markup:  `<div id="viewSession_84">Present session <b>16 out of 15 | Percentage <b>106.67%</b></b></div>`,
			wantErr: ErrImpossibleCounts,
		},
		{
			name:    "empty",
			markup:  "",
			wantErr: ErrPatternNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFragment(tt.markup)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseFragment() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFragment_NumberOverflow(t *testing.T) {
	_, err := ParseFragment(`Present session <b>99999999999999999999999 out of 1 | Percentage <b>1%</b></b>`)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPatternNotFound))
	assert.Contains(t, err.Error(), "attended count")
}

func TestAggregate(t *testing.T) {
	t.Run("two subjects", func(t *testing.T) {
		agg := AggregateFacts([]Fact{{Attended: 10, Total: 15}, {Attended: 20, Total: 20}})
		assert.Equal(t, 30, agg.Attended)
		assert.Equal(t, 35, agg.Total)
		assert.Equal(t, "85.71", agg.Percentage().String())
		assert.Equal(t, 2, agg.Parsed)
	})

	t.Run("nothing matched", func(t *testing.T) {
		agg := AggregateFacts(nil)
		assert.Equal(t, 0, agg.Attended)
		assert.Equal(t, 0, agg.Total)
		assert.False(t, agg.Percentage().IsKnown())
		assert.Equal(t, "unknown", agg.Percentage().String())
	})

	t.Run("skips are counted separately", func(t *testing.T) {
		var agg Aggregate
		agg.Add(Fact{Attended: 1, Total: 2})
		agg.Skip()
		assert.Equal(t, 1, agg.Parsed)
		assert.Equal(t, 1, agg.Skipped)
		assert.Equal(t, "50.00", agg.Percentage().String())
	})
}

func TestIDSelector(t *testing.T) {
	assert.Equal(t, "#viewSession_81", idSelector("viewSession_81"))
	assert.Equal(t, `[id="81:a"]`, idSelector("81:a"))
	assert.Equal(t, `[id="say \"hi\""]`, idSelector(`say "hi"`))
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{
		Kind:     KindAuthenticationTimeout,
		Step:     "wait for the dashboard",
		Selector: ".dashboard",
		Bound:    testBound,
		Err:      errors.New("boom"),
	}
	assert.Equal(t, `authentication timeout while trying to wait for the dashboard (selector ".dashboard") after 40ms: boom`, err.Error())
	assert.True(t, IsKind(err, KindAuthenticationTimeout))
	assert.False(t, IsKind(err, KindAuthentication))
	assert.True(t, KindAuthenticationTimeout.Timeout())
	assert.False(t, KindExtraction.Timeout())
	assert.Equal(t, KindAuthenticationTimeout, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}
