package replay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sreeshanth-soma/erpScraper/internal/scraper"
)

const dumpPage = `<!DOCTYPE html>
<html><head><title>ERP</title></head>
<body>
<div id="group-subjects-modal">
  <ul id="group-subject-list">
    <li class="subject-info" id="viewSession_1">Maths Present session <b>10 out of 15 | Percentage <b>66.67%</b></b></li>
    <li class="subject-info" id="viewSession_2">Physics Present session <b>20 out of 20 | Percentage <b>100.00%</b></b></li>
    <li class="subject-info" id="viewSession_3"><img src="/img/Ring-Preloader.gif"></li>
  </ul>
</div>
</body></html>`

func TestReader(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	res, err := Reader(strings.NewReader(dumpPage), ".subject-info", zap.New(core))
	require.NoError(t, err)

	require.Len(t, res.Fragments, 3)
	assert.Equal(t, "viewSession_1", res.Fragments[0].ID)
	assert.Equal(t, scraper.Fact{Attended: 10, Total: 15, Percentage: "66.67"}, res.Fragments[0].Fact)
	assert.ErrorIs(t, res.Fragments[2].Err, scraper.ErrPatternNotFound)

	assert.Equal(t, 30, res.Aggregate.Attended)
	assert.Equal(t, 35, res.Aggregate.Total)
	assert.Equal(t, 2, res.Aggregate.Parsed)
	assert.Equal(t, 1, res.Aggregate.Skipped)
	assert.Equal(t, "85.71", res.Aggregate.Percentage().String())

	assert.Equal(t, 1, logs.FilterMessage("Fragment skipped.").Len())
}

func TestReader_NoMatch(t *testing.T) {
	_, err := Reader(strings.NewReader(dumpPage), ".does-not-exist", zap.NewNop())
	assert.ErrorIs(t, err, ErrNoFragments)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.html")
	require.NoError(t, os.WriteFile(path, []byte(dumpPage), 0o600))

	res, err := File(path, "#group-subject-list li", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 35, res.Aggregate.Total)

	_, err = File(filepath.Join(t.TempDir(), "missing.html"), ".subject-info", zap.NewNop())
	assert.Error(t, err)
}
