package importer

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/poiesic/vecport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReport_ListsAllCollections(t *testing.T) {
	report := newReport(false)

	require.Len(t, report.Collections, 3)
	assert.Equal(t, core.CollectionChunks, report.Collections[0].Collection)
	assert.Equal(t, core.CollectionEmbeddings, report.Collections[1].Collection)
	assert.Equal(t, core.CollectionConversations, report.Collections[2].Collection)
	assert.NotEmpty(t, report.RunID)
}

func TestReport_Section(t *testing.T) {
	report := newReport(false)

	section := report.section(core.CollectionEmbeddings)
	require.NotNil(t, section)
	section.Counts.Written = 7
	assert.Equal(t, 7, report.Collections[1].Counts.Written, "section returns a mutable pointer")

	assert.Nil(t, report.section(core.Collection("bogus")))
}

func TestReport_CoverageFromRunCounts(t *testing.T) {
	report := newReport(false)
	report.section(core.CollectionChunks).Counts.Written = 3
	report.section(core.CollectionEmbeddings).Counts.Written = 2

	report.computeCoverage()
	assert.InDelta(t, 2.0/3.0, report.Coverage, 0.001)
}

func TestReport_CoverageFallsBackToStoreCounts(t *testing.T) {
	report := newReport(false)
	report.section(core.CollectionChunks).StoreCount = 10
	report.section(core.CollectionEmbeddings).StoreCount = 4

	report.computeCoverage()
	assert.InDelta(t, 0.4, report.Coverage, 0.001, "a no-op re-run reports coverage from the store")
}

func TestReport_CoverageEmptyStore(t *testing.T) {
	report := newReport(false)
	report.computeCoverage()
	assert.Equal(t, 0.0, report.Coverage)
}

func TestReport_WriteText(t *testing.T) {
	report := newReport(false)
	chunks := report.section(core.CollectionChunks)
	chunks.SourceCount = 5
	chunks.Counts.Written = 4
	chunks.Counts.Skipped = 1
	embeddings := report.section(core.CollectionEmbeddings)
	embeddings.Counts.Written = 2
	embeddings.Counts.Rejected = 1
	embeddings.Error = "dimension mismatch"
	report.Failed = core.CollectionEmbeddings
	report.computeCoverage()

	var buf bytes.Buffer
	report.WriteText(&buf)

	output := buf.String()
	assert.Contains(t, output, "chunks")
	assert.Contains(t, output, "coverage: 50.0%")
	assert.Contains(t, output, "error: dimension mismatch")
	assert.Contains(t, output, "FAILED on collection embeddings")
}

func TestReport_WriteTextDryRun(t *testing.T) {
	report := newReport(true)

	var buf bytes.Buffer
	report.WriteText(&buf)
	assert.Contains(t, buf.String(), "dry run: no rows were written")
}

func TestReport_WriteJSON(t *testing.T) {
	report := newReport(false)
	report.section(core.CollectionChunks).Counts.Written = 3

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.RunID, decoded["run_id"])

	collections, ok := decoded["collections"].([]any)
	require.True(t, ok)
	require.Len(t, collections, 3)
	first := collections[0].(map[string]any)
	assert.Equal(t, "chunks", first["collection"])
}
