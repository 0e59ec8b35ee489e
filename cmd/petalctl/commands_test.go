package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalboard/petalboard-backend/internal/playlist"
)

func TestWriteReportText(t *testing.T) {
	var buf bytes.Buffer
	report := &playlist.Report{EventID: 3, Questions: []playlist.QuestionReport{
		{QuestionID: 10, PlaylistID: "pl-1", Tracks: 4, Created: true},
		{QuestionID: 11, Error: "create playlist: boom"},
	}}

	require.NoError(t, writeReport(&buf, "text", report))
	assert.Equal(t,
		"question 10: playlist pl-1 (created), 4 tracks, ok\n"+
			"question 11: playlist -, 0 tracks, error: create playlist: boom\n",
		buf.String())
}

func TestWriteReportSkipped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "text", &playlist.Report{EventID: 3, Skipped: true}))
	assert.Contains(t, buf.String(), "skipped")
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "json", &playlist.Report{EventID: 3}))

	var decoded playlist.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, uint(3), decoded.EventID)
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--format", "yaml", "sync", "--event", "1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestSyncRequiresEvent(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"sync"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--event")
}
