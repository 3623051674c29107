package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	ds := Dataset{
		Title: "Mentorship requests",
		Columns: []Column{
			{Key: "mentee", Label: "Mentee"},
			{Key: "mentor", Label: "Mentor"},
			{Key: "status", Label: "Status", Width: 0.5},
		},
	}
	ds.AddRow(map[string]string{"mentee": "Ravi, K", "mentor": "Dr. Mehta", "status": "pending"})
	ds.AddRow(map[string]string{"mentee": "Asha", "status": "accepted"})
	return ds
}

func TestCSVRendererOrdersColumns(t *testing.T) {
	out, err := NewCSVRenderer().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Mentee,Mentor,Status", lines[0])
	assert.Equal(t, `"Ravi, K",Dr. Mehta,pending`, lines[1])
	assert.Equal(t, "Asha,,accepted", lines[2])
}

func TestRenderersRequireColumns(t *testing.T) {
	_, err := NewCSVRenderer().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFRenderer().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRendererProducesDocument(t *testing.T) {
	ds := sampleDataset()
	for i := 0; i < 60; i++ {
		ds.AddRow(map[string]string{"mentee": "Student", "mentor": "Mentor", "status": "rejected"})
	}
	out, err := NewPDFRenderer().Render(ds)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 40))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 20))
}
