package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"created_at", "key", "action"},
		Rows: []map[string]string{
			{"created_at": "2026-10-01T08:00:00Z", "key": "首页", "action": "update"},
			{"created_at": "2026-10-02T08:00:00Z", "key": "home", "action": "restore"},
		},
	}
}

func TestCSVExporterWritesBOMAndRows(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "created_at,key,action\n2026-10-01T08:00:00Z,首页,update\n2026-10-02T08:00:00Z,home,restore\n", string(out[len(utf8BOM):]))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRendersWithoutFont(t *testing.T) {
	out, err := NewPDFExporter("").Render(sampleDataset(), "History 首页")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestLatin1AndTruncate(t *testing.T) {
	assert.Equal(t, "caf\xe9 ??", latin1("café 首页"))
	long := make([]rune, 100)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, []rune(truncate(string(long))), maxCellText)
}
