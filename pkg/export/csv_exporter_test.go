package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	sheet := Sheet{
		Headers: []string{"role", "principal"},
		Rows:    [][]string{{"Bible Reading", "Silva, Ana"}},
	}

	out, err := NewCSVExporter().Render(sheet)
	require.NoError(t, err)
	assert.Equal(t, "role,principal\nBible Reading,\"Silva, Ana\"\n", string(out))

	out, err = NewCSVExporter(WithComma(';'), WithCRLF()).Render(sheet)
	require.NoError(t, err)
	assert.Equal(t, "role;principal\r\nBible Reading;Silva, Ana\r\n", string(out))
}

func TestCSVExporterRejectsMalformedSheets(t *testing.T) {
	_, err := NewCSVExporter().Render(Sheet{})
	require.Error(t, err)

	_, err = NewCSVExporter().Render(Sheet{Headers: []string{"a", "b"}, Rows: [][]string{{"only"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}
