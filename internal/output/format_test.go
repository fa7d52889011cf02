package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	f, err = ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRows_CSV(t *testing.T) {
	u, out, _ := newTestUI()
	err := u.Rows(FormatCSV, []string{"Employee", "Minutes"}, [][]string{{"anna", "95"}, {"Weber, Ben", "10"}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Employee,Minutes", lines[0])
	assert.Equal(t, `"Weber, Ben",10`, lines[2])
}

func TestRows_Markdown(t *testing.T) {
	u, out, _ := newTestUI()
	err := u.Rows(FormatMarkdown, []string{"Category", "Time"}, [][]string{{"drafting", "1h 35m"}})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "|")
	assert.Contains(t, out.String(), "1h 35m")
}

func TestRows_Table(t *testing.T) {
	u, out, _ := newTestUI()
	err := u.Rows(FormatTable, []string{"Category", "Time"}, [][]string{{"survey", "30m"}})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "survey")
}

func TestJSON(t *testing.T) {
	u, out, _ := newTestUI()
	require.NoError(t, u.JSON(map[string]int{"minutes": 95}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 95, got["minutes"])
}
