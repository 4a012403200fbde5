package script_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "# smoke test\n" +
	"Open\thttp://x\t\t\n" +
	"\n" +
	"*** login\n" +
	"Click\tid=loginBtn\t@severity=critical\n" +
	"Type\t\tinto\tname\n" +
	"*** empty\n" +
	"   \n"

func TestReader_Read(t *testing.T) {
	scenarios, err := script.NewReader().Read("smoke.stanza", strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, scenarios, 2, "empty scenarios are dropped")

	main := scenarios[0]
	assert.Equal(t, script.DefaultScenario, main.Name)
	require.Len(t, main.Keywords, 1)
	open := main.Keywords[0]
	assert.Equal(t, []string{"Open", "http://x"}, open.Cells(), "trailing empty cells are trimmed")
	assert.Equal(t, 2, open.Line)
	assert.Equal(t, "smoke.stanza:2", open.Location())
	assert.Equal(t, domain.SeverityMajor, open.Severity)
	assert.Equal(t, domain.StatusUnrouted, open.Status)

	login := scenarios[1]
	assert.Equal(t, "login", login.Name)
	require.Len(t, login.Keywords, 2)
	assert.Equal(t, []string{"Click", "id=loginBtn"}, login.Keywords[0].Cells())
	assert.Equal(t, domain.SeverityCritical, login.Keywords[0].Severity)
	assert.Equal(t, "login", login.Keywords[0].Scenario)
	assert.Equal(t, []string{"Type", "", "into", "name"}, login.Keywords[1].Cells(), "inner empty cells are kept")
}

func TestReader_BadSeverity(t *testing.T) {
	_, err := script.NewReader().Read("bad", strings.NewReader("Open\tx\t@severity=huge\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad:1")
}

func TestReader_BadHeader(t *testing.T) {
	_, err := script.NewReader().Read("bad", strings.NewReader("***\n"))
	assert.Error(t, err)
}

func TestReader_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.stanza")
	require.NoError(t, os.WriteFile(path, []byte("\uFEFFPrint\thello\r\n"), 0o644))

	scenarios, err := script.NewReader().ReadFile(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "suite.stanza", scenarios[0].File)
	assert.Equal(t, []string{"Print", "hello"}, scenarios[0].Keywords[0].Cells())
}

func TestParseLine(t *testing.T) {
	kw, err := script.ParseLine("Click\tid=x\t@severity=minor\n")
	require.NoError(t, err)
	require.NotNil(t, kw)
	assert.Equal(t, []string{"Click", "id=x"}, kw.Cells())
	assert.Equal(t, domain.SeverityMinor, kw.Severity)

	for _, line := range []string{"", "  ", "# note\tx", "@severity=minor"} {
		kw, err := script.ParseLine(line)
		require.NoError(t, err)
		assert.Nil(t, kw, "line %q", line)
	}
}
