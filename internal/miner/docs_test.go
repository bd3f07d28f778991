package miner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMineDocumentation(t *testing.T) {
	root := t.TempDir()
	readme := `# Address Verification

Call POST /address/verify with a JSON body.
Health checks: GET /health for liveness.
Plain prose mentioning delete and get is not an endpoint.
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte(readme), 0o600))

	acc := mineDocumentation(root, newAccumulator())
	require.Len(t, acc.docHints, 2)

	assert.Equal(t, "documentation", acc.docHints[0].Category)
	assert.Equal(t, "Documented endpoint: POST /address/verify", acc.docHints[0].Hint)
	assert.Equal(t, "Call POST /address/verify with a JSON body.", acc.docHints[0].Example)
	assert.Equal(t, "Documented endpoint: GET /health", acc.docHints[1].Hint)
}

func TestMineDocumentationDocsDir(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "api.md"),
		[]byte("PUT /address/verify/batch\n"), 0o600))

	acc := mineDocumentation(root, newAccumulator())
	require.Len(t, acc.docHints, 1)
	assert.Equal(t, "Documented endpoint: PUT /address/verify/batch", acc.docHints[0].Hint)
}

func TestMineDocumentationNoReadme(t *testing.T) {
	acc := mineDocumentation(t.TempDir(), newAccumulator())
	assert.Empty(t, acc.docHints)
	assert.Equal(t, 0, acc.filesScanned)
}
