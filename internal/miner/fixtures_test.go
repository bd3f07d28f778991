package miner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTestFile(t *testing.T) {
	tests := []struct {
		path    string
		content string
		want    bool
	}{
		{"AddressVerifyTest.java", "", true},
		{"address.spec.js", "", true},
		{"verify.feature", "", true},
		{"Verifier.java", "class Verifier {}", false},
		{"helpers.js", "describe('verify', () => {})", true},
		{"conftest.py", "def test_verify(): pass", true},
		{"main.go", "func TestVerify(t *testing.T) {}", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isTestFile(tt.path, tt.content), "path %s", tt.path)
	}
}

func TestClassifySampleBackwardScan(t *testing.T) {
	lines := []string{
		"// corrected address cases",
		`buildAddress("600 HARLAN CT", "Bonaire", "GA", "")`,
		"",
		"// bogus input",
		`buildAddress("1 NOWHERE BLVD", "Bonaire", "GA", "31005")`,
	}
	assert.Equal(t, "CORRECTED", classifySample(lines, 1))
	assert.Equal(t, "NOT_VERIFIED", classifySample(lines, 4))
	// A sample above any marker defaults to VERIFIED.
	assert.Equal(t, "VERIFIED", classifySample([]string{"x", "y"}, 1))
}

func TestClassifySampleNegatedVocabulary(t *testing.T) {
	// "not verified" and "invalid address" contain VERIFIED vocabulary
	// as substrings; the more specific category must win.
	assert.Equal(t, "NOT_VERIFIED", classifySample([]string{"// not verified address"}, 0))
	assert.Equal(t, "NOT_VERIFIED", classifySample([]string{"// invalid address"}, 0))
	assert.Equal(t, "VERIFIED", classifySample([]string{"// verified address"}, 0))
}

func TestMineTestFileDedupesAcrossExtractors(t *testing.T) {
	// The same fixture decodes under both the strict and relaxed passes;
	// only one sample may survive.
	content := `{"streets": ["600 HARLAN CT"], "city": "Bonaire", "stateOrProvince": "GA", "postalCode": "31005"}`

	acc := mineTestFile(content, DefaultExtractors(), newAccumulator())
	assert.Len(t, acc.samples["VERIFIED"], 1)
}

func TestMineAssertions(t *testing.T) {
	lines := []string{
		`assertEquals("VERIFIED", result.getResponseCode());`,
		`expect(responseCode).toBe('CORRECTED')`,
		`if (responseCode === "NOT_VERIFIED") {`,
		`expect(responseCode).toBe('SOMETHING_ELSE')`,
	}
	acc := mineAssertions(lines, newAccumulator())

	require.Len(t, acc.assertionHints, 2)
	assert.Equal(t, "Existing tests assert responseCode CORRECTED", acc.assertionHints[0].Hint)
	assert.Equal(t, "Existing tests assert responseCode NOT_VERIFIED", acc.assertionHints[1].Hint)
}

func TestMineEdgeCaseComments(t *testing.T) {
	lines := []string{
		"// edge case: street exists but the number does not, returns STREET_PARTIAL",
		`buildAddress("99999 HARLAN CT", "Bonaire", "GA", "31005")`,
	}
	acc := mineEdgeCaseComments(lines, DefaultExtractors(), newAccumulator())

	require.Len(t, acc.edgeCases, 1)
	ec := acc.edgeCases[0]
	assert.Contains(t, ec.Name, "edge case: street exists")
	assert.Equal(t, "Returns STREET_PARTIAL", ec.ExpectedBehavior)
	assert.Equal(t, "99999 HARLAN CT", ec.TestData["streets"].([]any)[0])
}

func TestMineEdgeCaseCommentsNoAddressNearby(t *testing.T) {
	lines := []string{
		"// edge case: something abstract",
		"someUnrelatedCall()",
	}
	acc := mineEdgeCaseComments(lines, DefaultExtractors(), newAccumulator())
	assert.Empty(t, acc.edgeCases)
}

func TestMineEdgeCaseCommentsNoCodeMentioned(t *testing.T) {
	lines := []string{
		"# special handling for military addresses",
		`buildAddress("UNIT 2050", "APO", "AE", "09501")`,
	}
	acc := mineEdgeCaseComments(lines, DefaultExtractors(), newAccumulator())

	require.Len(t, acc.edgeCases, 1)
	assert.Equal(t, "Behavior documented in test comments", acc.edgeCases[0].ExpectedBehavior)
}

func TestCommentText(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"// slash comment", "slash comment"},
		{"  # hash comment", "hash comment"},
		{"/* block start", "block start"},
		{" * continuation */", "continuation"},
		{"code()", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, commentText(tt.line), "line %q", tt.line)
	}
}

func TestNameFromComment(t *testing.T) {
	assert.Equal(t, "short", nameFromComment("short"))

	long := strings.Repeat("a", 100)
	got := nameFromComment(long)
	assert.Len(t, got, 60)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestMineFixturesWalksConventionalDirs(t *testing.T) {
	root := t.TempDir()
	testDir := filepath.Join(root, "src", "test")
	require.NoError(t, os.MkdirAll(testDir, 0o750))

	content := strings.Join([]string{
		"// verified address",
		`@Test void ok() { verify(new Address("600 HARLAN CT", "Bonaire", "GA", "31005")); }`,
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "AddressTest.java"), []byte(content), 0o600))

	// Files outside conventional test directories are never visited.
	require.NoError(t, os.WriteFile(filepath.Join(root, "NotWalked.java"), []byte(content), 0o600))

	acc := mineFixtures(root, DefaultExtractors(), newAccumulator())
	assert.Equal(t, 1, acc.filesScanned)
	assert.Equal(t, 1, acc.testFiles)
	require.Len(t, acc.samples["VERIFIED"], 1)
	assert.Equal(t, "Bonaire", acc.samples["VERIFIED"][0].City)
}
