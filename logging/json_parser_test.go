package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const repoPublishOutput = `{"Time":"2026-01-02T15:04:05Z","Action":"run","Package":"github.com/omaciel/pulp-checks/repos","Test":"TestRepoPublish"}
{"Time":"2026-01-02T15:04:05Z","Action":"output","Package":"github.com/omaciel/pulp-checks/repos","Test":"TestRepoPublish","Output":"=== RUN   TestRepoPublish\n"}
{"Time":"2026-01-02T15:04:06Z","Action":"output","Package":"github.com/omaciel/pulp-checks/repos","Test":"TestRepoPublish","Output":"    repo_test.go:25: publishing zoo repository\n"}
{"Time":"2026-01-02T15:04:07Z","Action":"output","Package":"github.com/omaciel/pulp-checks/repos","Test":"TestRepoPublish","Output":"--- FAIL: TestRepoPublish (2.00s)\n"}
{"Time":"2026-01-02T15:04:07Z","Action":"fail","Package":"github.com/omaciel/pulp-checks/repos","Test":"TestRepoPublish","Elapsed":2}
`

func TestJSONOutputParserPlainText(t *testing.T) {
	got := extractPlainText(repoPublishOutput)

	assert.Contains(t, got, "=== RUN   TestRepoPublish")
	assert.Contains(t, got, "repo_test.go:25: publishing zoo repository")
	assert.Contains(t, got, "--- FAIL: TestRepoPublish (2.00s)")

	// Non-output actions contribute nothing
	assert.NotContains(t, got, `"Action"`)
}

func TestJSONOutputParserSkipsGarbage(t *testing.T) {
	input := strings.Join([]string{
		"plain text line",
		"",
		`{"Action":"output","Test":"TestA","Output":"first\n"}`,
		`{not valid json}`,
		`{"Action":"pass","Test":"TestA"}`,
		`{"Action":"output","Test":"TestA","Output":"second\n"}`,
	}, "\n")

	assert.Equal(t, "first\nsecond\n", extractPlainText(input))
}

func TestJSONOutputParserFromReader(t *testing.T) {
	parser := NewJSONOutputParserFromReader(strings.NewReader(repoPublishOutput))

	var count int
	parser.ProcessJSONOutput(func(jsonData map[string]interface{}, outputText string) {
		count++
		assert.Equal(t, "TestRepoPublish", jsonData["Test"])
		assert.NotEmpty(t, outputText)
	})
	assert.Equal(t, 3, count)
}

func TestGetErrorInfo(t *testing.T) {
	input := strings.Join([]string{
		`{"Action":"output","Test":"TestRepoPublish","Output":"        \tError Trace:\trepo_test.go:25\n"}`,
		`{"Action":"output","Test":"TestRepoPublish","Output":"        \tError:      \tNot equal\n"}`,
		`{"Action":"output","Test":"TestRepoPublish","Output":"        \texpected: 200\n"}`,
		`{"Action":"output","Test":"TestRepoPublish","Output":"        \tactual  : 500\n"}`,
		`{"Action":"output","Test":"TestRepoPublish","Output":"        \tMessages:   \tpublish endpoint returned an error\n"}`,
	}, "\n")

	info := extractErrorData(input)

	assert.Equal(t, "TestRepoPublish", info.TestName)
	assert.Equal(t, "Not equal", info.ErrorMessage)
	assert.Equal(t, "200", info.Expected)
	assert.Equal(t, ": 500", info.Actual)
	assert.Contains(t, info.Messages, "publish endpoint returned an error")
	assert.Contains(t, info.ErrorTrace, "repo_test.go:25")
}

func TestGetErrorInfoEmptyInput(t *testing.T) {
	info := extractErrorData("")
	assert.Empty(t, info.TestName)
	assert.Empty(t, info.ErrorMessage)
}
