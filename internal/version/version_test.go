package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFull_PrefixedWithAppName(t *testing.T) {
	assert.True(t, strings.HasPrefix(Full(), AppName+"/"))
}

func TestGitCommit_NeverEmpty(t *testing.T) {
	// Under `go test` there is no VCS-embedded build info, so this falls
	// back to "dev" rather than an empty string.
	assert.NotEmpty(t, GitCommit)
}
