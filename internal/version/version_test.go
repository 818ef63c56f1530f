package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	ua := UserAgent()

	assert.True(t, strings.HasPrefix(ua, "scorecloud/"), "user agent: %s", ua)
	assert.Contains(t, ua, runtime.GOOS)
	assert.Contains(t, ua, runtime.GOARCH)
}

func TestFull(t *testing.T) {
	assert.Contains(t, Full(), "scorecloud version")
}

func TestPlatform(t *testing.T) {
	assert.Contains(t, Platform(), runtime.GOOS)
}
