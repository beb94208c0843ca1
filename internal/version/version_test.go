// ABOUTME: Tests for version information
// ABOUTME: Checks the banner string and release number shape
package version

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "pcmbridge "+Version, String())
}

func TestVersionIsSemver(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^\d+\.\d+\.\d+$`), Version)
}
