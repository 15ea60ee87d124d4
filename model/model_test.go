package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var timeZero = time.Time{}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	module := "run"
	id := GenerateUUIDWithSuffix(module)
	assert.True(t, strings.HasPrefix(id, module+"_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix(module))
}
