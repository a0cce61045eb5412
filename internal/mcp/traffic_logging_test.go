package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolName(t *testing.T) {
	assert.Equal(t, "create_project", toolName(`{"name":"create_project","arguments":{}}`))
	assert.Empty(t, toolName("<nil>"))
}

func TestEncodePayload(t *testing.T) {
	assert.Equal(t, "<nil>", encodePayload(nil))
	assert.Equal(t, `{"a":1}`, encodePayload(map[string]int{"a": 1}))
	assert.Equal(t, "chan int", encodePayload(make(chan int)))
}
