package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type decisionPayload struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func TestParseJSONClean(t *testing.T) {
	out, err := ParseJSON[decisionPayload](`{"decision": "MERGE", "reason": "same problem"}`)
	assert.NoError(t, err)
	assert.Equal(t, "MERGE", out.Decision)
}

func TestParseJSONWithMarkdownFence(t *testing.T) {
	response := "Here is my answer:\n```json\n{\"decision\": \"DISTINCT\", \"reason\": \"different scales\"}\n```\nHope that helps."
	out, err := ParseJSON[decisionPayload](response)
	assert.NoError(t, err)
	assert.Equal(t, "DISTINCT", out.Decision)
	assert.Equal(t, "different scales", out.Reason)
}

func TestParseJSONRepairsTrailingComma(t *testing.T) {
	out, err := ParseJSON[decisionPayload](`{"decision": "MERGE", "reason": "dup",}`)
	assert.NoError(t, err)
	assert.Equal(t, "MERGE", out.Decision)
}

func TestParseJSONNoObject(t *testing.T) {
	_, err := ParseJSON[decisionPayload]("I cannot answer that.")
	assert.Error(t, err)
}
