package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactAndPretty(t *testing.T) {
	v := map[string]any{"a": 1}
	assert.Equal(t, `{"a":1}`, Compact(v))
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty(v))
}

func TestCompactFallsBackForUnencodable(t *testing.T) {
	ch := make(chan int)
	assert.NotEmpty(t, Compact(ch))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]byte(`{"x":[1,2]}`)))
	assert.False(t, Valid([]byte(`{x:1}`)))
}
