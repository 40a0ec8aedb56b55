package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamDir(t *testing.T) {
	assert.Equal(t, "data/streams/chan1", StreamDir("data/streams", "chan1"))
}
