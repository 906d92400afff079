package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Run("Return value when set", func(t *testing.T) {
		t.Setenv("KGRAPH_TEST_VALUE", "set")
		assert.Equal(t, "set", GetEnv("KGRAPH_TEST_VALUE", "fallback"))
	})

	t.Run("Return fallback when empty", func(t *testing.T) {
		t.Setenv("KGRAPH_TEST_VALUE", "  ")
		assert.Equal(t, "fallback", GetEnv("KGRAPH_TEST_VALUE", "fallback"))
	})
}

func TestGetEnvNumbers(t *testing.T) {
	t.Run("Parse int and float", func(t *testing.T) {
		t.Setenv("KGRAPH_TEST_INT", "42")
		t.Setenv("KGRAPH_TEST_FLOAT", "0.85")
		assert.Equal(t, 42, GetEnvInt("KGRAPH_TEST_INT", 1))
		assert.InDelta(t, 0.85, GetEnvFloat("KGRAPH_TEST_FLOAT", 1), 1e-9)
	})

	t.Run("Fall back on malformed values", func(t *testing.T) {
		t.Setenv("KGRAPH_TEST_INT", "many")
		t.Setenv("KGRAPH_TEST_FLOAT", "x")
		t.Setenv("KGRAPH_TEST_DURATION", "soon")
		assert.Equal(t, 7, GetEnvInt("KGRAPH_TEST_INT", 7))
		assert.Equal(t, 0.5, GetEnvFloat("KGRAPH_TEST_FLOAT", 0.5))
		assert.Equal(t, time.Second, GetEnvDuration("KGRAPH_TEST_DURATION", time.Second))
	})

	t.Run("Fall back when unset", func(t *testing.T) {
		assert.Equal(t, 3, GetEnvInt("KGRAPH_TEST_UNSET_INT", 3))
	})
}
