package helper

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	t.Run("Wrap error with step", func(t *testing.T) {
		base := errors.New("boom")
		err := NewError("scan", base)
		assert.EqualError(t, err, "scan: boom", "Expected step prefix in error message")
		assert.ErrorIs(t, err, base, "Expected wrapped error to be reachable")
	})

	t.Run("Nil error stays nil", func(t *testing.T) {
		assert.NoError(t, NewError("scan", nil), "Expected nil error to stay nil")
	})
}

func TestMapNotFound(t *testing.T) {
	t.Run("Map sql.ErrNoRows to ErrNotFound", func(t *testing.T) {
		err := MapNotFound("select resource", sql.ErrNoRows)
		assert.ErrorIs(t, err, ErrNotFound, "Expected ErrNotFound")
	})

	t.Run("Keep other errors", func(t *testing.T) {
		base := errors.New("connection refused")
		err := MapNotFound("select resource", base)
		assert.ErrorIs(t, err, base, "Expected original error")
		assert.NotErrorIs(t, err, ErrNotFound, "Expected no ErrNotFound")
	})
}
