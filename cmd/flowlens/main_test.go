package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("2 of 3 artifacts failed")))
	assert.Equal(t, 130, exitCode(fmt.Errorf("batch: %w", context.Canceled)))
}
