package debug

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dyike/CortexQuant/config"
)

func TestEinoDebuggerDisabled(t *testing.T) {
	d := NewEinoDebugger(&config.Config{EinoDebugPort: 52538}, zerolog.Nop())
	called := false
	d.init = func(context.Context) error {
		called = true
		return nil
	}

	assert.NoError(t, d.Initialize(context.Background()))
	assert.False(t, called)
	assert.Empty(t, d.GetDebugURL())
}

func TestEinoDebuggerEnabled(t *testing.T) {
	d := NewEinoDebugger(&config.Config{EinoDebugEnabled: true, EinoDebugPort: 9000}, zerolog.Nop())
	d.init = func(context.Context) error { return errors.New("port in use") }

	err := d.Initialize(context.Background())

	assert.ErrorContains(t, err, "port in use")
	assert.Equal(t, "http://localhost:9000", d.GetDebugURL())
}
