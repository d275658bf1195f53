package message

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexQuant/consts"
	"github.com/dyike/CortexQuant/models"
)

func TestMessageBufferKeepsMostRecent(t *testing.T) {
	buf := NewMessageBuffer(2)

	Emit(buf, models.LevelInfo, "one")
	Emit(buf, models.LevelInfo, "two")
	Emit(buf, models.LevelError, "three")

	msgs := buf.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Message)
	assert.Equal(t, "three", msgs[1].Message)
	assert.Equal(t, models.LevelError, msgs[1].Level)
}

func TestMessageBufferAgentStatus(t *testing.T) {
	buf := NewMessageBuffer(10)
	assert.Equal(t, consts.State_Pending, buf.AgentStatus(consts.Agent_TechnicalAnalyst))

	buf.UpdateAgentStatus(consts.Agent_TechnicalAnalyst, consts.State_Failed)
	assert.Equal(t, consts.State_Failed, buf.AgentStatus(consts.Agent_TechnicalAnalyst))

	buf.ResetAgents()
	assert.Equal(t, consts.State_Pending, buf.AgentStatus(consts.Agent_TechnicalAnalyst))
}

func TestChannelDropsWhenFull(t *testing.T) {
	ch := NewChannel(1)

	Emit(ch, models.LevelInfo, "kept")
	Emit(ch, models.LevelInfo, "dropped")

	require.Len(t, ch.C, 1)
	assert.Equal(t, "kept", (<-ch.C).Message)
}

func TestEmitNilIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { Emit(nil, models.LevelInfo, "nobody listening") })
}

func TestMultiAndLogger(t *testing.T) {
	var out bytes.Buffer
	var got []string
	m := Multi{
		Logger{Log: zerolog.New(&out)},
		Func(func(e models.LogEvent) { got = append(got, e.Message) }),
		nil,
	}

	Emit(m, models.LevelWarning, "no price")

	assert.Equal(t, []string{"no price"}, got)
	assert.Contains(t, out.String(), `"level":"warn"`)
	assert.Contains(t, out.String(), "no price")
}
