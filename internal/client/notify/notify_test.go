package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/foodshare/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_FormatsLevelAndError(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriter(&buf)
	ctx := context.Background()

	n.Notify(ctx, Notice{Level: Success, Message: "listing added"})
	n.Notify(ctx, Notice{Level: Failure, Message: "delete failed", Err: errors.New("boom")})

	assert.Equal(t, "[success] listing added\n[failure] delete failed: boom\n", buf.String())
}

func TestMultiAndMemory(t *testing.T) {
	a, b := &Memory{}, &Memory{}
	m := Multi{a, b, Discard{}, Log{Logger: logging.Nop()}}

	m.Notify(context.Background(), Notice{Level: Info, Message: "hi"})

	require.Len(t, a.Notices(), 1)
	require.Len(t, b.Notices(), 1)
	assert.Equal(t, "hi", a.Notices()[0].Message)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "info", Info.String())
	assert.Equal(t, "failure", Failure.String())
}
