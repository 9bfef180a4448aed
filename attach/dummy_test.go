package attach

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_DummyAttacher_SignaledImmediately(t *testing.T) {
	var a DummyAttacher

	signaled, err := a.Signaled()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, signaled.Wait(ctx))

	signal, err := a.Signal(1234)
	require.NoError(t, err)
	require.NoError(t, signal.Send(ctx))
	require.NoError(t, signal.Close())
}
