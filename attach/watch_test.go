package attach

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_WatchAttacher_HappyPath(t *testing.T) {
	var a WatchAttacher
	pid := os.Getpid()

	path, err := ownWitnessFilePath(pid)
	require.NoError(t, err)
	if err := os.Remove(path); err != nil {
		require.True(t, os.IsNotExist(err), "clearing witness file: %v", err)
	}
	defer os.Remove(path)

	signaled, err := a.Signaled()
	require.NoError(t, err)

	signal, err := a.Signal(pid)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, signal.Send(ctx))

	waitErr := make(chan error, 1)
	go func() { waitErr <- signaled.Wait(ctx) }()

	select {
	case err := <-waitErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("signaled never resolved")
	}

	require.NoError(t, signal.Close())

	exists, err := fileExists(path)
	require.NoError(t, err)
	require.False(t, exists, "witness file should be removed after signal handle Close")
}

func Test_WatchAttacher_IgnoresSpuriousCreate(t *testing.T) {
	var a WatchAttacher
	pid := os.Getpid()

	path, err := ownWitnessFilePath(pid)
	require.NoError(t, err)
	_ = os.Remove(path)
	defer os.Remove(path)

	signaled, err := a.Signaled()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	waitErr := make(chan error, 1)
	go func() { waitErr <- signaled.Wait(ctx) }()

	wrongPath := path + "_wrong"
	f, err := os.Create(wrongPath)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	defer os.Remove(wrongPath)

	select {
	case err := <-waitErr:
		t.Fatalf("signaled resolved on an unrelated file create: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	signal, err := a.Signal(pid)
	require.NoError(t, err)
	require.NoError(t, signal.Send(ctx))
	defer signal.Close()

	select {
	case err := <-waitErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("signaled never resolved after the legitimate witness file appeared")
	}
}

func Test_WatchAttacher_ReArmAfterDrop(t *testing.T) {
	var a WatchAttacher
	pid := os.Getpid()

	path, err := ownWitnessFilePath(pid)
	require.NoError(t, err)
	_ = os.Remove(path)
	defer os.Remove(path)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	signal, err := a.Signal(pid)
	require.NoError(t, err)
	require.NoError(t, signal.Send(ctx))
	require.NoError(t, signal.Close())

	exists, err := fileExists(path)
	require.NoError(t, err)
	require.False(t, exists)

	signaled, err := a.Signaled()
	require.NoError(t, err)

	signal2, err := a.Signal(pid)
	require.NoError(t, err)
	require.NoError(t, signal2.Send(ctx))
	defer signal2.Close()

	waitErr := make(chan error, 1)
	go func() { waitErr <- signaled.Wait(ctx) }()

	select {
	case err := <-waitErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("signaled never resolved after re-arming")
	}
}
