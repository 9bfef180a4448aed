package attach

import "context"

// DummyAttacher considers every target already signaled. It is the
// default on Windows (original_source selects the same fallback there)
// and a useful stand-in for tests that do not want to exercise real
// OS wake-up machinery.
type DummyAttacher struct{}

func (DummyAttacher) Signal(pid int) (SignalHandle, error) {
	return dummySignal{}, nil
}

func (DummyAttacher) Signaled() (Signaled, error) {
	return dummySignaled{}, nil
}

type dummySignal struct{}

func (dummySignal) Send(ctx context.Context) error { return nil }
func (dummySignal) Close() error                   { return nil }

type dummySignaled struct{}

func (dummySignaled) Wait(ctx context.Context) error { return nil }
