package capability

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
)

// EchoServer is the conformance capability: a method that hands back
// whatever bytes it was given. It exists so a client can verify a
// session is alive end to end without depending on any real service.
type EchoServer interface {
	Echo(ctx context.Context, payload []byte) ([]byte, error)
}

type defaultEchoServer struct{}

func (defaultEchoServer) Echo(_ context.Context, payload []byte) ([]byte, error) {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// NewEchoServer returns the default EchoServer implementation.
func NewEchoServer() EchoServer {
	return defaultEchoServer{}
}

type echoParams struct {
	Payload []byte
}

type echoResults struct {
	Payload []byte
}

// echoCapability adapts an EchoServer to the type-erased
// ServerCapability interface that Router stores.
type echoCapability struct {
	impl EchoServer
}

// AdaptEcho wraps impl as a ServerCapability exposing a single
// "echo" method.
func AdaptEcho(impl EchoServer) ServerCapability {
	return &echoCapability{impl: impl}
}

func (e *echoCapability) Invoke(ctx context.Context, method string, args []byte) ([]byte, error) {
	if method != "echo" {
		return nil, fmt.Errorf("echo capability: unknown method %q", method)
	}

	var params echoParams
	if err := gob.NewDecoder(bytes.NewReader(args)).Decode(&params); err != nil {
		return nil, fmt.Errorf("echo capability: decode params: %w", err)
	}

	payload, err := e.impl.Echo(ctx, params.Payload)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(echoResults{Payload: payload}); err != nil {
		return nil, fmt.Errorf("echo capability: encode results: %w", err)
	}
	return buf.Bytes(), nil
}

// EchoServiceName is the name the conformance capability is expected
// to be registered under (spec.md §6's `Echo.echo`).
const EchoServiceName = "echo"

// EchoClient is the caller-side counterpart to AdaptEcho: it hides the
// echoParams/echoResults gob wire shape behind the same
// message-in/reply-out signature spec.md §6 describes for
// `Echo::echo`, so an embedder can actually drive the conformance
// capability through Client.Call without reverse-engineering the
// private envelope types.
type EchoClient struct {
	client *Client
}

// NewEchoClient wraps client for calls to the "echo" service.
func NewEchoClient(client *Client) *EchoClient {
	return &EchoClient{client: client}
}

// Echo calls the echo capability's "echo" method with message and
// returns the reply, which is message verbatim for a conforming
// server.
func (c *EchoClient) Echo(ctx context.Context, message string) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(echoParams{Payload: []byte(message)}); err != nil {
		return "", fmt.Errorf("echo client: encode params: %w", err)
	}

	result, err := c.client.Call(ctx, EchoServiceName, "echo", buf.Bytes())
	if err != nil {
		return "", err
	}

	var results echoResults
	if err := gob.NewDecoder(bytes.NewReader(result)).Decode(&results); err != nil {
		return "", fmt.Errorf("echo client: decode results: %w", err)
	}
	return string(results.Payload), nil
}
