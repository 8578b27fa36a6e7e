package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/solatis/advisor/internal/types"
)

// Client calls a remote Evaluator service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection. Calls are sent with the JSON codec.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial opens a plaintext connection to target and returns a client with the
// connection so callers can close it.
func Dial(target string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return NewClient(conn), conn, nil
}

// Evaluate runs one remote evaluation pass.
func (c *Client) Evaluate(ctx context.Context, req *EvaluateRequest, opts ...grpc.CallOption) (*types.EvaluationResult, error) {
	out := new(types.EvaluationResult)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, EvaluateFullMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
