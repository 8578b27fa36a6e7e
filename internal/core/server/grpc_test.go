package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/solatis/advisor/internal/core/api"
	"github.com/solatis/advisor/internal/core/config"
	"github.com/solatis/advisor/internal/rules"
	"github.com/solatis/advisor/internal/types"
)

func newService(t *testing.T, cfg *config.ServiceConfig) *api.EvaluatorService {
	t.Helper()
	svc, err := api.NewEvaluatorService(rules.NewEngine(), cfg, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func startGRPC(t *testing.T, cfg *config.ServiceConfig) *grpc.ClientConn {
	t.Helper()
	srv, err := NewGRPCServer(cfg, newService(t, cfg), zerolog.Nop())
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	_, conn, err := api.Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNewGRPCServer_NilDependencies(t *testing.T) {
	cfg := config.DefaultServiceConfig()

	_, err := NewGRPCServer(nil, newService(t, cfg), zerolog.Nop())
	assert.Error(t, err)

	_, err = NewGRPCServer(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestGRPCServer_Health(t *testing.T) {
	conn := startGRPC(t, config.DefaultServiceConfig())
	client := grpc_health_v1.NewHealthClient(conn)

	for _, service := range []string{"", api.ServiceName} {
		resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
	}
}

func TestGRPCServer_Evaluate(t *testing.T) {
	conn := startGRPC(t, config.DefaultServiceConfig())
	client := api.NewClient(conn)

	result, err := client.Evaluate(context.Background(), &api.EvaluateRequest{
		Rules: []types.Rule{
			{ID: "r1", Enabled: true, Severity: types.SeverityHigh, Conditions: []types.Condition{{Field: "region", Operator: types.OpIn, Value: []any{"eu", "us"}}}},
			{ID: "r2", Enabled: true, Conditions: []types.Condition{{Field: "region", Operator: types.OpEq, Value: "ap"}}},
		},
		Context: &types.EvaluationContext{Data: map[string]any{"region": "eu"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.RulesEvaluated)
	assert.Equal(t, 1, result.RulesMatched)
	assert.Equal(t, "r1", result.Advisories[0].RuleID)
}

func TestGRPCServer_MaxRules(t *testing.T) {
	cfg := config.DefaultServiceConfig()
	cfg.MaxRules = 1
	conn := startGRPC(t, cfg)

	_, err := api.NewClient(conn).Evaluate(context.Background(), &api.EvaluateRequest{
		Rules:   []types.Rule{{ID: "a"}, {ID: "b"}},
		Context: types.NewEvaluationContext(nil),
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDeadlineInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: api.EvaluateFullMethod}

	t.Run("applies timeout", func(t *testing.T) {
		var deadline time.Time
		handler := func(ctx context.Context, req any) (any, error) {
			deadline, _ = ctx.Deadline()
			return nil, nil
		}

		_, err := DeadlineInterceptor(time.Second)(context.Background(), nil, info, handler)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
	})

	t.Run("keeps tighter client deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		want, _ := ctx.Deadline()

		var got time.Time
		handler := func(ctx context.Context, req any) (any, error) {
			got, _ = ctx.Deadline()
			return nil, nil
		}

		_, err := DeadlineInterceptor(time.Minute)(ctx, nil, info, handler)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
