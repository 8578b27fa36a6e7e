package api

import (
	"context"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/solatis/advisor/internal/core/config"
	"github.com/solatis/advisor/internal/rules"
	"github.com/solatis/advisor/internal/types"
)

func newTestService(t *testing.T, maxRules int) *EvaluatorService {
	t.Helper()
	cfg := config.DefaultServiceConfig()
	cfg.MaxRules = maxRules
	svc, err := NewEvaluatorService(rules.NewEngine(), cfg, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

// startBufconn serves svc over an in-memory listener and returns a client.
func startBufconn(t *testing.T, svc EvaluatorServer) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterEvaluatorServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, conn, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return client
}

func cpuRequest() *EvaluateRequest {
	return &EvaluateRequest{
		Rules: []types.Rule{
			{
				ID:           "r1",
				Name:         "High CPU",
				Severity:     types.SeverityCritical,
				AdvisoryType: types.AdvisoryTypePerformance,
				Message:      "CPU at {cpu}%",
				Enabled:      true,
				Tags:         []string{"cpu"},
				Conditions:   []types.Condition{{Field: "cpu", Operator: types.OpGt, Value: 90}},
			},
		},
		Context: &types.EvaluationContext{Data: map[string]any{"cpu": 95}, Source: "host-1"},
	}
}

func TestNewEvaluatorService_NilDependencies(t *testing.T) {
	_, err := NewEvaluatorService(nil, config.DefaultServiceConfig(), zerolog.Nop())
	assert.Error(t, err)

	_, err = NewEvaluatorService(rules.NewEngine(), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestEvaluatorService_Evaluate(t *testing.T) {
	svc := newTestService(t, 10)

	result, err := svc.Evaluate(context.Background(), cpuRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, result.RulesEvaluated)
	assert.Equal(t, 1, result.RulesMatched)
	require.Len(t, result.Advisories, 1)
	assert.Equal(t, "CPU at 95%", result.Advisories[0].Message)
	assert.False(t, result.Context.Timestamp.IsZero(), "missing timestamp must be stamped")
	assert.NotNil(t, result.Context.Metadata)
}

func TestEvaluatorService_Validation(t *testing.T) {
	svc := newTestService(t, 1)

	tests := []struct {
		name string
		req  *EvaluateRequest
	}{
		{"nil request", nil},
		{"missing context", &EvaluateRequest{Rules: []types.Rule{}}},
		{"too many rules", &EvaluateRequest{
			Rules:   []types.Rule{{ID: "a", Enabled: true}, {ID: "b", Enabled: true}},
			Context: types.NewEvaluationContext(nil),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Evaluate(context.Background(), tt.req)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestEvaluatorService_EngineFaultIsInternal(t *testing.T) {
	svc := newTestService(t, 10)
	req := &EvaluateRequest{
		Rules:   []types.Rule{{ID: "bad", Enabled: true, Conditions: []types.Condition{{Field: "x", Operator: "fuzzy"}}}},
		Context: types.NewEvaluationContext(nil),
	}

	_, err := svc.Evaluate(context.Background(), req)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "bad")
}

func TestEvaluator_OverGRPC(t *testing.T) {
	client := startBufconn(t, newTestService(t, 10))

	result, err := client.Evaluate(context.Background(), cpuRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, result.RulesMatched)
	require.Len(t, result.Advisories, 1)
	adv := result.Advisories[0]
	assert.Equal(t, "r1", adv.RuleID)
	assert.Equal(t, types.SeverityCritical, adv.Severity)
	assert.Equal(t, "host-1", adv.Metadata[rules.MetaContextSource])
	assert.Equal(t, "host-1", result.Context.Source)
	_, err = types.ParseAdvisoryID(adv.ID)
	assert.NoError(t, err)
}

func TestEvaluator_OverGRPCErrors(t *testing.T) {
	client := startBufconn(t, newTestService(t, 1))

	_, err := client.Evaluate(context.Background(), &EvaluateRequest{Rules: []types.Rule{}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req := cpuRequest()
	req.Rules = append(req.Rules, req.Rules[0])
	_, err = client.Evaluate(context.Background(), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"engine error", &types.EngineError{RuleID: "r", Cause: types.ErrUnsupportedOperator}, codes.Internal},
		{"nil context", &types.EngineError{Cause: types.ErrNilContext}, codes.InvalidArgument},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"canceled", context.Canceled, codes.Canceled},
		{"existing status", status.Error(codes.NotFound, "x"), codes.NotFound},
		{"other", assert.AnError, codes.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(toStatus(tt.err)))
		})
	}
}
