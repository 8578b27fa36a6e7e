// Package api provides the gRPC Evaluator service for advisor.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/advisor/internal/core/config"
	"github.com/solatis/advisor/internal/rules"
	"github.com/solatis/advisor/internal/types"
)

// Fully qualified gRPC names.
const (
	ServiceName        = "advisor.v1.Evaluator"
	EvaluateMethod     = "Evaluate"
	EvaluateFullMethod = "/" + ServiceName + "/" + EvaluateMethod
)

// EvaluateRequest asks for one evaluation pass of Rules against Context.
type EvaluateRequest struct {
	Rules   []types.Rule             `json:"rules" yaml:"rules"`
	Context *types.EvaluationContext `json:"context" yaml:"context"`
}

// EvaluatorServer is the server API for the Evaluator service.
type EvaluatorServer interface {
	Evaluate(ctx context.Context, req *EvaluateRequest) (*types.EvaluationResult, error)
}

// EvaluatorServiceDesc describes the Evaluator service for grpc.Server.
var EvaluatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EvaluatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: EvaluateMethod,
			Handler:    evaluateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "advisor/v1/evaluator",
}

// RegisterEvaluatorServer registers srv on s.
func RegisterEvaluatorServer(s grpc.ServiceRegistrar, srv EvaluatorServer) {
	s.RegisterService(&EvaluatorServiceDesc, srv)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EvaluateRequest)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("malformed request: %v", err))
	}
	if interceptor == nil {
		return srv.(EvaluatorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: EvaluateFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EvaluatorServer).Evaluate(ctx, req.(*EvaluateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// EvaluatorService implements EvaluatorServer on top of the rules engine.
// Thin orchestration layer: validates requests, runs the engine, maps errors.
type EvaluatorService struct {
	engine *rules.Engine
	cfg    *config.ServiceConfig
	logger zerolog.Logger
}

// NewEvaluatorService creates service instance with dependencies.
func NewEvaluatorService(engine *rules.Engine, cfg *config.ServiceConfig, logger zerolog.Logger) (*EvaluatorService, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	return &EvaluatorService{
		engine: engine,
		cfg:    cfg,
		logger: logger.With().Str("component", "evaluator").Logger(),
	}, nil
}

// Evaluate validates req and runs one evaluation pass.
func (s *EvaluatorService) Evaluate(ctx context.Context, req *EvaluateRequest) (*types.EvaluationResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	evalCtx := req.Context
	if evalCtx.Data == nil {
		evalCtx.Data = map[string]any{}
	}
	if evalCtx.Metadata == nil {
		evalCtx.Metadata = map[string]any{}
	}
	if evalCtx.Timestamp.IsZero() {
		evalCtx.Timestamp = time.Now().UTC()
	}

	result, err := s.engine.Evaluate(ctx, req.Rules, evalCtx)
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Debug().
		Str("source", evalCtx.Source).
		Int("rules_evaluated", result.RulesEvaluated).
		Int("rules_matched", result.RulesMatched).
		Bool("truncated", result.Truncated).
		Msg("evaluation served")

	return result, nil
}

// validate rejects requests the engine must never see.
func (s *EvaluatorService) validate(req *EvaluateRequest) error {
	if req == nil {
		return status.Error(codes.InvalidArgument, "request required")
	}
	if req.Context == nil {
		return status.Error(codes.InvalidArgument, "context required")
	}
	// Bounds the work a single request can demand
	if len(req.Rules) > s.cfg.MaxRules {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("rule count %d exceeds maximum of %d rules", len(req.Rules), s.cfg.MaxRules))
	}
	return nil
}
