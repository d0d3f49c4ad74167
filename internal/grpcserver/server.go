// Package grpcserver implements the SwipeService gRPC server.
//
// It delegates all business logic to discovery.Service and handles
// only the gRPC transport concerns: metadata extraction, error mapping,
// and conversion between domain types and Struct messages.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"jobmate/swipe-service/internal/discovery"
	"jobmate/swipe-service/internal/logger"
	"jobmate/swipe-service/internal/model"
)

// Discovery is the subset of discovery.Service exposed over gRPC.
type Discovery interface {
	Refresh(ctx context.Context, viewerID, jobID string) (discovery.View, error)
	Current(ctx context.Context, viewerID string) (discovery.View, error)
	Swipe(ctx context.Context, viewerID string, generation uint64, decision model.Decision) (discovery.SwipeResult, error)
	StartOver(ctx context.Context, viewerID string) (discovery.View, error)
	Favorites(ctx context.Context, viewerID string) ([]model.Card, error)
	RemoveFavorite(ctx context.Context, viewerID, cardID string) (bool, error)
}

// Server implements SwipeServiceServer.
type Server struct {
	svc Discovery
}

// NewServer constructs a gRPC Server backed by svc.
func NewServer(svc Discovery) *Server {
	return &Server{svc: svc}
}

// New returns a grpc.Server with SwipeService and the standard health
// service registered.
func New(svc Discovery, log *zap.Logger) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(logger.Component(log, "grpc"))))
	gs.RegisterService(&ServiceDesc, NewServer(svc))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs, hs
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// Refresh rebuilds the caller's feed. Optional field: jobId.
func (s *Server) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.svc.Refresh(ctx, userID, stringField(req, "jobId"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(view)
}

// Current returns the caller's current card and position.
func (s *Server) Current(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.svc.Current(ctx, userID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(view)
}

// Swipe applies a gesture. Fields: decision (required), generation.
func (s *Server) Swipe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	decision, err := model.ParseDecision(stringField(req, "decision"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	var generation uint64
	if v, ok := req.GetFields()["generation"]; ok {
		n := v.GetNumberValue()
		if n < 0 {
			return nil, status.Error(codes.InvalidArgument, "generation must not be negative")
		}
		generation = uint64(n)
	}

	res, err := s.svc.Swipe(ctx, userID, generation, decision)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(res)
}

// StartOver rewinds the caller's feed to the first card.
func (s *Server) StartOver(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.svc.StartOver(ctx, userID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(view)
}

// ListFavorites returns the caller's saved cards.
func (s *Server) ListFavorites(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	cards, err := s.svc.Favorites(ctx, userID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"favorites": cards})
}

// RemoveFavorite deletes a saved card. Field: id.
func (s *Server) RemoveFavorite(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	id := stringField(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	removed, err := s.svc.RemoveFavorite(ctx, userID, id)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return structpb.NewStruct(map[string]any{"removed": removed})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// userIDFromCtx extracts the x-user-id value forwarded by the Gateway
// via gRPC metadata.
func userIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	return vals[0], nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrInvalidRole):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, model.ErrStaleSession), errors.Is(err, model.ErrInvalidTransition):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, model.ErrPersistenceUnavailable):
		return status.Error(codes.Unavailable, "storage temporarily unavailable")
	}
	return status.Error(codes.Internal, "internal server error")
}

func stringField(s *structpb.Struct, key string) string {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

// toStruct converts a JSON-tagged value into a Struct through its JSON form,
// so gRPC and HTTP clients see the same field names.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

func logUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("rpc",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("elapsed", time.Since(start)),
		)
		return resp, err
	}
}
