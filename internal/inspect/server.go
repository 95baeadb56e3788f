// Package inspect exposes a read-only gRPC view of a running session for tooling and tests.
package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cardengine/table-client/internal/session"
)

// ServiceName is the fully qualified inspect service.
const ServiceName = "tableclient.inspect.v1.Inspect"

// Source provides the published session state. client.Client satisfies it.
type Source interface {
	Snapshot() session.Snapshot
	SessionID() string
}

// InspectServer is the service contract.
type InspectServer interface {
	GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetPlayer(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetChecksum(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

type inspectServer struct {
	source Source
	logger *zap.Logger
}

// NewInspectServer serves snapshots from source.
func NewInspectServer(source Source, logger *zap.Logger) InspectServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inspectServer{source: source, logger: logger}
}

func (s *inspectServer) started() (session.Snapshot, error) {
	snap := s.source.Snapshot()
	if len(snap.Players) == 0 {
		return snap, status.Errorf(codes.FailedPrecondition, "session has not received game info yet")
	}
	return snap, nil
}

// GetSnapshot returns the whole published session.
func (s *inspectServer) GetSnapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap, err := s.started()
	if err != nil {
		return nil, err
	}
	return toStruct(snap)
}

// GetPlayer returns one player's view.
func (s *inspectServer) GetPlayer(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Errorf(codes.InvalidArgument, "player id is required")
	}
	snap, err := s.started()
	if err != nil {
		return nil, err
	}
	p, ok := snap.Player(req.GetValue())
	if !ok {
		return nil, status.Errorf(codes.NotFound, "player not found")
	}
	return toStruct(p)
}

// GetChecksum returns the deterministic digest of the published session.
func (s *inspectServer) GetChecksum(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	sum, err := s.source.Snapshot().Checksum()
	if err != nil {
		s.logger.Error("failed to checksum snapshot", zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to checksum snapshot")
	}
	return wrapperspb.String(sum), nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode: %v", err)
	}
	return out, nil
}

func unaryHandler[Req any, Resp any](method string, call func(InspectServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InspectServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(InspectServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the inspect service for grpc registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InspectServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetSnapshot", InspectServer.GetSnapshot),
		unaryHandler("GetPlayer", InspectServer.GetPlayer),
		unaryHandler("GetChecksum", InspectServer.GetChecksum),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tableclient/inspect/v1/inspect.proto",
}

// RegisterInspectServer registers srv on s.
func RegisterInspectServer(s grpc.ServiceRegistrar, srv InspectServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Server owns the grpc server, its health service and the listener.
type Server struct {
	logger *zap.Logger
	grpc   *grpc.Server
	health *health.Server
}

// NewServer builds a grpc server with the inspect and health services registered.
func NewServer(source Source, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	)
	RegisterInspectServer(gs, NewInspectServer(source, logger))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{logger: logger, grpc: gs, health: hs}
}

// Serve blocks serving lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("starting inspect server", zap.String("address", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("inspect server: %w", err)
	}
	return nil
}

// Stop marks the services as not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.logger.Info("inspect server stopped")
}

// LoggingInterceptor logs each call with its duration and status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			logger.Warn("inspect call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("inspect call", fields...)
		}
		return resp, err
	}
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in inspect handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
