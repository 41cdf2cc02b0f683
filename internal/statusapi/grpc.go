package statusapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// StatsServer is the gRPC-facing handler for the status service. It has
// exactly one method, GetStats, returning the run's current totals as a
// structpb.Struct in place of a generated response message — there is
// no protoc-generated package in this build, so the well-known types
// ship as the request/response shapes instead.
type StatsServer struct {
	src Source
}

// NewStatsServer wraps src for registration against a grpc.Server.
func NewStatsServer(src Source) *StatsServer {
	return &StatsServer{src: src}
}

// GetStats implements the single RPC this service exposes.
func (s *StatsServer) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(statsMap(s.src))
}

func getStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := &emptypb.Empty{}
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*StatsServer).GetStats(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/pcaptrack.statusapi.StatsService/GetStats",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*StatsServer).GetStats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, req, info, handler)
}

// ServiceDesc is the hand-written stand-in for what protoc-gen-go-grpc
// would otherwise emit: one unary method, GetStats, taking an empty
// request and returning a Struct of the current run totals.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "pcaptrack.statusapi.StatsService",
	HandlerType: (*StatsServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStats",
			Handler:    getStatsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "statusapi/stats.proto",
}

// Register attaches the status service to an existing gRPC server.
func Register(s *grpc.Server, src Source) {
	s.RegisterService(&ServiceDesc, NewStatsServer(src))
}
