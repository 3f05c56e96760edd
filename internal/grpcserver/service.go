package grpcserver

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// JobServiceServer is the server API for the jobly.v1.JobService service.
// Every method takes and returns a google.protobuf.Struct.
type JobServiceServer interface {
	ListJobs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ JobServiceServer = (*Server)(nil)

type unaryMethod func(JobServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// JobServiceDesc describes jobly.v1.JobService for grpc.Server.RegisterService.
var JobServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JobServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListJobs", Handler: unaryHandler("ListJobs", JobServiceServer.ListJobs)},
		{MethodName: "GetJob", Handler: unaryHandler("GetJob", JobServiceServer.GetJob)},
		{MethodName: "CreateJob", Handler: unaryHandler("CreateJob", JobServiceServer.CreateJob)},
		{MethodName: "UpdateJob", Handler: unaryHandler("UpdateJob", JobServiceServer.UpdateJob)},
		{MethodName: "DeleteJob", Handler: unaryHandler("DeleteJob", JobServiceServer.DeleteJob)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobly/v1/jobs.proto",
}

// FullMethod returns the wire name of a JobService method, e.g.
// "/jobly.v1.JobService/GetJob".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(JobServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		})
	}
}

// LoggingInterceptor logs every unary call with its status code and duration.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)

	level := slog.LevelInfo
	if code == codes.Internal || code == codes.Unknown {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "grpc request",
		"method", info.FullMethod,
		"code", code.String(),
		"duration", time.Since(start),
	)
	return resp, err
}
