// Package grpcserver implements the JobService gRPC server.
//
// It delegates all business logic to catalog.Service and handles
// only the gRPC transport concerns: metadata extraction, error mapping,
// and conversion between google.protobuf.Struct payloads and the catalog
// types. Payloads carry the same JSON shapes as the HTTP API.
package grpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"jobly/api-service/internal/catalog"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "jobly.v1.JobService"

// Server implements JobServiceServer.
type Server struct {
	svc *catalog.Service
}

// NewServer constructs a gRPC Server backed by the given catalog.Service.
func NewServer(svc *catalog.Service) *Server {
	return &Server{svc: svc}
}

// Register adds the JobService and the standard health service to gs.
// The returned health server reports SERVING until Shutdown is called on it.
func Register(gs *grpc.Server, srv *Server) *health.Server {
	gs.RegisterService(&JobServiceDesc, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return hs
}

// ─── Request shapes ──────────────────────────────────────────────────────────

type listJobsRequest struct {
	Title     string `json:"title"`
	MinSalary *int   `json:"minSalary" validate:"omitempty,min=0,max=2147483647"`
	HasEquity *bool  `json:"hasEquity"`
}

type jobRef struct {
	ID int `json:"id" validate:"required,min=-2147483648,max=2147483647"`
}

type updateJobRequest struct {
	ID int `json:"id" validate:"required,min=-2147483648,max=2147483647"`
	catalog.JobUpdate
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// ListJobs returns the jobs matching the optional title, minSalary and
// hasEquity filters. No identity is required.
func (s *Server) ListJobs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listJobsRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, toGRPCError(err)
	}

	jobs, err := s.svc.FindJobs(ctx, catalog.JobFilter{Title: in.Title, MinSalary: in.MinSalary, HasEquity: in.HasEquity})
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"jobs": jobs})
}

// GetJob returns one job with its company. No identity is required.
func (s *Server) GetJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in jobRef
	if err := fromStruct(req, &in); err != nil {
		return nil, toGRPCError(err)
	}

	job, err := s.svc.GetJob(ctx, in.ID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"job": job})
}

// CreateJob creates a job. Admin only.
func (s *Server) CreateJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := identityFromCtx(ctx).RequireAdmin(); err != nil {
		return nil, toGRPCError(err)
	}
	var in catalog.NewJob
	if err := fromStruct(req, &in); err != nil {
		return nil, toGRPCError(err)
	}

	job, err := s.svc.CreateJob(ctx, in)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"job": job})
}

// UpdateJob applies a partial update to the job named by "id". Admin only.
func (s *Server) UpdateJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := identityFromCtx(ctx).RequireAdmin(); err != nil {
		return nil, toGRPCError(err)
	}
	var in updateJobRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, toGRPCError(err)
	}

	job, err := s.svc.UpdateJob(ctx, in.ID, in.JobUpdate.Patch())
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"job": job})
}

// DeleteJob removes the job named by "id". Admin only.
func (s *Server) DeleteJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := identityFromCtx(ctx).RequireAdmin(); err != nil {
		return nil, toGRPCError(err)
	}
	var in jobRef
	if err := fromStruct(req, &in); err != nil {
		return nil, toGRPCError(err)
	}

	if err := s.svc.RemoveJob(ctx, in.ID); err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"deleted": in.ID})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// identityFromCtx reads the x-user-id and x-is-admin values forwarded by the
// Gateway via gRPC metadata. Missing metadata yields an anonymous identity.
func identityFromCtx(ctx context.Context) catalog.Identity {
	md, _ := metadata.FromIncomingContext(ctx)
	return catalog.NewIdentity(first(md, "x-user-id"), first(md, "x-is-admin"))
}

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	if errors.Is(err, catalog.ErrUnauthenticated) {
		return status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	if errors.Is(err, catalog.ErrForbidden) {
		return status.Error(codes.PermissionDenied, err.Error())
	}
	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		st := status.New(codes.InvalidArgument, ve.Msg)
		if len(ve.Details) > 0 {
			details := make([]any, len(ve.Details))
			for i, d := range ve.Details {
				details[i] = d
			}
			if v, verr := structpb.NewList(details); verr == nil {
				if withDetails, derr := st.WithDetails(v); derr == nil {
					st = withDetails
				}
			}
		}
		return st.Err()
	}
	return status.Error(codes.Internal, "internal server error")
}

// fromStruct decodes a Struct payload into dst with the same strict rules as
// an HTTP body: unknown fields are rejected and validate tags are checked.
func fromStruct(s *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return &catalog.ValidationError{Msg: "invalid payload", Details: []string{err.Error()}}
	}
	return catalog.Decode(bytes.NewReader(b), dst)
}

// toStruct converts a JSON-serializable response into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
