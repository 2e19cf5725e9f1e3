// Package grpcapi serves testlang programs over the Cloud Workflows gRPC
// services, so the official Google Cloud Go clients can deploy programs as
// workflows and start runs as executions.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	longrunningpb "cloud.google.com/go/longrunning/autogen/longrunningpb"
	executionspb "cloud.google.com/go/workflows/executions/apiv1/executionspb"
	workflowspb "cloud.google.com/go/workflows/apiv1/workflowspb"

	"github.com/lemonberrylabs/testlang/pkg/interpreter"
	"github.com/lemonberrylabs/testlang/pkg/runner"
	"github.com/lemonberrylabs/testlang/pkg/store"
)

// Server implements the Workflows, Executions and Operations gRPC services.
// A workflow is a stored program and an execution is one of its runs.
type Server struct {
	workflowspb.UnimplementedWorkflowsServer
	executionspb.UnimplementedExecutionsServer
	longrunningpb.UnimplementedOperationsServer

	runner *runner.Runner
	store  *store.Store
	grpc   *grpc.Server
}

// New creates a new gRPC server starting runs through r.
func New(r *runner.Runner) *Server {
	srv := &Server{
		runner: r,
		store:  r.Store(),
	}

	gs := grpc.NewServer()
	workflowspb.RegisterWorkflowsServer(gs, srv)
	executionspb.RegisterExecutionsServer(gs, srv)
	longrunningpb.RegisterOperationsServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// --- Workflows Service ---

func (s *Server) CreateWorkflow(ctx context.Context, req *workflowspb.CreateWorkflowRequest) (*longrunningpb.Operation, error) {
	if req.GetWorkflowId() == "" {
		return nil, status.Error(codes.InvalidArgument, "workflow_id is required")
	}
	wfProto := req.GetWorkflow()
	if wfProto == nil {
		return nil, status.Error(codes.InvalidArgument, "workflow is required")
	}
	src := wfProto.GetSourceContents()
	if src == "" {
		return nil, status.Error(codes.InvalidArgument, "source_contents is required")
	}
	if err := interpreter.Check(src); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid program: %v", err)
	}

	p, err := s.store.CreateProgram(req.GetParent(), req.GetWorkflowId(), src, wfProto.GetDescription())
	if err != nil {
		return nil, storeStatus(err)
	}
	return doneOperation("create-"+req.GetWorkflowId(), programToProto(p))
}

func (s *Server) GetWorkflow(ctx context.Context, req *workflowspb.GetWorkflowRequest) (*workflowspb.Workflow, error) {
	p, err := s.store.GetProgram(programName(req.GetName()))
	if err != nil {
		return nil, storeStatus(err)
	}
	return programToProto(p), nil
}

func (s *Server) ListWorkflows(ctx context.Context, req *workflowspb.ListWorkflowsRequest) (*workflowspb.ListWorkflowsResponse, error) {
	programs := s.store.ListPrograms(req.GetParent())

	pbWorkflows := make([]*workflowspb.Workflow, len(programs))
	for i, p := range programs {
		pbWorkflows[i] = programToProto(p)
	}
	return &workflowspb.ListWorkflowsResponse{Workflows: pbWorkflows}, nil
}

func (s *Server) UpdateWorkflow(ctx context.Context, req *workflowspb.UpdateWorkflowRequest) (*longrunningpb.Operation, error) {
	wfProto := req.GetWorkflow()
	if wfProto == nil {
		return nil, status.Error(codes.InvalidArgument, "workflow is required")
	}
	name := programName(wfProto.GetName())

	src := wfProto.GetSourceContents()
	if src == "" {
		existing, err := s.store.GetProgram(name)
		if err != nil {
			return nil, storeStatus(err)
		}
		src = existing.Source
	} else if err := interpreter.Check(src); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid program: %v", err)
	}

	p, err := s.store.UpdateProgram(name, src, wfProto.GetDescription())
	if err != nil {
		return nil, storeStatus(err)
	}
	return doneOperation("update-"+p.ID(), programToProto(p))
}

func (s *Server) DeleteWorkflow(ctx context.Context, req *workflowspb.DeleteWorkflowRequest) (*longrunningpb.Operation, error) {
	name := programName(req.GetName())
	if err := s.store.DeleteProgram(name); err != nil {
		return nil, storeStatus(err)
	}

	return &longrunningpb.Operation{
		Name: fmt.Sprintf("projects/-/locations/-/operations/delete-%s", name[strings.LastIndex(name, "/")+1:]),
		Done: true,
	}, nil
}

// --- Executions Service ---

// CreateExecution starts a run of the workflow's current revision. Programs
// take no input, so a non-empty argument is rejected.
func (s *Server) CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest) (*executionspb.Execution, error) {
	if arg := req.GetExecution().GetArgument(); arg != "" && arg != "null" {
		return nil, status.Error(codes.InvalidArgument, "programs do not accept arguments")
	}

	run, err := s.runner.Start(programName(req.GetParent()))
	if err != nil {
		return nil, storeStatus(err)
	}
	return runToProto(run), nil
}

func (s *Server) GetExecution(ctx context.Context, req *executionspb.GetExecutionRequest) (*executionspb.Execution, error) {
	run, err := s.store.GetRun(runName(req.GetName()))
	if err != nil {
		return nil, storeStatus(err)
	}
	return runToProto(run), nil
}

func (s *Server) ListExecutions(ctx context.Context, req *executionspb.ListExecutionsRequest) (*executionspb.ListExecutionsResponse, error) {
	name := programName(req.GetParent())
	if _, err := s.store.GetProgram(name); err != nil {
		return nil, storeStatus(err)
	}
	runs := s.store.ListRuns(name)

	pbExecs := make([]*executionspb.Execution, len(runs))
	for i, run := range runs {
		pbExecs[i] = runToProto(run)
	}
	return &executionspb.ListExecutionsResponse{Executions: pbExecs}, nil
}

func (s *Server) CancelExecution(ctx context.Context, req *executionspb.CancelExecutionRequest) (*executionspb.Execution, error) {
	run, err := s.runner.Cancel(runName(req.GetName()))
	if err != nil {
		return nil, storeStatus(err)
	}
	return runToProto(run), nil
}

// --- Name mapping ---

// Clients address programs as ".../workflows/{id}" and runs as
// ".../workflows/{id}/executions/{run}". The store keys them by the
// "programs" and "runs" collections instead.

func programName(workflowName string) string {
	return strings.Replace(workflowName, "/workflows/", "/programs/", 1)
}

func runName(executionName string) string {
	return strings.Replace(programName(executionName), "/executions/", "/runs/", 1)
}

func workflowName(program string) string {
	return strings.Replace(program, "/programs/", "/workflows/", 1)
}

func executionName(run string) string {
	return strings.Replace(workflowName(run), "/runs/", "/executions/", 1)
}

// --- Conversion ---

func storeStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, store.ErrNotActive):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func programToProto(p *store.Program) *workflowspb.Workflow {
	pb := &workflowspb.Workflow{
		Name:        workflowName(p.Name),
		Description: p.Description,
		State:       workflowspb.Workflow_ACTIVE,
		RevisionId:  p.RevisionID,
		CreateTime:  timestamppb.New(p.CreateTime),
		UpdateTime:  timestamppb.New(p.UpdateTime),
	}
	if p.Source != "" {
		pb.SourceCode = &workflowspb.Workflow_SourceContents{SourceContents: p.Source}
	}
	return pb
}

func runToProto(run *store.Run) *executionspb.Execution {
	pb := &executionspb.Execution{
		Name:               executionName(run.Name),
		StartTime:          timestamppb.New(run.StartTime),
		WorkflowRevisionId: run.ProgramRevisionID,
	}

	switch run.State {
	case store.RunActive:
		pb.State = executionspb.Execution_ACTIVE
	case store.RunSucceeded:
		pb.State = executionspb.Execution_SUCCEEDED
	case store.RunFailed:
		pb.State = executionspb.Execution_FAILED
	case store.RunCancelled:
		pb.State = executionspb.Execution_CANCELLED
	default:
		pb.State = executionspb.Execution_STATE_UNSPECIFIED
	}

	if run.State != store.RunActive {
		output := run.Output
		if output == nil {
			output = []string{}
		}
		if data, err := json.Marshal(output); err == nil {
			pb.Result = string(data)
		}
	}

	if run.Error != nil {
		pb.Error = &executionspb.Execution_Error{
			Payload: run.Error.Payload,
			Context: run.Error.Tag,
		}
	}

	if !run.EndTime.IsZero() {
		pb.EndTime = timestamppb.New(run.EndTime)
	}
	return pb
}

// --- Operations Service (for official client LRO support) ---

// GetOperation always returns NotFound: every operation is returned already
// done, so clients never need to poll.
func (s *Server) GetOperation(ctx context.Context, req *longrunningpb.GetOperationRequest) (*longrunningpb.Operation, error) {
	return nil, status.Errorf(codes.NotFound, "operation %q not found (operations complete immediately)", req.GetName())
}

// doneOperation wraps a proto message in an already-completed LRO Operation.
func doneOperation(name string, msg proto.Message) (*longrunningpb.Operation, error) {
	any, err := anypb.New(msg)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to marshal operation result: %v", err)
	}
	return &longrunningpb.Operation{
		Name: fmt.Sprintf("projects/-/locations/-/operations/%s", name),
		Done: true,
		Result: &longrunningpb.Operation_Response{
			Response: any,
		},
	}, nil
}
