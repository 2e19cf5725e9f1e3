package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	workflows "cloud.google.com/go/workflows/apiv1"
	workflowspb "cloud.google.com/go/workflows/apiv1/workflowspb"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	executionspb "cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// grpcClientOptions returns the common options for connecting official Google
// Cloud client libraries to the server's gRPC port.
func grpcClientOptions() []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(grpcEndpoint),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}
}

func newWorkflowsClient(t *testing.T) *workflows.Client {
	t.Helper()
	client, err := workflows.NewClient(context.Background(), grpcClientOptions()...)
	if err != nil {
		t.Fatalf("workflows.NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func newExecutionsClient(t *testing.T) *executions.Client {
	t.Helper()
	client, err := executions.NewClient(context.Background(), grpcClientOptions()...)
	if err != nil {
		t.Fatalf("executions.NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// deployGRPC creates a workflow through the official client and returns its
// name.
func deployGRPC(t *testing.T, client *workflows.Client, id, source string) string {
	t.Helper()
	ctx := context.Background()

	op, err := client.CreateWorkflow(ctx, &workflowspb.CreateWorkflowRequest{
		Parent:     parentPath,
		WorkflowId: id,
		Workflow: &workflowspb.Workflow{
			SourceCode: &workflowspb.Workflow_SourceContents{SourceContents: source},
		},
	})
	if err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	wf, err := op.Wait(ctx)
	if err != nil {
		t.Fatalf("CreateWorkflow op.Wait: %v", err)
	}
	return wf.GetName()
}

// pollGRPCExecution polls GetExecution until it reaches a terminal state.
func pollGRPCExecution(t *testing.T, client *executions.Client, name string) *executionspb.Execution {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		exec, err := client.GetExecution(context.Background(), &executionspb.GetExecutionRequest{Name: name})
		if err != nil {
			t.Fatalf("GetExecution(%s): %v", name, err)
		}
		if exec.GetState() != executionspb.Execution_ACTIVE {
			return exec
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("execution %s did not complete", name)
	return nil
}

func TestGRPC_CreateAndGetWorkflow(t *testing.T) {
	requireServer(t)
	client := newWorkflowsClient(t)

	id := uniqueID("grpc-create")
	name := deployGRPC(t, client, id, loadProgram(t, "hello.tstl"))
	if want := fmt.Sprintf("%s/workflows/%s", parentPath, id); name != want {
		t.Fatalf("expected name %q, got %q", want, name)
	}

	wf, err := client.GetWorkflow(context.Background(), &workflowspb.GetWorkflowRequest{Name: name})
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if wf.GetState() != workflowspb.Workflow_ACTIVE || wf.GetSourceContents() == "" {
		t.Errorf("unexpected workflow %v", wf)
	}
}

func TestGRPC_Execution(t *testing.T) {
	requireServer(t)
	wfClient := newWorkflowsClient(t)
	exClient := newExecutionsClient(t)

	name := deployGRPC(t, wfClient, uniqueID("grpc-count"), loadProgram(t, "count.tstl"))

	exec, err := exClient.CreateExecution(context.Background(), &executionspb.CreateExecutionRequest{Parent: name})
	if err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	got := pollGRPCExecution(t, exClient, exec.GetName())
	if got.GetState() != executionspb.Execution_SUCCEEDED {
		t.Fatalf("expected SUCCEEDED, got %v (error: %v)", got.GetState(), got.GetError())
	}
	if got.GetResult() != `["1","2","3","4","5","6"]` {
		t.Errorf("unexpected result %s", got.GetResult())
	}
}

func TestGRPC_FailedExecution(t *testing.T) {
	requireServer(t)
	wfClient := newWorkflowsClient(t)
	exClient := newExecutionsClient(t)

	name := deployGRPC(t, wfClient, uniqueID("grpc-fail"), `print(undefined);`)
	exec, err := exClient.CreateExecution(context.Background(), &executionspb.CreateExecutionRequest{Parent: name})
	if err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	got := pollGRPCExecution(t, exClient, exec.GetName())
	if got.GetState() != executionspb.Execution_FAILED || got.GetError().GetContext() != "NameError" {
		t.Errorf("unexpected execution %v", got)
	}
}

func TestGRPC_InvalidProgram(t *testing.T) {
	requireServer(t)
	client := newWorkflowsClient(t)

	_, err := client.CreateWorkflow(context.Background(), &workflowspb.CreateWorkflowRequest{
		Parent:     parentPath,
		WorkflowId: uniqueID("grpc-invalid"),
		Workflow: &workflowspb.Workflow{
			SourceCode: &workflowspb.Workflow_SourceContents{SourceContents: "x = ;"},
		},
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}
