// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the skillsync update workflow as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mhalvorsen/skillsync/internal/archive"
	"github.com/mhalvorsen/skillsync/internal/queue"
	"github.com/mhalvorsen/skillsync/internal/watcher"
	"github.com/mhalvorsen/skillsync/internal/workflow"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

// Server wraps the workflow services and exposes them as MCP tools.
type Server struct {
	server   *gomcp.Server
	workflow *workflow.Manager
	queue    queue.Queue
	archiver archive.Archiver
}

// NewServer creates an MCP server over the given workflow services.
func NewServer(wf *workflow.Manager, q queue.Queue, archiver archive.Archiver, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		workflow: wf,
		queue:    q,
		archiver: archiver,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "skillsync", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type processUpdateInput struct {
	Path string `json:"path" jsonschema:"required,path to the update markdown file to process"`
}

type queueItemOutput struct {
	ID            string `json:"id"`
	UpdateName    string `json:"update_name"`
	SkillID       string `json:"skill_id"`
	Type          string `json:"type"`
	TargetSection string `json:"target_section"`
	State         string `json:"state"`
	ResultStatus  string `json:"result_status,omitempty"`
	ResultError   string `json:"result_error,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type approveUpdateInput struct {
	QueueID  string `json:"queue_id" jsonschema:"required,the queue item identifier awaiting approval"`
	Approver string `json:"approver" jsonschema:"required,name of the person approving"`
	Reason   string `json:"reason,omitempty" jsonschema:"optional note recorded with the decision"`
}

type rejectUpdateInput struct {
	QueueID  string `json:"queue_id" jsonschema:"required,the queue item identifier awaiting approval"`
	Approver string `json:"approver" jsonschema:"required,name of the person rejecting"`
	Reason   string `json:"reason,omitempty" jsonschema:"optional note recorded with the decision"`
}

type listQueueInput struct {
	State string `json:"state,omitempty" jsonschema:"filter by workflow state (detected, queued, processing, pending-approval, approved, rejected, integrated, failed, archived)"`
}

type listQueueOutput struct {
	Items []queueItemOutput `json:"items"`
	Count int               `json:"count"`
}

type getQueueItemInput struct {
	QueueID string `json:"queue_id" jsonschema:"required,the queue item identifier"`
}

type queueItemDetailOutput struct {
	queueItemOutput
	History []historyEventOutput `json:"history"`
}

type historyEventOutput struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
	Actor     string `json:"actor"`
	Message   string `json:"message"`
}

type archiveStatsInput struct{}

type archiveStatsOutput struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"by_state"`
	BySkill map[string]int `json:"by_skill"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "process_update",
		Description: "Parse an update markdown file and run it through the full workflow: queueing, validation, integration, approval gating and archival.",
	}, s.handleProcessUpdate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "approve_update",
		Description: "Approve a queue item that is pending approval. Re-runs the integration with the approval gate lifted.",
	}, s.handleApproveUpdate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reject_update",
		Description: "Reject a queue item that is pending approval. The target document is left untouched.",
	}, s.handleRejectUpdate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_queue",
		Description: "List queued updates with an optional workflow state filter, ordered by creation time.",
	}, s.handleListQueue)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_queue_item",
		Description: "Get one queue item by ID, including its full state transition history.",
	}, s.handleGetQueueItem)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "archive_stats",
		Description: "Summarize the archive by terminal state bucket and by skill.",
	}, s.handleArchiveStats)
}

// --- Tool handlers ---

func (s *Server) handleProcessUpdate(_ context.Context, _ *gomcp.CallToolRequest, input processUpdateInput) (*gomcp.CallToolResult, queueItemOutput, error) {
	if input.Path == "" {
		return errorResult("path is required"), queueItemOutput{}, nil
	}

	update, err := watcher.ParseUpdateFile(input.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing update: %s", err)), queueItemOutput{}, nil
	}

	item, err := s.workflow.ProcessUpdate(*update)
	if err != nil {
		return errorResult(fmt.Sprintf("processing update: %s", err)), queueItemOutput{}, nil
	}

	return nil, itemToOutput(item), nil
}

func (s *Server) handleApproveUpdate(_ context.Context, _ *gomcp.CallToolRequest, input approveUpdateInput) (*gomcp.CallToolResult, queueItemOutput, error) {
	if input.QueueID == "" {
		return errorResult("queue_id is required"), queueItemOutput{}, nil
	}
	if input.Approver == "" {
		return errorResult("approver is required"), queueItemOutput{}, nil
	}

	item, err := s.workflow.Approve(input.QueueID, input.Approver, input.Reason)
	if err != nil {
		return errorResult(fmt.Sprintf("approving %s: %s", input.QueueID, err)), queueItemOutput{}, nil
	}
	return nil, itemToOutput(item), nil
}

func (s *Server) handleRejectUpdate(_ context.Context, _ *gomcp.CallToolRequest, input rejectUpdateInput) (*gomcp.CallToolResult, queueItemOutput, error) {
	if input.QueueID == "" {
		return errorResult("queue_id is required"), queueItemOutput{}, nil
	}
	if input.Approver == "" {
		return errorResult("approver is required"), queueItemOutput{}, nil
	}

	item, err := s.workflow.Reject(input.QueueID, input.Approver, input.Reason)
	if err != nil {
		return errorResult(fmt.Sprintf("rejecting %s: %s", input.QueueID, err)), queueItemOutput{}, nil
	}
	return nil, itemToOutput(item), nil
}

func (s *Server) handleListQueue(_ context.Context, _ *gomcp.CallToolRequest, input listQueueInput) (*gomcp.CallToolResult, listQueueOutput, error) {
	var items []models.QueuedUpdate
	if input.State != "" {
		state := models.WorkflowState(input.State)
		if !state.Valid() {
			return errorResult(fmt.Sprintf("invalid state %q", input.State)), listQueueOutput{}, nil
		}
		items = s.queue.List(state)
	} else {
		items = s.queue.List()
	}

	out := listQueueOutput{
		Items: make([]queueItemOutput, len(items)),
		Count: len(items),
	}
	for i := range items {
		out.Items[i] = itemToOutput(&items[i])
	}
	return nil, out, nil
}

func (s *Server) handleGetQueueItem(_ context.Context, _ *gomcp.CallToolRequest, input getQueueItemInput) (*gomcp.CallToolResult, queueItemDetailOutput, error) {
	if input.QueueID == "" {
		return errorResult("queue_id is required"), queueItemDetailOutput{}, nil
	}

	item, err := s.queue.Get(input.QueueID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting queue item %s: %s", input.QueueID, err)), queueItemDetailOutput{}, nil
	}

	out := queueItemDetailOutput{
		queueItemOutput: itemToOutput(item),
		History:         make([]historyEventOutput, len(item.History)),
	}
	for i, event := range item.History {
		out.History[i] = historyEventOutput{
			Timestamp: event.Timestamp.Format(time.RFC3339),
			State:     string(event.State),
			Actor:     event.Actor,
			Message:   event.Message,
		}
	}
	return nil, out, nil
}

func (s *Server) handleArchiveStats(_ context.Context, _ *gomcp.CallToolRequest, _ archiveStatsInput) (*gomcp.CallToolResult, archiveStatsOutput, error) {
	stats, err := s.archiver.Stats()
	if err != nil {
		return errorResult(fmt.Sprintf("reading archive stats: %s", err)), archiveStatsOutput{}, nil
	}
	return nil, archiveStatsOutput{
		Total:   stats.Total,
		ByState: stats.ByState,
		BySkill: stats.BySkill,
	}, nil
}

// --- Helpers ---

func itemToOutput(item *models.QueuedUpdate) queueItemOutput {
	out := queueItemOutput{
		ID:            item.ID,
		UpdateName:    item.Update.Name,
		SkillID:       item.Update.SkillID,
		Type:          string(item.Update.Metadata.Type),
		TargetSection: item.Update.Metadata.TargetSection,
		State:         string(item.State),
		CreatedAt:     item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     item.UpdatedAt.Format(time.RFC3339),
	}
	if item.Result != nil {
		out.ResultStatus = string(item.Result.Status)
		out.ResultError = item.Result.Error
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
