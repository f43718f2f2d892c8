package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mhalvorsen/skillsync/internal/archive"
	"github.com/mhalvorsen/skillsync/internal/config"
	"github.com/mhalvorsen/skillsync/internal/integrate"
	"github.com/mhalvorsen/skillsync/internal/notify"
	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/internal/queue"
	"github.com/mhalvorsen/skillsync/internal/workflow"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

// --- Test fixture over real services on temp directories ---

type fixture struct {
	srv   *Server
	q     queue.Queue
	inbox string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	skillsDir := filepath.Join(base, "skills")
	inboxDir := filepath.Join(base, "inbox")

	log := observability.Nop()
	q := queue.New(filepath.Join(base, ".queue"))
	if err := q.Initialize(); err != nil {
		t.Fatal(err)
	}
	loader := config.NewSkillLoader(skillsDir)
	archiver := archive.New(filepath.Join(base, "archive"), log)
	wf := workflow.NewManager(q, integrate.NewManager(loader, log, 0), notify.New(log), archiver, loader, log, workflow.Options{})

	writeTestSkill(t, skillsDir, "pricing-strategy")
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		srv:   NewServer(wf, q, archiver, "test"),
		q:     q,
		inbox: inboxDir,
	}
}

func writeTestSkill(t *testing.T, skillsDir, skillID string) {
	t.Helper()
	cfg := &models.SkillConfig{
		Version: "1.0",
		Expert:  models.ExpertConfig{Name: "Jordan Reyes", ApprovalRequired: true},
		IntegrationRules: map[models.UpdateType]models.IntegrationRule{
			models.UpdateCorrection: {AutoApprove: true},
			models.UpdateFramework:  {RequireReview: true},
		},
	}
	dir := filepath.Join(skillsDir, skillID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	document := "# Pricing\n\n## Common Mistakes\n\nAnchoring too low on the first call.\n"
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(document), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) writeUpdate(t *testing.T, name, updateType string) string {
	t.Helper()
	content := "---\n" +
		"type: " + updateType + "\n" +
		"priority: medium\n" +
		"targetSection: Common Mistakes\n" +
		"applyTo: pricing-strategy\n" +
		"---\n" +
		"Quote fixed fees only after the discovery call has fully scoped the work.\n"
	path := filepath.Join(f.inbox, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// callTool connects an in-memory client to the server and calls one tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}

	return result
}

// decode parses a tool result into out, preferring structured content.
func decode(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.StructuredContent != nil {
		data, _ := json.Marshal(result.StructuredContent)
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshalling structured content: %v", err)
		}
		return
	}
	text := extractText(result)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("unmarshalling result text: %v (text was: %s)", err, text)
	}
}

// --- Tests ---

func TestProcessUpdateTool(t *testing.T) {
	f := newFixture(t)
	path := f.writeUpdate(t, "fee-fix.md", "correction")

	result := callTool(t, f.srv, "process_update", map[string]any{"path": path})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out queueItemOutput
	decode(t, result, &out)
	if out.State != string(models.StateIntegrated) {
		t.Errorf("expected state integrated, got %s", out.State)
	}
	if out.SkillID != "pricing-strategy" {
		t.Errorf("expected skill pricing-strategy, got %s", out.SkillID)
	}
	if out.ResultStatus != string(models.IntegrationSuccess) {
		t.Errorf("expected result success, got %s", out.ResultStatus)
	}
}

func TestProcessUpdateToolBadPath(t *testing.T) {
	f := newFixture(t)

	result := callTool(t, f.srv, "process_update", map[string]any{"path": "/no/such/file.md"})
	if !result.IsError {
		t.Fatal("expected error for missing file")
	}
}

func TestApproveUpdateTool(t *testing.T) {
	f := newFixture(t)
	path := f.writeUpdate(t, "framework.md", "framework")

	result := callTool(t, f.srv, "process_update", map[string]any{"path": path})
	if result.IsError {
		t.Fatalf("process failed: %s", extractText(result))
	}
	var pending queueItemOutput
	decode(t, result, &pending)
	if pending.State != string(models.StatePendingApproval) {
		t.Fatalf("expected pending-approval, got %s", pending.State)
	}

	result = callTool(t, f.srv, "approve_update", map[string]any{
		"queue_id": pending.ID,
		"approver": "jordan",
	})
	if result.IsError {
		t.Fatalf("approve failed: %s", extractText(result))
	}
	var approved queueItemOutput
	decode(t, result, &approved)
	if approved.State != string(models.StateIntegrated) {
		t.Errorf("expected integrated, got %s", approved.State)
	}
}

func TestRejectUpdateTool(t *testing.T) {
	f := newFixture(t)
	path := f.writeUpdate(t, "framework.md", "framework")

	result := callTool(t, f.srv, "process_update", map[string]any{"path": path})
	var pending queueItemOutput
	decode(t, result, &pending)

	result = callTool(t, f.srv, "reject_update", map[string]any{
		"queue_id": pending.ID,
		"approver": "jordan",
		"reason":   "not convincing",
	})
	if result.IsError {
		t.Fatalf("reject failed: %s", extractText(result))
	}
	var rejected queueItemOutput
	decode(t, result, &rejected)
	if rejected.State != string(models.StateRejected) {
		t.Errorf("expected rejected, got %s", rejected.State)
	}
}

func TestApproveUpdateToolNotPending(t *testing.T) {
	f := newFixture(t)
	path := f.writeUpdate(t, "fee-fix.md", "correction")

	result := callTool(t, f.srv, "process_update", map[string]any{"path": path})
	var item queueItemOutput
	decode(t, result, &item)

	result = callTool(t, f.srv, "approve_update", map[string]any{
		"queue_id": item.ID,
		"approver": "jordan",
	})
	if !result.IsError {
		t.Fatal("expected error approving a non-pending item")
	}
}

func TestListQueueTool(t *testing.T) {
	f := newFixture(t)
	callTool(t, f.srv, "process_update", map[string]any{"path": f.writeUpdate(t, "one.md", "correction")})
	callTool(t, f.srv, "process_update", map[string]any{"path": f.writeUpdate(t, "two.md", "framework")})

	result := callTool(t, f.srv, "list_queue", map[string]any{})
	if result.IsError {
		t.Fatalf("list failed: %s", extractText(result))
	}
	var all listQueueOutput
	decode(t, result, &all)
	if all.Count != 2 {
		t.Fatalf("expected 2 items, got %d", all.Count)
	}

	result = callTool(t, f.srv, "list_queue", map[string]any{"state": "pending-approval"})
	var filtered listQueueOutput
	decode(t, result, &filtered)
	if filtered.Count != 1 {
		t.Fatalf("expected 1 pending item, got %d", filtered.Count)
	}

	result = callTool(t, f.srv, "list_queue", map[string]any{"state": "bogus"})
	if !result.IsError {
		t.Fatal("expected error for invalid state filter")
	}
}

func TestGetQueueItemTool(t *testing.T) {
	f := newFixture(t)
	result := callTool(t, f.srv, "process_update", map[string]any{"path": f.writeUpdate(t, "one.md", "correction")})
	var item queueItemOutput
	decode(t, result, &item)

	result = callTool(t, f.srv, "get_queue_item", map[string]any{"queue_id": item.ID})
	if result.IsError {
		t.Fatalf("get failed: %s", extractText(result))
	}
	var detail queueItemDetailOutput
	decode(t, result, &detail)
	if detail.ID != item.ID {
		t.Errorf("expected id %s, got %s", item.ID, detail.ID)
	}
	if len(detail.History) < 4 {
		t.Errorf("expected full history, got %d events", len(detail.History))
	}
	if detail.History[0].State != string(models.StateDetected) {
		t.Errorf("expected history to start at detected, got %s", detail.History[0].State)
	}

	result = callTool(t, f.srv, "get_queue_item", map[string]any{"queue_id": "no-such-id"})
	if !result.IsError {
		t.Fatal("expected error for unknown id")
	}
}

func TestArchiveStatsTool(t *testing.T) {
	f := newFixture(t)

	result := callTool(t, f.srv, "archive_stats", map[string]any{})
	if result.IsError {
		t.Fatalf("stats failed: %s", extractText(result))
	}
	var stats archiveStatsOutput
	decode(t, result, &stats)
	if stats.Total != 0 {
		t.Errorf("expected empty archive, got %d", stats.Total)
	}
}

// extractText extracts the text from the first TextContent in a CallToolResult.
func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
