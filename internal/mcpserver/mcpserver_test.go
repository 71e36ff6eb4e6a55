package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeAsker struct {
	reqs []api.ChatRequest
}

func (f *fakeAsker) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	f.reqs = append(f.reqs, req)
	return &api.ChatResponse{Success: true, Answer: " Sales Rep sends the proposal. "}, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store, *fakeAsker) {
	t.Helper()
	st := store.New(store.NewMemoryKV(), store.DefaultMaxRecords)
	if _, err := st.SeedDemo(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	asker := &fakeAsker{}
	return New(st, asker), st, asker
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestListMeetings(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.listMeetings(ctx, call(nil))
	if err != nil || res.IsError {
		t.Fatalf("list_meetings = %v, %v", res, err)
	}
	var all []listing
	if err := json.Unmarshal([]byte(resultText(t, res)), &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != "demo_sales_call" || all[0].OpenActions != 4 {
		t.Errorf("listing = %+v", all)
	}

	res, _ = s.listMeetings(ctx, call(map[string]any{"query": "mobile app"}))
	var found []listing
	if err := json.Unmarshal([]byte(resultText(t, res)), &found); err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != "demo_brainstorm" {
		t.Errorf("search = %+v", found)
	}
}

func TestGetMeeting(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx := context.Background()

	res, _ := s.getMeeting(ctx, call(map[string]any{"id": "demo_sales_call"}))
	text := resultText(t, res)
	if res.IsError || !strings.Contains(text, "## Action Items (0/4 done)") || strings.Contains(text, "## Transcript") {
		t.Errorf("get_meeting = %q", text)
	}

	res, _ = s.getMeeting(ctx, call(map[string]any{"id": "demo_sales_call", "transcript": true}))
	if !strings.Contains(resultText(t, res), "## Transcript") {
		t.Error("transcript requested but missing")
	}

	res, _ = s.getMeeting(ctx, call(map[string]any{"id": "nope"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Errorf("unknown id = %+v", res)
	}

	res, _ = s.getMeeting(ctx, call(nil))
	if !res.IsError {
		t.Error("missing id should be a tool error")
	}
}

func TestToggleActionItem(t *testing.T) {
	s, st, _ := newTestServer(t)
	ctx := context.Background()

	// JSON numbers arrive as float64
	res, _ := s.toggleActionItem(ctx, call(map[string]any{"id": "demo_brainstorm", "index": float64(1)}))
	if res.IsError || !strings.Contains(resultText(t, res), "now done") {
		t.Fatalf("toggle = %q", resultText(t, res))
	}
	rec, err := st.Get(ctx, "demo_brainstorm")
	if err != nil || !rec.ActionItems[1].Completed {
		t.Errorf("item not toggled: %v", err)
	}

	res, _ = s.toggleActionItem(ctx, call(map[string]any{"id": "demo_brainstorm", "index": float64(42)}))
	if !res.IsError {
		t.Error("out of range index should be a tool error")
	}
}

func TestAskMeeting(t *testing.T) {
	s, _, asker := newTestServer(t)
	ctx := context.Background()

	res, _ := s.askMeeting(ctx, call(map[string]any{"id": "demo_sales_call", "question": "Who sends the proposal?"}))
	if res.IsError || resultText(t, res) != "Sales Rep sends the proposal." {
		t.Errorf("ask = %q", resultText(t, res))
	}
	if len(asker.reqs) != 1 || asker.reqs[0].SummaryID != "demo_sales_call" {
		t.Errorf("chat requests = %+v", asker.reqs)
	}

	res, _ = s.askMeeting(ctx, call(map[string]any{"id": "demo_sales_call", "question": "   "}))
	if !res.IsError {
		t.Error("blank question should be a tool error")
	}
	if len(asker.reqs) != 1 {
		t.Error("blank question must not reach the service")
	}
}
