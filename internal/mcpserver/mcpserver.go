// Package mcpserver exposes saved meetings to AI assistants over the Model
// Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/chat"
	"github.com/leonardotrapani/listenin/internal/export"
	"github.com/leonardotrapani/listenin/internal/meeting"
	"github.com/leonardotrapani/listenin/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	Name    = "listenin"
	Version = "0.2.0"
)

// Store is the part of the meeting store the tools need. *store.Store satisfies it.
type Store interface {
	List(ctx context.Context) ([]meeting.Summary, error)
	Search(ctx context.Context, query string) ([]meeting.Summary, error)
	Get(ctx context.Context, id string) (*meeting.Summary, error)
	ToggleActionItem(ctx context.Context, id string, index int) (bool, error)
}

type Server struct {
	store Store
	asker chat.Asker
	mcp   *server.MCPServer
}

// New registers the meeting tools. ask_meeting is only offered when asker is set.
func New(st Store, asker chat.Asker) *Server {
	s := &Server{
		store: st,
		asker: asker,
		mcp:   server.NewMCPServer(Name, Version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("list_meetings",
		mcp.WithDescription("List saved meetings, most recent first. Optionally filter by a search query over overviews and participants."),
		mcp.WithString("query", mcp.Description("case-insensitive search text")),
	), s.listMeetings)

	s.mcp.AddTool(mcp.NewTool("get_meeting",
		mcp.WithDescription("Get the full summary of one meeting as Markdown: overview, chapters, highlights and action items."),
		mcp.WithString("id", mcp.Required(), mcp.Description("meeting id")),
		mcp.WithBoolean("transcript", mcp.Description("include the full transcript")),
	), s.getMeeting)

	s.mcp.AddTool(mcp.NewTool("toggle_action_item",
		mcp.WithDescription("Mark an action item of a meeting done or not done."),
		mcp.WithString("id", mcp.Required(), mcp.Description("meeting id")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("zero-based action item index")),
	), s.toggleActionItem)

	if asker != nil {
		s.mcp.AddTool(mcp.NewTool("ask_meeting",
			mcp.WithDescription("Ask a question answered from the meeting transcript."),
			mcp.WithString("id", mcp.Required(), mcp.Description("meeting id")),
			mcp.WithString("question", mcp.Required(), mcp.Description("question, at most 1000 characters")),
		), s.askMeeting)
	}

	return s
}

// ServeStdio serves the tools on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	log.Printf("MCP: serving %s %s on stdio", Name, Version)
	return server.ServeStdio(s.mcp)
}

// listing is the compact shape returned by list_meetings.
type listing struct {
	ID          string            `json:"id"`
	RecordedAt  string            `json:"recordedAt"`
	Framework   meeting.Framework `json:"framework"`
	Duration    string            `json:"duration"`
	Overview    string            `json:"overview"`
	OpenActions int               `json:"openActionItems"`
}

func (s *Server) listMeetings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")

	var (
		records []meeting.Summary
		err     error
	)
	if query == "" {
		records, err = s.store.List(ctx)
	} else {
		records, err = s.store.Search(ctx, query)
	}
	if err != nil {
		return toolError("list meetings", err), nil
	}

	out := make([]listing, 0, len(records))
	for _, r := range records {
		out = append(out, listing{
			ID:          r.ID,
			RecordedAt:  r.RecordedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Framework:   r.Framework,
			Duration:    r.Duration,
			Overview:    r.Overview,
			OpenActions: len(r.ActionItems) - r.CompletedCount(),
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return toolError("get meeting", err), nil
	}

	rec := *record
	if !req.GetBool("transcript", false) {
		rec.Transcript = ""
	}
	return mcp.NewToolResultText(export.RenderMarkdown(&rec)), nil
}

func (s *Server) toggleActionItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	done, err := s.store.ToggleActionItem(ctx, id, index)
	if err != nil {
		return toolError("toggle action item", err), nil
	}
	state := "open"
	if done {
		state = "done"
	}
	return mcp.NewToolResultText(fmt.Sprintf("action item %d of %s is now %s", index, id, state)), nil
}

func (s *Server) askMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := s.store.Get(ctx, id)
	if err != nil {
		return toolError("ask", err), nil
	}
	answer, err := chat.NewConversation(s.asker).Ask(ctx, question, record.Transcript, record.ID)
	if err != nil {
		return toolError("ask", err), nil
	}
	return mcp.NewToolResultText(answer), nil
}

// toolError reports a failure to the assistant. Classified errors carry their
// user message only.
func toolError(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return mcp.NewToolResultError("meeting or action item not found")
	case apperr.KindOf(err) != "":
		return mcp.NewToolResultError(apperr.UserMessage(err))
	}
	log.Printf("MCP: %s: %v", op, err)
	return mcp.NewToolResultError(fmt.Sprintf("%s failed", op))
}
