// Package mcpserver exposes the bridge to an AI agent as MCP tools over
// stdio: ask_user (blocking question), fetch_last_reply (cache hit or resume
// after an interrupted wait), notify_user, and send_file. While a question
// is waiting, the server emits MCP progress notifications on the request's
// progress token so the calling client's own tool timeout does not fire.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"courier/pkg/bridge"
	"courier/pkg/monitor"
	"courier/pkg/utils"
)

const (
	serverName    = "courier"
	serverVersion = "1.0.0"
)

// ChatTransport is everything the tool surface needs from the chat side.
// *telegram.Transport satisfies it; tests substitute fakes.
type ChatTransport interface {
	bridge.Transport
	SendQuestion(ctx context.Context, text string, buttons []string) (bridge.Question, error)
	SendNotice(ctx context.Context, text string) error
	SendDocument(ctx context.Context, path, caption string) error
	SendImage(ctx context.Context, source string) error
	FetchMediaBytes(ctx context.Context, ref bridge.MediaRef) ([]byte, string, error)
}

// Dependencies holds the shared singletons the tool handlers operate on.
// Cursor and Ledger live for the whole process; each blocking tool call
// builds its own poller and wait session around them.
type Dependencies struct {
	Transport     ChatTransport
	Ledger        *bridge.Ledger
	Cursor        *bridge.Cursor
	Matcher       *bridge.Matcher
	Policy        *bridge.TimeoutPolicy
	PollInterval  time.Duration
	LongPollWait  time.Duration
	LivenessEvery time.Duration
}

// Server is the MCP stdio server wrapping the bridge.
type Server struct {
	mcpServer *mcp.Server
	deps      Dependencies

	mu       sync.RWMutex
	fallback string // substituted for a non-urgent timeout
}

// New builds the server and registers its tools.
func New(deps Dependencies, fallback string) *Server {
	s := &Server{
		deps:     deps,
		fallback: fallback,
	}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "ask_user",
		Description: "Ask the human operator a question over Telegram and block until they reply. Supports optional quick-reply buttons and image attachments. Returns the reply text and any attached images.",
	}, s.handleAskUser)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "fetch_last_reply",
		Description: "Fetch the reply to the most recent question (or an explicit question id). Returns the cached reply immediately if one arrived, otherwise resumes waiting. Use this to recover after a client-side timeout interrupted ask_user.",
	}, s.handleFetchLastReply)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "notify_user",
		Description: "Send the human operator an informational Telegram message without waiting for a reply.",
	}, s.handleNotifyUser)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "send_file",
		Description: "Send a local file to the human operator as a Telegram document, with an optional caption.",
	}, s.handleSendFile)

	s.mcpServer = srv
	return s
}

// SetFallback swaps the canned text returned on a non-urgent timeout. Called
// from the configuration reload path.
func (s *Server) SetFallback(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text != "" {
		s.fallback = text
	}
}

func (s *Server) fallbackText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallback
}

// Run connects the server to stdio and blocks until the client disconnects
// or ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	session, err := s.mcpServer.Connect(ctx, &mcp.StdioTransport{}, nil)
	if err != nil {
		return fmt.Errorf("failed to connect stdio transport: %w", err)
	}
	slog.Info("MCP server started", "mode", "stdio", "name", serverName)
	return session.Wait()
}

// AskUserInput is the ask_user tool's argument schema.
type AskUserInput struct {
	Question   string   `json:"question" jsonschema:"the question to present to the human operator"`
	Buttons    []string `json:"buttons,omitempty" jsonschema:"optional quick-reply choices rendered as inline buttons; a press is returned as the reply text"`
	ImagePaths []string `json:"image_paths,omitempty" jsonschema:"optional local file paths or http(s) URLs of images to send alongside the question"`
	Urgent     bool     `json:"urgent,omitempty" jsonschema:"when true a missed reply deadline fails the call instead of returning the fallback text"`
}

func (s *Server) handleAskUser(ctx context.Context, req *mcp.CallToolRequest, in AskUserInput) (*mcp.CallToolResult, any, error) {
	ctx = monitor.WithRequestID(ctx, utils.GenerateID())

	if in.Question == "" {
		return nil, nil, fmt.Errorf("question must not be empty")
	}

	for _, src := range in.ImagePaths {
		if err := s.deps.Transport.SendImage(ctx, src); err != nil {
			slog.Warn("question image not sent", "source", src, "error", err)
		}
	}

	q, err := s.deps.Transport.SendQuestion(ctx, in.Question, in.Buttons)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send question: %w", err)
	}
	q.Urgent = in.Urgent
	s.deps.Ledger.RecordQuestion(q)
	slog.Info("question sent", "question_id", q.ID, "mode", q.Mode, "buttons", len(in.Buttons))

	return s.await(ctx, req, q)
}

// FetchLastReplyInput is the fetch_last_reply tool's argument schema.
type FetchLastReplyInput struct {
	QuestionID int `json:"question_id,omitempty" jsonschema:"explicit question message id to look up; defaults to the most recently asked question"`
}

func (s *Server) handleFetchLastReply(ctx context.Context, req *mcp.CallToolRequest, in FetchLastReplyInput) (*mcp.CallToolResult, any, error) {
	ctx = monitor.WithRequestID(ctx, utils.GenerateID())

	if in.QuestionID != 0 {
		if r, ok := s.deps.Ledger.LookupReply(in.QuestionID); ok {
			return s.replyResult(ctx, r), nil, nil
		}
		q, ok := s.deps.Ledger.CurrentQuestion()
		if !ok || q.ID != in.QuestionID {
			return nil, nil, fmt.Errorf("no reply cached and no outstanding question with id %d", in.QuestionID)
		}
		return s.await(ctx, req, q)
	}

	q, ok := s.deps.Ledger.CurrentQuestion()
	if !ok {
		return nil, nil, fmt.Errorf("no question has been asked yet")
	}
	slog.Info("resuming wait", "question_id", q.ID)
	return s.await(ctx, req, q)
}

// NotifyUserInput is the notify_user tool's argument schema.
type NotifyUserInput struct {
	Message string `json:"message" jsonschema:"the message to deliver"`
}

func (s *Server) handleNotifyUser(ctx context.Context, req *mcp.CallToolRequest, in NotifyUserInput) (*mcp.CallToolResult, any, error) {
	ctx = monitor.WithRequestID(ctx, utils.GenerateID())

	if in.Message == "" {
		return nil, nil, fmt.Errorf("message must not be empty")
	}
	if err := s.deps.Transport.SendNotice(ctx, in.Message); err != nil {
		return nil, nil, fmt.Errorf("failed to send notification: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Message delivered."}},
	}, nil, nil
}

// SendFileInput is the send_file tool's argument schema.
type SendFileInput struct {
	Path    string `json:"path" jsonschema:"local path of the file to upload"`
	Caption string `json:"caption,omitempty" jsonschema:"optional caption shown under the document"`
}

func (s *Server) handleSendFile(ctx context.Context, req *mcp.CallToolRequest, in SendFileInput) (*mcp.CallToolResult, any, error) {
	ctx = monitor.WithRequestID(ctx, utils.GenerateID())

	if in.Path == "" {
		return nil, nil, fmt.Errorf("path must not be empty")
	}
	if err := s.deps.Transport.SendDocument(ctx, in.Path, in.Caption); err != nil {
		return nil, nil, fmt.Errorf("failed to send file: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "File delivered."}},
	}, nil, nil
}

// await runs one wait session for q and shapes the outcome for the caller:
// a matched reply becomes content, a non-urgent timeout becomes the fallback
// text, and an urgent timeout propagates as a tool error.
func (s *Server) await(ctx context.Context, req *mcp.CallToolRequest, q bridge.Question) (*mcp.CallToolResult, any, error) {
	poller := bridge.NewPoller(s.deps.Transport, s.deps.Cursor, s.deps.PollInterval, s.deps.LongPollWait)
	session := bridge.NewWaitSession(
		s.deps.Transport, poller, s.deps.Matcher, s.deps.Ledger, s.deps.Policy,
		s.deps.LivenessEvery, s.livenessFunc(ctx, req),
	)

	reply, err := session.Await(ctx, q)
	if err != nil {
		if te, ok := bridge.AsTimeout(err); ok {
			if te.Urgent {
				return nil, nil, fmt.Errorf("the user did not reply within %s", te.Duration)
			}
			slog.Info("non-urgent wait timed out, substituting fallback", "question_id", q.ID, "timeout", te.Duration)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: s.fallbackText()}},
			}, nil, nil
		}
		return nil, nil, err
	}

	return s.replyResult(ctx, reply), nil, nil
}

// livenessFunc adapts the request's MCP progress token to the session's
// liveness signal. Returns nil when the client did not ask for progress; the
// wait works the same either way.
func (s *Server) livenessFunc(ctx context.Context, req *mcp.CallToolRequest) bridge.LivenessFunc {
	if req == nil || req.Params == nil || req.Session == nil {
		return nil
	}
	token := req.Params.GetProgressToken()
	if token == nil {
		return nil
	}
	session := req.Session
	return func(elapsed, remaining time.Duration) error {
		return session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
			ProgressToken: token,
			Progress:      elapsed.Seconds(),
			Total:         (elapsed + remaining).Seconds(),
			Message:       "still waiting for the user to reply",
		})
	}
}

// replyResult converts a resolved reply into MCP content, downloading media
// items on the way. Image attachments become image content; anything else
// degrades to a text item naming what could not be included.
func (s *Server) replyResult(ctx context.Context, reply *bridge.Reply) *mcp.CallToolResult {
	contents := buildContent(ctx, s.deps.Transport, reply)
	return &mcp.CallToolResult{Content: contents}
}

// mediaFetcher is the one transport capability content building needs.
type mediaFetcher interface {
	FetchMediaBytes(ctx context.Context, ref bridge.MediaRef) ([]byte, string, error)
}

// buildContent is split out so it can be exercised with a fake fetcher.
func buildContent(ctx context.Context, fetcher mediaFetcher, reply *bridge.Reply) []mcp.Content {
	var contents []mcp.Content
	for _, item := range reply.Items {
		if item.Media == nil {
			contents = append(contents, &mcp.TextContent{Text: item.Text})
			continue
		}
		ref := *item.Media
		data, mimeType, err := fetcher.FetchMediaBytes(ctx, ref)
		if err != nil {
			slog.Warn("attachment download failed", "file_id", ref.FileID, "error", err)
			contents = append(contents, &mcp.TextContent{
				Text: fmt.Sprintf("[an attached %s could not be downloaded]", ref.Kind),
			})
			continue
		}
		if !utils.IsImageMime(mimeType) {
			name := ref.FileName
			if name == "" {
				name = string(ref.Kind)
			}
			contents = append(contents, &mcp.TextContent{
				Text: fmt.Sprintf("[the user attached %q (%s), which cannot be returned through this tool]", name, mimeType),
			})
			continue
		}
		contents = append(contents, &mcp.ImageContent{Data: data, MIMEType: mimeType})
	}
	if len(contents) == 0 {
		contents = append(contents, &mcp.TextContent{Text: "(the user sent an empty reply)"})
	}
	return contents
}
