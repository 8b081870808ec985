// Package mcp provides an MCP (Model Context Protocol) server that exposes
// task capture, sorting and stats as tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/gtd-brain/internal/core"
	"github.com/valter-silva-au/gtd-brain/internal/observability"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// Server wraps the gtd services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	tasks       core.TaskManager
	sorter      core.SortService
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	loc         *time.Location
	logger      *slog.Logger
}

// Deps groups the services the MCP server calls. MetricsCalc and
// AlertEngine may be nil.
type Deps struct {
	Tasks       core.TaskManager
	Sorter      core.SortService
	MetricsCalc observability.MetricsCalculator
	AlertEngine observability.AlertEngine
	Location    *time.Location
	Logger      *slog.Logger
}

// NewServer creates an MCP server over deps.
func NewServer(deps Deps, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		tasks:       deps.Tasks,
		sorter:      deps.Sorter,
		metricsCalc: deps.MetricsCalc,
		alertEngine: deps.AlertEngine,
		loc:         deps.Location,
		logger:      deps.Logger,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "gtd", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Capture a new task into the inbox.",
	}, s.handleCreateTask)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks, newest first, optionally filtered by status (inbox, today, calendar, delegated, project, done).",
	}, s.handleListTasks)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a single task by ID.",
	}, s.handleGetTask)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task as done.",
	}, s.handleCompleteTask)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_sort",
		Description: "Start the sort wizard for a task and return the first question.",
	}, s.handleStartSort)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "answer_sort",
		Description: "Answer the current question of a sort session. Returns the next question, or the sorted task once the wizard finishes.",
	}, s.handleAnswerSort)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "back_sort",
		Description: "Return a sort session to the previously answered question.",
	}, s.handleBackSort)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "abandon_sort",
		Description: "Abandon a sort session. The task keeps its current list.",
	}, s.handleAbandonSort)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_stats",
		Description: "Completion counts for today and the past week, inbox progress and a motivation message.",
	}, s.handleGetStats)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Sorting throughput derived from the event log over a time window.",
	}, s.handleGetMetrics)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate alert conditions: inbox size, stale inbox items, overdue calendar items and delegated follow-ups.",
	}, s.handleGetAlerts)
}

// errorResult reports a failed tool call to the client.
func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// failure logs err and turns it into an error result. Recoverable errors
// are logged at debug level.
func (s *Server) failure(tool string, err error) *gomcp.CallToolResult {
	level := slog.LevelWarn
	if core.IsRecoverable(err) || core.IsNotFound(err) {
		level = slog.LevelDebug
	}
	s.logger.Log(context.Background(), level, "mcp tool failed", "tool", tool, "error", err)
	return errorResult(fmt.Sprintf("%s: %s", tool, err))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func taskToOutput(t *models.Task) taskOutput {
	out := taskOutput{
		ID:            t.ID,
		Text:          t.Text,
		Status:        string(t.Status),
		IsKey:         t.IsKey,
		IsGolden:      t.IsGolden,
		Collaborators: t.Collaborators,
		DueDatetime:   formatTime(t.DueDatetime),
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		SortedAt:      formatTime(t.SortedAt),
		CompletedAt:   formatTime(t.CompletedAt),
	}
	if t.Responsible != nil {
		out.Responsible = *t.Responsible
	}
	if t.ParentID != nil {
		out.ParentID = *t.ParentID
	}
	if t.Project != nil {
		out.Project = &projectOutput{
			Outcome:   t.Project.Outcome,
			Steps:     t.Project.Steps,
			FirstStep: t.Project.FirstStep,
		}
	}
	return out
}

func viewToOutput(v *core.SortView) sortOutput {
	out := sortOutput{
		SessionID: v.Session.ID,
		TaskID:    v.Session.TaskID,
		Finished:  v.Finished(),
	}
	if v.Question != nil {
		out.State = string(v.Question.State)
		out.Question = v.Question.Prompt
		out.QuestionNumber = v.Question.Number
		out.Expects = string(v.Question.Expects)
	}
	if v.Session.Disposition != nil {
		out.Disposition = string(v.Session.Disposition.Kind)
		out.Urgent = v.Session.Disposition.Urgent
	}
	if v.Task != nil {
		task := taskToOutput(v.Task)
		out.Task = &task
	}
	return out
}
