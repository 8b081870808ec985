package mcp

import (
	"context"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/gtd-brain/internal/core"
	"github.com/valter-silva-au/gtd-brain/internal/observability"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// --- Tool input/output types ---

type createTaskInput struct {
	Text          string   `json:"text" jsonschema:"required,what needs doing, as captured"`
	IsKey         bool     `json:"is_key,omitempty" jsonschema:"mark as a key task"`
	IsGolden      bool     `json:"is_golden,omitempty" jsonschema:"mark as a golden task"`
	Collaborators []string `json:"collaborators,omitempty" jsonschema:"people involved"`
}

type projectOutput struct {
	Outcome   string   `json:"outcome"`
	Steps     []string `json:"steps"`
	FirstStep string   `json:"first_step"`
}

type taskOutput struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	Status        string         `json:"status"`
	IsKey         bool           `json:"is_key"`
	IsGolden      bool           `json:"is_golden"`
	Collaborators []string       `json:"collaborators,omitempty"`
	DueDatetime   string         `json:"due_datetime,omitempty"`
	Responsible   string         `json:"responsible,omitempty"`
	Project       *projectOutput `json:"project,omitempty"`
	ParentID      string         `json:"parent_id,omitempty"`
	CreatedAt     string         `json:"created_at"`
	SortedAt      string         `json:"sorted_at,omitempty"`
	CompletedAt   string         `json:"completed_at,omitempty"`
}

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier (e.g. GTD-00042)"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter by status (inbox, today, calendar, delegated, project, done)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type sessionInput struct {
	SessionID string `json:"session_id" jsonschema:"required,the sort session identifier returned by start_sort"`
}

type abandonSortOutput struct {
	SessionID string `json:"session_id"`
	Abandoned bool   `json:"abandoned"`
}

type answerSortInput struct {
	SessionID string   `json:"session_id" jsonschema:"required,the sort session identifier returned by start_sort"`
	Kind      string   `json:"kind" jsonschema:"required,the answer kind the question expects (boolean, text, datetime, project)"`
	Yes       *bool    `json:"yes,omitempty" jsonschema:"answer to a boolean question"`
	Text      *string  `json:"text,omitempty" jsonschema:"answer to a text question (who to delegate to)"`
	Datetime  *string  `json:"datetime,omitempty" jsonschema:"answer to a datetime question, RFC 3339 or YYYY-MM-DD HH:MM"`
	Outcome   string   `json:"outcome,omitempty" jsonschema:"project outcome"`
	Steps     []string `json:"steps,omitempty" jsonschema:"project steps"`
	FirstStep string   `json:"first_step,omitempty" jsonschema:"project first step, one of steps"`
}

type sortOutput struct {
	SessionID      string      `json:"session_id"`
	TaskID         string      `json:"task_id"`
	Finished       bool        `json:"finished"`
	State          string      `json:"state,omitempty"`
	Question       string      `json:"question,omitempty"`
	QuestionNumber int         `json:"question_number,omitempty"`
	Expects        string      `json:"expects,omitempty"`
	Disposition    string      `json:"disposition,omitempty"`
	Urgent         bool        `json:"urgent,omitempty"`
	Task           *taskOutput `json:"task,omitempty"`
}

type getStatsInput struct{}

type statsOutput struct {
	TodayDone    int    `json:"today_done"`
	TodayKeyDone int    `json:"today_key_done"`
	WeekDone     int    `json:"week_done"`
	WeekKeyDone  int    `json:"week_key_done"`
	Progress     int    `json:"progress"`
	Motivation   string `json:"motivation"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	TasksCreated          int            `json:"tasks_created"`
	TasksSorted           int            `json:"tasks_sorted"`
	SortedByDisposition   map[string]int `json:"sorted_by_disposition"`
	UrgentSorted          int            `json:"urgent_sorted"`
	TasksCompleted        int            `json:"tasks_completed"`
	SortSessionsStarted   int            `json:"sort_sessions_started"`
	SortSessionsAbandoned int            `json:"sort_sessions_abandoned"`
	EventCount            int            `json:"event_count"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool handlers ---

func (s *Server) handleCreateTask(_ context.Context, _ *gomcp.CallToolRequest, input createTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	task, err := s.tasks.CreateTask(models.TaskInput{
		Text:          input.Text,
		IsKey:         input.IsKey,
		IsGolden:      input.IsGolden,
		Collaborators: input.Collaborators,
	})
	if err != nil {
		return s.failure("create_task", err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	tasks, err := s.tasks.ListTasks(models.TaskStatus(input.Status))
	if err != nil {
		return s.failure("list_tasks", err), listTasksOutput{}, nil
	}
	out := listTasksOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i, t := range tasks {
		out.Tasks[i] = taskToOutput(t)
	}
	return nil, out, nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	task, err := s.tasks.GetTask(input.TaskID)
	if err != nil {
		return s.failure("get_task", err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleCompleteTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	task, err := s.tasks.CompleteTask(input.TaskID)
	if err != nil {
		return s.failure("complete_task", err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleStartSort(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, sortOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), sortOutput{}, nil
	}
	view, err := s.sorter.Start(input.TaskID)
	if err != nil {
		return s.failure("start_sort", err), sortOutput{}, nil
	}
	return nil, viewToOutput(view), nil
}

func (s *Server) handleAnswerSort(_ context.Context, _ *gomcp.CallToolRequest, input answerSortInput) (*gomcp.CallToolResult, sortOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), sortOutput{}, nil
	}
	answer, err := core.ParseAnswer(models.AnswerPayload{
		Kind:      models.InputKind(input.Kind),
		Yes:       input.Yes,
		Text:      input.Text,
		Datetime:  input.Datetime,
		Outcome:   input.Outcome,
		Steps:     input.Steps,
		FirstStep: input.FirstStep,
	}, s.loc)
	if err != nil {
		return s.failure("answer_sort", err), sortOutput{}, nil
	}
	view, err := s.sorter.Answer(input.SessionID, answer)
	if err != nil {
		return s.failure("answer_sort", err), sortOutput{}, nil
	}
	return nil, viewToOutput(view), nil
}

func (s *Server) handleBackSort(_ context.Context, _ *gomcp.CallToolRequest, input sessionInput) (*gomcp.CallToolResult, sortOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), sortOutput{}, nil
	}
	view, err := s.sorter.Back(input.SessionID)
	if err != nil {
		return s.failure("back_sort", err), sortOutput{}, nil
	}
	return nil, viewToOutput(view), nil
}

func (s *Server) handleAbandonSort(_ context.Context, _ *gomcp.CallToolRequest, input sessionInput) (*gomcp.CallToolResult, abandonSortOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), abandonSortOutput{}, nil
	}
	if err := s.sorter.Abandon(input.SessionID); err != nil {
		return s.failure("abandon_sort", err), abandonSortOutput{}, nil
	}
	return nil, abandonSortOutput{SessionID: input.SessionID, Abandoned: true}, nil
}

func (s *Server) handleGetStats(_ context.Context, _ *gomcp.CallToolRequest, _ getStatsInput) (*gomcp.CallToolResult, statsOutput, error) {
	stats, err := s.tasks.Stats()
	if err != nil {
		return s.failure("get_stats", err), statsOutput{}, nil
	}
	progress, err := s.tasks.Progress()
	if err != nil {
		return s.failure("get_stats", err), statsOutput{}, nil
	}
	motivation, err := s.tasks.Motivation()
	if err != nil {
		return s.failure("get_stats", err), statsOutput{}, nil
	}
	return nil, statsOutput{
		TodayDone:    stats.TodayDone,
		TodayKeyDone: stats.TodayKeyDone,
		WeekDone:     stats.WeekDone,
		WeekKeyDone:  stats.WeekKeyDone,
		Progress:     progress,
		Motivation:   motivation,
	}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), metricsOutput{SortedByDisposition: map[string]int{}}, nil
	}
	window := input.Since
	if window == "" {
		window = "7d"
	}
	since, err := observability.ParseSince(window, time.Now().UTC())
	if err != nil {
		return errorResult(err.Error()), metricsOutput{SortedByDisposition: map[string]int{}}, nil
	}
	m, err := s.metricsCalc.Calculate(since)
	if err != nil {
		return s.failure("get_metrics", err), metricsOutput{SortedByDisposition: map[string]int{}}, nil
	}
	return nil, metricsOutput{
		TasksCreated:          m.TasksCreated,
		TasksSorted:           m.TasksSorted,
		SortedByDisposition:   m.SortedByDisposition,
		UrgentSorted:          m.UrgentSorted,
		TasksCompleted:        m.TasksCompleted,
		SortSessionsStarted:   m.SortSessionsStarted,
		SortSessionsAbandoned: m.SortSessionsAbandoned,
		EventCount:            m.EventCount,
	}, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}
	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return s.failure("get_alerts", err), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}
	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}
