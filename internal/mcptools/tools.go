// Package mcptools exposes the task service as Model Context Protocol tools
// so that agents can read and reshape the priority queue.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/redact"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
)

// Tool names
const (
	ToolGetPriorityQueue = "get_priority_queue"
	ToolGetNextTask      = "get_next_task"
	ToolCreateTask       = "create_task"
	ToolUpdateTask       = "update_task"
	ToolCompleteTask     = "complete_task"
	ToolLogReorder       = "log_reorder"
	ToolGetLearnerState  = "get_learner_state"
	ToolUpdateWeights    = "update_weights"
)

const serverInstructions = `Priority Forge ranks open tasks by priority tier adjusted for what they
block, deadlines, effort and dependency depth. Call get_next_task before
starting work. When the user reorders tasks by hand, report the move with
log_reorder so the ranking learns their preferences.`

var validate = validator.New(validator.WithRequiredStructEnabled())

// Tools binds the MCP tool handlers to a task service.
type Tools struct {
	svc    service.TaskService
	logger *slog.Logger
}

// NewTools creates the tool handlers.
func NewTools(svc service.TaskService, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{svc: svc, logger: logger.With(slog.String("component", "mcp_tools"))}
}

// NewServer creates an MCP server with every tool registered.
func NewServer(name, version string, svc service.TaskService, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)
	NewTools(svc, logger).Register(s)
	return s
}

// Register adds the tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool(ToolGetPriorityQueue,
		mcp.WithDescription("List open tasks in rank order, highest priority first."),
		mcp.WithInputSchema[QueueArgs](),
	), t.GetPriorityQueue)

	s.AddTool(mcp.NewTool(ToolGetNextTask,
		mcp.WithDescription("Return the single highest-ranked open task with its score breakdown."),
	), t.GetNextTask)

	s.AddTool(mcp.NewTool(ToolCreateTask,
		mcp.WithDescription("Create a task and re-rank the queue."),
		mcp.WithInputSchema[CreateTaskArgs](),
	), t.CreateTask)

	s.AddTool(mcp.NewTool(ToolUpdateTask,
		mcp.WithDescription("Change fields of a task. Setting status to complete completes it."),
		mcp.WithInputSchema[UpdateTaskArgs](),
	), t.UpdateTask)

	s.AddTool(mcp.NewTool(ToolCompleteTask,
		mcp.WithDescription("Mark a task complete, removing it from the queue."),
		mcp.WithInputSchema[TaskIDArgs](),
	), t.CompleteTask)

	s.AddTool(mcp.NewTool(ToolLogReorder,
		mcp.WithDescription("Report that the user moved a task from one rank to another. "+
			"The ranking weights learn from the move."),
		mcp.WithInputSchema[ReorderArgs](),
	), t.LogReorder)

	s.AddTool(mcp.NewTool(ToolGetLearnerState,
		mcp.WithDescription("Show the learner configuration, momentum, accuracy and current weights."),
	), t.GetLearnerState)

	s.AddTool(mcp.NewTool(ToolUpdateWeights,
		mcp.WithDescription("Set one or more heuristic weights explicitly."),
		mcp.WithInputSchema[WeightsArgs](),
	), t.UpdateWeights)
}

// queueEntry is one row of get_priority_queue output.
type queueEntry struct {
	Rank      int                     `json:"rank"`
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Project   string                  `json:"project,omitempty"`
	Priority  string                  `json:"priority"`
	Status    string                  `json:"status"`
	Score     float64                 `json:"score"`
	Factors   *ranking.TaskFactors    `json:"factors,omitempty"`
	Breakdown *ranking.ScoreBreakdown `json:"breakdown,omitempty"`
}

type queueResult struct {
	Tasks   []queueEntry             `json:"tasks"`
	Total   int                      `json:"total"`
	Weights ranking.HeuristicWeights `json:"weights"`
}

// GetPriorityQueue handles get_priority_queue.
func (t *Tools) GetPriorityQueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args QueueArgs
	if res := bind(request, &args); res != nil {
		return res, nil
	}

	ranked := t.svc.Ranking(ctx)
	shown := ranked
	if args.Limit > 0 && args.Limit < len(ranked) {
		shown = ranked[:args.Limit]
	}

	out := queueResult{
		Tasks:   make([]queueEntry, 0, len(shown)),
		Total:   len(ranked),
		Weights: t.svc.Weights(ctx),
	}
	for _, rt := range shown {
		entry := queueEntry{
			Rank:     rt.Rank,
			ID:       rt.Task.ID,
			Title:    rt.Task.Title,
			Project:  rt.Task.Project,
			Priority: string(rt.Task.Priority),
			Status:   string(rt.Task.Status),
			Score:    rt.Score,
		}
		if args.IncludeFactors {
			entry.Factors = &rt.Factors
			entry.Breakdown = &rt.Breakdown
		}
		out.Tasks = append(out.Tasks, entry)
	}
	return jsonResult(out)
}

// GetNextTask handles get_next_task.
func (t *Tools) GetNextTask(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	next, ok := t.svc.NextTask(ctx)
	if !ok {
		return mcp.NewToolResultText("No open tasks."), nil
	}
	return jsonResult(next)
}

// CreateTask handles create_task.
func (t *Tools) CreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args CreateTaskArgs
	if res := bind(request, &args); res != nil {
		return res, nil
	}
	input, err := args.toInput()
	if err != nil {
		return t.toolError(ctx, ToolCreateTask, err), nil
	}

	task, err := t.svc.CreateTask(ctx, input)
	if err != nil {
		return t.toolError(ctx, ToolCreateTask, err), nil
	}
	return jsonResult(task)
}

// UpdateTask handles update_task.
func (t *Tools) UpdateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args UpdateTaskArgs
	if res := bind(request, &args); res != nil {
		return res, nil
	}
	input, err := args.toInput()
	if err != nil {
		return t.toolError(ctx, ToolUpdateTask, err), nil
	}

	task, err := t.svc.UpdateTask(ctx, args.ID, input)
	if err != nil {
		return t.toolError(ctx, ToolUpdateTask, err), nil
	}
	return jsonResult(task)
}

// CompleteTask handles complete_task.
func (t *Tools) CompleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args TaskIDArgs
	if res := bind(request, &args); res != nil {
		return res, nil
	}

	task, err := t.svc.CompleteTask(ctx, args.ID)
	if err != nil {
		return t.toolError(ctx, ToolCompleteTask, err), nil
	}
	return jsonResult(task)
}

// LogReorder handles log_reorder.
func (t *Tools) LogReorder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ReorderArgs
	if res := bind(request, &args); res != nil {
		return res, nil
	}

	result, err := t.svc.LogReorder(ctx, ranking.ReorderRequest{
		TaskID:   args.TaskID,
		FromRank: args.FromRank,
		ToRank:   args.ToRank,
		View:     args.View,
	})
	if err != nil {
		return t.toolError(ctx, ToolLogReorder, err), nil
	}
	return jsonResult(result)
}

type learnerResult struct {
	ranking.LearnerState
	Weights ranking.HeuristicWeights `json:"weights"`
}

// GetLearnerState handles get_learner_state.
func (t *Tools) GetLearnerState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(learnerResult{
		LearnerState: t.svc.LearnerState(ctx),
		Weights:      t.svc.Weights(ctx),
	})
}

// UpdateWeights handles update_weights.
func (t *Tools) UpdateWeights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args WeightsArgs
	if res := bind(request, &args); res != nil {
		return res, nil
	}

	weights, err := t.svc.UpdateWeights(ctx, args.toUpdate())
	if err != nil {
		return t.toolError(ctx, ToolUpdateWeights, err), nil
	}
	return jsonResult(weights)
}

// bind decodes and validates the tool arguments. It returns a tool error
// result when they are unusable.
func bind(request mcp.CallToolRequest, args any) *mcp.CallToolResult {
	if err := request.BindArguments(args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := validate.Struct(args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (t *Tools) toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	msg := redact.Error(err)
	t.logger.DebugContext(ctx, "tool call failed", slog.String("tool", tool), slog.String("error", msg))
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", tool, msg))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
