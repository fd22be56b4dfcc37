package api

import (
	"log/slog"
	"net/http"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/api/shared"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
)

// RankingHandler serves the ranked queue, reorder feedback, weights and
// learner endpoints.
type RankingHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewRankingHandler creates a new RankingHandler
func NewRankingHandler(taskService service.TaskService, logger *slog.Logger) *RankingHandler {
	if taskService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("taskService cannot be nil for RankingHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RankingHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "ranking_handler")),
	}
}

// GetRanking handles GET /ranking requests
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ranked, weights := h.taskService.RankingSnapshot(r.Context())
	shared.RespondWithJSON(w, r, http.StatusOK, RankingResponse{
		Tasks:   ranked,
		Count:   len(ranked),
		Weights: weights,
	})
}

// GetNext handles GET /ranking/next requests. An empty queue answers 204.
func (h *RankingHandler) GetNext(w http.ResponseWriter, r *http.Request) {
	next, ok := h.taskService.NextTask(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, next)
}

// Explain handles GET /ranking/{id}/explain requests
func (h *RankingHandler) Explain(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	ranked, err := h.taskService.ExplainTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to explain task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ranked)
}

// LogReorder handles POST /ranking/reorder requests
func (h *RankingHandler) LogReorder(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ReorderRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	result, err := h.taskService.LogReorder(r.Context(), req.toRanking())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to log reorder")
		return
	}

	log.Debug("reorder logged",
		slog.String("task_id", req.TaskID),
		slog.Int("from_rank", req.FromRank),
		slog.Int("to_rank", req.ToRank),
		slog.Bool("weights_updated", result.WeightUpdateApplied))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// GetWeights handles GET /weights requests
func (h *RankingHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.taskService.Weights(r.Context()))
}

// UpdateWeights handles PUT /weights requests. Omitted weights are kept.
func (h *RankingHandler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ranking.WeightsUpdate
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	weights, err := h.taskService.UpdateWeights(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update weights")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, weights)
}

// GetLearner handles GET /learner requests
func (h *RankingHandler) GetLearner(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.taskService.LearnerState(r.Context()))
}

// UpdateLearner handles PATCH /learner requests
func (h *RankingHandler) UpdateLearner(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ranking.LearnerConfigUpdate
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	state, err := h.taskService.UpdateLearnerConfig(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update learner")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, state)
}

// ListRebalances handles GET /rebalances requests, newest first.
func (h *RankingHandler) ListRebalances(w http.ResponseWriter, r *http.Request) {
	limit, err := getLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	events, err := h.taskService.RebalanceHistory(r.Context(), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list rebalances")
		return
	}
	if events == nil {
		events = []ranking.RebalanceEvent{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, RebalanceListResponse{Events: events, Count: len(events)})
}

// Health handles GET /health requests
func (h *RankingHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "ok",
		OpenTasks: len(h.taskService.Ranking(r.Context())),
	})
}
