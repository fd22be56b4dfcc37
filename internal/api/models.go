package api

import (
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
)

// ReorderRequest defines the payload of POST /ranking/reorder. Ranks are
// 1-based; View is the ranked list of task IDs the user was looking at.
type ReorderRequest struct {
	TaskID   string   `json:"task_id"        validate:"required"`
	FromRank int      `json:"from_rank"      validate:"min=1"`
	ToRank   int      `json:"to_rank"        validate:"min=1"`
	View     []string `json:"view,omitempty" validate:"omitempty,dive,required"`
}

func (r ReorderRequest) toRanking() ranking.ReorderRequest {
	return ranking.ReorderRequest{
		TaskID:   r.TaskID,
		FromRank: r.FromRank,
		ToRank:   r.ToRank,
		View:     r.View,
	}
}

// TaskListResponse is the body of GET /tasks.
type TaskListResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Count int           `json:"count"`
}

// RankingResponse is the body of GET /ranking.
type RankingResponse struct {
	Tasks   []ranking.RankedTask     `json:"tasks"`
	Count   int                      `json:"count"`
	Weights ranking.HeuristicWeights `json:"weights"`
}

// RebalanceListResponse is the body of GET /rebalances.
type RebalanceListResponse struct {
	Events []ranking.RebalanceEvent `json:"events"`
	Count  int                      `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	OpenTasks int    `json:"open_tasks"`
}
