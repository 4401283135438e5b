package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/sftp-backuper/pkg/appcontext"
	"github.com/yurykabanov/sftp-backuper/pkg/domain"
)

const (
	defaultRunsLimit = 10
	maxRunsLimit     = 100
)

type RunRepository interface {
	FindLatest(ctx context.Context, limit int) ([]domain.Run, error)
}

type RunMetricHandler struct {
	logger logrus.FieldLogger
	repo   RunRepository
}

func NewRunMetricHandler(logger logrus.FieldLogger, repo RunRepository) *RunMetricHandler {
	return &RunMetricHandler{
		logger: logger,
		repo:   repo,
	}
}

type runMetricResponse struct {
	RunId       string `json:"run_id"`
	Status      string `json:"status"`
	LastState   string `json:"last_state"`
	ArchiveName string `json:"archive_name,omitempty"`
	ArchiveSize int64  `json:"archive_size"`
	PrunedCount int    `json:"pruned_count"`
	Uploaded    bool   `json:"uploaded"`
	Error       string `json:"error,omitempty"`
	StartedAt   int64  `json:"started_at_mtime"`
	Duration    int64  `json:"duration_ms,omitempty"`
}

func (h *RunMetricHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	logger := appcontext.LoggerFromContext(h.logger, ctx)

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if n > maxRunsLimit {
			n = maxRunsLimit
		}
		limit = n
	}

	runs, err := h.repo.FindLatest(ctx, limit)
	if err != nil {
		logger.WithError(err).Error("Unable to query latest backup runs")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	result := make([]runMetricResponse, 0, len(runs))

	for _, run := range runs {
		item := runMetricResponse{
			RunId:       run.RunId,
			Status:      run.Status.String(),
			LastState:   run.LastState,
			ArchiveName: run.ArchiveName,
			ArchiveSize: run.ArchiveSize,
			PrunedCount: run.PrunedCount,
			Uploaded:    run.Uploaded,
			Error:       run.Error,
			StartedAt:   run.StartedAt.UnixNano() / 1e6,
		}

		if run.FinishedAt != nil {
			item.Duration = run.FinishedAt.Sub(run.StartedAt).Nanoseconds() / 1e6
		}

		result = append(result, item)
	}

	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	err = enc.Encode(result)
	if err != nil {
		logger.WithError(err).Error("Unable to encode response")
	}
}
