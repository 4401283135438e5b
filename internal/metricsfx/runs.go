package metricsfx

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/sftp-backuper/pkg/http/handler"
)

func RunMetricHandler(logger *logrus.Logger, repository handler.RunRepository) *handler.RunMetricHandler {
	return handler.NewRunMetricHandler(logger, repository)
}

func RegisterRunMetricHandler(router *mux.Router, h *handler.RunMetricHandler) {
	router.Handle("/metrics/runs", h).Methods("GET")
}
