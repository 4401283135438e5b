package appcontext

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextId int

const (
	runIdKeyId contextId = iota
	scheduleKeyId
	requestIdKeyId
)

func WithRequestId(ctx context.Context, requestId string) context.Context {
	return context.WithValue(ctx, requestIdKeyId, requestId)
}

func WithRunId(ctx context.Context, runId string) context.Context {
	return context.WithValue(ctx, runIdKeyId, runId)
}

func WithSchedule(ctx context.Context, spec string) context.Context {
	return context.WithValue(ctx, scheduleKeyId, spec)
}

func RunIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	runId, _ := ctx.Value(runIdKeyId).(string)
	return runId
}

func LoggerFromContext(logger logrus.FieldLogger, ctx context.Context) logrus.FieldLogger {
	if ctx == nil {
		return logger
	}

	result := logger

	if ctxRunId, ok := ctx.Value(runIdKeyId).(string); ok && ctxRunId != "" {
		result = result.WithField("run_id", ctxRunId)
	}

	if ctxSchedule, ok := ctx.Value(scheduleKeyId).(string); ok && ctxSchedule != "" {
		result = result.WithField("schedule", ctxSchedule)
	}

	if ctxRequestId, ok := ctx.Value(requestIdKeyId).(string); ok && ctxRequestId != "" {
		result = result.WithField("request_id", ctxRequestId)
	}

	return result
}
