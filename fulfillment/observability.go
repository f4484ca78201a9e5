package fulfillment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

func (p *Pipeline) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if p == nil {
		return
	}
	operation = strings.TrimSpace(strings.ToLower(operation))
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["operation"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = p.clock().Sub(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range []string{"session_id", "provider_id"} {
		if value := strings.TrimSpace(fmt.Sprint(contextFields[key])); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	p.recordCounter(ctx, "fulfillment."+operation+".total", 1, tags)
	p.recordHistogram(ctx, "fulfillment."+operation+".duration_ms", float64(p.clock().Sub(startedAt).Milliseconds()), tags)

	if err != nil {
		p.logError(ctx, operation+" failed", contextFields)
		return
	}
	p.logInfo(ctx, operation+" succeeded", contextFields)
}

func (p *Pipeline) logInfo(ctx context.Context, message string, fields map[string]any) {
	p.logWithLevel(ctx, "info", message, fields)
}

func (p *Pipeline) logError(ctx context.Context, message string, fields map[string]any) {
	p.logWithLevel(ctx, "error", message, fields)
}

func (p *Pipeline) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if p == nil || p.logger == nil {
		return
	}
	logger := p.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (p *Pipeline) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if p == nil || p.metricsRecorder == nil {
		return
	}
	p.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, core.CloneTags(tags))
}

func (p *Pipeline) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if p == nil || p.metricsRecorder == nil {
		return
	}
	p.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, core.CloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
