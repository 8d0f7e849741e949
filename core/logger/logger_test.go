package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/sessionkit/core/logger"
)

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(&buf))

	log.Info("hello", logger.Component("test"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"component":"test"`)
}

func TestWithAttrAppliesToEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(
		logger.WithJSONFormatter(),
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("service", "sessionkit")),
	)
	log.Info("started")

	assert.Contains(t, buf.String(), `"service":"sessionkit"`)
}

func TestWithLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))

	log.Info("should not appear")
	log.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestWithContextValueInjectsAttribute(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(
		logger.WithJSONFormatter(),
		logger.WithOutput(&buf),
		logger.WithContextValue("request_id", "request_id"),
	)

	ctx := context.WithValue(context.Background(), "request_id", "req-1")
	log.InfoContext(ctx, "handled")

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}

func TestWithProductionTagsServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithProduction("sessionkit"), logger.WithOutput(&buf))
	log.Info("up")

	out := buf.String()
	assert.Contains(t, out, `"service":"sessionkit"`)
	assert.Contains(t, out, `"env":"production"`)
}
