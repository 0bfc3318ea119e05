package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesKeyValues(t *testing.T) {
	req := require.New(t)
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core), "pdfchat")

	logger.Info("chat created", "chat_id", "c-1")
	logger.Named("repo").Warn("slow query", "ms", 250)

	entries := logs.All()
	req.Len(entries, 2)
	req.Equal("chat created", entries[0].Message)
	req.Equal(zapcore.InfoLevel, entries[0].Level)
	req.Equal("c-1", entries[0].ContextMap()["chat_id"])
	req.Equal("pdfchat", entries[0].ContextMap()["service"])
	req.Equal("repo", entries[1].LoggerName)
	req.EqualValues(250, entries[1].ContextMap()["ms"])
}

func TestNewLogger(t *testing.T) {
	req := require.New(t)

	logger, err := NewLogger("pdfchat", "test", "")
	req.NoError(err)
	logger.Error("discarded")

	_, err = NewLogger("pdfchat", "development", "debug")
	req.NoError(err)

	_, err = NewLogger("pdfchat", "production", "loud")
	req.Error(err)
}
