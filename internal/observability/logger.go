package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/duckmesh/duckask/internal/config"
)

type ctxKey string

const turnIDKey ctxKey = "turn_id"

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

// ContextWithTurnID tags ctx with a fresh id for one question/answer turn.
func ContextWithTurnID(ctx context.Context) context.Context {
	return context.WithValue(ctx, turnIDKey, newTurnID())
}

func TurnIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(turnIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func newTurnID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}
