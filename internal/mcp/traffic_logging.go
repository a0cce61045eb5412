package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// trafficLoggingMiddleware logs every MCP message at debug level. Tool calls
// carry the tool name so a request and its response can be paired in the log.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			params := encodePayload(requestParams(req))
			attrs := []any{"direction", direction, "method", method, "session_id", sessionID(req)}
			if method == "tools/call" {
				attrs = append(attrs, "tool", toolName(params))
			}
			if actor := actorFrom(ctx); actor != nil {
				attrs = append(attrs, "actor", actor.Username)
			}
			logger.Debug("mcp request", append(attrs, "params", params)...)

			start := time.Now()
			result, err := next(ctx, method, req)
			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}

			attrs = append(attrs, "elapsed", time.Since(start), "result", encodePayload(result))
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			logger.Debug("mcp response", attrs...)
			return result, err
		}
	}
}

// sessionID and requestParams tolerate requests whose session or params
// are nil interfaces wrapping nil pointers.
func sessionID(req sdkmcp.Request) (id string) {
	defer func() { recover() }()
	if req == nil {
		return ""
	}
	if s := req.GetSession(); s != nil {
		return s.ID()
	}
	return ""
}

func requestParams(req sdkmcp.Request) (params any) {
	defer func() { recover() }()
	if req == nil {
		return nil
	}
	return req.GetParams()
}

func toolName(params string) string {
	var p struct {
		Name string `json:"name"`
	}
	if json.Unmarshal([]byte(params), &p) != nil {
		return ""
	}
	return p.Name
}

func encodePayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
