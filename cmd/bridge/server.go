package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/sims1253/mcp-llm-bridge/bridge"
	"github.com/sims1253/mcp-llm-bridge/conversation"
	"github.com/sims1253/mcp-llm-bridge/types"
)

// request is one line-delimited JSON operation request.
type request struct {
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// response is the matching result envelope.
type response struct {
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Error  *respError `json:"error,omitempty"`
}

type respError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createParams struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	InitialMessage string   `json:"initial_message,omitempty"`
	Topic          string   `json:"topic,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

type summarizeParams struct {
	ConversationID string `json:"conversation_id"`
	Adapter        string `json:"adapter,omitempty"`
}

type recentParams struct {
	ConversationID string `json:"conversation_id"`
	Count          int    `json:"count,omitempty"`
}

type conversationParams struct {
	ConversationID string `json:"conversation_id"`
}

type listParams struct {
	Limit int `json:"limit,omitempty"`
}

type listAdaptersParams struct {
	TestAvailability bool `json:"test_availability,omitempty"`
}

// serve reads one JSON request per line from in and writes one JSON
// response per line to out until EOF.
func serve(in io.Reader, out io.Writer, orch *bridge.Orchestrator, logger *zap.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := writeError(encoder, types.NewError(types.ErrInvalidInput, "malformed request").WithCause(err)); err != nil {
				return err
			}
			continue
		}

		result, err := dispatch(context.Background(), orch, req)
		if err != nil {
			logger.Warn("operation failed",
				zap.String("op", req.Op),
				zap.String("code", string(types.GetErrorCode(err))),
				zap.Error(err))
			if err := writeError(encoder, err); err != nil {
				return err
			}
			continue
		}
		if err := encoder.Encode(response{OK: true, Result: result}); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func writeError(encoder *json.Encoder, err error) error {
	code := types.GetErrorCode(err)
	if code == "" {
		code = types.ErrStorageError
	}
	return encoder.Encode(response{OK: false, Error: &respError{
		Code:    string(code),
		Message: err.Error(),
	}})
}

func dispatch(ctx context.Context, orch *bridge.Orchestrator, req request) (any, error) {
	switch req.Op {
	case "create_conversation":
		var p createParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		id, err := orch.CreateConversation(ctx, conversation.CreateOptions{
			ID:             p.ConversationID,
			InitialMessage: p.InitialMessage,
			Topic:          p.Topic,
			Tags:           p.Tags,
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{"conversation_id": id}, nil

	case "call_llm":
		var p bridge.CallRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return orch.CallLLM(ctx, p)

	case "call_llm_parallel":
		var p bridge.ParallelRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return orch.CallLLMParallel(ctx, p)

	case "summarize_conversation":
		var p summarizeParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return orch.Summarize(ctx, p.ConversationID, p.Adapter)

	case "get_recent_messages":
		var p recentParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		if p.Count == 0 {
			p.Count = 5
		}
		return orch.RecentMessages(ctx, p.ConversationID, p.Count)

	case "get_conversation_summary":
		var p conversationParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return orch.ConversationSummary(ctx, p.ConversationID)

	case "list_conversations":
		var p listParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		if p.Limit == 0 {
			p.Limit = 20
		}
		return orch.ListConversations(ctx, p.Limit)

	case "list_adapters":
		var p listAdaptersParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return orch.ListAdapters(ctx, p.TestAvailability)

	default:
		return nil, types.Errorf(types.ErrInvalidInput, "unknown operation %q", req.Op)
	}
}

func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return types.NewError(types.ErrInvalidInput, fmt.Sprintf("invalid params: %v", err))
	}
	return nil
}
