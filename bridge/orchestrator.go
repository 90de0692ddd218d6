package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sims1253/mcp-llm-bridge/adapter"
	"github.com/sims1253/mcp-llm-bridge/conversation"
	"github.com/sims1253/mcp-llm-bridge/internal/metrics"
	"github.com/sims1253/mcp-llm-bridge/selector"
	"github.com/sims1253/mcp-llm-bridge/types"
)

// CallStatus is the terminal state of one logical adapter call.
type CallStatus string

const (
	StatusCompleted    CallStatus = "completed"
	StatusTimeout      CallStatus = "timeout"
	StatusAdapterError CallStatus = "adapter_error"
	StatusNotFound     CallStatus = "not_found"
)

// statusOf maps an invocation error to its terminal call status.
func statusOf(err error) CallStatus {
	switch types.GetErrorCode(err) {
	case types.ErrTimeout:
		return StatusTimeout
	case types.ErrNotFound:
		return StatusNotFound
	default:
		return StatusAdapterError
	}
}

// CallRequest asks for one adapter call against a conversation.
type CallRequest struct {
	ConversationID string `json:"conversation_id"`
	Adapter        string `json:"adapter"`
	// Message is the new user message. Empty is allowed: the adapter then
	// responds to the selected history alone, which lets adapters converse
	// without interleaved orchestration turns.
	Message     string `json:"message,omitempty"`
	ContextMode string `json:"context_mode,omitempty"`
	// ContextLimit overrides the recent-mode window. Zero means default.
	ContextLimit int `json:"context_limit,omitempty"`
}

// CallResponse reports a completed single call.
type CallResponse struct {
	ConversationID string        `json:"conversation_id"`
	Adapter        string        `json:"adapter"`
	Content        string        `json:"content"`
	Duration       time.Duration `json:"duration"`
	ResponseSeq    uint64        `json:"response_seq"`
}

// ParallelRequest asks for concurrent calls to several adapters.
type ParallelRequest struct {
	ConversationID string   `json:"conversation_id"`
	Adapters       []string `json:"adapters"`
	Message        string   `json:"message,omitempty"`
	ContextMode    string   `json:"context_mode,omitempty"`
	ContextLimit   int      `json:"context_limit,omitempty"`
}

// ParallelResult is the per-adapter outcome of a parallel call.
type ParallelResult struct {
	Adapter  string        `json:"adapter"`
	Status   CallStatus    `json:"status"`
	Content  string        `json:"content,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ParallelResponse reports a parallel call, including partial success.
type ParallelResponse struct {
	ConversationID string           `json:"conversation_id"`
	Total          int              `json:"total"`
	Succeeded      int              `json:"succeeded"`
	Failed         int              `json:"failed"`
	Results        []ParallelResult `json:"results"`
}

// SummarizeResponse reports a stored conversation summary.
type SummarizeResponse struct {
	ConversationID string `json:"conversation_id"`
	Summary        string `json:"summary"`
	MessageCount   int    `json:"message_count"`
	SummarizedBy   string `json:"summarized_by,omitempty"`
	Seq            uint64 `json:"seq,omitempty"`
}

// AdapterInfo describes one configured adapter for listing.
type AdapterInfo struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Available   *bool  `json:"available,omitempty"`
}

// Orchestrator owns the control flow between the store, selector,
// registry, and invoker.
type Orchestrator struct {
	store     *conversation.FileStore
	registry  *adapter.Registry
	invoker   *adapter.Invoker
	selector  *selector.Selector
	collector *metrics.Collector
	logger    *zap.Logger
}

// New creates an orchestrator. sel may be nil (a default selector is
// used); collector may be nil.
func New(store *conversation.FileStore, registry *adapter.Registry, invoker *adapter.Invoker, sel *selector.Selector, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sel == nil {
		sel = selector.New(nil, 0)
	}
	return &Orchestrator{
		store:     store,
		registry:  registry,
		invoker:   invoker,
		selector:  sel,
		collector: collector,
		logger:    logger.With(zap.String("component", "orchestrator")),
	}
}

// CreateConversation creates a new conversation.
func (o *Orchestrator) CreateConversation(ctx context.Context, opts conversation.CreateOptions) (string, error) {
	return o.store.Create(ctx, opts)
}

// selectContext reads the conversation history and applies the requested
// context mode. An empty mode defaults to smart selection. limit zero
// means omitted; a negative limit is rejected.
func (o *Orchestrator) selectContext(ctx context.Context, id, mode string, limit int) ([]types.Message, error) {
	if limit < 0 {
		return nil, types.Errorf(types.ErrInvalidInput, "context limit must be positive, got %d", limit)
	}
	if mode == "" {
		mode = string(selector.ModeSmart)
	}
	m, err := selector.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	history, err := o.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	if limit > 0 {
		return o.selector.SelectN(history, m, limit)
	}
	return o.selector.Select(history, m)
}

// CallLLM resolves one adapter, selects context, invokes it, and appends
// both the user message and the adapter response to the conversation.
func (o *Orchestrator) CallLLM(ctx context.Context, req CallRequest) (*CallResponse, error) {
	// Reject before any side effect.
	if !o.store.Exists(req.ConversationID) {
		return nil, types.Errorf(types.ErrNotFound, "conversation %s does not exist", req.ConversationID)
	}
	name := req.Adapter
	if name == "" {
		name = o.registry.DefaultAdapter()
		if name == "" {
			return nil, types.NewError(types.ErrInvalidInput,
				"no adapter specified and no default adapter configured")
		}
	}
	spec, err := o.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	selected, err := o.selectContext(ctx, req.ConversationID, req.ContextMode, req.ContextLimit)
	if err != nil {
		return nil, err
	}

	if req.Message != "" {
		if _, err := o.append(ctx, req.ConversationID, types.NewUserMessage(req.Message)); err != nil {
			return nil, err
		}
	}

	result, err := o.invoker.Invoke(ctx, spec, BuildPrompt(selected, req.Message))
	if err != nil {
		o.recordOp("call_llm", "failed")
		return nil, err
	}

	seq, err := o.append(ctx, req.ConversationID, types.NewAdapterMessage(spec.Name, result.Content))
	if err != nil {
		return nil, err
	}

	o.recordOp("call_llm", "completed")
	return &CallResponse{
		ConversationID: req.ConversationID,
		Adapter:        spec.Name,
		Content:        result.Content,
		Duration:       result.Duration,
		ResponseSeq:    seq,
	}, nil
}

// CallLLMParallel appends the user message once, computes the context
// snapshot once, and dispatches all adapters concurrently against it.
// Every adapter runs to its own terminal state; failures are recorded per
// adapter and as error entries in the conversation, never aborting
// siblings.
func (o *Orchestrator) CallLLMParallel(ctx context.Context, req ParallelRequest) (*ParallelResponse, error) {
	if len(req.Adapters) == 0 {
		return nil, types.NewError(types.ErrInvalidInput, "adapters list cannot be empty")
	}
	if !o.store.Exists(req.ConversationID) {
		return nil, types.Errorf(types.ErrNotFound, "conversation %s does not exist", req.ConversationID)
	}

	// Snapshot before the user message is appended so the prompt carries
	// the new message exactly once.
	selected, err := o.selectContext(ctx, req.ConversationID, req.ContextMode, req.ContextLimit)
	if err != nil {
		return nil, err
	}

	if req.Message != "" {
		if _, err := o.append(ctx, req.ConversationID, types.NewUserMessage(req.Message)); err != nil {
			return nil, err
		}
	}

	prompt := BuildPrompt(selected, req.Message)
	results := make([]ParallelResult, len(req.Adapters))

	var g errgroup.Group
	for idx, name := range req.Adapters {
		idx, name := idx, name
		g.Go(func() error {
			results[idx] = o.callOne(ctx, req.ConversationID, name, prompt)
			return nil
		})
	}
	// Tasks never return errors; the group is only the join barrier.
	_ = g.Wait()

	resp := &ParallelResponse{
		ConversationID: req.ConversationID,
		Total:          len(req.Adapters),
		Results:        results,
	}
	for _, r := range results {
		if r.Status == StatusCompleted {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}

	o.recordOp("call_llm_parallel", "completed")
	o.logger.Info("parallel call finished",
		zap.String("conversation_id", req.ConversationID),
		zap.Int("total", resp.Total),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed))

	return resp, nil
}

// callOne drives a single participant of a parallel call to a terminal
// state and records its outcome in the conversation.
func (o *Orchestrator) callOne(ctx context.Context, conversationID, name, prompt string) ParallelResult {
	start := time.Now()

	spec, err := o.registry.Resolve(name)
	if err != nil {
		return ParallelResult{Adapter: name, Status: StatusNotFound, Error: err.Error()}
	}

	result, err := o.invoker.Invoke(ctx, spec, prompt)
	if err != nil {
		status := statusOf(err)
		failure := types.NewMessage(types.RoleSystem, "adapter error: "+err.Error())
		failure.Adapter = name
		if _, appendErr := o.append(ctx, conversationID, failure); appendErr != nil {
			o.logger.Error("failed to record adapter failure",
				zap.String("adapter", name), zap.Error(appendErr))
		}
		return ParallelResult{
			Adapter:  name,
			Status:   status,
			Error:    err.Error(),
			Duration: time.Since(start),
		}
	}

	if _, err := o.append(ctx, conversationID, types.NewAdapterMessage(name, result.Content)); err != nil {
		return ParallelResult{
			Adapter:  name,
			Status:   StatusAdapterError,
			Error:    err.Error(),
			Duration: time.Since(start),
		}
	}

	return ParallelResult{
		Adapter:  name,
		Status:   StatusCompleted,
		Content:  result.Content,
		Duration: result.Duration,
	}
}

// Summarize runs the summarization adapter over the full history and
// stores the result as a summary message. An empty conversation is
// summarized without invoking an adapter.
func (o *Orchestrator) Summarize(ctx context.Context, conversationID, adapterName string) (*SummarizeResponse, error) {
	if !o.store.Exists(conversationID) {
		return nil, types.Errorf(types.ErrNotFound, "conversation %s does not exist", conversationID)
	}

	if adapterName == "" {
		adapterName = o.registry.DefaultSummarizationAdapter()
		if adapterName == "" {
			return nil, types.NewError(types.ErrInvalidInput,
				"no adapter specified and no default summarization adapter configured")
		}
	}
	spec, err := o.registry.Resolve(adapterName)
	if err != nil {
		return nil, err
	}

	messages, err := o.store.Read(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return &SummarizeResponse{
			ConversationID: conversationID,
			Summary:        "Empty conversation - no messages to summarize.",
		}, nil
	}

	result, err := o.invoker.Invoke(ctx, spec, summaryPrompt(messages))
	if err != nil {
		o.recordOp("summarize", "failed")
		return nil, err
	}

	seq, err := o.append(ctx, conversationID, types.NewSummaryMessage(spec.Name, result.Content))
	if err != nil {
		return nil, err
	}

	o.recordOp("summarize", "completed")
	return &SummarizeResponse{
		ConversationID: conversationID,
		Summary:        result.Content,
		MessageCount:   len(messages),
		SummarizedBy:   spec.Name,
		Seq:            seq,
	}, nil
}

// RecentMessages returns the n most recent messages of a conversation.
func (o *Orchestrator) RecentMessages(ctx context.Context, conversationID string, n int) ([]types.Message, error) {
	if n <= 0 {
		return nil, types.Errorf(types.ErrInvalidInput, "message count must be positive, got %d", n)
	}
	messages, err := o.store.Read(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	return messages, nil
}

// ConversationSummary returns the cached metadata record.
func (o *Orchestrator) ConversationSummary(ctx context.Context, conversationID string) (*types.Metadata, error) {
	return o.store.Metadata(ctx, conversationID)
}

// ListConversations lists up to limit conversations, most recently updated
// first.
func (o *Orchestrator) ListConversations(ctx context.Context, limit int) ([]*types.Metadata, error) {
	return o.store.List(ctx, limit)
}

// ListAdapters lists the configured adapters, optionally probing command
// availability.
func (o *Orchestrator) ListAdapters(ctx context.Context, testAvailability bool) ([]AdapterInfo, error) {
	specs := o.registry.List()
	infos := make([]AdapterInfo, 0, len(specs))
	for _, spec := range specs {
		info := AdapterInfo{
			Name:        spec.Name,
			Command:     spec.Command,
			Description: spec.Description,
		}
		if testAvailability {
			available, err := o.registry.TestAvailability(spec.Name)
			if err != nil {
				return nil, err
			}
			info.Available = &available
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (o *Orchestrator) append(ctx context.Context, id string, msg types.Message) (uint64, error) {
	seq, err := o.store.Append(ctx, id, msg)
	if o.collector != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		o.collector.RecordAppend(outcome)
	}
	return seq, err
}

func (o *Orchestrator) recordOp(operation, outcome string) {
	if o.collector != nil {
		o.collector.RecordOperation(operation, outcome)
	}
}
