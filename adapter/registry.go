package adapter

import (
	"os/exec"
	"sort"

	"go.uber.org/zap"

	"github.com/sims1253/mcp-llm-bridge/types"
)

// Registry is the validated, read-only view of configured adapters.
type Registry struct {
	specs                map[string]types.AdapterSpec
	defaultAdapter       string
	defaultSummarization string
	logger               *zap.Logger
}

// NewRegistry validates the given specs and builds a registry.
// defaultAdapter and defaultSummarization are optional but must resolve
// when set.
func NewRegistry(specs map[string]types.AdapterSpec, defaultAdapter, defaultSummarization string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	validated := make(map[string]types.AdapterSpec, len(specs))
	for name, spec := range specs {
		if name == "" {
			return nil, types.NewError(types.ErrInvalidInput, "adapter name must not be empty")
		}
		if spec.Command == "" {
			return nil, types.Errorf(types.ErrInvalidInput, "adapter %s has no command", name)
		}
		switch spec.InputMethod {
		case types.InputStdin, types.InputArg:
		case "":
			spec.InputMethod = types.InputStdin
		default:
			return nil, types.Errorf(types.ErrInvalidInput, "adapter %s has unknown input method %q", name, spec.InputMethod)
		}
		if spec.TimeoutSeconds < 0 {
			return nil, types.Errorf(types.ErrInvalidInput, "adapter %s has negative timeout", name)
		}
		spec.Name = name
		validated[name] = spec
	}

	if defaultAdapter != "" {
		if _, ok := validated[defaultAdapter]; !ok {
			return nil, types.Errorf(types.ErrInvalidInput, "default adapter %s is not configured", defaultAdapter)
		}
	}
	if defaultSummarization != "" {
		if _, ok := validated[defaultSummarization]; !ok {
			return nil, types.Errorf(types.ErrInvalidInput, "default summarization adapter %s is not configured", defaultSummarization)
		}
	}

	logger.Info("adapter registry loaded",
		zap.Int("adapters", len(validated)),
		zap.String("default", defaultAdapter))

	return &Registry{
		specs:                validated,
		defaultAdapter:       defaultAdapter,
		defaultSummarization: defaultSummarization,
		logger:               logger,
	}, nil
}

// Resolve returns the spec for name.
func (r *Registry) Resolve(name string) (types.AdapterSpec, error) {
	spec, ok := r.specs[name]
	if !ok {
		return types.AdapterSpec{}, types.Errorf(types.ErrNotFound, "unknown adapter %q", name).WithAdapter(name)
	}
	return spec, nil
}

// List returns all specs ordered by name.
func (r *Registry) List() []types.AdapterSpec {
	out := make([]types.AdapterSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefaultAdapter returns the configured default adapter name, which may be
// empty.
func (r *Registry) DefaultAdapter() string {
	return r.defaultAdapter
}

// DefaultSummarizationAdapter returns the configured summarization default,
// which may be empty.
func (r *Registry) DefaultSummarizationAdapter() string {
	return r.defaultSummarization
}

// TestAvailability checks whether the adapter's command exists on the
// execution path without invoking it.
func (r *Registry) TestAvailability(name string) (bool, error) {
	spec, err := r.Resolve(name)
	if err != nil {
		return false, err
	}
	_, err = exec.LookPath(spec.Command)
	return err == nil, nil
}
