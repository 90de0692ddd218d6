package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sims1253/mcp-llm-bridge/types"
)

func TestInvokeStdin(t *testing.T) {
	inv := NewInvoker(nil, nil)

	spec := types.AdapterSpec{
		Name:           "cat",
		Command:        "cat",
		InputMethod:    types.InputStdin,
		TimeoutSeconds: 5,
	}

	result, err := inv.Invoke(context.Background(), spec, "hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Content)
	assert.Equal(t, 0, result.ExitCode)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestInvokeArg(t *testing.T) {
	inv := NewInvoker(nil, nil)

	t.Run("Template", func(t *testing.T) {
		spec := types.AdapterSpec{
			Name:           "echo",
			Command:        "echo",
			Args:           []string{"prompt: {message}"},
			InputMethod:    types.InputArg,
			TimeoutSeconds: 5,
		}
		result, err := inv.Invoke(context.Background(), spec, "ping")
		require.NoError(t, err)
		assert.Equal(t, "prompt: ping", result.Content)
	})

	t.Run("AppendedWithoutTemplate", func(t *testing.T) {
		spec := types.AdapterSpec{
			Name:           "echo",
			Command:        "echo",
			InputMethod:    types.InputArg,
			TimeoutSeconds: 5,
		}
		result, err := inv.Invoke(context.Background(), spec, "ping")
		require.NoError(t, err)
		assert.Equal(t, "ping", result.Content)
	})
}

func TestInvokeEmptyOutput(t *testing.T) {
	inv := NewInvoker(nil, nil)

	spec := types.AdapterSpec{
		Name:           "true",
		Command:        "true",
		InputMethod:    types.InputArg,
		TimeoutSeconds: 5,
	}

	// Whitespace-only output is a valid, if unhelpful, response.
	result, err := inv.Invoke(context.Background(), spec, "")
	require.NoError(t, err)
	assert.Equal(t, "", result.Content)
	assert.Equal(t, 0, result.ExitCode)
}

func TestInvokeNonzeroExit(t *testing.T) {
	inv := NewInvoker(nil, nil)

	spec := types.AdapterSpec{
		Name:           "fail",
		Command:        "sh",
		Args:           []string{"-c", "echo boom >&2; exit 3"},
		InputMethod:    types.InputStdin,
		TimeoutSeconds: 5,
	}

	_, err := inv.Invoke(context.Background(), spec, "ping")
	require.Error(t, err)
	assert.Equal(t, types.ErrAdapterError, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestInvokeTimeout(t *testing.T) {
	inv := NewInvoker(nil, nil)

	spec := types.AdapterSpec{
		Name:           "slow",
		Command:        "sleep",
		Args:           []string{"30"},
		InputMethod:    types.InputStdin,
		TimeoutSeconds: 1,
	}

	start := time.Now()
	_, err := inv.Invoke(context.Background(), spec, "ping")
	require.Error(t, err)
	assert.Equal(t, types.ErrTimeout, types.GetErrorCode(err))
	// The process must be terminated near the deadline, not run to completion.
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestInvokeCommandNotFound(t *testing.T) {
	inv := NewInvoker(nil, nil)

	spec := types.AdapterSpec{
		Name:           "ghost",
		Command:        "definitely-not-a-real-command-12345",
		InputMethod:    types.InputStdin,
		TimeoutSeconds: 5,
	}

	_, err := inv.Invoke(context.Background(), spec, "ping")
	require.Error(t, err)
	assert.Equal(t, types.ErrAdapterError, types.GetErrorCode(err))
}

func TestRenderCommand(t *testing.T) {
	cases := []struct {
		name      string
		spec      types.AdapterSpec
		prompt    string
		wantArgs  []string
		wantStdin string
	}{
		{
			name:      "StdinPassthrough",
			spec:      types.AdapterSpec{InputMethod: types.InputStdin, Args: []string{"-v"}},
			prompt:    "hello",
			wantArgs:  []string{"-v"},
			wantStdin: "hello",
		},
		{
			name:     "ArgTemplate",
			spec:     types.AdapterSpec{InputMethod: types.InputArg, Args: []string{"-m", "{message}"}},
			prompt:   "hello",
			wantArgs: []string{"-m", "hello"},
		},
		{
			name:     "ArgCustomPlaceholder",
			spec:     types.AdapterSpec{InputMethod: types.InputArg, Args: []string{"<<prompt>>"}, MessageArgTemplate: "<<prompt>>"},
			prompt:   "hello",
			wantArgs: []string{"hello"},
		},
		{
			name:     "ArgAppendedWithoutPlaceholder",
			spec:     types.AdapterSpec{InputMethod: types.InputArg, Args: []string{"-v"}},
			prompt:   "hello",
			wantArgs: []string{"-v", "hello"},
		},
		{
			name:     "ArgEmptyPromptNotAppended",
			spec:     types.AdapterSpec{InputMethod: types.InputArg, Args: []string{"-v"}},
			prompt:   "",
			wantArgs: []string{"-v"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args, stdin := renderCommand(tc.spec, tc.prompt)
			assert.Equal(t, tc.wantArgs, args)
			assert.Equal(t, tc.wantStdin, stdin)
		})
	}
}

func TestInvokeRateLimit(t *testing.T) {
	inv := NewInvoker(nil, nil)

	spec := types.AdapterSpec{
		Name:              "limited",
		Command:           "true",
		InputMethod:       types.InputStdin,
		TimeoutSeconds:    5,
		MaxCallsPerMinute: 60, // one per second
	}

	// First call consumes the initial token; the second must wait about a
	// second for the next one.
	start := time.Now()
	_, err := inv.Invoke(context.Background(), spec, "")
	require.NoError(t, err)
	_, err = inv.Invoke(context.Background(), spec, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}
