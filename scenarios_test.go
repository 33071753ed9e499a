package grafo

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSummaryGraph assembles the three-node pipeline used by the
// end-to-end tests: summarize, extract keywords on long inputs, output.
func buildSummaryGraph(t *testing.T) Graph {
	t.Helper()

	visit := func(shared Shared, id string) {
		v, _ := shared.Get("visited")
		nodes, _ := v.([]string)
		shared.Set("visited", append(nodes, id))
	}

	summarize := NewNode().
		SetPrep(func(ctx context.Context, shared Shared, params Params) (any, error) {
			text, _ := shared.Get("text")
			return text, nil
		}).
		SetExec(func(ctx context.Context, prepResult any) (any, error) {
			text := prepResult.(string)
			if len(text) > 20 {
				return "summary of: " + text[:20], nil
			}
			return "summary of: " + text, nil
		}).
		SetPost(func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
			visit(shared, "summarize")
			shared.Set("summary", execResult)
			if len(prepResult.(string)) > 20 {
				return "long", nil
			}
			return "short", nil
		})

	extract := NewNode().
		SetPrep(func(ctx context.Context, shared Shared, params Params) (any, error) {
			summary, _ := shared.Get("summary")
			return summary, nil
		}).
		SetExec(func(ctx context.Context, prepResult any) (any, error) {
			return strings.Fields(prepResult.(string)), nil
		}).
		SetPost(func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
			visit(shared, "extract")
			shared.Set("keywords", execResult)
			return "done", nil
		})

	output := NewNode().
		SetPost(func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
			visit(shared, "output")
			summary, _ := shared.Get("summary")
			shared.Set("final_output", summary)
			return "done", nil
		})

	return New("summarizer").
		Node("summarize", summarize).
		Node("extract", extract).
		Node("output", output).
		On("summarize", "long", "extract").
		On("summarize", "short", "output").
		On("extract", "done", "output").
		On("output", "done", Terminal).
		MustBuild()
}

func TestScenario_ShortTextSkipsExtraction(t *testing.T) {
	g := buildSummaryGraph(t)

	shared := NewShared(map[string]any{"text": "short text"})
	_, err := g.Run(context.Background(), shared, nil)
	require.NoError(t, err)

	v, _ := shared.Get("visited")
	assert.Equal(t, []string{"summarize", "output"}, v)

	final, ok := shared.Get("final_output")
	require.True(t, ok)
	assert.Equal(t, "summary of: short text", final)
}

func TestScenario_LongTextExtractsKeywords(t *testing.T) {
	g := buildSummaryGraph(t)

	shared := NewShared(map[string]any{
		"text": "a considerably longer text that needs keyword extraction",
	})
	_, err := g.Run(context.Background(), shared, nil)
	require.NoError(t, err)

	v, _ := shared.Get("visited")
	assert.Equal(t, []string{"summarize", "extract", "output"}, v)

	_, ok := shared.Get("keywords")
	assert.True(t, ok, "long path should produce keywords")
}

func TestScenario_BatchFlowGreetsEveryone(t *testing.T) {
	sub := New("greet-one").
		Node("greet", NewNode().
			SetPost(func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
				name := params["n"].(string)
				shared.Set("greeting_"+name, "hello "+name)
				return End, nil
			})).
		MustBuild()

	bf, err := NewBatchFlow("greet-all", sub, func(ctx context.Context, shared Shared, params Params) ([]Params, error) {
		return []Params{{"n": "Ann"}, {"n": "Bo"}}, nil
	})
	require.NoError(t, err)

	shared, err := bf.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	ann, ok := shared.Get("greeting_Ann")
	require.True(t, ok)
	assert.Equal(t, "hello Ann", ann)
	bo, ok := shared.Get("greeting_Bo")
	require.True(t, ok)
	assert.Equal(t, "hello Bo", bo)
}

func TestScenario_BatchNodePreservesOrder(t *testing.T) {
	for _, parallelism := range []int{0, 4} {
		t.Run(fmt.Sprintf("parallelism-%d", parallelism), func(t *testing.T) {
			squares := NewBatchNode().
				SetPrep(func(ctx context.Context, shared Shared, params Params) ([]any, error) {
					nums, _ := shared.Get("nums")
					return nums.([]any), nil
				}).
				SetExecItem(func(ctx context.Context, item any) (any, error) {
					n := item.(int)
					return n * n, nil
				}).
				SetPost(func(ctx context.Context, shared Shared, params Params, items, results []any) (Action, error) {
					shared.Set("squares", results)
					return End, nil
				}).
				SetParallelism(parallelism)

			g := New("square-all").Node("squares", squares).MustBuild()

			shared := NewShared(map[string]any{"nums": []any{2, 3, 4, 5, 6}})
			_, err := g.Run(context.Background(), shared, nil)
			require.NoError(t, err)

			got, _ := shared.Get("squares")
			assert.Equal(t, []any{4, 9, 16, 25, 36}, got)
		})
	}
}

func TestScenario_SubflowComposition(t *testing.T) {
	inner := New("enrich").
		Node("enrich", NewNode().
			SetPost(func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
				shared.Set("enriched", true)
				return DefaultAction, nil
			})).
		On("enrich", "", Terminal).
		MustBuild()

	outer := New("pipeline").
		Node("enrich", Subflow(inner)).
		Node("check", NewNode().
			SetPost(func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
				v, ok := shared.Get("enriched")
				if !ok || v != true {
					return "", fmt.Errorf("nested write not visible")
				}
				return End, nil
			})).
		On("enrich", "", "check").
		MustBuild()

	_, err := outer.Run(context.Background(), nil, nil)
	require.NoError(t, err)
}

func TestScenario_RetryWithFallbackDegradesGracefully(t *testing.T) {
	var calls atomic.Int32

	flaky := NewNode().
		SetExec(func(ctx context.Context, prepResult any) (any, error) {
			calls.Add(1)
			return nil, fmt.Errorf("upstream unavailable")
		}).
		SetFallback(func(ctx context.Context, prepResult any, execErr error) (any, error) {
			return "cached value", nil
		}).
		SetPost(func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
			shared.Set("value", execResult)
			return End, nil
		})

	g := New("degrade").
		Node("fetch", flaky, WithRetry(Retry(3).Immediate().Policy())).
		MustBuild()

	shared, err := g.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "exec should run exactly MaxAttempts times")

	v, _ := shared.Get("value")
	assert.Equal(t, "cached value", v)
}
