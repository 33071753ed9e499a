package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/tverho/grafo/pkg/api"
)

func TestSubflow_SharedStorePropagatesBothWays(t *testing.T) {
	inner := NewGraph("inner")
	mustRegister(t, inner, "double", api.NewFuncNode().
		SetPost(func(ctx context.Context, shared api.Shared, params api.Params, prepResult, execResult any) (api.Action, error) {
			n, _ := shared.Get("n")
			shared.Set("n", n.(int)*2)
			return api.DefaultAction, nil
		}))
	// End the nested run through a Terminal edge rather than the End action:
	// the nested run's final action becomes the subflow node's action, and an
	// End from inside would halt the parent as well.
	mustOn(t, inner, "double", api.DefaultAction, api.Terminal)

	outer := NewGraph("outer")
	mustRegister(t, outer, "seed", api.NewFuncNode().
		SetPost(func(ctx context.Context, shared api.Shared, params api.Params, prepResult, execResult any) (api.Action, error) {
			shared.Set("n", 21)
			return api.DefaultAction, nil
		}))
	mustRegister(t, outer, "inner", NewSubflow(inner))
	mustRegister(t, outer, "check", api.NewFuncNode().
		SetPost(func(ctx context.Context, shared api.Shared, params api.Params, prepResult, execResult any) (api.Action, error) {
			n, _ := shared.Get("n")
			shared.Set("final", n)
			return api.End, nil
		}))
	mustOn(t, outer, "seed", api.DefaultAction, "inner")
	mustOn(t, outer, "inner", api.DefaultAction, "check")

	shared, err := outer.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if v, _ := shared.Get("final"); v != 42 {
		t.Fatalf("final = %v, want 42 (nested write visible downstream)", v)
	}
}

func TestSubflow_FinalActionDrivesParentTransition(t *testing.T) {
	for _, tc := range []struct {
		verdict api.Action
		want    string
	}{
		{"escalate", "escalated"},
		{"resolve", "resolved"},
	} {
		t.Run(string(tc.verdict), func(t *testing.T) {
			inner := NewGraph("triage")
			mustRegister(t, inner, "classify", api.NewFuncNode().
				SetPost(func(ctx context.Context, shared api.Shared, params api.Params, prepResult, execResult any) (api.Action, error) {
					v, _ := shared.Get("verdict")
					return v.(api.Action), nil
				}))
			// Both verdicts are terminal inside the nested graph; the parent
			// branches on which one ended the nested run.
			mustOn(t, inner, "classify", "escalate", api.Terminal)
			mustOn(t, inner, "classify", "resolve", api.Terminal)

			outer := NewGraph("handler")
			mustRegister(t, outer, "triage", NewSubflow(inner))
			mustRegister(t, outer, "escalated", appendNode("escalated", api.End))
			mustRegister(t, outer, "resolved", appendNode("resolved", api.End))
			mustOn(t, outer, "triage", "escalate", "escalated")
			mustOn(t, outer, "triage", "resolve", "resolved")

			shared := api.NewShared(map[string]any{"verdict": tc.verdict})
			if _, err := outer.Run(context.Background(), shared, nil); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			trace, _ := shared.Get("trace")
			if got := trace.([]string); !sameStrings(got, []string{tc.want}) {
				t.Fatalf("trace = %v, want [%s]", got, tc.want)
			}
		})
	}
}

func TestSubflow_NestedFailurePropagates(t *testing.T) {
	boom := errors.New("inner boom")
	inner := NewGraph("inner")
	mustRegister(t, inner, "fail", api.NewFuncNode().
		SetExec(func(ctx context.Context, prepResult any) (any, error) {
			return nil, boom
		}))

	outer := NewGraph("outer")
	mustRegister(t, outer, "sub", NewSubflow(inner))

	_, err := outer.Run(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("Run succeeded, want nested failure")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped inner error", err)
	}

	// The outermost error names the outer graph's subflow node; the nested
	// run's own RunError stays in the chain underneath.
	var re *api.RunError
	if !errors.As(err, &re) {
		t.Fatalf("err = %T, want *api.RunError", err)
	}
	if re.Graph != "outer" || re.Node != "sub" {
		t.Fatalf("RunError = graph %q node %q, want outer/sub", re.Graph, re.Node)
	}
}

func TestSubflow_ParamsReachNestedNodes(t *testing.T) {
	inner := NewGraph("inner")
	mustRegister(t, inner, "read", api.NewFuncNode().
		SetPost(func(ctx context.Context, shared api.Shared, params api.Params, prepResult, execResult any) (api.Action, error) {
			shared.Set("tenant", params["tenant"])
			return api.End, nil
		}))

	outer := NewGraph("outer")
	mustRegister(t, outer, "sub", NewSubflow(inner))

	shared, err := outer.Run(context.Background(), nil, api.Params{"tenant": "acme"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if v, _ := shared.Get("tenant"); v != "acme" {
		t.Fatalf("tenant = %v, want acme", v)
	}
}
