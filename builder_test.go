package grafo

import (
	"context"
	"errors"
	"testing"
)

func post(action Action) Node {
	return NewNode().
		SetPost(func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
			return action, nil
		})
}

func TestBuilder_BuildsRunnableGraph(t *testing.T) {
	g, err := New("two-step").
		Node("first", post("next")).
		Node("second", post(End)).
		On("first", "next", "second").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if _, err := g.Run(context.Background(), nil, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestBuilder_ReportsFirstError(t *testing.T) {
	_, err := New("broken").
		Node("a", post(End)).
		Node("a", post(End)). // duplicate: first error
		On("missing", "", "a").
		Build()
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
}

func TestBuilder_StartOverridesFirstNode(t *testing.T) {
	g := New("start").
		Node("a", post(End)).
		Node("b", post("from-b")).
		Start("b").
		On("b", "from-b", Terminal).
		MustBuild()

	shared := NewShared(nil)
	if _, err := g.Run(context.Background(), shared, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestBuilder_MustBuildPanicsOnError(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustBuild did not panic on construction error")
		}
	}()
	New("bad").
		Node("a", post(End)).
		Start("missing").
		MustBuild()
}

func TestBuilder_EmptyActionMeansDefault(t *testing.T) {
	g := New("default-edge").
		Node("a", post("")).
		Node("b", post(End)).
		On("a", "", "b").
		MustBuild()

	if _, err := g.Run(context.Background(), nil, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}
