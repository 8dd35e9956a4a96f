package agent

import (
	"context"
	"reflect"
	"testing"

	"github.com/hazyhaar/domloop/internal/dom"
	"github.com/hazyhaar/domloop/internal/dom/domtest"
	"github.com/hazyhaar/domloop/internal/llm"
)

// S2: extract single chunk, completed on the first call.
func TestExtract_S2(t *testing.T) {
	bridge := domtest.NewScriptedBridge([]dom.ChunkDescriptor{{
		OutputString: "0:Title: Hello",
		SelectorMap:  map[int]string{0: "/h1"},
		Chunk:        0,
		Chunks:       []int{0},
	}}, nil)

	provider := &fakeProvider{
		extractResponses: []llm.ExtractResponse{{
			Metadata: llm.ExtractMetadata{Progress: "done", Completed: true},
			Fields:   map[string]any{"title": "Hello"},
		}},
	}

	a := testAgent(t, bridge, provider)

	got, err := a.Extract(context.Background(), ExtractParams{Instruction: "get title"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := map[string]any{"title": "Hello"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %+v, want %+v", got, want)
	}
	if bridge.ProcessDomCalls != 1 {
		t.Fatalf("ProcessDomCalls = %d, want 1", bridge.ProcessDomCalls)
	}
}

// S3: extract two chunks, not completed then completed.
func TestExtract_S3(t *testing.T) {
	bridge := domtest.NewScriptedBridge([]dom.ChunkDescriptor{
		{
			OutputString: "0:item a",
			SelectorMap:  map[int]string{0: "/li[1]"},
			Chunk:        0,
			Chunks:       []int{0, 1},
		},
		{
			OutputString: "1:item b",
			SelectorMap:  map[int]string{1: "/li[2]"},
			Chunk:        1,
			Chunks:       []int{0, 1},
		},
	}, nil)

	provider := &fakeProvider{
		extractResponses: []llm.ExtractResponse{
			{
				Metadata: llm.ExtractMetadata{Progress: "half", Completed: false},
				Fields:   map[string]any{"items": []any{"a"}},
			},
			{
				Metadata: llm.ExtractMetadata{Progress: "done", Completed: true},
				Fields:   map[string]any{"items": []any{"a", "b"}},
			},
		},
	}

	a := testAgent(t, bridge, provider)

	got, err := a.Extract(context.Background(), ExtractParams{Instruction: "list items"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := map[string]any{"items": []any{"a", "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %+v, want %+v", got, want)
	}
	if bridge.ProcessDomCalls != 2 {
		t.Fatalf("ProcessDomCalls = %d, want 2", bridge.ProcessDomCalls)
	}
}
