package config

import (
	"reflect"
	"testing"
)

func TestFlatten_Simple(t *testing.T) {
	m := map[string]any{
		"provider":       "anthropic",
		"max_concurrent": 2.0,
	}
	got := Flatten(m)
	if got["provider"] != "anthropic" {
		t.Errorf("expected provider=anthropic, got %v", got["provider"])
	}
	if got["max_concurrent"] != 2.0 {
		t.Errorf("expected max_concurrent=2, got %v", got["max_concurrent"])
	}
	if len(got) != 2 {
		t.Errorf("expected 2 keys, got %d", len(got))
	}
}

func TestFlatten_Nested(t *testing.T) {
	m := map[string]any{
		"anthropic": map[string]any{
			"model":      "haiku",
			"max_tokens": 512.0,
		},
		"log_level": "info",
	}
	got := Flatten(m)
	if got["anthropic.model"] != "haiku" {
		t.Errorf("expected anthropic.model=haiku, got %v", got["anthropic.model"])
	}
	if got["anthropic.max_tokens"] != 512.0 {
		t.Errorf("expected anthropic.max_tokens=512, got %v", got["anthropic.max_tokens"])
	}
	if len(got) != 3 {
		t.Errorf("expected 3 keys, got %d", len(got))
	}
}

func TestFlatten_DeeplyNested(t *testing.T) {
	got := Flatten(map[string]any{
		"a": map[string]any{"b": map[string]any{"c": "deep"}},
	})
	if got["a.b.c"] != "deep" || len(got) != 1 {
		t.Errorf("expected only a.b.c=deep, got %v", got)
	}
}

func TestFlatten_EmptyNestedMap(t *testing.T) {
	if got := Flatten(map[string]any{"a": map[string]any{}}); len(got) != 0 {
		t.Errorf("expected 0 keys (empty nested map produces nothing), got %d", len(got))
	}
}

func TestFlatten_MixedTypes(t *testing.T) {
	got := Flatten(map[string]any{
		"str":   "hello",
		"bool":  true,
		"float": 0.7,
		"nil":   nil,
		"openai": map[string]any{
			"system": "be brief",
		},
	})
	want := map[string]any{
		"str":           "hello",
		"bool":          true,
		"float":         0.7,
		"nil":           nil,
		"openai.system": "be brief",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestUnflatten_Nested(t *testing.T) {
	got := Unflatten(map[string]any{
		"openai.model":    "gpt-4o",
		"openai.base_url": "http://localhost:8080/v1",
		"log_level":       "info",
	})
	openai, ok := got["openai"].(map[string]any)
	if !ok {
		t.Fatalf("expected openai to be map, got %T", got["openai"])
	}
	if openai["model"] != "gpt-4o" {
		t.Errorf("expected openai.model=gpt-4o, got %v", openai["model"])
	}
	if openai["base_url"] != "http://localhost:8080/v1" {
		t.Errorf("unexpected base_url %v", openai["base_url"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
}

func TestUnflatten_ReplacesScalarWithMap(t *testing.T) {
	got := Unflatten(map[string]any{"a.b": "x"})
	if !reflect.DeepEqual(got, map[string]any{"a": map[string]any{"b": "x"}}) {
		t.Errorf("unexpected result %v", got)
	}
}

func TestUnflatten_EmptyMap(t *testing.T) {
	if got := Unflatten(map[string]any{}); len(got) != 0 {
		t.Errorf("expected 0 keys, got %d", len(got))
	}
}

func TestRoundTrip_FlattenUnflatten(t *testing.T) {
	original := map[string]any{
		"log_level": "debug",
		"provider":  "openai",
		"anthropic": map[string]any{
			"model":      "claude-3-haiku-20240307",
			"max_tokens": 1024.0,
		},
		"openai": map[string]any{
			"model":       "gpt-4o-mini",
			"temperature": 0.2,
		},
	}
	if restored := Unflatten(Flatten(original)); !reflect.DeepEqual(restored, original) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", restored, original)
	}
}

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]any{"b": 1, "a.z": 2, "a.b": 3})
	want := []string{"a.b", "a.z", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
