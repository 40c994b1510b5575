package llm

import (
	"encoding/json"
	"fmt"
	"math"
)

// Well-known option keys shared by the adapters.
const (
	KeyModel       = "model"
	KeyMaxTokens   = "maxTokens"
	KeySystem      = "system"
	KeyTemperature = "temperature"
	KeyMessages    = "messages"
)

// Options is a caller-supplied or resolved option set. Keys that no
// processor recognizes are sent to the provider as-is.
type Options map[string]any

// Clone returns a shallow copy of o. A nil receiver yields an empty map.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Model returns the string stored under KeyModel, or "".
func (o Options) Model() string {
	s, _ := o[KeyModel].(string)
	return s
}

// OptionProcessor transforms an accumulated option set, keyed off the
// original value of the option that triggered it. Processors never mutate
// acc; they return a new map (or acc itself when nothing changes).
type OptionProcessor func(value any, acc Options) (Options, error)

// KeyProcessor binds a processor to the raw option key that triggers it.
type KeyProcessor struct {
	Key     string
	Process OptionProcessor
}

// Resolve runs processors in slice order against raw and returns the
// resolved option set. Each processor receives raw[Key], even when that key
// is absent. raw is not modified.
func Resolve(raw Options, processors []KeyProcessor) (Options, error) {
	acc := raw.Clone()
	for _, kp := range processors {
		next, err := kp.Process(raw[kp.Key], acc)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", kp.Key, err)
		}
		acc = next
	}
	return acc, nil
}

// SetDefault stores value, or def when value is absent, under key. A key
// that is already set, by the caller or by an earlier step, is kept.
func SetDefault(key string, def any) OptionProcessor {
	return func(value any, acc Options) (Options, error) {
		if _, ok := acc[key]; ok {
			return acc, nil
		}
		out := acc.Clone()
		if value == nil {
			out[key] = def
		} else {
			out[key] = value
		}
		return out, nil
	}
}

// RenameKey moves the value stored under oldKey to newKey. An absent value
// leaves both keys untouched.
func RenameKey(oldKey, newKey string) OptionProcessor {
	return func(value any, acc Options) (Options, error) {
		if value == nil {
			return acc, nil
		}
		out := acc.Clone()
		moved, ok := out[oldKey]
		if !ok {
			moved = value
		}
		delete(out, oldKey)
		out[newKey] = moved
		return out, nil
	}
}

// TransformValue replaces the value under key with fn(value). An absent
// value is a no-op.
func TransformValue(key string, fn func(any) (any, error)) OptionProcessor {
	return func(value any, acc Options) (Options, error) {
		if value == nil {
			return acc, nil
		}
		v, err := fn(value)
		if err != nil {
			return nil, err
		}
		out := acc.Clone()
		out[key] = v
		return out, nil
	}
}

// Compose chains processors in order. Every step sees the same original
// value and the map produced by the step before it.
func Compose(processors ...OptionProcessor) OptionProcessor {
	return func(value any, acc Options) (Options, error) {
		out := acc
		for _, p := range processors {
			var err error
			if out, err = p(value, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
}

// PrependSystem turns a string option into a leading system message in
// acc[KeyMessages] and removes the option key itself.
func PrependSystem(key string) OptionProcessor {
	return func(value any, acc Options) (Options, error) {
		if value == nil {
			return acc, nil
		}
		text, err := RequireString(value)
		if err != nil {
			return nil, err
		}
		prior, err := MessagesOf(acc[KeyMessages])
		if err != nil {
			return nil, err
		}
		msgs := make([]Message, 0, len(prior)+1)
		msgs = append(msgs, Message{Role: RoleSystem, Content: text})
		msgs = append(msgs, prior...)

		out := acc.Clone()
		out[KeyMessages] = msgs
		delete(out, key)
		return out, nil
	}
}

// ExpandAlias returns a transform mapping short model names to canonical
// identifiers. Unrecognized names, including canonical ones, pass through.
func ExpandAlias(aliases map[string]string) func(any) (any, error) {
	return func(v any) (any, error) {
		name, err := RequireString(v)
		if err != nil {
			return nil, err
		}
		if canonical, ok := aliases[name]; ok {
			return canonical, nil
		}
		return name, nil
	}
}

// MessagesOf interprets an option value as a message list.
func MessagesOf(v any) ([]Message, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case []Message:
		return m, nil
	default:
		return nil, fmt.Errorf("%w: expected []Message, got %T", ErrInvalidOption, v)
	}
}

// RequireString asserts that v is a string.
func RequireString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidOption, v)
	}
	return s, nil
}

// RequirePositiveInt coerces integral numeric values to int. Fractional,
// non-positive and non-numeric values are rejected.
func RequirePositiveInt(v any) (int, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: expected integer, got %v", ErrInvalidOption, x)
		}
		n = int64(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: expected integer, got %q", ErrInvalidOption, x.String())
		}
		n = i
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrInvalidOption, v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: expected positive integer, got %d", ErrInvalidOption, n)
	}
	return int(n), nil
}

// RequireNumber coerces numeric values to float64.
func RequireNumber(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: expected number, got %q", ErrInvalidOption, x.String())
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: expected number, got %T", ErrInvalidOption, v)
	}
}

// positiveInt and number adapt the Require helpers to TransformValue.
func positiveInt(v any) (any, error) { return RequirePositiveInt(v) }
func number(v any) (any, error)      { return RequireNumber(v) }

// MaxTokens is the shared processor for KeyMaxTokens: it renames the option
// to the provider's field and applies def when absent.
func MaxTokens(field string, def int) OptionProcessor {
	return Compose(
		TransformValue(KeyMaxTokens, positiveInt),
		RenameKey(KeyMaxTokens, field),
		SetDefault(field, def),
	)
}

// Model is the shared processor for KeyModel: it applies def when absent and
// expands aliases otherwise.
func Model(def string, aliases map[string]string) OptionProcessor {
	return Compose(
		SetDefault(KeyModel, def),
		TransformValue(KeyModel, ExpandAlias(aliases)),
	)
}

// Temperature validates a sampling temperature without renaming it.
func Temperature() OptionProcessor {
	return TransformValue(KeyTemperature, number)
}
