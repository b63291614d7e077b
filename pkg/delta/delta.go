// Package delta computes RFC 6902 JSON Patches between state snapshots and
// wraps non-empty patches in the event shape the front-end protocol
// consumes.
package delta

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/pkg/errors"
	"github.com/wI2L/jsondiff"
)

// Operation is a single RFC 6902 patch operation.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// MarshalJSON emits the value member only for the operations RFC 6902
// defines it for, so an explicit null value survives add and replace
// instead of being dropped as empty.
func (o Operation) MarshalJSON() ([]byte, error) {
	switch o.Op {
	case "add", "replace", "test":
		return json.Marshal(struct {
			Op    string `json:"op"`
			Path  string `json:"path"`
			Value any    `json:"value"`
		}{o.Op, o.Path, o.Value})
	default:
		return json.Marshal(struct {
			Op   string `json:"op"`
			Path string `json:"path"`
		}{o.Op, o.Path})
	}
}

// Patch is an ordered sequence of operations. Applying it to the
// pre-snapshot yields the post-snapshot.
type Patch []Operation

// EventTypeStateDelta tags state delta events on the wire.
const EventTypeStateDelta = "STATE_DELTA"

// StateDeltaEvent is the front-end protocol event carrying a state patch.
type StateDeltaEvent struct {
	Type  string `json:"type"`
	Delta Patch  `json:"delta"`
}

// Compute produces the minimal ordered patch transforming pre into post.
// Operation order is deterministic for equal inputs. An empty diff yields an
// empty patch. Array appends carry explicit element indices rather than the
// "-" token, so consumers can address the affected element directly.
func Compute(pre, post any) (Patch, error) {
	diff, err := jsondiff.Compare(pre, post)
	if err != nil {
		return nil, errors.Wrap(err, "failed to diff snapshots")
	}
	if len(diff) == 0 {
		return Patch{}, nil
	}

	// Appends are resolved against a working copy that tracks the effect
	// of every earlier operation, so consecutive appends index correctly.
	working, err := json.Marshal(pre)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal pre snapshot")
	}

	patch := make(Patch, 0, len(diff))
	for _, op := range diff {
		resolved := Operation{Op: op.Type, Path: op.Path, Value: op.Value}
		if resolved.Op == "add" && strings.HasSuffix(resolved.Path, "/-") {
			parent := strings.TrimSuffix(resolved.Path, "/-")
			length, err := arrayLengthAt(working, parent)
			if err != nil {
				return nil, err
			}
			resolved.Path = fmt.Sprintf("%s/%d", parent, length)
		}
		patch = append(patch, resolved)

		working, err = applyOperation(working, resolved)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to track operation %s %s", resolved.Op, resolved.Path)
		}
	}
	return patch, nil
}

// arrayLengthAt returns the length of the array at a JSON pointer within an
// encoded document.
func arrayLengthAt(doc []byte, pointer string) (int, error) {
	var node any
	if err := json.Unmarshal(doc, &node); err != nil {
		return 0, errors.Wrap(err, "failed to decode working document")
	}

	if pointer != "" {
		for _, segment := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
			segment = strings.ReplaceAll(segment, "~1", "/")
			segment = strings.ReplaceAll(segment, "~0", "~")
			switch v := node.(type) {
			case map[string]any:
				node = v[segment]
			case []any:
				index, err := strconv.Atoi(segment)
				if err != nil || index < 0 || index >= len(v) {
					return 0, errors.Errorf("invalid array index %q in pointer %q", segment, pointer)
				}
				node = v[index]
			default:
				return 0, errors.Errorf("pointer %q does not resolve in the working document", pointer)
			}
		}
	}

	array, ok := node.([]any)
	if !ok {
		return 0, errors.Errorf("pointer %q does not address an array", pointer)
	}
	return len(array), nil
}

func applyOperation(doc []byte, op Operation) ([]byte, error) {
	raw, err := json.Marshal(Patch{op})
	if err != nil {
		return nil, err
	}
	decoded, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, err
	}
	return decoded.Apply(doc)
}

// ComputeStateDelta diffs two snapshots and returns a StateDeltaEvent, or
// nil when nothing changed. An empty diff is never emitted as an event.
func ComputeStateDelta(pre, post map[string]map[string]any) (*StateDeltaEvent, error) {
	patch, err := Compute(pre, post)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, nil
	}
	return &StateDeltaEvent{Type: EventTypeStateDelta, Delta: patch}, nil
}

// Apply applies a patch to a document and returns the patched document.
func Apply(doc any, patch Patch) (map[string]any, error) {
	docRaw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal document")
	}
	patchRaw, err := json.Marshal(patch)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal patch")
	}

	decoded, err := jsonpatch.DecodePatch(patchRaw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode patch")
	}
	patched, err := decoded.Apply(docRaw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply patch")
	}

	var result map[string]any
	if err := json.Unmarshal(patched, &result); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal patched document")
	}
	return result, nil
}
