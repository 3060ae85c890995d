package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidWorkflow is returned for input that is not a workflow object.
var ErrInvalidWorkflow = errors.New("invalid workflow file")

// Reference is one model file a workflow loads.
type Reference struct {
	// Filename is the base name of the file
	Filename string `json:"filename"`

	// Folder is the models/ subfolder, including any subdirectory the
	// widget value carried ("loras/wan" for "wan/style.safetensors")
	Folder string `json:"folder"`

	// NodeType is the loader's class type
	NodeType string `json:"nodeType"`

	// NodeID is the node's id within the workflow
	NodeID string `json:"nodeId"`

	// Input is the loader input the filename was read from
	Input string `json:"input"`
}

// node is the subset of both workflow shapes Parse reads.
type node struct {
	ID        json.RawMessage `json:"id"`
	Type      string          `json:"type"`
	ClassType string          `json:"class_type"`
	Inputs    json.RawMessage `json:"inputs"`
	Widgets   json.RawMessage `json:"widgets_values"`

	key string
}

func (n node) classType() string {
	if n.ClassType != "" {
		return n.ClassType
	}
	return n.Type
}

// Parse returns the model references of a workflow in node order. A file
// referenced by several loaders is reported once.
func Parse(data []byte) ([]Reference, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflow, err)
	}

	nodes, err := collectNodes(top)
	if err != nil {
		return nil, err
	}

	refs := []Reference{}
	seen := map[string]bool{}
	for _, n := range nodes {
		loader, ok := Loaders[n.classType()]
		if !ok {
			continue
		}
		for i, input := range loader.Inputs {
			value := n.value(input, i)
			if value == "" {
				continue
			}
			dir, file := path.Split(strings.ReplaceAll(value, `\`, "/"))
			if file == "" || seen[file] {
				continue
			}
			seen[file] = true

			folder := loader.Folder
			if dir = strings.Trim(dir, "/"); dir != "" {
				folder = path.Join(folder, dir)
			}
			refs = append(refs, Reference{
				Filename: file,
				Folder:   folder,
				NodeType: n.classType(),
				NodeID:   n.key,
				Input:    input,
			})
		}
	}
	return refs, nil
}

// collectNodes flattens either workflow shape into a node list sorted by id.
func collectNodes(top map[string]json.RawMessage) ([]node, error) {
	var nodes []node
	if raw, ok := top["nodes"]; ok {
		if err := json.Unmarshal(raw, &nodes); err != nil {
			return nil, fmt.Errorf("%w: nodes: %v", ErrInvalidWorkflow, err)
		}
		for i := range nodes {
			nodes[i].key = strings.Trim(string(nodes[i].ID), `"`)
		}
		return nodes, nil
	}

	for key, raw := range top {
		var n node
		if err := json.Unmarshal(raw, &n); err != nil || n.ClassType == "" {
			continue
		}
		n.key = key
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return lessID(nodes[i].key, nodes[j].key) })
	return nodes, nil
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}

// value returns the string value of a named input, falling back to the
// widget at the same position. Linked inputs (arrays) carry no filename.
func (n node) value(input string, pos int) string {
	var inputs map[string]json.RawMessage
	if json.Unmarshal(n.Inputs, &inputs) == nil {
		if s, ok := asString(inputs[input]); ok {
			return s
		}
	}

	var widgets []json.RawMessage
	if json.Unmarshal(n.Widgets, &widgets) == nil && pos < len(widgets) {
		if s, ok := asString(widgets[pos]); ok {
			return s
		}
	}
	return ""
}

func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return "", false
	}
	return s, true
}
