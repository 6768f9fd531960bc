package argument

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/hugr-lab/filetable/internal/msgpack"
)

// ParseNodes parses a JSON array of argument nodes.
//
// Each node is an object with a "kind" and, depending on the kind, "type", "value" and
// "operands":
//
//	[
//	  {"kind": "LITERAL", "type": "CHAR", "value": "/data"},
//	  {"kind": "DEFAULT"},
//	  {"kind": "MAP_VALUE_CONSTRUCTOR", "operands": [
//	    {"kind": "LITERAL", "type": "CHAR", "value": {"text": "k", "charset": "UTF-8"}},
//	    {"kind": "LITERAL", "type": "CHAR", "value": "v"}
//	  ]}
//	]
func ParseNodes(data []byte) ([]Node, error) {
	if len(data) == 0 {
		return []Node{}, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("argument: invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, errors.New("argument: nodes must be a JSON array")
	}

	items := doc.Array()
	nodes := make([]Node, 0, len(items))
	for i, item := range items {
		node, err := parseNode(item)
		if err != nil {
			return nil, fmt.Errorf("argument: node %d: %w", i, err)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func parseNode(r gjson.Result) (Node, error) {
	if !r.IsObject() {
		return Node{}, fmt.Errorf("node must be an object, got %s", r.Type)
	}
	kind := r.Get("kind").String()
	if kind == "" {
		return Node{}, errors.New("node without kind")
	}

	node := Node{Kind: Kind(kind), Type: r.Get("type").String()}

	if value := r.Get("value"); value.Exists() && value.Type != gjson.Null {
		v, err := parseLiteralValue(value)
		if err != nil {
			return Node{}, fmt.Errorf("invalid value: %w", err)
		}
		node.Value = v
	}

	for i, op := range r.Get("operands").Array() {
		child, err := parseNode(op)
		if err != nil {
			return Node{}, fmt.Errorf("operand %d: %w", i, err)
		}
		node.Operands = append(node.Operands, child)
	}
	return node, nil
}

// parseLiteralValue decodes a literal payload: a charset-tagged object becomes a
// CharString, anything else keeps its JSON form with numbers as float64.
func parseLiteralValue(r gjson.Result) (any, error) {
	if r.IsObject() {
		text := r.Get("text")
		if text.Type != gjson.String {
			return nil, errors.New("object literal without text")
		}
		return CharString{Text: text.Str, Charset: r.Get("charset").String()}, nil
	}
	return r.Value(), nil
}

// DecodeNodes decodes MessagePack-encoded argument nodes, as sent by front-ends that
// forward call sites over the wire.
func DecodeNodes(data []byte) ([]Node, error) {
	var nodes []Node
	if err := msgpack.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("argument: %w", err)
	}
	for i := range nodes {
		normalize(&nodes[i])
	}
	return nodes, nil
}

// EncodeNodes encodes argument nodes into MessagePack.
func EncodeNodes(nodes []Node) ([]byte, error) {
	data, err := msgpack.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("argument: %w", err)
	}
	return data, nil
}

// normalize restores CharString payloads that MessagePack decodes as generic maps.
func normalize(n *Node) {
	if m, ok := n.Value.(map[string]any); ok {
		if text, ok := m["text"].(string); ok {
			charset, _ := m["charset"].(string)
			n.Value = CharString{Text: text, Charset: charset}
		}
	}
	for i := range n.Operands {
		normalize(&n.Operands[i])
	}
}
