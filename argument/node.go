// Package argument extracts constant table-function arguments from call-site syntax nodes.
//
// Table functions such as csv_file(path => '/data', options => MAP['k', 'v']) accept only a
// closed grammar of constant arguments: character literals, NULL, DEFAULT and MAP
// constructors built from those. Extraction runs while the query is being validated, before
// any I/O, and is a pure function of its inputs.
//
// # Basic Usage
//
//	params := []argument.Parameter{
//	    {Ordinal: 0, Name: "path"},
//	    {Ordinal: 1, Name: "options", Optional: true},
//	}
//	nodes := []argument.Node{
//	    argument.CharLiteral("/data"),
//	    argument.MapConstructor(argument.CharLiteral("k"), argument.CharLiteral("v")),
//	}
//
//	values, err := argument.Extract("csv_file", params, nodes)
//	if err != nil {
//	    return err // *argument.InvalidArgumentError
//	}
//	path, _ := values[0].String()
//
// Nodes can also be received in wire form, see ParseNodes (JSON) and DecodeNodes (MessagePack).
package argument

// Kind identifies the syntactic shape of an argument node.
type Kind string

const (
	KindLiteral        Kind = "LITERAL"
	KindNull           Kind = "NULL"
	KindDefault        Kind = "DEFAULT"
	KindMapConstructor Kind = "MAP_VALUE_CONSTRUCTOR"

	// Shapes below are recognized only to be rejected with a precise diagnostic.
	KindArrayConstructor Kind = "ARRAY_VALUE_CONSTRUCTOR"
	KindCast             Kind = "CAST"
	KindCall             Kind = "OTHER_FUNCTION"
	KindIdentifier       Kind = "IDENTIFIER"
)

// Literal type names as reported by the SQL front-end.
const (
	TypeChar          = "CHAR"
	TypeBoolean       = "BOOLEAN"
	TypeDecimal       = "DECIMAL"
	TypeDouble        = "DOUBLE"
	TypeNull          = "NULL"
	TypeIntervalDay   = "INTERVAL_DAY"
	TypeIntervalMonth = "INTERVAL_YEAR_MONTH"
)

// Node is a call-site argument as produced by the SQL front-end.
type Node struct {
	// Kind is the node shape.
	Kind Kind `json:"kind" msgpack:"kind"`

	// Type is the literal type name for KindLiteral nodes (e.g. CHAR, BOOLEAN, DECIMAL).
	Type string `json:"type,omitempty" msgpack:"type,omitempty"`

	// Value is the literal payload. Character literals carry a string or a CharString.
	Value any `json:"value,omitempty" msgpack:"value,omitempty"`

	// Operands are the children of constructor and call nodes.
	// MAP constructors store keys and values alternately.
	Operands []Node `json:"operands,omitempty" msgpack:"operands,omitempty"`
}

// CharString is a character literal tagged with its charset.
type CharString struct {
	Text    string `json:"text" msgpack:"text"`
	Charset string `json:"charset,omitempty" msgpack:"charset,omitempty"`
}

// CharLiteral returns a character-string literal node.
func CharLiteral(s string) Node {
	return Node{Kind: KindLiteral, Type: TypeChar, Value: s}
}

// CharsetLiteral returns a character-string literal node tagged with a charset.
func CharsetLiteral(s, charset string) Node {
	return Node{Kind: KindLiteral, Type: TypeChar, Value: CharString{Text: s, Charset: charset}}
}

// Literal returns a literal node of an arbitrary literal type.
func Literal(typeName string, value any) Node {
	return Node{Kind: KindLiteral, Type: typeName, Value: value}
}

// NullLiteral returns an explicit NULL node.
func NullLiteral() Node {
	return Node{Kind: KindNull}
}

// Default returns a DEFAULT node (argument omitted at the call site).
func Default() Node {
	return Node{Kind: KindDefault}
}

// MapConstructor returns a MAP[k1, v1, k2, v2, ...] node.
func MapConstructor(operands ...Node) Node {
	return Node{Kind: KindMapConstructor, Operands: operands}
}

// Call returns a node of any other kind, e.g. a nested function call or a CAST.
func Call(kind Kind, operands ...Node) Node {
	return Node{Kind: kind, Operands: operands}
}

// describe returns the diagnostic name of a node: the literal type for literals,
// the node kind otherwise.
func (n Node) describe() string {
	if n.Kind == KindLiteral {
		if n.Type == "" {
			return "UNKNOWN"
		}
		return n.Type
	}
	return string(n.Kind)
}

// charText returns the raw text of a character literal.
func (n Node) charText() (string, bool) {
	if n.Kind != KindLiteral || n.Type != TypeChar {
		return "", false
	}
	switch v := n.Value.(type) {
	case string:
		return v, true
	case CharString:
		return v.Text, true
	case *CharString:
		if v == nil {
			return "", false
		}
		return v.Text, true
	default:
		return "", false
	}
}

// isNull reports whether the node is DEFAULT or a NULL literal.
func (n Node) isNull() bool {
	switch n.Kind {
	case KindDefault, KindNull:
		return true
	case KindLiteral:
		return n.Type == TypeNull
	}
	return false
}
