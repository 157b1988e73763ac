package rotation

import (
	"gopkg.in/yaml.v3"
)

const (
	tagStr  = "!!str"
	tagInt  = "!!int"
	tagNull = "!!null"
)

// DecodeTree accepts a string scalar ("x_90") or a mapping with an "axis"
// and an int "degrees". Document and alias nodes are followed.
func DecodeTree(n *yaml.Node) (State, error) {
	n = resolveNode(n)
	if n == nil {
		return 0, invalid(FormatTree, nil, nil)
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() != tagStr {
			return 0, invalid(FormatTree, n.Value, nil)
		}
		return resolveName(FormatTree, n.Value)
	case yaml.MappingNode:
		return decodeTreeMapping(n)
	}
	return 0, invalid(FormatTree, kindName(n.Kind), nil)
}

func decodeTreeMapping(n *yaml.Node) (State, error) {
	degrees := degreesAbsent
	var rawAxis, rawDegrees *yaml.Node

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolveNode(n.Content[i+1])
		if val == nil {
			continue
		}
		switch key.Value {
		case "axis":
			rawAxis = val
		case "degrees":
			rawDegrees = val
		}
	}
	axis := fieldText(rawAxis != nil, rawAxis != nil && rawAxis.ShortTag() == tagNull, treeText(rawAxis))
	if axis == "" {
		return 0, &DecodeError{Format: FormatTree, Kind: ErrMissingAxis}
	}
	if rawDegrees != nil && rawDegrees.ShortTag() != tagNull {
		if rawDegrees.Kind != yaml.ScalarNode || rawDegrees.ShortTag() != tagInt {
			return 0, &DecodeError{Format: FormatTree, Kind: ErrInvalidDegrees, Value: treeText(rawDegrees)}
		}
		if err := rawDegrees.Decode(&degrees); err != nil {
			return 0, &DecodeError{Format: FormatTree, Kind: ErrInvalidDegrees, Value: rawDegrees.Value, Err: err}
		}
	}
	return resolvePair(FormatTree, axis, degrees)
}

// treeText is a scalar's text, or the kind name for collections.
func treeText(n *yaml.Node) string {
	switch {
	case n == nil:
		return ""
	case n.Kind == yaml.ScalarNode:
		return n.Value
	}
	return kindName(n.Kind)
}

func resolveNode(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) == 1:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "empty"
}

// EncodeTree always emits a string scalar holding the canonical name.
func EncodeTree(s State) (*yaml.Node, error) {
	if err := checkEncodable(s); err != nil {
		return nil, err
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: s.Name()}, nil
}

func (s State) MarshalYAML() (any, error) { return EncodeTree(s) }

func (s *State) UnmarshalYAML(n *yaml.Node) error {
	v, err := DecodeTree(n)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
