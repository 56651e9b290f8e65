// Package models defines the core data structures for the dCache exporter
// application.
package models

import (
	"encoding/xml"
	"fmt"
)

// Node is one element of the dCache info snapshot tree. The snapshot is an
// arbitrary-depth XML document whose element names are not known up front,
// so the whole document is unmarshaled into this generic recursive shape:
// a namespaced tag, its attributes, its ordered children, and any leaf text.
//
// A Node is immutable once parsed. One snapshot tree is owned by exactly one
// collection pass and discarded when the pass completes.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []Node     `xml:",any"`
	Text     string     `xml:",chardata"`
}

// ParseSnapshot parses a complete snapshot document into its root Node.
// Returns an error if the document is not well-formed XML.
func ParseSnapshot(data []byte) (*Node, error) {
	var root Node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot document: %w", err)
	}
	return &root, nil
}

// Tag returns the element name without its namespace qualifier.
func (n *Node) Tag() string {
	return n.XMLName.Local
}

// Namespace returns the element's namespace URI, or the empty string for
// unqualified elements.
func (n *Node) Namespace() string {
	return n.XMLName.Space
}

// Attr returns the value of the named attribute and whether it is present.
// Namespace qualifiers on attribute names are ignored; the info snapshot
// declares attributes unqualified.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrDefault returns the value of the named attribute, or def if absent.
func (n *Node) AttrDefault(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// Child returns the first direct child with the given namespace and local
// name, or nil if no such child exists.
func (n *Node) Child(space, local string) *Node {
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Space == space && c.XMLName.Local == local {
			return c
		}
	}
	return nil
}
