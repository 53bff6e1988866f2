package telegraph

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is a Telegraph content node: either a string or an *Element.
type Node any

type Element struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []Node            `json:"children,omitempty"`
}

var keptAttrs = map[string]bool{"href": true, "src": true}

// ToNodes parses an HTML fragment into Telegraph nodes. Only href and src
// attributes survive; comments are dropped.
func ToNodes(markup string) ([]Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	parsed, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}

	nodes := make([]Node, 0, len(parsed))
	for _, n := range parsed {
		if node := convert(n); node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func convert(n *html.Node) Node {
	switch n.Type {
	case html.TextNode:
		return n.Data
	case html.ElementNode:
		el := &Element{Tag: n.Data}
		for _, a := range n.Attr {
			if keptAttrs[a.Key] {
				if el.Attrs == nil {
					el.Attrs = map[string]string{}
				}
				el.Attrs[a.Key] = a.Val
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if node := convert(child); node != nil {
				el.Children = append(el.Children, node)
			}
		}
		return el
	default:
		return nil
	}
}
