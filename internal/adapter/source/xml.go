package source

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RecordElement is the XML element holding one transaction.
const RecordElement = "Transaction"

type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

// ParseXML reads every Transaction element at any depth. Attributes of the
// element become columns; child elements contribute their text under their
// own name and their attributes as "child.attr".
func ParseXML(r io.Reader) ([]map[string]any, error) {
	dec := xml.NewDecoder(r)

	var rows []map[string]any
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != RecordElement {
			continue
		}

		var node xmlNode
		if err := dec.DecodeElement(&node, &start); err != nil {
			return nil, fmt.Errorf("decode %s: %w", RecordElement, err)
		}

		row := make(map[string]any)
		flattenXML("", node, row)
		rows = append(rows, row)
	}

	return rows, nil
}

func flattenXML(prefix string, node xmlNode, out map[string]any) {
	join := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	for _, attr := range node.Attrs {
		out[join(attr.Name.Local)] = attr.Value
	}

	if text := strings.TrimSpace(node.Text); text != "" && prefix != "" {
		out[prefix] = text
	}

	for _, child := range node.Children {
		flattenXML(join(child.XMLName.Local), child, out)
	}
}
