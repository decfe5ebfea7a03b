// Package xmlmap reads and writes XML documents as nested generic maps,
// for the config payloads and third-party feeds where defining struct
// types per document is not worth it. Parsing rules are mxj's: element
// text becomes string values, attributes get a "-" key prefix and mixed
// content lands under "#text".
package xmlmap

import (
	"fmt"

	"github.com/clbanning/mxj/v2"
)

// Parse decodes an XML document into a nested map. Element values are
// strings; use ParseCast to coerce numbers and booleans.
func Parse(data []byte) (map[string]any, error) {
	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return m, nil
}

// ParseCast decodes an XML document with numeric and boolean values cast
// to float64 and bool.
func ParseCast(data []byte) (map[string]any, error) {
	m, err := mxj.NewMapXml(data, true)
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return m, nil
}

// Build encodes a nested map as XML. With no root the map's single top
// key becomes the root element; an explicit root wraps everything.
func Build(m map[string]any, root ...string) ([]byte, error) {
	data, err := mxj.Map(m).Xml(root...)
	if err != nil {
		return nil, fmt.Errorf("building XML: %w", err)
	}
	return data, nil
}

// BuildIndent is Build with two-space indentation, for fixtures and
// logs.
func BuildIndent(m map[string]any, root ...string) ([]byte, error) {
	data, err := mxj.Map(m).XmlIndent("", "  ", root...)
	if err != nil {
		return nil, fmt.Errorf("building XML: %w", err)
	}
	return data, nil
}

// ToJSON converts an XML document straight to JSON.
func ToJSON(xmlData []byte) ([]byte, error) {
	m, err := mxj.NewMapXml(xmlData)
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}

	out, err := m.Json()
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return out, nil
}

// FromJSON converts a JSON object straight to XML.
func FromJSON(jsonData []byte, root ...string) ([]byte, error) {
	m, err := mxj.NewMapJson(jsonData)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	out, err := m.Xml(root...)
	if err != nil {
		return nil, fmt.Errorf("building XML: %w", err)
	}
	return out, nil
}
