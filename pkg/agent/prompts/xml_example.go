package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// XMLExampleProvider is implemented by tools that supply their own usage
// example instead of one derived from the schema.
type XMLExampleProvider interface {
	XMLExample() string
}

// sampleValues gives realistic values for argument names the built-in tools
// use. Anything else falls back to a value for its type.
var sampleValues = map[string]string{
	"dividend":    "1234",
	"divisor":     "7",
	"message":     "Here is what I found &amp; what I suggest.",
	"question":    "Which city are you travelling from?",
	"query":       "vegetarian restaurants in Lisbon",
	"url":         "https://example.com/article",
	"limit":       "5",
	"max_results": "5",
}

// GenerateXMLExample renders a tool call with the required arguments of
// schema, in name order.
func GenerateXMLExample(schema map[string]interface{}, toolName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<tool>\n<tool_name>%s</tool_name>\n<arguments>\n", toolName)

	properties, _ := schema["properties"].(map[string]interface{}) //nolint:errcheck
	for _, name := range requiredNames(schema) {
		prop, ok := properties[name].(map[string]interface{})
		if !ok {
			continue
		}
		writeArgument(&b, name, prop)
	}

	b.WriteString("</arguments>\n</tool>")
	return b.String()
}

// requiredNames returns the schema's required argument names sorted.
func requiredNames(schema map[string]interface{}) []string {
	var names []string
	switch req := schema["required"].(type) {
	case []string:
		names = append(names, req...)
	case []interface{}:
		for _, v := range req {
			if s, ok := v.(string); ok {
				names = append(names, s)
			}
		}
	}
	sort.Strings(names)
	return names
}

// writeArgument writes one argument element. Arrays repeat a singular child
// element, matching `xml:"tags>tag"` decoding.
func writeArgument(b *strings.Builder, name string, prop map[string]interface{}) {
	propType, _ := prop["type"].(string) //nolint:errcheck
	if propType != "array" {
		fmt.Fprintf(b, "  <%s>%s</%s>\n", name, sampleValue(name, propType, prop), name)
		return
	}

	child := strings.TrimSuffix(name, "s")
	fmt.Fprintf(b, "  <%s>\n", name)
	for _, v := range []string{"first", "second"} {
		fmt.Fprintf(b, "    <%s>%s</%s>\n", child, v, child)
	}
	fmt.Fprintf(b, "  </%s>\n", name)
}

func sampleValue(name, propType string, prop map[string]interface{}) string {
	if enum, ok := prop["enum"].([]interface{}); ok && len(enum) > 0 {
		return fmt.Sprint(enum[0])
	}
	if v, ok := sampleValues[name]; ok {
		return v
	}
	switch propType {
	case "integer":
		return "42"
	case "number":
		return "2.5"
	case "boolean":
		return "true"
	default:
		return "value"
	}
}
