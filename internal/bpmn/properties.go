package bpmn

import "sort"

// PropertyPair is one vendor key/value setting from an extension block.
// Keys are case-sensitive.
type PropertyPair struct {
	Key   string
	Value string
}

// MessageFlow is one connection between a participant and the process.
type MessageFlow struct {
	ID         string
	Name       string
	SourceRef  string
	TargetRef  string
	Properties []PropertyPair
}

// Properties returns the property pairs of n's extension block, in document
// order. A node without one yields nil.
func Properties(n *Node) []PropertyPair {
	var out []PropertyPair
	for _, p := range n.First("extensionElements").All("property") {
		key := p.First("key")
		if key == nil || key.Text == "" {
			continue
		}
		out = append(out, PropertyPair{Key: key.Text, Value: p.ChildText("value")})
	}
	return out
}

// GetProperty returns the value of the first pair whose key equals key
// exactly. Absence yields "".
func GetProperty(props []PropertyPair, key string) string {
	for _, p := range props {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// HasProperty reports whether key is present, even with an empty value.
func HasProperty(props []PropertyPair, key string) bool {
	for _, p := range props {
		if p.Key == key {
			return true
		}
	}
	return false
}

// PropertyMap indexes the pairs by key. The first occurrence of a key wins.
func PropertyMap(props []PropertyPair) map[string]string {
	m := make(map[string]string, len(props))
	for _, p := range props {
		if _, ok := m[p.Key]; !ok {
			m[p.Key] = p.Value
		}
	}
	return m
}

// Keys returns the distinct keys, sorted.
func Keys(props []PropertyPair) []string {
	seen := make(map[string]struct{}, len(props))
	keys := make([]string, 0, len(props))
	for _, p := range props {
		if _, ok := seen[p.Key]; ok {
			continue
		}
		seen[p.Key] = struct{}{}
		keys = append(keys, p.Key)
	}
	sort.Strings(keys)
	return keys
}

// CollaborationProperties returns the top-level properties, or nil when the
// document has no collaboration.
func (d *Document) CollaborationProperties() []PropertyPair {
	if d == nil {
		return nil
	}
	return Properties(d.Collaboration)
}

// MessageFlows returns every message flow of the collaboration, in document
// order, or nil when there is no collaboration.
func (d *Document) MessageFlows() []MessageFlow {
	if d == nil {
		return nil
	}
	var flows []MessageFlow
	for _, mf := range d.Collaboration.All("messageFlow") {
		flows = append(flows, MessageFlow{
			ID:         mf.ID(),
			Name:       mf.Attr("name"),
			SourceRef:  mf.Attr("sourceRef"),
			TargetRef:  mf.Attr("targetRef"),
			Properties: Properties(mf),
		})
	}
	return flows
}
