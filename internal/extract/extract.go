// Package extract walks a parsed process definition and harvests raw
// candidate records. Extractors never fail: a fragment without enough
// evidence becomes a Skip and the rest of the document is still processed.
package extract

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/internal/bpmn"
)

// Skip describes a fragment that was ignored for lack of evidence.
type Skip struct {
	Extractor string
	Subject   string
	Reason    string
	// Keys lists the property keys that were available, sorted.
	Keys []string
}

func newSkip(logger *zap.Logger, extractor, subject, reason string, props []bpmn.PropertyPair) Skip {
	s := Skip{Extractor: extractor, Subject: subject, Reason: reason, Keys: bpmn.Keys(props)}
	logger.Warn("Skipping fragment",
		zap.String("subject", subject),
		zap.String("reason", reason),
		zap.Strings("keys", s.Keys))
	return s
}

// flowName is the display name of a message flow: the Name property, then
// the element name, then its id.
func flowName(mf bpmn.MessageFlow) string {
	if name := bpmn.GetProperty(mf.Properties, "Name"); name != "" {
		return name
	}
	if mf.Name != "" {
		return mf.Name
	}
	return mf.ID
}

// activityKinds are the element names treated as executable steps.
var activityKinds = map[string]bool{
	"serviceTask":  true,
	"callActivity": true,
	"scriptTask":   true,
	"task":         true,
	"sendTask":     true,
	"receiveTask":  true,
}

// activity is a process step with its properties resolved once.
type activity struct {
	node         *bpmn.Node
	props        []bpmn.PropertyPair
	activityType string
	script       string
}

func (a activity) id() string { return a.node.ID() }

func (a activity) name() string {
	if n := a.node.Attr("name"); n != "" {
		return n
	}
	return a.node.ID()
}

// activities returns every step below the process, depth-first.
func activities(process *bpmn.Node) []activity {
	var out []activity
	process.Walk(func(n *bpmn.Node) bool {
		if n != process && activityKinds[n.Name] {
			props := bpmn.Properties(n)
			out = append(out, activity{
				node:         n,
				props:        props,
				activityType: bpmn.GetProperty(props, "activityType"),
				script:       n.ChildText("script"),
			})
		}
		return true
	})
	return out
}

func processID(process *bpmn.Node, index int) string {
	if id := process.ID(); id != "" {
		return id
	}
	return "process_" + strconv.Itoa(index)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsAnyFold(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
