// Package bpmntest builds process-definition documents and archives for tests.
package bpmntest

import (
	"bytes"
	"testing"

	"github.com/beevik/etree"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

const (
	bpmnNS = "http://www.omg.org/spec/BPMN/20100524/MODEL"
	iflNS  = "http:///com.sap.ifl.model/Ifl.xsd"
)

// Prop is one vendor property.
type Prop struct {
	Key, Value string
}

// P builds properties from alternating keys and values.
func P(kv ...string) []Prop {
	if len(kv)%2 != 0 {
		panic("bpmntest.P: odd number of arguments")
	}
	props := make([]Prop, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		props = append(props, Prop{Key: kv[i], Value: kv[i+1]})
	}
	return props
}

// Flow is a message flow of the collaboration.
type Flow struct {
	ID, Name string
	Props    []Prop
}

// Element is a process step or event. Kind is the local element name, e.g.
// "subProcess", "callActivity" or "endEvent".
type Element struct {
	Kind     string
	ID, Name string
	Attrs    map[string]string
	Props    []Prop
	// EventDefinition adds an empty "<kind>" child, e.g. "messageEventDefinition".
	EventDefinition string
	// ErrorRef is set on an errorEventDefinition.
	ErrorRef string
	// Script adds a script child with this body.
	Script   string
	Children []Element
}

// Process is one executable process.
type Process struct {
	ID, Name string
	Props    []Prop
	Elements []Element
}

// ErrorDecl is a root-level error declaration.
type ErrorDecl struct {
	ID, Name string
}

// Definition describes a whole document.
type Definition struct {
	// NoCollaboration omits the collaboration element entirely.
	NoCollaboration    bool
	CollaborationProps []Prop
	Flows              []Flow
	Processes          []Process
	Errors             []ErrorDecl
}

// XML serializes the definition with the vendor namespace layout.
func (d Definition) XML() []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("bpmn2:definitions")
	root.CreateAttr("xmlns:bpmn2", bpmnNS)
	root.CreateAttr("xmlns:ifl", iflNS)
	root.CreateAttr("id", "Definitions_1")

	if !d.NoCollaboration {
		collab := root.CreateElement("bpmn2:collaboration")
		collab.CreateAttr("id", "Collaboration_1")
		collab.CreateAttr("name", "Default Collaboration")
		addProps(collab, d.CollaborationProps)
		for _, f := range d.Flows {
			mf := collab.CreateElement("bpmn2:messageFlow")
			mf.CreateAttr("id", f.ID)
			if f.Name != "" {
				mf.CreateAttr("name", f.Name)
			}
			addProps(mf, f.Props)
		}
	}

	for _, p := range d.Processes {
		proc := root.CreateElement("bpmn2:process")
		proc.CreateAttr("id", p.ID)
		if p.Name != "" {
			proc.CreateAttr("name", p.Name)
		}
		addProps(proc, p.Props)
		for _, e := range p.Elements {
			addElement(proc, e)
		}
	}

	for _, e := range d.Errors {
		decl := root.CreateElement("bpmn2:error")
		decl.CreateAttr("id", e.ID)
		decl.CreateAttr("name", e.Name)
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		panic(err)
	}
	return out
}

func addProps(parent *etree.Element, props []Prop) {
	if len(props) == 0 {
		return
	}
	ext := parent.CreateElement("bpmn2:extensionElements")
	for _, p := range props {
		prop := ext.CreateElement("ifl:property")
		prop.CreateElement("key").SetText(p.Key)
		prop.CreateElement("value").SetText(p.Value)
	}
}

func addElement(parent *etree.Element, e Element) {
	el := parent.CreateElement("bpmn2:" + e.Kind)
	if e.ID != "" {
		el.CreateAttr("id", e.ID)
	}
	if e.Name != "" {
		el.CreateAttr("name", e.Name)
	}
	for k, v := range e.Attrs {
		el.CreateAttr(k, v)
	}
	addProps(el, e.Props)
	if e.EventDefinition != "" {
		def := el.CreateElement("bpmn2:" + e.EventDefinition)
		if e.ErrorRef != "" {
			def.CreateAttr("errorRef", e.ErrorRef)
		}
	}
	if e.Script != "" {
		el.CreateElement("bpmn2:script").SetText(e.Script)
	}
	for _, c := range e.Children {
		addElement(el, c)
	}
}

// Archive packs the given entries into an in-memory zip. Entries are written
// in argument order as alternating names and contents.
func Archive(t testing.TB, nameContent ...string) []byte {
	t.Helper()
	require.True(t, len(nameContent)%2 == 0, "Archive needs name/content pairs")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i < len(nameContent); i += 2 {
		w, err := zw.Create(nameContent[i])
		require.NoError(t, err)
		_, err = w.Write([]byte(nameContent[i+1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// FlowArchive packs the definition as a typical exported integration flow.
func FlowArchive(t testing.TB, name string, d Definition) []byte {
	t.Helper()
	return Archive(t,
		"META-INF/MANIFEST.MF", "Manifest-Version: 1.0\nBundle-SymbolicName: "+name+"\n",
		"src/main/resources/scenarioflows/integrationflow/"+name+".iflw", string(d.XML()),
	)
}
