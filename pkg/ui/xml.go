package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/arthur-debert/relocator/pkg/errors"
)

// xmlRenderer writes each document as a standalone XML file
type xmlRenderer struct {
	output io.Writer
}

func newXMLRenderer(w io.Writer) *xmlRenderer {
	return &xmlRenderer{output: w}
}

func (r *xmlRenderer) RenderResult(result interface{}) error {
	return r.write(DocumentXML(BuildDocument(result)))
}

func (r *xmlRenderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	doc := newXMLDocument()
	el := doc.CreateElement("error")
	el.CreateAttr("code", string(errors.GetErrorCode(err)))
	el.CreateElement("message").SetText(err.Error())

	details := errors.GetErrorDetails(err)
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d := el.CreateElement("detail")
		d.CreateAttr("name", k)
		d.SetText(fmt.Sprint(details[k]))
	}
	return r.write(doc)
}

func (r *xmlRenderer) RenderMessage(msg string) error {
	doc := newXMLDocument()
	doc.CreateElement("message").SetText(msg)
	return r.write(doc)
}

func (r *xmlRenderer) write(doc *etree.Document) error {
	doc.Indent(2)
	_, err := doc.WriteTo(r.output)
	return err
}

func newXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

// DocumentXML converts a document into XML. The root element is named
// after the document kind; column headers become element names.
func DocumentXML(d Document) *etree.Document {
	doc := newXMLDocument()
	root := doc.CreateElement(d.Kind)
	if d.Title != "" {
		root.CreateAttr("title", d.Title)
	}
	if d.Status != "" {
		root.CreateAttr("status", string(d.Status))
	}

	for _, f := range d.Fields {
		el := root.CreateElement("field")
		el.CreateAttr("name", f.Label)
		el.SetText(f.Value)
	}

	for _, t := range d.Tables {
		table := root.CreateElement("table")
		if t.Title != "" {
			table.CreateAttr("title", t.Title)
		}
		for _, row := range t.Rows {
			rowEl := table.CreateElement("row")
			for i, cell := range row {
				name := "column"
				if i < len(t.Header) {
					name = elementName(t.Header[i])
				}
				rowEl.CreateElement(name).SetText(cell)
			}
		}
	}

	for _, note := range d.Notes {
		root.CreateElement("note").SetText(note)
	}
	return doc
}

// elementName turns a column header into a valid XML element name
func elementName(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9' && b.Len() > 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 {
				b.WriteRune('_')
			}
		}
	}
	if b.Len() == 0 {
		return "column"
	}
	return b.String()
}
