package dom

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/keyx/internal/sanitize"
)

// Attribute names of the content element contract.
const (
	AttrID     = "id"
	AttrPublic = "public"
	AttrData   = "data"
	AttrSrcdoc = "srcdoc"
)

var (
	ErrNotFound = errors.New("element not found")
	ErrNotFrame = errors.New("element is not an iframe")
	ErrNoID     = errors.New("element has no id")
)

// contentSelector matches content elements in server-rendered markup.
const contentSelector = "[id][data]"

// Visibility of a content element.
type Visibility int

const (
	Private Visibility = iota
	Public
)

// String returns the visibility name.
func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "private"
}

// Element is a snapshot of a content element.
type Element struct {
	TagName    string
	ID         string
	Attributes map[string]string
}

// Visibility reads the public attribute. Only "1" means public.
func (e Element) Visibility() Visibility {
	if e.Attributes[AttrPublic] == "1" {
		return Public
	}
	return Private
}

// Data returns the opaque payload.
func (e Element) Data() string {
	return e.Attributes[AttrData]
}

// IsFrame reports whether the element can receive a document.
func (e Element) IsFrame() bool {
	return strings.EqualFold(e.TagName, "iframe")
}

// Document holds the content elements of one page.
type Document struct {
	doc      *goquery.Document
	elements map[string]*html.Node
	mu       sync.RWMutex
}

// NewDocument creates an empty page.
func NewDocument() *Document {
	d, err := Parse(nil)
	if err != nil {
		// Parsing empty input cannot fail
		panic(err)
	}
	return d
}

// Parse builds a Document from markup, transcoding it to UTF-8 first.
func Parse(markup []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitize.ToUTF8(markup)))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	d := &Document{
		doc:      doc,
		elements: make(map[string]*html.Node),
	}

	doc.Find(contentSelector).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr(AttrID)
		if id == "" {
			return
		}
		// First element wins, as with getElementById
		if _, dup := d.elements[id]; !dup {
			d.elements[id] = s.Get(0)
		}
	})

	return d, nil
}

// Lookup returns a snapshot of the element with id.
func (d *Document) Lookup(id string) (Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	node, ok := d.elements[id]
	if !ok {
		return Element{}, false
	}
	return snapshot(node), true
}

// IDs returns the content element IDs in document order.
func (d *Document) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, 0, len(d.elements))
	d.doc.Find(contentSelector).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr(AttrID)
		if node, ok := d.elements[id]; ok && node == s.Get(0) {
			ids = append(ids, id)
		}
	})
	return ids
}

// Upsert mounts a new element or updates an existing one. Attributes other
// than id and srcdoc are replaced wholesale. It reports whether the element
// was newly mounted.
func (d *Document) Upsert(tag, id string, attrs map[string]string) (bool, error) {
	if id == "" {
		return false, ErrNoID
	}
	if tag == "" {
		tag = "iframe"
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	node, exists := d.elements[id]
	if !exists {
		node = &html.Node{
			Type:     html.ElementNode,
			Data:     strings.ToLower(tag),
			DataAtom: atom.Lookup([]byte(strings.ToLower(tag))),
		}
		d.body().AppendChild(node)
		d.elements[id] = node
	}

	srcdoc, hadSrcdoc := attr(node, AttrSrcdoc)
	node.Attr = node.Attr[:0]
	setAttr(node, AttrID, id)

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := strings.ToLower(k)
		if name == AttrID || name == AttrSrcdoc {
			continue
		}
		setAttr(node, name, attrs[k])
	}
	if hadSrcdoc {
		setAttr(node, AttrSrcdoc, srcdoc)
	}

	return !exists, nil
}

// Remove detaches an element.
func (d *Document) Remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	node, ok := d.elements[id]
	if !ok {
		return false
	}
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
	delete(d.elements, id)
	return true
}

// Srcdoc returns the document currently assigned to an iframe.
func (d *Document) Srcdoc(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	node, ok := d.elements[id]
	if !ok {
		return "", false
	}
	return attr(node, AttrSrcdoc)
}

// HTML renders the whole page.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, d.doc.Get(0)); err != nil {
		return "", fmt.Errorf("render markup: %w", err)
	}
	return buf.String(), nil
}

// setSrcdoc writes an iframe document. Only Injector calls it.
func (d *Document) setSrcdoc(id, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	node, ok := d.elements[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !strings.EqualFold(node.Data, "iframe") {
		return fmt.Errorf("%w: %s", ErrNotFrame, id)
	}

	setAttr(node, AttrSrcdoc, content)
	return nil
}

func (d *Document) body() *html.Node {
	if body := d.doc.Find("body").First(); body.Length() > 0 {
		return body.Get(0)
	}
	return d.doc.Get(0)
}

func snapshot(node *html.Node) Element {
	el := Element{
		TagName:    node.Data,
		Attributes: make(map[string]string, len(node.Attr)),
	}
	for _, a := range node.Attr {
		el.Attributes[a.Key] = a.Val
	}
	el.ID = el.Attributes[AttrID]
	return el
}

func attr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(node *html.Node, key, val string) {
	for i := range node.Attr {
		if node.Attr[i].Key == key {
			node.Attr[i].Val = val
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: val})
}
