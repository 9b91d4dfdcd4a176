package fallback

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ApplyHead returns shell with its <title>, meta description and canonical
// link set from v. Missing elements are appended to <head>; a view without
// a canonical URL removes any canonical link. If the shell cannot be
// parsed it is returned unchanged.
func (v View) ApplyHead(shell []byte) []byte {
	doc, err := html.Parse(bytes.NewReader(shell))
	if err != nil {
		return shell
	}

	head := find(doc, func(n *html.Node) bool { return n.DataAtom == atom.Head })
	if head == nil {
		return shell
	}

	setTitle(head, v.Title)
	setHeadElement(head, atom.Meta, isDescription, "content", v.Description, []html.Attribute{
		{Key: "name", Val: "description"},
	})
	setHeadElement(head, atom.Link, isCanonical, "href", v.Canonical, []html.Attribute{
		{Key: "rel", Val: "canonical"},
	})

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return shell
	}
	return buf.Bytes()
}

func setTitle(head *html.Node, title string) {
	if title == "" {
		return
	}

	n := find(head, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if n == nil {
		n = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		head.AppendChild(n)
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

// setHeadElement finds the element matching match under head and sets key
// to val. An empty val removes the element.
func setHeadElement(head *html.Node, a atom.Atom, match func(*html.Node) bool, key, val string, base []html.Attribute) {
	n := find(head, func(n *html.Node) bool { return n.DataAtom == a && match(n) })

	if val == "" {
		if n != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}

	if n == nil {
		n = &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
		n.Attr = append(n.Attr, base...)
		head.AppendChild(n)
	}
	setAttr(n, key, val)
}

func isDescription(n *html.Node) bool {
	return strings.EqualFold(attr(n, "name"), "description")
}

func isCanonical(n *html.Node) bool {
	for _, rel := range strings.Fields(attr(n, "rel")) {
		if strings.EqualFold(rel, "canonical") {
			return true
		}
	}
	return false
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
