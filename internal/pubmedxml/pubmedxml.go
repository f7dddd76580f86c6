// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmedxml pulls article fields out of PubMed efetch XML.
//
// Lookups follow document order over all descendants, the way a DOM
// getElementsByTagName query does, so the helpers work on a bare
// PubmedArticle as well as on a full PubmedArticleSet.
package pubmedxml

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// Node is a parsed XML element with its children and direct character data.
type Node struct {
	Name     string
	Children []*Node
	// parts interleaves text and child elements so Text can rebuild
	// textContent in document order.
	parts []part
}

type part struct {
	text  string
	child *Node
}

// Parse decodes an XML document into a Node tree rooted at a synthetic
// document node. Non-UTF-8 encodings declared in the prolog are decoded
// through golang.org/x/text.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	root := &Node{Name: "#document"}
	stack := []*Node{root}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "xml: read token")
		}
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			top.Children = append(top.Children, n)
			top.parts = append(top.parts, part{child: n})
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			top.parts = append(top.parts, part{text: string(t)})
		}
	}
	if len(root.Children) == 0 {
		return nil, eris.New("xml: document has no elements")
	}
	return root, nil
}

// All returns every descendant of n named tag, in document order.
func (n *Node) All(tag string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			if c.Name == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// First returns the first descendant of n named tag, or nil.
func (n *Node) First(tag string) *Node {
	for _, c := range n.Children {
		if c.Name == tag {
			return c
		}
		if found := c.First(tag); found != nil {
			return found
		}
	}
	return nil
}

// Text returns the concatenated character data of n and its descendants.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	for _, p := range n.parts {
		if p.child != nil {
			p.child.writeText(b)
			continue
		}
		b.WriteString(p.text)
	}
}

// Content returns the trimmed text of the first tag element, or "" when absent.
func Content(doc *Node, tag string) string {
	return strings.TrimSpace(doc.First(tag).Text())
}

// Authors formats every Author as "Last, First" (or "Last" without a
// ForeName), joined by "; ".
func Authors(doc *Node) string {
	var names []string
	for _, a := range doc.All("Author") {
		last := a.First("LastName").Text()
		fore := a.First("ForeName").Text()
		name := last
		if fore != "" {
			name += ", " + fore
		}
		names = append(names, name)
	}
	joined := strings.Join(names, "; ")
	if joined == "" {
		return types.AuthorsUnavailable
	}
	return joined
}

// JournalInfo returns the journal title, distinguishing a missing Journal
// element from a Journal without a Title.
func JournalInfo(doc *Node) string {
	journal := doc.First("Journal")
	if journal == nil {
		return types.JournalUnavailable
	}
	title := journal.First("Title").Text()
	if title == "" {
		return types.JournalTitleMissing
	}
	return title
}

// PublicationDate returns "Year Month", "Year", or "" when no PubDate exists.
func PublicationDate(doc *Node) string {
	pub := doc.First("PubDate")
	if pub == nil {
		return ""
	}
	year := pub.First("Year").Text()
	month := pub.First("Month").Text()
	if month != "" {
		return year + " " + month
	}
	return year
}

// Keywords returns the trimmed non-empty keywords joined by ", ".
func Keywords(doc *Node) string {
	var kws []string
	for _, k := range doc.All("Keyword") {
		if s := strings.TrimSpace(k.Text()); s != "" {
			kws = append(kws, s)
		}
	}
	if len(kws) == 0 {
		return types.KeywordsUnavailable
	}
	return strings.Join(kws, ", ")
}

// Record assembles a LiteratureRecord for pmid, substituting placeholders
// for missing fields. articleURL is the page prefix the PMID is appended to.
func Record(pmid, articleURL string, doc *Node) types.LiteratureRecord {
	title := Content(doc, "ArticleTitle")
	if title == "" {
		title = types.TitleUnavailable
	}
	abstract := Content(doc, "Abstract")
	if abstract == "" {
		abstract = types.AbstractUnavailable
	}
	return types.LiteratureRecord{
		ID:              pmid,
		Title:           title,
		Abstract:        abstract,
		Authors:         Authors(doc),
		Journal:         JournalInfo(doc),
		PublicationDate: PublicationDate(doc),
		Keywords:        Keywords(doc),
		URL:             articleURL + pmid + "/",
	}
}
