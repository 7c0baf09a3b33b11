package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
	"github.com/gomutex/godocx/wml/stypes"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/joseph-ayodele/handscribe/internal/htmltext"
)

const (
	tableStyle    = "TableGrid"
	keepRowsStyle = "TableGridKeepRows"
	listStyle     = "ListParagraph"
	preStyle      = "MacroText"

	// one inch, in twips
	pageMargin = 1440

	footerPart    = "word/footer1.xml"
	footerRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	footerType    = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
)

// DocxEncoder turns an HTML document into a WordprocessingML package built
// with godocx from its default template.
type DocxEncoder struct{}

func NewDocxEncoder() *DocxEncoder { return &DocxEncoder{} }

// Probe encodes a one-paragraph document and checks that the package opens.
func (e *DocxEncoder) Probe(ctx context.Context) error {
	data, err := e.Encode(ctx, "<p>ok</p>", DocOptions{PageNumbers: true})
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("reopen package: %w", err)
	}
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			return nil
		}
	}
	return fmt.Errorf("package has no main document part")
}

// Encode renders doc (a fragment or a full HTML document) into .docx bytes.
func (e *DocxEncoder) Encode(ctx context.Context, doc string, opts DocOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := htmltext.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	rd, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("new document: %w", err)
	}

	w := &bodyWriter{root: rd, dst: rd, tableStyle: tableStyle}
	if opts.TableRowCantSplit {
		addKeepRowsStyle(rd)
		w.tableStyle = keepRowsStyle
	}
	w.children(body, runFormat{}, 0)
	w.flush()
	if w.lastTable || w.written == 0 {
		// a body must end with a paragraph
		rd.AddEmptyParagraph()
	}

	sect := rd.Document.Body.SectPr
	if sect == nil {
		sect = ctypes.NewSectionProper()
		rd.Document.Body.SectPr = sect
	}
	if sect.PageMargin == nil {
		sect.PageMargin = &ctypes.PageMargin{}
	}
	margin := pageMargin
	sect.PageMargin.Left = &margin
	sect.PageMargin.Right = &margin
	if opts.PageNumbers {
		if err := addPageFooter(rd, sect); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := rd.Write(&buf); err != nil {
		return nil, fmt.Errorf("write package: %w", err)
	}
	return buf.Bytes(), nil
}

// addKeepRowsStyle registers a TableGrid variant whose rows never break
// across pages.
func addKeepRowsStyle(rd *docx.RootDoc) {
	typ := stypes.StyleTypeTable
	id := keepRowsStyle
	rd.DocStyles.StyleList = append(rd.DocStyles.StyleList, ctypes.Style{
		Type:         &typ,
		ID:           &id,
		Name:         ctypes.NewCTString("Table Grid Keep Rows"),
		BasedOn:      ctypes.NewCTString(tableStyle),
		TableRowProp: &ctypes.RowProperty{CantSplit: &ctypes.OnOff{}},
	})
}

// addPageFooter adds a footer part holding a centered PAGE field and points
// the section at it.
func addPageFooter(rd *docx.RootDoc, sect *ctypes.SectionProp) error {
	if err := rd.ContentType.AddOverride("/"+footerPart, footerType); err != nil {
		return fmt.Errorf("footer content type: %w", err)
	}
	rd.FileMap.Store(footerPart, []byte(footerXML))
	rid := "rId" + strconv.Itoa(rd.Document.IncRelationID())
	rd.Document.DocRels.Relationships = append(rd.Document.DocRels.Relationships, &docx.Relationship{
		ID:     rid,
		Type:   footerRelType,
		Target: strings.TrimPrefix(footerPart, "word/"),
	})
	sect.FooterReference = &ctypes.FooterReference{Type: stypes.HdrFtrDefault, ID: rid}
	return nil
}

const footerXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
	`<w:ftr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:p><w:pPr><w:jc w:val="center"/></w:pPr>` +
	`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
	`<w:r><w:instrText xml:space="preserve"> PAGE </w:instrText></w:r>` +
	`<w:r><w:fldChar w:fldCharType="separate"/></w:r>` +
	`<w:r><w:t>1</w:t></w:r>` +
	`<w:r><w:fldChar w:fldCharType="end"/></w:r>` +
	`</w:p></w:ftr>`

// paragraphAdder is the part of a document or table cell that takes new
// paragraphs.
type paragraphAdder interface {
	AddEmptyParagraph() *docx.Paragraph
}

type cellParagraphs struct{ cell *docx.Cell }

func (c cellParagraphs) AddEmptyParagraph() *docx.Paragraph { return c.cell.AddEmptyPara() }

type runFormat struct {
	bold, italic, underline bool
	pre                     bool
}

type run struct {
	text string
	brk  bool
	runFormat
}

type paragraph struct {
	style  string
	indent int
	runs   []run
}

type listState struct {
	ordered bool
	next    int
}

type bodyWriter struct {
	// root is nil inside table cells; nested tables are flattened there.
	root       *docx.RootDoc
	dst        paragraphAdder
	tableStyle string
	cur        *paragraph
	written    int
	lastTable  bool
	lists      []*listState
}

func (w *bodyWriter) open(style string, indent int) *paragraph {
	w.flush()
	w.cur = &paragraph{style: style, indent: indent}
	return w.cur
}

func (w *bodyWriter) para() *paragraph {
	if w.cur == nil {
		w.cur = &paragraph{}
	}
	return w.cur
}

func (w *bodyWriter) flush() {
	if w.cur == nil {
		return
	}
	p := w.cur
	w.cur = nil
	// drop trailing collapsed whitespace
	for len(p.runs) > 0 {
		last := &p.runs[len(p.runs)-1]
		if last.brk || last.pre {
			break
		}
		last.text = strings.TrimRight(last.text, " ")
		if last.text != "" {
			break
		}
		p.runs = p.runs[:len(p.runs)-1]
	}
	if len(p.runs) == 0 && p.style == "" {
		return
	}
	w.emit(p)
}

func (w *bodyWriter) emit(p *paragraph) {
	dp := w.dst.AddEmptyParagraph()
	if p.style != "" {
		dp.Style(p.style)
	}
	if p.indent > 0 {
		ct := dp.GetCT()
		if ct.Property == nil {
			ct.Property = ctypes.DefaultParaProperty()
		}
		left := p.indent + 360
		hanging := uint64(360)
		ct.Property.Indent = &ctypes.Indent{Left: &left, Hanging: &hanging}
	}
	for _, r := range p.runs {
		if r.brk {
			dp.AddRun().AddBreak(nil)
			continue
		}
		dr := dp.AddText(r.text)
		if r.bold {
			dr.Bold(true)
		}
		if r.italic {
			dr.Italic(true)
		}
		if r.underline {
			dr.Underline(stypes.UnderlineSingle)
		}
	}
	w.written++
	w.lastTable = false
}

func (w *bodyWriter) text(s string, f runFormat) {
	if f.pre {
		lines := strings.Split(s, "\n")
		p := w.para()
		for i, ln := range lines {
			if i > 0 {
				p.runs = append(p.runs, run{brk: true})
			}
			if ln != "" {
				p.runs = append(p.runs, run{text: ln, runFormat: f})
			}
		}
		return
	}
	collapsed := strings.Join(strings.Fields(s), " ")
	lead := s != "" && strings.TrimLeft(s, " \t\r\n\f") != s
	trail := s != "" && strings.TrimRight(s, " \t\r\n\f") != s
	if collapsed == "" {
		// whitespace between words only matters inside a paragraph
		if w.cur != nil && len(w.cur.runs) > 0 && !endsWithSpace(w.cur) {
			w.cur.runs = append(w.cur.runs, run{text: " ", runFormat: f})
		}
		return
	}
	p := w.para()
	if lead && len(p.runs) > 0 && !endsWithSpace(p) {
		collapsed = " " + collapsed
	}
	if trail {
		collapsed += " "
	}
	p.runs = append(p.runs, run{text: collapsed, runFormat: f})
}

func endsWithSpace(p *paragraph) bool {
	last := p.runs[len(p.runs)-1]
	return last.brk || strings.HasSuffix(last.text, " ")
}

func (w *bodyWriter) children(n *html.Node, f runFormat, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, f, depth)
	}
}

func (w *bodyWriter) node(n *html.Node, f runFormat, depth int) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data, f)
		return
	case html.ElementNode:
	default:
		w.children(n, f, depth)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Title, atom.Img:
		return
	case atom.B, atom.Strong:
		f.bold = true
		w.children(n, f, depth)
	case atom.I, atom.Em:
		f.italic = true
		w.children(n, f, depth)
	case atom.U, atom.Ins:
		f.underline = true
		w.children(n, f, depth)
	case atom.Br:
		p := w.para()
		p.runs = append(p.runs, run{brk: true})
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.open("Heading"+n.Data[1:], 0)
		w.children(n, f, depth)
		w.flush()
	case atom.Pre:
		w.open(preStyle, 0)
		f.pre = true
		w.children(n, f, depth)
		w.flush()
	case atom.Ul, atom.Ol:
		w.flush()
		ls := &listState{ordered: n.DataAtom == atom.Ol, next: 1}
		if v, ok := attr(n, "start"); ok {
			if start, err := strconv.Atoi(v); err == nil {
				ls.next = start
			}
		}
		w.lists = append(w.lists, ls)
		w.children(n, f, depth+1)
		w.lists = w.lists[:len(w.lists)-1]
		w.flush()
	case atom.Li:
		prefix := "• "
		if len(w.lists) > 0 {
			ls := w.lists[len(w.lists)-1]
			if ls.ordered {
				prefix = strconv.Itoa(ls.next) + ". "
				ls.next++
			}
		}
		p := w.open(listStyle, max(depth, 1)*360)
		p.runs = append(p.runs, run{text: prefix, runFormat: runFormat{bold: f.bold}})
		w.children(n, f, depth)
		w.flush()
	case atom.Table:
		w.flush()
		w.table(n, f)
	case atom.Hr:
		w.flush()
		ct := w.dst.AddEmptyParagraph().GetCT()
		ct.Property = ctypes.DefaultParaProperty()
		ct.Property.Border = &ctypes.ParaBorder{Bottom: &ctypes.Border{Val: stypes.BorderStyleSingle}}
		w.written++
		w.lastTable = false
	default:
		if htmltext.IsBlock(n.DataAtom) {
			w.flush()
			w.children(n, f, depth)
			w.flush()
			return
		}
		w.children(n, f, depth)
	}
}

func (w *bodyWriter) table(n *html.Node, f runFormat) {
	rows := htmltext.Rows(n)
	cols := 0
	cells := make([][]*html.Node, len(rows))
	for i, tr := range rows {
		cells[i] = htmltext.Cells(tr)
		cols = max(cols, len(cells[i]))
	}
	if cols == 0 {
		return
	}

	if w.root == nil {
		// one paragraph per row, cells tab separated
		for _, row := range cells {
			p := w.open("", 0)
			for i, c := range row {
				if i > 0 {
					p.runs = append(p.runs, run{text: "\t", runFormat: runFormat{pre: true}})
				}
				cf := f
				cf.bold = cf.bold || c.DataAtom == atom.Th
				p.runs = append(p.runs, run{text: htmltext.NodeText(c), runFormat: cf})
			}
			w.flush()
		}
		return
	}

	t := w.root.AddTable()
	t.Style(w.tableStyle)
	for _, row := range cells {
		tr := t.AddRow()
		for i := range cols {
			cell := tr.AddCell()
			inner := &bodyWriter{dst: cellParagraphs{cell}, tableStyle: w.tableStyle}
			if i < len(row) {
				cf := f
				cf.bold = cf.bold || row[i].DataAtom == atom.Th
				inner.children(row[i], cf, 0)
				inner.flush()
			}
			if inner.written == 0 {
				// a cell must hold a paragraph
				cell.AddEmptyPara()
			}
		}
	}
	w.written++
	w.lastTable = true
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
