package report

import (
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

const (
	pageMargin = 15.0
	pageWidth  = 210.0 - 2*pageMargin
	bodyFont   = "Helvetica"
	bodySize   = 10.0
	lineHeight = 5.0
)

var headingSizes = map[int]float64{1: 15, 2: 13, 3: 11.5}

// pdfWriter lays out a goldmark AST with fpdf's flowing Write calls
type pdfWriter struct {
	doc       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	size      float64
	bold      bool
	italic    bool
	strike    bool
	lists     []listState
}

type listState struct {
	ordered bool
	next    int
}

func (w *pdfWriter) write(root ast.Node) error {
	return ast.Walk(root, w.visit)
}

func (w *pdfWriter) applyFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.doc.SetFont(bodyFont, style, w.size)
}

func (w *pdfWriter) text(s string) {
	w.doc.Write(lineHeight, w.translate(s))
}

func (w *pdfWriter) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node, entering)
	case *ast.Paragraph:
		if !entering && len(w.lists) == 0 {
			w.doc.Ln(lineHeight + 1.5)
		}
	case *ast.TextBlock:
		// Tight list items wrap their text in TextBlock; the item handles spacing
	case *ast.Text:
		if entering {
			w.text(string(node.Segment.Value(w.source)))
			if node.SoftLineBreak() {
				w.text(" ")
			}
			if node.HardLineBreak() {
				w.doc.Ln(lineHeight)
			}
		}
	case *ast.String:
		if entering {
			w.text(string(node.Value))
		}
	case *ast.Emphasis:
		if node.Level >= 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.applyFont()
	case *extast.Strikethrough:
		w.strike = entering
	case *ast.Link:
		return w.link(node, entering), nil
	case *ast.AutoLink:
		if entering {
			url := string(node.URL(w.source))
			w.doc.SetTextColor(30, 80, 180)
			w.doc.WriteLinkString(lineHeight, w.translate(url), url)
			w.doc.SetTextColor(0, 0, 0)
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeSpan:
		if entering {
			w.doc.SetFont("Courier", "", w.size)
			w.text(string(node.Text(w.source)))
			w.applyFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			w.codeBlock(node.Lines().Len(), func(i int) string {
				line := node.Lines().At(i)
				return string(line.Value(w.source))
			})
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		if entering {
			w.codeBlock(node.Lines().Len(), func(i int) string {
				line := node.Lines().At(i)
				return string(line.Value(w.source))
			})
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		w.list(node, entering)
	case *ast.ListItem:
		w.listItem(entering)
	case *ast.Blockquote:
		w.italic = entering
		w.applyFont()
	case *ast.ThematicBreak:
		if entering {
			w.doc.Ln(2)
			y := w.doc.GetY()
			w.doc.Line(pageMargin, y, pageMargin+pageWidth, y)
			w.doc.Ln(3)
		}
	case *extast.Table:
		if entering {
			w.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) heading(n *ast.Heading, entering bool) {
	if entering {
		w.doc.Ln(3)
		size, ok := headingSizes[n.Level]
		if !ok {
			size = bodySize + 0.5
		}
		w.bold, w.size = true, size
		w.applyFont()
		return
	}
	w.doc.Ln(lineHeight + 2)
	w.bold, w.size = false, bodySize
	w.applyFont()
}

func (w *pdfWriter) link(n *ast.Link, entering bool) ast.WalkStatus {
	if !entering {
		return ast.WalkContinue
	}
	w.doc.SetTextColor(30, 80, 180)
	w.doc.WriteLinkString(lineHeight, w.translate(string(n.Text(w.source))), string(n.Destination))
	w.doc.SetTextColor(0, 0, 0)
	return ast.WalkSkipChildren
}

func (w *pdfWriter) codeBlock(count int, line func(i int) string) {
	w.doc.Ln(1)
	w.doc.SetFont("Courier", "", bodySize-1)
	w.doc.SetFillColor(242, 242, 242)
	for i := 0; i < count; i++ {
		w.doc.MultiCell(0, lineHeight-0.5, w.translate(line(i)), "", "L", true)
	}
	w.doc.SetFillColor(255, 255, 255)
	w.applyFont()
	w.doc.Ln(2)
}

func (w *pdfWriter) list(n *ast.List, entering bool) {
	if entering {
		start := n.Start
		if start == 0 {
			start = 1
		}
		w.lists = append(w.lists, listState{ordered: n.IsOrdered(), next: start})
		return
	}
	w.lists = w.lists[:len(w.lists)-1]
	if len(w.lists) == 0 {
		w.doc.Ln(lineHeight + 1.5)
	}
}

func (w *pdfWriter) listItem(entering bool) {
	if !entering || len(w.lists) == 0 {
		return
	}

	if w.doc.GetX() > pageMargin+0.1 {
		w.doc.Ln(lineHeight)
	}
	depth := len(w.lists)
	w.doc.SetX(pageMargin + float64(depth-1)*6)

	current := &w.lists[depth-1]
	if current.ordered {
		w.text(fmt.Sprintf("%d. ", current.next))
		current.next++
	} else {
		w.text("- ")
	}
}

func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, string(cell.Text(w.source)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	cols := len(rows[0])
	width := pageWidth / float64(cols)

	w.doc.Ln(1)
	for i, row := range rows {
		if i == 0 {
			w.doc.SetFont(bodyFont, "B", bodySize-1)
			w.doc.SetFillColor(230, 230, 230)
		} else {
			w.doc.SetFont(bodyFont, "", bodySize-1)
		}

		height := lineHeight
		for _, cell := range row {
			lines := w.doc.SplitText(w.translate(cell), width-2)
			if h := float64(len(lines)) * (lineHeight - 0.5); h > height {
				height = h
			}
		}

		if w.doc.GetY()+height > 297-pageMargin {
			w.doc.AddPage()
		}
		x, y := w.doc.GetX(), w.doc.GetY()
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			style := "D"
			if i == 0 {
				style = "FD"
			}
			w.doc.Rect(x+float64(j)*width, y, width, height, style)
			w.doc.SetXY(x+float64(j)*width+1, y)
			w.doc.MultiCell(width-2, lineHeight-0.5, w.translate(cell), "", "L", false)
		}
		w.doc.SetXY(x, y+height)
	}

	w.doc.SetFillColor(255, 255, 255)
	w.applyFont()
	w.doc.Ln(2)
}
