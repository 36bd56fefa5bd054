package export

import (
	"fmt"
	"io"
	"strings"
)

// DOCXRenderer writes an Office Open XML word-processing document.
type DOCXRenderer struct{}

// Format implements Renderer.
func (DOCXRenderer) Format() Format { return FormatDOCX }

// Render implements Renderer.
func (DOCXRenderer) Render(w io.Writer, v Views) error {
	body := &docxBody{}
	layoutDocument(body, v)
	document := xmlHeader +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1134" w:right="1134" w:bottom="1134" w:left="1134" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>` +
		`</w:body></w:document>`
	return writeZip(w, []zipPart{
		{name: "[Content_Types].xml", body: docxContentTypes},
		{name: "_rels/.rels", body: docxRels},
		{name: "word/document.xml", body: document},
	}, false)
}

const docxContentTypes = xmlHeader + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const docxRels = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

type docxBody struct {
	strings.Builder
}

// run writes a paragraph with one text run. size is in half-points; zero
// keeps the default.
func (b *docxBody) run(text string, bold bool, size int, align string) {
	b.WriteString("<w:p>")
	if align != "" {
		fmt.Fprintf(b, `<w:pPr><w:jc w:val="%s"/></w:pPr>`, align)
	}
	b.WriteString("<w:r>")
	if bold || size > 0 {
		b.WriteString("<w:rPr>")
		if bold {
			b.WriteString("<w:b/>")
		}
		if size > 0 {
			fmt.Fprintf(b, `<w:sz w:val="%d"/>`, size)
		}
		b.WriteString("</w:rPr>")
	}
	fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escapeXML(text))
}

func (b *docxBody) title(text string)      { b.run(text, true, 36, "center") }
func (b *docxBody) heading(text string)    { b.run(text, true, 28, "center") }
func (b *docxBody) subheading(text string) { b.run(text, true, 24, "") }
func (b *docxBody) paragraph(text string)  { b.run(text, true, 24, "") }

func (b *docxBody) pageBreak() {
	b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

func (b *docxBody) table(headers []string, rows [][]string) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="5000" w:type="pct"/><w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(b, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="000000"/>`, side)
	}
	b.WriteString(`</w:tblBorders></w:tblPr>`)
	b.row(headers, true)
	for _, r := range rows {
		b.row(r, false)
	}
	b.WriteString(`</w:tbl><w:p/>`)
}

func (b *docxBody) row(cells []string, header bool) {
	b.WriteString("<w:tr>")
	for _, c := range cells {
		b.WriteString("<w:tc>")
		if header {
			b.WriteString(`<w:tcPr><w:shd w:val="clear" w:color="auto" w:fill="E2E8F0"/></w:tcPr>`)
		}
		b.WriteString(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r>`)
		if header {
			b.WriteString("<w:rPr><w:b/></w:rPr>")
		}
		fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t></w:r></w:p></w:tc>`, escapeXML(c))
	}
	b.WriteString("</w:tr>")
}
