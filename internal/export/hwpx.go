package export

import (
	"fmt"
	"io"
	"strings"
)

// HWPXRenderer writes a Hangul word-processor package: a zip of XML parts
// whose single section holds the views as paragraphs and tables.
type HWPXRenderer struct{}

// Format implements Renderer.
func (HWPXRenderer) Format() Format { return FormatHWPX }

// Render implements Renderer.
func (HWPXRenderer) Render(w io.Writer, v Views) error {
	sec := &hwpxSection{}
	layoutDocument(sec, v)
	section := xmlHeader + `<hp:sec xmlns:hp="http://www.hancom.co.kr/hwpx/format/2.0">` + sec.String() + `</hp:sec>`
	return writeZip(w, []zipPart{
		{name: "mimetype", body: "application/hwp+zip"},
		{name: "version.xml", body: hwpxVersion},
		{name: "[Content_Types].xml", body: hwpxContentTypes},
		{name: "_rels/.rels", body: hwpxRels},
		{name: "Contents/header.xml", body: hwpxHeader},
		{name: "Contents/section0.xml", body: section},
		{name: "settings.xml", body: hwpxSettings},
	}, true)
}

const hwpxVersion = xmlHeader + `<hh:HWPXVersion xmlns:hh="http://www.hancom.co.kr/hwpx/format/2.0" version="2.0"/>`

const hwpxContentTypes = xmlHeader + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/version.xml" ContentType="application/hwpx-version+xml"/>` +
	`<Override PartName="/Contents/header.xml" ContentType="application/hwpx-header+xml"/>` +
	`<Override PartName="/Contents/section0.xml" ContentType="application/hwpx-section+xml"/>` +
	`<Override PartName="/settings.xml" ContentType="application/hwpx-settings+xml"/>` +
	`</Types>`

const hwpxRels = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Type="http://www.hancom.co.kr/hwpx/format/2.0/section" Target="Contents/section0.xml" Id="rId1"/>` +
	`<Relationship Type="http://www.hancom.co.kr/hwpx/format/2.0/header" Target="Contents/header.xml" Id="rId2"/>` +
	`<Relationship Type="http://www.hancom.co.kr/hwpx/format/2.0/settings" Target="settings.xml" Id="rId3"/>` +
	`</Relationships>`

const hwpxHeader = xmlHeader + `<hh:head xmlns:hh="http://www.hancom.co.kr/hwpx/format/2.0" version="2.0">` +
	`<hh:beginNum page="1" footnote="1" endnote="1" pic="1" tbl="1" equation="1"/>` +
	`<hh:refList><hh:fontfaces><hh:fontface lang="HANGUL" fontCnt="2">` +
	`<hh:font id="0" face="함초롬바탕" type="TTF" isEmbedded="false"/>` +
	`<hh:font id="1" face="함초롬돋움" type="TTF" isEmbedded="false"/>` +
	`</hh:fontface></hh:fontfaces></hh:refList></hh:head>`

const hwpxSettings = xmlHeader + `<hh:settings xmlns:hh="http://www.hancom.co.kr/hwpx/format/2.0">` +
	`<hh:startPageNum systemDefault="true"/></hh:settings>`

const hwpxCellWidth = 1500

type hwpxSection struct {
	strings.Builder
}

func (s *hwpxSection) para(text string) {
	fmt.Fprintf(s, `<hp:para><hp:run><hp:t>%s</hp:t></hp:run></hp:para>`, escapeXML(text))
}

func (s *hwpxSection) title(text string) {
	s.para(text)
	s.WriteString("<hp:para/>")
}

func (s *hwpxSection) heading(text string)    { s.para("[" + text + "]") }
func (s *hwpxSection) subheading(text string) { s.para(text) }
func (s *hwpxSection) paragraph(text string)  { s.para(text) }

func (s *hwpxSection) pageBreak() {
	s.WriteString(`<hp:para pageBreak="1"/>`)
}

func (s *hwpxSection) table(headers []string, rows [][]string) {
	fmt.Fprintf(s, `<hp:tbl rowCnt="%d" colCnt="%d">`, len(rows)+1, len(headers))
	s.row(0, headers, "#E5E7EB")
	for i, r := range rows {
		s.row(i+1, r, "")
	}
	s.WriteString(`</hp:tbl><hp:para/>`)
}

func (s *hwpxSection) row(rowAddr int, cells []string, fill string) {
	s.WriteString("<hp:tr>")
	for col, text := range cells {
		s.WriteString("<hp:tc")
		if fill != "" {
			fmt.Fprintf(s, ` fillColor="%s"`, fill)
		}
		fmt.Fprintf(s, `><hp:cellAddr colAddr="%d" rowAddr="%d"/>`, col, rowAddr)
		fmt.Fprintf(s, `<hp:cellSpan colSpan="1" rowSpan="1"/><hp:cellSz width="%d" height="800"/>`, hwpxCellWidth)
		s.WriteString(`<hp:cellMargin left="60" right="60" top="60" bottom="60"/>`)
		s.para(text)
		s.WriteString("</hp:tc>")
	}
	s.WriteString("</hp:tr>")
}
