package facts

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ParseError reports malformed byte input. Semantically invalid but parseable
// markup never produces a ParseError; it becomes Facts counters instead.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse html: %s", e.Reason)
}

// genericLinkPhrases is the fixed phrase set for generic-link-text detection,
// matched against lowercased, whitespace-collapsed link text.
var genericLinkPhrases = map[string]bool{
	"click here": true,
	"read more":  true,
	"learn more": true,
	"more":       true,
	"more...":    true,
	"here":       true,
}

// voidElements never receive a close tag and must not enter the open-tag stack.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Extract parses htmlText once into a Facts snapshot.
func Extract(htmlText string) (*Facts, error) {
	return ExtractWithCSS(htmlText, "")
}

// ExtractWithCSS additionally scans cssText for paged-media signals
// (table-of-contents leaders, target counters, @page rules).
func ExtractWithCSS(htmlText, cssText string) (*Facts, error) {
	if strings.TrimSpace(htmlText) == "" {
		return nil, &ParseError{Reason: "empty document"}
	}
	if !utf8.ValidString(htmlText) {
		return nil, &ParseError{Reason: "input is not valid UTF-8"}
	}

	e := &extractor{
		facts:        &Facts{},
		idCounts:     map[string]int{},
		idRefs:       map[string]bool{},
		labelFor:     map[string]bool{},
		fragmentRefs: map[string]int{},
	}
	e.run(htmlText)
	e.resolve()

	f := e.facts
	f.TOCSignalCount = strings.Count(cssText, "target-counter(") + strings.Count(cssText, "leader(")
	f.PageRuleCount = strings.Count(cssText, "@page")
	return f, nil
}

// pendingControl is a form control whose labeling depends on a <label for=...>
// that may appear anywhere in the document, so it is resolved after the pass.
type pendingControl struct {
	id      string
	labeled bool
}

type extractor struct {
	facts *Facts

	idCounts     map[string]int
	idRefs       map[string]bool
	labelFor     map[string]bool
	fragmentRefs map[string]int
	controls     []pendingControl

	stack []string

	// scoped text capture
	titleDone  bool
	inTitle    bool
	titleBuf   strings.Builder
	linkDepth  int
	linkBuf    strings.Builder
	linkNamed  bool // aria-label / img alt inside the link
	headingTag string
	headingBuf strings.Builder
	labelDepth int
	rawTextTag string // script/style contents stay out of body text

	// svg naming is decided on </svg>: a <title> child may come later
	svgDepth    int
	svgHasTitle bool
	svgHasAria  bool

	lastHeadingLevel int

	tableStack []*TableFacts
	bodyText   strings.Builder
}

func (e *extractor) run(htmlText string) {
	z := html.NewTokenizer(strings.NewReader(htmlText))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// The tokenizer only stops at EOF; truncated markup is
			// implicitly closed, not an error.
			if z.Err() != io.EOF {
				return
			}
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			e.openTag(&tok, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			tok := z.Token()
			e.closeTag(tok.Data)
		case html.TextToken:
			e.text(string(z.Text()))
		}
	}
}

func (e *extractor) openTag(tok *html.Token, selfClosing bool) {
	name := tok.Data
	attrs := map[string]string{}
	for _, a := range tok.Attr {
		if _, seen := attrs[a.Key]; !seen {
			attrs[a.Key] = a.Val
		}
	}
	e.commonAttrs(name, attrs)

	f := e.facts
	switch name {
	case "html":
		if f.HTMLLang == "" {
			f.HTMLLang = strings.TrimSpace(attrs["lang"])
		}
	case "title":
		if !e.titleDone && e.svgDepth == 0 {
			e.inTitle = true
		}
		if e.svgDepth > 0 {
			e.svgHasTitle = true
		}
	case "main":
		f.MainCount++
	case "h1", "h2", "h3", "h4", "h5", "h6":
		f.HeadingCount++
		level := int(name[1] - '0')
		if e.lastHeadingLevel > 0 && level > e.lastHeadingLevel+1 {
			f.HeadingSkipCount++
		}
		e.lastHeadingLevel = level
		e.headingTag = name
		e.headingBuf.Reset()
	case "img":
		f.ImageCount++
		e.classifyImage(attrs)
	case "svg":
		if e.svgDepth == 0 {
			f.ImageCount++
			e.svgHasTitle = false
			e.svgHasAria = hasAccessibleName(attrs)
		}
		e.svgDepth++
	case "input":
		typ := strings.ToLower(attrs["type"])
		switch typ {
		case "hidden", "submit", "reset", "button", "image":
		default:
			e.addControl(attrs)
		}
	case "select", "textarea":
		e.addControl(attrs)
	case "label":
		if id := strings.TrimSpace(attrs["for"]); id != "" {
			e.labelFor[id] = true
		}
		e.labelDepth++
	case "a":
		if _, ok := attrs["href"]; ok {
			f.LinkCount++
			e.linkDepth++
			e.linkBuf.Reset()
			e.linkNamed = attrs["aria-label"] != "" || attrs["aria-labelledby"] != ""
			if ref, ok := strings.CutPrefix(attrs["href"], "#"); ok && ref != "" {
				e.fragmentRefs[ref]++
			}
		}
	case "table":
		e.tableStack = append(e.tableStack, &TableFacts{})
	case "caption":
		if t := e.topTable(); t != nil {
			t.HasCaption = true
		}
	case "th":
		if t := e.topTable(); t != nil {
			t.THCount++
			if attrs["scope"] != "" {
				t.THScopeCount++
			}
		}
	case "script":
		f.ScriptCount++
		e.rawTextTag = "script"
	case "style":
		e.rawTextTag = "style"
	case "embed", "object", "iframe":
		f.EmbedCount++
	case "audio", "video":
		if _, ok := attrs["autoplay"]; ok {
			f.AutoplayCount++
		}
	case "blink", "marquee":
		f.BlinkMarqueeCount++
	case "meta":
		if strings.EqualFold(attrs["http-equiv"], "refresh") {
			f.MetaRefreshCount++
		}
	}

	if name == "img" && e.linkDepth > 0 && strings.TrimSpace(attrs["alt"]) != "" {
		e.linkBuf.WriteString(" " + attrs["alt"])
	}

	if !selfClosing && !voidElements[name] {
		e.stack = append(e.stack, name)
	}
	if selfClosing && name == "svg" {
		e.closeSVG()
	}
}

// commonAttrs handles attributes that matter on any element.
func (e *extractor) commonAttrs(name string, attrs map[string]string) {
	f := e.facts
	if id := strings.TrimSpace(attrs["id"]); id != "" {
		e.idCounts[id]++
	}
	for _, key := range [...]string{"aria-labelledby", "aria-describedby", "aria-controls"} {
		for _, ref := range strings.Fields(attrs[key]) {
			e.idRefs[ref] = true
		}
	}
	if v, ok := attrs["tabindex"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			f.PositiveTabindexCount++
		}
	}
	for key := range attrs {
		if strings.HasPrefix(key, "on") && len(key) > 2 {
			f.InlineHandlerCount++
		}
	}
	if attrs["role"] == "main" && name != "main" {
		f.MainCount++
	}
	if _, ok := attrs["data-signature"]; ok || hasClassToken(attrs["class"], "signature") {
		f.SignatureMarkerCount++
	}
}

func (e *extractor) classifyImage(attrs map[string]string) {
	if _, hasAlt := attrs["alt"]; hasAlt {
		return // alt="" is an explicit decorative marking
	}
	if hasAccessibleName(attrs) {
		return
	}
	if strings.TrimSpace(attrs["title"]) != "" {
		e.facts.TitleOnlyImageCount++
		return
	}
	e.facts.MissingAltCount++
}

func (e *extractor) addControl(attrs map[string]string) {
	e.facts.FormControlCount++
	if attrs["aria-invalid"] == "true" {
		e.facts.InvalidControlCount++
	}
	labeled := e.labelDepth > 0 ||
		attrs["aria-label"] != "" || attrs["aria-labelledby"] != "" ||
		strings.TrimSpace(attrs["title"]) != ""
	e.controls = append(e.controls, pendingControl{
		id:      strings.TrimSpace(attrs["id"]),
		labeled: labeled,
	})
}

func (e *extractor) closeTag(name string) {
	// pop to the matching open tag, implicitly closing unbalanced children
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i] == name {
			e.stack = e.stack[:i]
			break
		}
	}

	switch name {
	case "title":
		e.inTitle = false
		if !e.titleDone && e.svgDepth == 0 {
			e.facts.Title = normalizeText(e.titleBuf.String())
			e.titleDone = true
		}
	case "a":
		if e.linkDepth > 0 {
			e.linkDepth--
			e.flushLink()
		}
	case "h1", "h2", "h3", "h4", "h5", "h6":
		if e.headingTag == name {
			if normalizeText(e.headingBuf.String()) == "" {
				e.facts.EmptyHeadingCount++
			}
			e.headingTag = ""
		}
	case "label":
		if e.labelDepth > 0 {
			e.labelDepth--
		}
	case "table":
		if t := e.topTable(); t != nil {
			e.facts.Tables = append(e.facts.Tables, *t)
			e.tableStack = e.tableStack[:len(e.tableStack)-1]
		}
	case "svg":
		e.closeSVG()
	case "script", "style":
		e.rawTextTag = ""
	}
}

func (e *extractor) closeSVG() {
	if e.svgDepth == 0 {
		return
	}
	e.svgDepth--
	if e.svgDepth == 0 && !e.svgHasTitle && !e.svgHasAria {
		e.facts.MissingAltCount++
	}
}

func (e *extractor) flushLink() {
	text := normalizeText(e.linkBuf.String())
	switch {
	case text == "" && !e.linkNamed:
		e.facts.UnnamedLinkCount++
	case genericLinkPhrases[text]:
		e.facts.GenericLinkCount++
	}
}

func (e *extractor) text(s string) {
	if e.rawTextTag != "" {
		return
	}
	if e.inTitle {
		e.titleBuf.WriteString(s)
		return
	}
	if e.linkDepth > 0 {
		e.linkBuf.WriteString(s)
	}
	if e.headingTag != "" {
		e.headingBuf.WriteString(s)
	}
	e.bodyText.WriteString(s)
}

func (e *extractor) topTable() *TableFacts {
	if len(e.tableStack) == 0 {
		return nil
	}
	return e.tableStack[len(e.tableStack)-1]
}

// resolve settles every check that needs the whole document: a duplicate id or
// an ARIA target may appear after its first reference.
func (e *extractor) resolve() {
	f := e.facts
	f.IDCount = len(e.idCounts)

	for id, n := range e.idCounts {
		if n >= 2 {
			f.DuplicateIDs = append(f.DuplicateIDs, id)
		}
	}
	sort.Strings(f.DuplicateIDs)

	for ref := range e.idRefs {
		if e.idCounts[ref] == 0 {
			f.DanglingIDRefs = append(f.DanglingIDRefs, ref)
		}
	}
	sort.Strings(f.DanglingIDRefs)

	for _, c := range e.controls {
		if c.labeled {
			continue
		}
		if c.id != "" && e.labelFor[c.id] {
			continue
		}
		f.UnlabeledControlCount++
	}

	for ref, n := range e.fragmentRefs {
		if e.idCounts[ref] == 0 && ref != "top" {
			f.BrokenFragmentLinkCount += n
		}
	}

	f.BodyText = e.bodyText.String()
}

func hasAccessibleName(attrs map[string]string) bool {
	if attrs["aria-label"] != "" || attrs["aria-labelledby"] != "" {
		return true
	}
	switch attrs["role"] {
	case "presentation", "none":
		return true
	}
	if _, ok := attrs["aria-hidden"]; ok && attrs["aria-hidden"] == "true" {
		return true
	}
	return false
}

func hasClassToken(class, token string) bool {
	for _, c := range strings.Fields(class) {
		if strings.EqualFold(c, token) {
			return true
		}
	}
	return false
}

// normalizeText lowercases and collapses whitespace for phrase comparison.
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
