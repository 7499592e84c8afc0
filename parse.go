package gst

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenLink tokenKind = iota
	tokenWord
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits description into words and link marks. Quotes group
// whitespace into words and are removed.
func lex(desc string) ([]token, error) {
	var (
		tokens []token
		sb     strings.Builder
		quote  rune
		start  = -1
	)
	flush := func() {
		if start >= 0 {
			tokens = append(tokens, token{kind: tokenWord, text: sb.String(), pos: start})
			sb.Reset()
			start = -1
		}
	}
	for i, r := range desc {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				sb.WriteRune(r)
			}
		case r == '"' || r == '\'':
			if start < 0 {
				start = i
			}
			quote = r
		case r == '!':
			flush()
			tokens = append(tokens, token{kind: tokenLink, text: "!", pos: i})
		case unicode.IsSpace(r):
			flush()
		default:
			if start < 0 {
				start = i
			}
			sb.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	flush()
	return tokens, nil
}

// linkEnd is an element or a reference to a named element.
type linkEnd struct {
	element *Element
	ref     string
	pos     int
}

type parser struct {
	r        *Registry
	desc     string
	elements []*Element
	links    [][2]linkEnd
}

// ParseLaunch builds elements from a pipeline description like
// "appsrc name=src ! identity ! appsink name=sink". A single element is
// returned as is, multiple elements are put into a pipeline. On error
// nothing is left allocated.
func ParseLaunch(desc string) (*Element, error) {
	return DefaultRegistry.ParseLaunch(desc)
}

// ParsePipeline is like ParseLaunch, but always returns a pipeline.
func ParsePipeline(desc string) (*Pipeline, error) {
	return DefaultRegistry.ParsePipeline(desc)
}

// ParseLaunch builds elements from a description using the registry.
func (r *Registry) ParseLaunch(desc string) (*Element, error) {
	p := &parser{r: r, desc: desc}
	e, err := p.parse(false)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ParsePipeline builds a pipeline from a description using the registry.
func (r *Registry) ParsePipeline(desc string) (*Pipeline, error) {
	p := &parser{r: r, desc: desc}
	e, err := p.parse(true)
	if err != nil {
		return nil, err
	}
	return PipelineOf(e), nil
}

func (p *parser) errorf(pos int, err error, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Description: p.desc,
		Pos:         pos,
		Msg:         fmt.Sprintf(format, args...),
		Err:         err,
	}
}

func (p *parser) parse(wrap bool) (*Element, error) {
	tokens, err := lex(p.desc)
	if err != nil {
		return nil, p.errorf(len(p.desc), err, "invalid syntax")
	}
	if len(tokens) == 0 {
		return nil, p.errorf(0, nil, "empty description")
	}
	if err := p.build(tokens); err != nil {
		p.dispose(nil)
		return nil, err
	}
	if len(p.elements) == 1 && len(p.links) == 0 {
		if !wrap || PipelineOf(p.elements[0]) != nil {
			return p.elements[0], nil
		}
	}
	e, err := p.r.Make("pipeline", "")
	if err != nil {
		p.dispose(nil)
		return nil, p.errorf(0, err, "create pipeline")
	}
	pipeline := PipelineOf(e)
	if err := p.assemble(pipeline); err != nil {
		p.dispose(pipeline)
		return nil, err
	}
	return e, nil
}

// build creates elements and records links.
func (p *parser) build(tokens []token) error {
	var (
		current *Element
		prev    *linkEnd
		linking bool
		linkPos int
	)
	for _, t := range tokens {
		if t.kind == tokenLink {
			if prev == nil {
				return p.errorf(t.pos, nil, "link without source")
			}
			if linking {
				return p.errorf(t.pos, nil, "double link")
			}
			linking, linkPos = true, t.pos
			continue
		}
		var end linkEnd
		switch {
		case isCaps(t.text):
			c, err := p.r.Make("capsfilter", "")
			if err != nil {
				return p.errorf(t.pos, err, "create capsfilter")
			}
			p.elements = append(p.elements, c)
			if err := c.SetProperty("caps", t.text); err != nil {
				return p.errorf(t.pos, err, "invalid caps %q", t.text)
			}
			current = nil
			end = linkEnd{element: c, pos: t.pos}
		case strings.Contains(t.text, "="):
			if current == nil || linking {
				return p.errorf(t.pos, nil, "property %q without element", t.text)
			}
			k, v, _ := strings.Cut(t.text, "=")
			if err := current.SetPropertyString(k, v); err != nil {
				return p.errorf(t.pos, err, "set property %q", k)
			}
			continue
		case strings.HasSuffix(t.text, "."):
			current = nil
			end = linkEnd{ref: strings.TrimSuffix(t.text, "."), pos: t.pos}
		default:
			e, err := p.r.Make(t.text, "")
			if err != nil {
				return p.errorf(t.pos, err, "no element %q", t.text)
			}
			p.elements = append(p.elements, e)
			current = e
			end = linkEnd{element: e, pos: t.pos}
		}
		if linking {
			p.links = append(p.links, [2]linkEnd{*prev, end})
			linking = false
		}
		prev = &end
	}
	if linking {
		return p.errorf(linkPos, nil, "link without sink")
	}
	return nil
}

// isCaps returns true for words like audio/x-raw,rate=8000.
func isCaps(s string) bool {
	head := s
	if i := strings.IndexAny(s, ",="); i >= 0 {
		head = s[:i]
	}
	return strings.Contains(head, "/")
}

// assemble adds all elements to the pipeline and links them.
func (p *parser) assemble(pipeline *Pipeline) error {
	for _, e := range p.elements {
		if err := pipeline.Add(e); err != nil {
			return p.errorf(0, err, "add %s", e.Name())
		}
	}
	resolve := func(end linkEnd) (*Element, error) {
		if end.element != nil {
			return end.element, nil
		}
		e, err := pipeline.GetByName(end.ref)
		if err != nil {
			return nil, p.errorf(end.pos, err, "unknown reference %q", end.ref)
		}
		return e, nil
	}
	for _, l := range p.links {
		src, err := resolve(l[0])
		if err != nil {
			return err
		}
		sink, err := resolve(l[1])
		if err != nil {
			return err
		}
		if err := Link(src, sink); err != nil {
			return p.errorf(l[1].pos, err, "link %s to %s", src.Name(), sink.Name())
		}
	}
	return nil
}

// dispose releases the pipeline and all elements that are not in it.
func (p *parser) dispose(pipeline *Pipeline) {
	for _, e := range p.elements {
		if e.Parent() == nil {
			_ = e.Dispose()
		}
	}
	if pipeline != nil {
		_ = pipeline.Dispose()
	}
}
