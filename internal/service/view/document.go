package view

import "slices"

// Patch operations understood by static/js/app.js.
const (
	OpText        = "text"
	OpHTML        = "html"
	OpDisplay     = "display"
	OpSrc         = "src"
	OpValue       = "value"
	OpStyle       = "style"
	OpAddClass    = "addClass"
	OpRemoveClass = "removeClass"
)

// Display values.
const (
	DisplayNone  = "none"
	DisplayBlock = "block"
	DisplayFlex  = "flex"
)

// Patch is one mutation of one DOM element.
type Patch struct {
	ID    string `json:"id"`
	Op    string `json:"op"`
	Key   string `json:"key,omitempty"` // style property
	Value string `json:"value"`
}

// ElementState is the server-side mirror of a DOM element.
type ElementState struct {
	Text    string            `json:"text,omitempty"`
	HTML    string            `json:"html,omitempty"`
	Display string            `json:"display,omitempty"`
	Src     string            `json:"src,omitempty"`
	Value   string            `json:"value,omitempty"`
	Style   map[string]string `json:"style,omitempty"`
	Classes []string          `json:"classes,omitempty"`
}

// HasClass reports whether the element carries class c.
func (e ElementState) HasClass(c string) bool {
	return slices.Contains(e.Classes, c)
}

func (e ElementState) clone() ElementState {
	out := e
	if e.Style != nil {
		out.Style = make(map[string]string, len(e.Style))
		for k, v := range e.Style {
			out.Style[k] = v
		}
	}
	out.Classes = slices.Clone(e.Classes)
	return out
}

type document map[string]*ElementState

func (d document) element(id string) *ElementState {
	el, ok := d[id]
	if !ok {
		el = &ElementState{}
		d[id] = el
	}
	return el
}

func (d document) apply(p Patch) {
	el := d.element(p.ID)
	switch p.Op {
	case OpText:
		el.Text = p.Value
	case OpHTML:
		el.HTML = p.Value
	case OpDisplay:
		el.Display = p.Value
	case OpSrc:
		el.Src = p.Value
	case OpValue:
		el.Value = p.Value
	case OpStyle:
		if el.Style == nil {
			el.Style = make(map[string]string)
		}
		el.Style[p.Key] = p.Value
	case OpAddClass:
		if !el.HasClass(p.Value) {
			el.Classes = append(el.Classes, p.Value)
		}
	case OpRemoveClass:
		el.Classes = slices.DeleteFunc(el.Classes, func(c string) bool { return c == p.Value })
	}
}

func (d document) snapshot() map[string]ElementState {
	out := make(map[string]ElementState, len(d))
	for id, el := range d {
		out[id] = el.clone()
	}
	return out
}
