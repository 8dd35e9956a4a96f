package agent

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// method is a closed tagged variant over the locator operations the Act
// Loop may dispatch, per the Design Notes (§9 redesign guidance): the
// source consults the locator's method table by string name; a typed
// re-implementation rejects unknown names as an explicit error kind
// instead of reflecting over "any callable method".
type method string

const (
	methodScrollIntoView method = "scrollIntoView"
	methodFill           method = "fill"
	methodType           method = "type"
	methodPress          method = "press"
	methodClick          method = "click"
	methodHover          method = "hover"
	methodCheck          method = "check"
)

// ErrUnknownMethod is returned when the LLM names a locator method this
// agent does not support.
type ErrUnknownMethod struct{ Method string }

func (e *ErrUnknownMethod) Error() string {
	return fmt.Sprintf("agent: chosen method %q is invalid", e.Method)
}

var namedKeys = map[string]input.Key{
	"enter":      input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"arrowdown":  input.ArrowDown,
	"arrowup":    input.ArrowUp,
	"arrowleft":  input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"space":      input.Space,
}

// locate resolves an "xpath=..." selector to a live element. All
// dispatches use the first element matching the selector.
func locate(page *rod.Page, selector string) (*rod.Element, error) {
	path := strings.TrimPrefix(selector, "xpath=")
	el, err := page.ElementX(path)
	if err != nil {
		return nil, fmt.Errorf("agent: locate %q: %w", selector, err)
	}
	return el, nil
}

// dispatch performs one locator method against selector with args.
func dispatch(page *rod.Page, selector string, m method, args []any) error {
	el, err := locate(page, selector)
	if err != nil {
		return err
	}

	switch m {
	case methodScrollIntoView:
		_, err := el.Eval(`function() { this.scrollIntoView({behavior:"smooth", block:"center"}); }`)
		return err

	case methodFill, methodType:
		if len(args) == 0 {
			return fmt.Errorf("agent: %s: missing text argument", m)
		}
		text, _ := args[0].(string)
		return typeHumanlike(el, text)

	case methodPress:
		if len(args) == 0 {
			return fmt.Errorf("agent: press: missing key argument")
		}
		key, _ := args[0].(string)
		return pressKey(el, key)

	case methodClick:
		return el.Click(proto.InputMouseButtonLeft, 1)

	case methodHover:
		return el.Hover()

	case methodCheck:
		return el.Click(proto.InputMouseButtonLeft, 1)

	default:
		return &ErrUnknownMethod{Method: string(m)}
	}
}

// typeHumanlike clears the field, clicks it, then types text
// character by character with a random 25-75ms per-character delay,
// simulating human input to defeat naive anti-automation heuristics.
func typeHumanlike(el *rod.Element, text string) error {
	if _, err := el.Eval(`function() { this.value = ""; }`); err != nil {
		return fmt.Errorf("agent: type: clear: %w", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("agent: type: click: %w", err)
	}

	for _, r := range text {
		if _, err := el.Eval(`function(ch) { this.value += ch; this.dispatchEvent(new Event("input", {bubbles:true})); }`, string(r)); err != nil {
			return fmt.Errorf("agent: type: char %q: %w", r, err)
		}
		delay := 25 + rand.Intn(51) // 25-75ms inclusive
		time.Sleep(time.Duration(delay) * time.Millisecond)
	}
	return nil
}

func pressKey(el *rod.Element, key string) error {
	k, ok := namedKeys[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("agent: press: unrecognized key %q", key)
	}
	return el.Type(k)
}
