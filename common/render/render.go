// Package render fills greeting templates.
//
// Templates use double-brace placeholders, for example "Welcome {{user}}!".
// Whitespace inside the braces is ignored. Placeholders that don't name a
// field of Data, and unclosed braces, are errors.
package render

import (
	"io"
	"strings"

	"emperror.dev/errors"
	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// ErrUnknownPlaceholder is returned when a template references a value Data doesn't have.
const ErrUnknownPlaceholder = errors.Sentinel("unknown template placeholder")

// Data is the context a greeting template is rendered with.
type Data struct {
	// User is the mention for the member being greeted.
	User string
}

func (d Data) lookup(key string) (string, bool) {
	switch key {
	case "user":
		return d.User, true
	}
	return "", false
}

// Render renders tmpl with data.
func Render(tmpl string, data Data) (string, error) {
	t, err := fasttemplate.NewTemplate(tmpl, startTag, endTag)
	if err != nil {
		return "", errors.Wrap(err, "parsing template")
	}

	s, err := t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		key := strings.TrimSpace(tag)

		v, ok := data.lookup(key)
		if !ok {
			return 0, errors.WithDetails(ErrUnknownPlaceholder, "placeholder", key)
		}
		return w.Write([]byte(v))
	})
	if err != nil {
		return "", errors.Wrap(err, "executing template")
	}
	return s, nil
}
