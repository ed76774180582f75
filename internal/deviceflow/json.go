package deviceflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

// jsonKind is the declared shape of a schema field's destination.
type jsonKind int

const (
	kindString jsonKind = iota
	kindNumber
	kindArrayOfString
)

// jsonField declares one field of a strict, schema-driven parse: a
// top-level key, its expected shape, whether it is required, and where
// to store it. Two fields may share a destination and a filled flag
// (verification_uri / verification_url) so that either spelling
// satisfies the schema but receiving both is treated as a duplicate.
type jsonField struct {
	name     string
	kind     jsonKind
	required bool
	dst      *string
	arr      *[]string
	filled   *bool
}

func stringField(name string, required bool, dst *string) jsonField {
	return jsonField{name: name, kind: kindString, required: required, dst: dst, filled: new(bool)}
}

func numberField(name string, required bool, dst *string) jsonField {
	return jsonField{name: name, kind: kindNumber, required: required, dst: dst, filled: new(bool)}
}

func arrayField(name string, required bool, dst *[]string) jsonField {
	return jsonField{name: name, kind: kindArrayOfString, required: required, arr: dst, filled: new(bool)}
}

func aliasedStringField(name string, required bool, dst *string, filled *bool) jsonField {
	return jsonField{name: name, kind: kindString, required: required, dst: dst, filled: filled}
}

type frame struct {
	kind      byte // '{' or '['
	expectKey bool // only meaningful for kind == '{'
}

// parseJSON drives a hand-rolled, depth-tracked walk of the response
// body's token stream: it rejects duplicate destinations, rejects
// nested objects anywhere, rejects type mismatches against the
// declared schema, and ignores unrecognized top-level keys. It is the
// Go equivalent of a SAX-style JSON validator: encoding/json's
// Decoder.Token() is used purely as a lexer, never as a struct
// unmarshaler, so the caller keeps full control over the things
// Unmarshal can't express (duplicate-key rejection, nested-object
// rejection, partial top-level schemas).
func parseJSON(body []byte, contentType string, fields []jsonField) error {
	if !matchContentType(contentType, "application/json") {
		return &FlowError{Kind: KindProtocol, Detail: fmt.Sprintf("unexpected content type %q", contentType)}
	}
	if bytes.IndexByte(body, 0) >= 0 {
		return &FlowError{Kind: KindProtocol, Detail: "response contains an embedded NUL byte"}
	}
	if !utf8.Valid(body) {
		return &FlowError{Kind: KindProtocol, Detail: "response is not valid UTF-8"}
	}

	fieldByName := make(map[string]*jsonField, len(fields))
	for i := range fields {
		fieldByName[fields[i].name] = &fields[i]
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var stack []frame
	var active *jsonField

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &FlowError{Kind: KindProtocol, Detail: err.Error()}
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				if len(stack) > 0 {
					top := &stack[len(stack)-1]
					if top.kind == '[' || (top.kind == '{' && !top.expectKey) {
						return typeMismatchOrGeneric(active, "nested objects are not supported")
					}
				}
				stack = append(stack, frame{kind: '{', expectKey: true})

			case '}':
				stack = stack[:len(stack)-1]
				if len(stack) > 0 && stack[len(stack)-1].kind == '{' {
					stack[len(stack)-1].expectKey = true
				}

			case '[':
				if len(stack) == 0 {
					return &FlowError{Kind: KindProtocol, Detail: "top-level element must be an object"}
				}
				top := &stack[len(stack)-1]
				if top.kind == '{' && top.expectKey {
					return &FlowError{Kind: KindProtocol, Detail: "malformed object"}
				}
				if active != nil {
					if active.kind != kindArrayOfString || top.kind == '[' {
						return typeMismatch(active)
					}
				}
				stack = append(stack, frame{kind: '['})

			case ']':
				stack = stack[:len(stack)-1]
				if len(stack) > 0 && stack[len(stack)-1].kind == '{' {
					active = nil
					stack[len(stack)-1].expectKey = true
				}
			}

		case string:
			if len(stack) == 0 {
				return &FlowError{Kind: KindProtocol, Detail: "top-level element must be an object"}
			}
			top := &stack[len(stack)-1]
			if top.kind == '{' && top.expectKey {
				active = nil
				if len(stack) == 1 {
					if f, ok := fieldByName[v]; ok {
						if *f.filled {
							return &FlowError{Kind: KindProtocol, Detail: fmt.Sprintf("field %q is duplicated", v)}
						}
						active = f
					}
				}
				top.expectKey = false
				continue
			}
			if err := assignString(active, v, top.kind); err != nil {
				return err
			}
			if top.kind == '{' {
				active = nil
				top.expectKey = true
			}

		case json.Number:
			if len(stack) == 0 {
				return &FlowError{Kind: KindProtocol, Detail: "top-level element must be an object"}
			}
			top := &stack[len(stack)-1]
			if err := assignNumber(active, v, top.kind); err != nil {
				return err
			}
			if top.kind == '{' {
				active = nil
				top.expectKey = true
			}

		case bool, nil:
			if len(stack) == 0 {
				return &FlowError{Kind: KindProtocol, Detail: "top-level element must be an object"}
			}
			top := &stack[len(stack)-1]
			if active != nil {
				return typeMismatch(active)
			}
			if top.kind == '{' {
				top.expectKey = true
			}
		}
	}

	for i := range fields {
		if fields[i].required && !*fields[i].filled {
			return &FlowError{Kind: KindProtocol, Detail: fmt.Sprintf("field %q is missing", fields[i].name)}
		}
	}
	return nil
}

func assignString(f *jsonField, s string, topKind byte) error {
	if f == nil {
		return nil
	}
	switch f.kind {
	case kindString:
		if *f.filled {
			return &FlowError{Kind: KindProtocol, Detail: fmt.Sprintf("field %q is duplicated", f.name)}
		}
		*f.dst = s
		*f.filled = true
		return nil
	case kindArrayOfString:
		if topKind != '[' {
			return typeMismatch(f)
		}
		*f.arr = append(*f.arr, s)
		*f.filled = true
		return nil
	default:
		return typeMismatch(f)
	}
}

func assignNumber(f *jsonField, n json.Number, topKind byte) error {
	if f == nil {
		return nil
	}
	if topKind == '[' || f.kind != kindNumber {
		return typeMismatch(f)
	}
	if *f.filled {
		return &FlowError{Kind: KindProtocol, Detail: fmt.Sprintf("field %q is duplicated", f.name)}
	}
	*f.dst = n.String()
	*f.filled = true
	return nil
}

func typeMismatch(f *jsonField) error {
	if f == nil {
		return &FlowError{Kind: KindProtocol, Detail: "unexpected value type"}
	}
	switch f.kind {
	case kindString:
		return &FlowError{Kind: KindProtocol, Detail: fmt.Sprintf("field %q must be a string", f.name)}
	case kindNumber:
		return &FlowError{Kind: KindProtocol, Detail: fmt.Sprintf("field %q must be a number", f.name)}
	case kindArrayOfString:
		return &FlowError{Kind: KindProtocol, Detail: fmt.Sprintf("field %q must be an array of strings", f.name)}
	default:
		return &FlowError{Kind: KindProtocol, Detail: "unexpected value type"}
	}
}

func typeMismatchOrGeneric(f *jsonField, generic string) error {
	if f == nil {
		return &FlowError{Kind: KindProtocol, Detail: generic}
	}
	return typeMismatch(f)
}
