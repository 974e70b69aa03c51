package pvcopy

import (
	"fmt"
	"strings"

	"github.com/wippyai/pvdata/errors"
)

// Request is a parsed request string such as
//
//	record[process=true]field(value,alarm.severity,timeStamp[shareData=true])
//
// A bare field list ("value,alarm") is shorthand for field(...).
type Request struct {
	Record    map[string]string
	Fields    []FieldRequest
	GetFields []FieldRequest
	PutFields []FieldRequest
}

// FieldRequest is one entry of a field list. "a.b{c,d}" selects a.b.c and
// a.b.d.
type FieldRequest struct {
	Options map[string]string
	Path    string
	Sub     []FieldRequest
}

// Selection returns the selection named by the field list: All when the
// list is empty.
func (r *Request) Selection() Selection {
	var paths []string
	for _, f := range r.Fields {
		paths = f.flatten("", paths)
	}
	if len(paths) == 0 {
		return All()
	}
	return Paths(paths...)
}

func (f FieldRequest) flatten(prefix string, out []string) []string {
	path := f.Path
	if prefix != "" {
		path = prefix + "." + path
	}
	if len(f.Sub) == 0 {
		return append(out, path)
	}
	for _, s := range f.Sub {
		out = s.flatten(path, out)
	}
	return out
}

// ParseRequest parses a request string. The empty string requests
// everything.
func ParseRequest(s string) (*Request, error) {
	p := &requestParser{src: s}
	req, err := p.parse()
	if err != nil {
		return nil, errors.ParseFailed("request "+quote(s), err)
	}
	return req, nil
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}

type requestParser struct {
	src string
	pos int
}

func (p *requestParser) errorf(format string, args ...any) error {
	return fmt.Errorf("at %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *requestParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *requestParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *requestParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.pos >= len(p.src) {
			return p.errorf("expected %q, found end of input", c)
		}
		return p.errorf("expected %q, found %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *requestParser) parse() (*Request, error) {
	req := &Request{}
	p.skipSpace()
	if p.pos == len(p.src) {
		return req, nil
	}

	keyword := p.lookKeyword()
	if keyword == "" {
		fields, err := p.fieldList(0)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos != len(p.src) {
			return nil, p.errorf("unexpected %q", p.peek())
		}
		req.Fields = fields
		return req, nil
	}

	for {
		p.skipSpace()
		if p.pos == len(p.src) {
			return req, nil
		}
		// sections may be separated by commas: "putField(a),getField(a)"
		if p.peek() == ',' {
			p.pos++
			continue
		}
		keyword = p.lookKeyword()
		p.pos += len(keyword)
		var err error
		switch keyword {
		case "record":
			if err = p.expect('['); err == nil {
				req.Record, err = p.options()
			}
		case "field":
			req.Fields, err = p.section()
		case "getField":
			req.GetFields, err = p.section()
		case "putField":
			req.PutFields, err = p.section()
		default:
			return nil, p.errorf("unexpected %q", p.peek())
		}
		if err != nil {
			return nil, err
		}
	}
}

// lookKeyword returns the section keyword at the cursor, if any.
func (p *requestParser) lookKeyword() string {
	rest := p.src[p.pos:]
	for _, kw := range []string{"record[", "field(", "getField(", "putField("} {
		if strings.HasPrefix(rest, kw) {
			return kw[:len(kw)-1]
		}
	}
	return ""
}

func (p *requestParser) section() ([]FieldRequest, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	fields, err := p.fieldList(')')
	if err != nil {
		return nil, err
	}
	return fields, p.expect(')')
}

// fieldList parses comma separated fields up to, not including, end (0 for
// end of input).
func (p *requestParser) fieldList(end byte) ([]FieldRequest, error) {
	var fields []FieldRequest
	p.skipSpace()
	if p.peek() == end && (end != 0 || p.pos == len(p.src)) {
		return nil, nil
	}
	for {
		f, err := p.field()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		p.skipSpace()
		if p.peek() != ',' {
			return fields, nil
		}
		p.pos++
	}
}

func (p *requestParser) field() (FieldRequest, error) {
	var f FieldRequest
	path, err := p.path()
	if err != nil {
		return f, err
	}
	f.Path = path
	p.skipSpace()
	if p.peek() == '[' {
		p.pos++
		if f.Options, err = p.options(); err != nil {
			return f, err
		}
		p.skipSpace()
	}
	if p.peek() == '{' {
		p.pos++
		if f.Sub, err = p.fieldList('}'); err != nil {
			return f, err
		}
		if len(f.Sub) == 0 {
			return f, p.errorf("empty {} after %q", path)
		}
		if err := p.expect('}'); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (p *requestParser) path() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if isNameChar(c) || c == '.' {
			p.pos++
			continue
		}
		break
	}
	path := p.src[start:p.pos]
	if path == "" {
		if p.pos >= len(p.src) {
			return "", p.errorf("expected field name, found end of input")
		}
		return "", p.errorf("expected field name, found %q", p.peek())
	}
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return "", p.errorf("empty name in %q", path)
		}
	}
	return path, nil
}

// options parses key=value pairs up to and including the closing ']'.
func (p *requestParser) options() (map[string]string, error) {
	opts := make(map[string]string)
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return opts, nil
		}
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != '=' && p.src[p.pos] != ']' && p.src[p.pos] != ',' {
			p.pos++
		}
		key := strings.TrimSpace(p.src[start:p.pos])
		if key == "" || p.peek() != '=' {
			return nil, p.errorf("expected key=value option")
		}
		p.pos++
		start = p.pos
		for p.pos < len(p.src) && p.src[p.pos] != ']' && p.src[p.pos] != ',' {
			p.pos++
		}
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated option list")
		}
		opts[key] = strings.TrimSpace(p.src[start:p.pos])
		if p.peek() == ',' {
			p.pos++
		}
	}
}

func isNameChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
