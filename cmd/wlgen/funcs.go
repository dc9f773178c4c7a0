package main

import (
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"deedles.dev/wlcomp/protocol"
)

func (ctx Context) funcs() template.FuncMap {
	return template.FuncMap{
		"ident":    ctx.ident,
		"camel":    ctx.camel,
		"quote":    strconv.Quote,
		"base":     filepath.Base,
		"names":    ctx.names,
		"enumType": ctx.enumType,
		"comment":  ctx.comment,
	}
}

// ident converts a protocol interface name into the Go identifier
// prefix used for all of its constants.
func (ctx Context) ident(v string) string {
	for _, p := range ctx.Config.Prefixes {
		after, ok := strings.CutPrefix(v, p)
		if ok {
			v = after
			break
		}
	}
	if ctx.Config.Suffix != "" {
		v = strings.TrimSuffix(v, ctx.Config.Suffix)
	}

	return ctx.camel(v)
}

func (ctx Context) camel(v string) string {
	var buf strings.Builder
	buf.Grow(len(v))
	shift := true
	for _, c := range v {
		if c == '_' {
			shift = true
			continue
		}

		if shift {
			c = unicode.ToUpper(c)
		}
		buf.WriteRune(c)
		shift = false
	}
	return buf.String()
}

func (ctx Context) enumType(i protocol.Interface, e protocol.Enum) string {
	return ctx.ident(i.Name) + ctx.camel(e.Name)
}

// names renders the names of ops as the elements of a string slice
// literal.
func (ctx Context) names(ops []protocol.Op) string {
	quoted := make([]string, 0, len(ops))
	for _, op := range ops {
		quoted = append(quoted, strconv.Quote(op.Name))
	}
	return strings.Join(quoted, ", ")
}

func (ctx Context) comment(v string) string {
	if len(v) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(v), "\n") {
		sb.WriteString("// ")
		sb.WriteString(strings.TrimSpace(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}
