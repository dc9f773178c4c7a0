// Command wlgen generates opcode and enum tables from a Wayland
// protocol description.
package main

import (
	"bytes"
	_ "embed"
	"flag"
	"go/format"
	"log"
	"os"
	"strings"
	"text/template"

	"deedles.dev/wlcomp/protocol"
)

//go:embed tables.tmpl
var tablesTemplate string

// Config controls how protocol names are turned into Go identifiers.
type Config struct {
	Package  string
	Prefixes []string
	Suffix   string
}

// Context is the data passed to the template.
type Context struct {
	Config   Config
	Protocol protocol.Protocol
	Source   string
	T        *template.Template
}

func main() {
	xmlfile := flag.String("xml", "", "protocol XML file")
	out := flag.String("out", "", "output file (default stdout)")
	pkg := flag.String("pkg", "wl", "output package name")
	prefix := flag.String("prefix", "wl_", "comma-separated interface prefixes to strip")
	suffix := flag.String("suffix", "", "interface suffix to strip")
	flag.Parse()

	proto, err := protocol.Load(*xmlfile)
	if err != nil {
		log.Fatalf("load XML: %v", err)
	}

	ctx := Context{
		Config: Config{
			Package:  *pkg,
			Prefixes: strings.Split(*prefix, ","),
			Suffix:   *suffix,
		},
		Protocol: proto,
		Source:   *xmlfile,
	}
	ctx.T = template.Must(template.New("tables").Funcs(ctx.funcs()).Parse(tablesTemplate))

	var buf bytes.Buffer
	err = ctx.T.Execute(&buf, ctx)
	if err != nil {
		log.Fatalf("execute template: %v", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		log.Fatalf("format output: %v\n%s", err, buf.Bytes())
	}

	if *out == "" {
		os.Stdout.Write(src)
		return
	}
	err = os.WriteFile(*out, src, 0644)
	if err != nil {
		log.Fatalf("write output: %v", err)
	}
}
