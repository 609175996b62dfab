// Package batch loads equation files and solves them on a worker pool.
package batch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"

	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/internal/validation"
)

// DefaultXPath selects equations in XML files.
const DefaultXPath = "//equation"

// Format is an equation file format.
type Format string

const (
	FormatText Format = "text"
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// Equation is one equation read from a file. Line is 1-based, or 0 when
// the format does not track lines.
type Equation struct {
	Line int    `json:"line,omitempty"`
	Text string `json:"text"`
}

// LoadOptions controls Load.
type LoadOptions struct {
	// XPath selects equation nodes in XML input. Defaults to DefaultXPath.
	XPath string
}

// Load reads the equations in path. The format follows the extension:
// .txt or none for text, .xml, .yaml or .yml. A trailing .xz is
// decompressed first, and a bare .xz holds text.
func Load(path string, opts LoadOptions) ([]Equation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.NewIO("open", path, err)
	}
	defer f.Close()

	name := strings.ToLower(path)
	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(name, ".xz") {
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, cerrors.NewIO("decompress", path, err)
		}
		r = xzr
		name = strings.TrimSuffix(name, ".xz")
	}

	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	eqs, err := Read(r, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return eqs, nil
}

// DetectFormat maps a file name to its Format.
func DetectFormat(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case "", ".txt", ".eq":
		return FormatText, nil
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", cerrors.NewValidation("file", fmt.Sprintf("unsupported equation file extension %q", ext))
	}
}

// Read parses equations in the given format.
func Read(r io.Reader, format Format, opts LoadOptions) ([]Equation, error) {
	switch format {
	case FormatText:
		return readText(r)
	case FormatXML:
		return readXML(r, opts.XPath)
	case FormatYAML:
		return readYAML(r)
	default:
		return nil, cerrors.NewValidation("format", fmt.Sprintf("unknown format %q", format))
	}
}

// readText takes one equation per line, skipping blank lines and lines
// starting with '#'.
func readText(r io.Reader) ([]Equation, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(validation.SniffLength)
	if err != nil && err != io.EOF {
		return nil, cerrors.NewIO("read", "", err)
	}
	if !validation.IsLikelyText(head) {
		return nil, cerrors.NewValidation("file", "binary content is not an equation list")
	}

	var eqs []Equation
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		eqs = append(eqs, Equation{Line: line, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, cerrors.NewIO("read", "", err)
	}
	return eqs, nil
}

func readXML(r io.Reader, expr string) ([]Equation, error) {
	if expr == "" {
		expr = DefaultXPath
	}
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, cerrors.NewValidation("xpath", fmt.Sprintf("invalid xpath %q: %v", expr, err))
	}
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	var eqs []Equation
	for _, n := range xmlquery.QuerySelectorAll(doc, compiled) {
		text := strings.TrimSpace(n.InnerText())
		if text == "" {
			continue
		}
		eqs = append(eqs, Equation{Text: text})
	}
	return eqs, nil
}

type yamlFile struct {
	Equations []yaml.Node `yaml:"equations"`
}

func readYAML(r io.Reader) ([]Equation, error) {
	var doc yamlFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	eqs := make([]Equation, 0, len(doc.Equations))
	for _, n := range doc.Equations {
		if n.Kind != yaml.ScalarNode {
			return nil, cerrors.NewValidation("equations", fmt.Sprintf("line %d: expected a string", n.Line))
		}
		text := strings.TrimSpace(n.Value)
		if text == "" {
			continue
		}
		eqs = append(eqs, Equation{Line: n.Line, Text: text})
	}
	return eqs, nil
}
