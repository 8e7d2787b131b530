// Package classes extracts structural class records from Python source.
package classes

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/panbanda/kindred/pkg/models"
	"github.com/panbanda/kindred/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// instanceRef is the receiver name whose attribute stores count as
// instance attributes.
const instanceRef = "self"

// propertyMarkers is the closed set of decorators that mark a method as a
// property.
var propertyMarkers = map[string]bool{
	"property":                  true,
	"cached_property":           true,
	"functools.cached_property": true,
}

// Extractor turns one Python file into class records. It owns a parser and
// is not safe for concurrent use.
type Extractor struct {
	parser *parser.Parser
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor creates an extractor with its own parser.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		parser: parser.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close releases the parser.
func (e *Extractor) Close() {
	e.parser.Close()
}

// Extract parses source and returns one record per class name. Every class
// definition in the file is visited, including nested ones, and each becomes
// an independent entry. A later definition with the same name replaces an
// earlier one. Source that fails to parse yields a *parser.ParseError and no
// records.
func (e *Extractor) Extract(ctx context.Context, path string, source []byte) (map[string]*models.ClassRecord, error) {
	result, err := e.parser.Parse(ctx, source, parser.LangPython, path)
	if err != nil {
		return nil, err
	}

	records := make(map[string]*models.ClassRecord)
	parser.Walk(result.Root(), result.Source, func(node *sitter.Node, src []byte) bool {
		if node.Type() != "class_definition" {
			return true
		}
		rec := extractClass(node, src, path)
		if rec.Name == "" {
			return true
		}
		if prev, ok := records[rec.Name]; ok {
			e.logger.Debug("class redefined in file",
				"path", path, "class", rec.Name,
				"first_line", prev.StartLine, "line", rec.StartLine)
		}
		records[rec.Name] = rec
		return true
	})

	return records, nil
}

func extractClass(node *sitter.Node, source []byte, path string) *models.ClassRecord {
	rec := &models.ClassRecord{
		File:       path,
		Name:       parser.GetNodeText(node.ChildByFieldName("name"), source),
		Methods:    []string{},
		Properties: []string{},
		Parents:    extractParents(node, source),
		StartLine:  node.StartPoint().Row + 1,
		EndLine:    node.EndPoint().Row + 1,
		Source:     parser.GetNodeText(node, source),
	}

	attrs := make(map[string]struct{})
	visitClassBlock(node.ChildByFieldName("body"), source, rec, attrs)

	rec.Attributes = make([]string, 0, len(attrs))
	for a := range attrs {
		rec.Attributes = append(rec.Attributes, a)
	}
	sort.Strings(rec.Attributes)

	return rec
}

// visitClassBlock records the methods and attributes bound by the statements
// of a class body. Blocks of compound statements (if, try, with, for, while)
// bind names in the class namespace too, so they are visited as well.
func visitClassBlock(block *sitter.Node, source []byte, rec *models.ClassRecord, attrs map[string]struct{}) {
	for _, stmt := range parser.NamedChildren(block) {
		switch stmt.Type() {
		case "function_definition":
			rec.Methods = append(rec.Methods, functionName(stmt, source))
			collectInstanceAttributes(stmt, source, attrs)

		case "decorated_definition":
			def := stmt.ChildByFieldName("definition")
			if def == nil || def.Type() != "function_definition" {
				continue
			}
			name := functionName(def, source)
			rec.Methods = append(rec.Methods, name)
			if hasPropertyMarker(stmt, source) {
				rec.Properties = append(rec.Properties, name)
			}
			collectInstanceAttributes(def, source, attrs)

		case "expression_statement":
			for _, expr := range parser.NamedChildren(stmt) {
				if expr.Type() == "assignment" {
					collectClassAssignment(expr, source, attrs)
				}
			}

		case "if_statement", "try_statement", "with_statement", "for_statement", "while_statement":
			for _, b := range compoundBlocks(stmt) {
				visitClassBlock(b, source, rec, attrs)
			}
		}
	}
}

// compoundBlocks returns the statement blocks of a compound statement,
// including those of its elif, else, except and finally clauses.
func compoundBlocks(stmt *sitter.Node) []*sitter.Node {
	var blocks []*sitter.Node
	for _, child := range parser.NamedChildren(stmt) {
		switch child.Type() {
		case "block":
			blocks = append(blocks, child)
		case "elif_clause", "else_clause", "except_clause", "except_group_clause", "finally_clause":
			blocks = append(blocks, compoundBlocks(child)...)
		}
	}
	return blocks
}

func functionName(fn *sitter.Node, source []byte) string {
	return parser.GetNodeText(fn.ChildByFieldName("name"), source)
}

// extractParents resolves each positional base expression to a bare name.
// Keyword arguments and unrecognized shapes are dropped.
func extractParents(classNode *sitter.Node, source []byte) []string {
	args := classNode.ChildByFieldName("superclasses")
	if args == nil {
		return []string{}
	}

	parents := []string{}
	seen := make(map[string]bool)
	for _, arg := range parser.NamedChildren(args) {
		name, ok := resolveBase(arg, source)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		parents = append(parents, name)
	}
	return parents
}

// resolveBase maps Name to itself, a.b.Name to Name, and Name[...] to the
// resolution of its unparameterized value.
func resolveBase(node *sitter.Node, source []byte) (string, bool) {
	switch node.Type() {
	case "identifier":
		return parser.GetNodeText(node, source), true
	case "attribute":
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return "", false
		}
		return parser.GetNodeText(attr, source), true
	case "subscript":
		value := node.ChildByFieldName("value")
		if value == nil {
			return "", false
		}
		return resolveBase(value, source)
	default:
		return "", false
	}
}

func hasPropertyMarker(decorated *sitter.Node, source []byte) bool {
	for _, child := range parser.NamedChildren(decorated) {
		if child.Type() != "decorator" {
			continue
		}
		expr := strings.TrimSpace(strings.TrimPrefix(parser.GetNodeText(child, source), "@"))
		if propertyMarkers[expr] {
			return true
		}
	}
	return false
}

// collectClassAssignment records names bound directly in the class body.
// Chained assignments bind every target; annotations without a value bind
// nothing.
func collectClassAssignment(assign *sitter.Node, source []byte, attrs map[string]struct{}) {
	right := assign.ChildByFieldName("right")
	if right == nil {
		return
	}
	collectTargetNames(assign.ChildByFieldName("left"), source, attrs)
	if right.Type() == "assignment" {
		collectClassAssignment(right, source, attrs)
	}
}

func collectTargetNames(target *sitter.Node, source []byte, attrs map[string]struct{}) {
	if target == nil {
		return
	}
	switch target.Type() {
	case "identifier":
		attrs[parser.GetNodeText(target, source)] = struct{}{}
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list",
		"tuple", "list", "list_splat_pattern", "parenthesized_expression":
		for _, child := range parser.NamedChildren(target) {
			collectTargetNames(child, source, attrs)
		}
	}
}

// collectInstanceAttributes records self.<name> stores anywhere inside a
// method, without entering nested class bodies.
func collectInstanceAttributes(method *sitter.Node, source []byte, attrs map[string]struct{}) {
	body := method.ChildByFieldName("body")
	parser.Walk(body, source, func(node *sitter.Node, src []byte) bool {
		switch node.Type() {
		case "class_definition":
			return false
		case "assignment", "augmented_assignment":
			collectSelfTargets(node.ChildByFieldName("left"), src, attrs)
		}
		return true
	})
}

func collectSelfTargets(target *sitter.Node, source []byte, attrs map[string]struct{}) {
	if target == nil {
		return
	}
	switch target.Type() {
	case "attribute":
		obj := target.ChildByFieldName("object")
		if obj == nil || obj.Type() != "identifier" || parser.GetNodeText(obj, source) != instanceRef {
			return
		}
		if attr := target.ChildByFieldName("attribute"); attr != nil {
			attrs[parser.GetNodeText(attr, source)] = struct{}{}
		}
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list",
		"tuple", "list", "list_splat_pattern", "parenthesized_expression":
		for _, child := range parser.NamedChildren(target) {
			collectSelfTargets(child, source, attrs)
		}
	}
}
