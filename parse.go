package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"blueprint-optimizer/internal/buildorder"
)

// LoadBlueprints reads a blueprint file. The format follows the extension:
// .json and .yaml/.yml are structured, anything else is the sentence form.
func LoadBlueprints(path string) ([]*buildorder.Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprints: %w", err)
	}
	var bps []*buildorder.Blueprint
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		bps, err = ParseJSON(string(data))
	case ".yaml", ".yml":
		bps, err = ParseYAML(data)
	default:
		bps, err = ParseText(string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(bps) == 0 {
		return nil, fmt.Errorf("%s: no blueprints found", path)
	}
	return bps, nil
}

// ── Sentence form ───────────────────────────────────────────────────

var (
	headerRe = regexp.MustCompile(`Blueprint\s+(\d+)\s*:`)
	clauseRe = regexp.MustCompile(`Each\s+(\w+)\s+robot\s+costs\s+([^.]+)\.`)
	itemRe   = regexp.MustCompile(`^(\d+)\s+(\w+)$`)
	andRe    = regexp.MustCompile(`\s+and\s+`)
)

// ParseText parses blueprints written as
//
//	Blueprint 1: Each ore robot costs 4 ore. Each clay robot costs 2 ore. ...
//
// A blueprint may span several lines.
func ParseText(text string) ([]*buildorder.Blueprint, error) {
	headers := headerRe.FindAllStringSubmatchIndex(text, -1)
	if len(headers) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("line 1: expected \"Blueprint <id>:\"")
	}
	if lead := strings.TrimSpace(text[:headers[0][0]]); lead != "" {
		return nil, fmt.Errorf("line 1: unexpected text %q before first blueprint", lead)
	}

	bps := make([]*buildorder.Blueprint, 0, len(headers))
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		line := lineOf(text, h[0])
		id, err := strconv.Atoi(text[h[2]:h[3]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad blueprint id: %w", line, err)
		}
		bp, err := parseClauses(id, text[h[1]:end])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bps = append(bps, bp)
	}
	return bps, nil
}

func parseClauses(id int, body string) (*buildorder.Blueprint, error) {
	costs := make(map[string]map[string]int, buildorder.NumResources)
	for _, m := range clauseRe.FindAllStringSubmatch(body, -1) {
		kind := m[1]
		if _, dup := costs[kind]; dup {
			return nil, fmt.Errorf("blueprint %d: %s robot listed twice", id, kind)
		}
		cost := make(map[string]int)
		for _, part := range andRe.Split(m[2], -1) {
			item := itemRe.FindStringSubmatch(strings.TrimSpace(part))
			if item == nil {
				return nil, fmt.Errorf("blueprint %d: %s robot: cannot read cost %q", id, kind, part)
			}
			qty, err := strconv.Atoi(item[1])
			if err != nil {
				return nil, fmt.Errorf("blueprint %d: %s robot: %w", id, kind, err)
			}
			cost[item[2]] += qty
		}
		costs[kind] = cost
	}
	if rest := strings.TrimSpace(clauseRe.ReplaceAllString(body, "")); rest != "" {
		return nil, fmt.Errorf("blueprint %d: unexpected text %q", id, rest)
	}
	return newBlueprint(id, costs)
}

func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}

// ── Structured forms ────────────────────────────────────────────────

// ParseJSON reads either a top-level array or {"blueprints": [...]}, each entry
// shaped {"id": 1, "costs": {"ore": {"ore": 4}, ...}}.
func ParseJSON(data string) ([]*buildorder.Blueprint, error) {
	if !gjson.Valid(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	list := gjson.Parse(data)
	if list.IsObject() {
		list = list.Get("blueprints")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("expected an array of blueprints")
	}

	var bps []*buildorder.Blueprint
	var parseErr error
	list.ForEach(func(_, v gjson.Result) bool {
		bp, err := parseJSONBlueprint(v)
		if err != nil {
			parseErr = fmt.Errorf("entry %d: %w", len(bps), err)
			return false
		}
		bps = append(bps, bp)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return bps, nil
}

func parseJSONBlueprint(v gjson.Result) (*buildorder.Blueprint, error) {
	id, err := jsonInt(v.Get("id"))
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	costsJSON := v.Get("costs")
	if !costsJSON.IsObject() {
		return nil, fmt.Errorf("blueprint %d: costs must be an object", id)
	}
	costs := make(map[string]map[string]int)
	costsJSON.ForEach(func(kind, cost gjson.Result) bool {
		m := make(map[string]int)
		cost.ForEach(func(res, qty gjson.Result) bool {
			n, qerr := jsonInt(qty)
			if qerr != nil {
				err = fmt.Errorf("blueprint %d: %s robot: %s: %w", id, kind.String(), res.String(), qerr)
				return false
			}
			m[res.String()] = n
			return true
		})
		costs[kind.String()] = m
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return newBlueprint(id, costs)
}

func jsonInt(r gjson.Result) (int, error) {
	if r.Type != gjson.Number {
		return 0, fmt.Errorf("expected a number, got %q", r.Raw)
	}
	if n, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
		return int(n), nil
	}
	f := r.Float()
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("expected an integer, got %s", r.Raw)
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("integer %s out of range", r.Raw)
	}
	return int(f), nil
}

type yamlBlueprint struct {
	ID    int                       `yaml:"id"`
	Costs map[string]map[string]int `yaml:"costs"`
}

type yamlFile struct {
	Blueprints []yamlBlueprint `yaml:"blueprints"`
}

// ParseYAML reads the same shape as ParseJSON.
func ParseYAML(data []byte) ([]*buildorder.Blueprint, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	var entries []yamlBlueprint
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	case yaml.MappingNode:
		var f yamlFile
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		entries = f.Blueprints
	default:
		return nil, fmt.Errorf("line %d: expected a list of blueprints", root.Line)
	}

	bps := make([]*buildorder.Blueprint, 0, len(entries))
	for _, e := range entries {
		if e.Costs == nil {
			return nil, fmt.Errorf("blueprint %d: missing costs", e.ID)
		}
		bp, err := newBlueprint(e.ID, e.Costs)
		if err != nil {
			return nil, err
		}
		bps = append(bps, bp)
	}
	return bps, nil
}

// newBlueprint resolves resource names and hands the table to the engine's validation.
func newBlueprint(id int, named map[string]map[string]int) (*buildorder.Blueprint, error) {
	costs := make(map[buildorder.Resource]map[buildorder.Resource]int, len(named))
	for kindName, cost := range named {
		kind, ok := buildorder.ParseResource(kindName)
		if !ok {
			return nil, fmt.Errorf("blueprint %d: unknown robot kind %q", id, kindName)
		}
		m := make(map[buildorder.Resource]int, len(cost))
		for resName, qty := range cost {
			res, ok := buildorder.ParseResource(resName)
			if !ok {
				return nil, fmt.Errorf("blueprint %d: %s robot: unknown resource %q", id, kindName, resName)
			}
			m[res] = qty
		}
		costs[kind] = m
	}
	return buildorder.NewBlueprint(id, costs)
}
