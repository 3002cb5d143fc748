package ir

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseDocument binds workflow definition JSON into a Document.
//
// Both the full document shape ({"definition": {...}}) and a bare definition
// ({"actions": {...}, "triggers": {...}}) are accepted. Triggers, steps and
// dependency edges keep their source order; gjson iterates object members in
// document order, which encoding/json maps would lose.
//
// ParseDocument performs no semantic validation. Use compiler.ValidateGraph
// for duplicate names and dangling edges, and compiler.ValidateDocument for
// the schema.
func ParseDocument(name string, data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse workflow %s: invalid JSON", name)
	}

	root := gjson.ParseBytes(data)
	def := root.Get("definition")
	if !def.Exists() {
		def = root
	}
	if !def.IsObject() {
		return nil, fmt.Errorf("parse workflow %s: definition must be an object", name)
	}

	doc := &Document{Name: name}

	var err error
	def.Get("parameters").ForEach(func(key, value gjson.Result) bool {
		var dv any
		dv, err = decodeResult(value.Get("defaultValue"))
		if err != nil {
			err = fmt.Errorf("parameter %s: %w", key.String(), err)
			return false
		}
		if doc.Parameters == nil {
			doc.Parameters = make(map[string]Parameter)
		}
		doc.Parameters[key.String()] = Parameter{
			Type:         value.Get("type").String(),
			DefaultValue: dv,
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", name, err)
	}

	def.Get("triggers").ForEach(func(key, value gjson.Result) bool {
		var trigger Trigger
		trigger, err = parseTrigger(key.String(), value)
		if err != nil {
			return false
		}
		doc.Triggers = append(doc.Triggers, trigger)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", name, err)
	}

	def.Get("actions").ForEach(func(key, value gjson.Result) bool {
		var step Step
		step, err = parseStep(key.String(), value)
		if err != nil {
			return false
		}
		doc.Steps = append(doc.Steps, step)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", name, err)
	}

	return doc, nil
}

// NameFromPath derives a workflow name from a file path:
// "samples/01.simple-http.json" becomes "01.simple-http".
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func parseTrigger(name string, value gjson.Result) (Trigger, error) {
	inputs, err := decodeResult(value.Get("inputs"))
	if err != nil {
		return Trigger{}, fmt.Errorf("trigger %s: inputs: %w", name, err)
	}

	trigger := Trigger{
		Name:   name,
		Kind:   Kind(value.Get("type").String()),
		Inputs: inputs,
	}

	if rec := value.Get("recurrence"); rec.Exists() {
		trigger.Recurrence = &Recurrence{
			Frequency: rec.Get("frequency").String(),
			Interval:  int(rec.Get("interval").Int()),
		}
	}

	return trigger, nil
}

func parseStep(name string, value gjson.Result) (Step, error) {
	inputs, err := decodeResult(value.Get("inputs"))
	if err != nil {
		return Step{}, fmt.Errorf("action %s: inputs: %w", name, err)
	}

	step := Step{
		Name:   name,
		Kind:   Kind(value.Get("type").String()),
		Inputs: inputs,
	}

	value.Get("runAfter").ForEach(func(dep, statuses gjson.Result) bool {
		d := Dependency{Name: dep.String()}
		for _, s := range statuses.Array() {
			d.Statuses = append(d.Statuses, s.String())
		}
		step.Dependencies = append(step.Dependencies, d)
		return true
	})

	return step, nil
}

func decodeResult(r gjson.Result) (any, error) {
	if !r.Exists() {
		return nil, nil
	}
	return DecodeValue([]byte(r.Raw))
}
