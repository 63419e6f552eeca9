package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const taskListSchemaURL = "critpath://schema/tasklist.json"

const taskListSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "id": {"type": ["string", "integer"]},
    "task": {
      "type": "object",
      "required": ["id", "duration"],
      "properties": {
        "id": {"$ref": "#/$defs/id"},
        "description": {"type": "string"},
        "duration": {"type": ["integer", "string"]},
        "predecessors": {
          "oneOf": [
            {"type": "array", "items": {"$ref": "#/$defs/id"}},
            {"type": "string"}
          ]
        }
      }
    },
    "tasks": {"type": "array", "items": {"$ref": "#/$defs/task"}}
  },
  "oneOf": [
    {"$ref": "#/$defs/tasks"},
    {
      "type": "object",
      "required": ["tasks"],
      "properties": {
        "title": {"type": "string"},
        "tasks": {"$ref": "#/$defs/tasks"}
      }
    }
  ]
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func taskSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(taskListSchemaURL, taskListSchema)
	})
	return schema, schemaErr
}

// ReadJSON reads a task list of the form {"title": ..., "tasks": [...]} or a
// bare array of tasks. Line numbers on the returned records are 1-based task indices.
func ReadJSON(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &InputError{Err: err}
	}
	if !gjson.ValidBytes(data) {
		return nil, &InputError{Msg: "invalid JSON"}
	}
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(data)
	tasks := root
	out := &File{}
	if root.IsObject() {
		out.Title = root.Get("title").String()
		tasks = root.Get("tasks")
	}

	i := 0
	tasks.ForEach(func(_, t gjson.Result) bool {
		i++
		out.Records = append(out.Records, Record{
			Line:         i,
			ID:           t.Get("id").String(),
			Description:  t.Get("description").String(),
			Duration:     t.Get("duration").String(),
			Predecessors: predecessorField(t.Get("predecessors")),
		})
		return true
	})

	if len(out.Records) == 0 {
		return nil, &InputError{Msg: "no task records"}
	}
	return out, nil
}

func predecessorField(p gjson.Result) string {
	if !p.Exists() {
		return "-"
	}
	if !p.IsArray() {
		return p.String()
	}
	var ids []string
	for _, v := range p.Array() {
		ids = append(ids, v.String())
	}
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ",")
}

func validateSchema(data []byte) error {
	sch, err := taskSchema()
	if err != nil {
		return &InputError{Msg: "compile task list schema", Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return &InputError{Msg: "invalid JSON", Err: err}
	}

	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return &InputError{Msg: "schema validation", Err: err}
		}
		var msgs []string
		collectSchemaErrors(ve, &msgs)
		return &InputError{Msg: "does not match task list schema: " + strings.Join(msgs, "; ")}
	}
	return nil
}

func collectSchemaErrors(err *jsonschema.ValidationError, msgs *[]string) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*msgs = append(*msgs, fmt.Sprintf("%s: %s", loc, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, msgs)
	}
}
