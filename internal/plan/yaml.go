package plan

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Title string      `yaml:"title"`
	Tasks []yaml.Node `yaml:"tasks"`
}

// ReadYAML reads a task list with the same shape as ReadJSON accepts.
// Record line numbers are the source lines of each task mapping.
func ReadYAML(r io.Reader) (*File, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, &InputError{Msg: "no task records"}
		}
		return nil, &InputError{Msg: "invalid YAML", Err: err}
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	out := &File{}
	var tasks []*yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		tasks = root.Content
	case yaml.MappingNode:
		var yf yamlFile
		if err := root.Decode(&yf); err != nil {
			return nil, &InputError{Line: root.Line, Msg: "invalid task list", Err: err}
		}
		out.Title = yf.Title
		for i := range yf.Tasks {
			tasks = append(tasks, &yf.Tasks[i])
		}
	default:
		return nil, &InputError{Line: root.Line, Msg: "expected a task list or a mapping with 'tasks'"}
	}

	for _, n := range tasks {
		rec, err := yamlRecord(n)
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, rec)
	}
	if len(out.Records) == 0 {
		return nil, &InputError{Msg: "no task records"}
	}
	return out, nil
}

func yamlRecord(n *yaml.Node) (Record, error) {
	if n.Kind != yaml.MappingNode {
		return Record{}, &InputError{Line: n.Line, Msg: "task must be a mapping"}
	}
	rec := Record{Line: n.Line, Predecessors: "-"}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "id":
			rec.ID = val.Value
		case "description":
			rec.Description = val.Value
		case "duration":
			rec.Duration = val.Value
		case "predecessors":
			preds, err := yamlPredecessors(val)
			if err != nil {
				return Record{}, err
			}
			rec.Predecessors = preds
		default:
			return Record{}, &InputError{Line: key.Line, Msg: fmt.Sprintf("unknown task field %q", key.Value)}
		}
	}
	return rec, nil
}

func yamlPredecessors(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "-", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		ids := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return "", &InputError{Line: c.Line, Msg: "predecessor must be a scalar id"}
			}
			ids = append(ids, c.Value)
		}
		if len(ids) == 0 {
			return "-", nil
		}
		return strings.Join(ids, ","), nil
	}
	return "", &InputError{Line: n.Line, Msg: "predecessors must be a list or a string"}
}
