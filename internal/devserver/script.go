package devserver

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/diogo/agentchat/internal/models"
)

//go:embed default_script.yaml
var defaultScript []byte

// Script drives the scripted agent of the dev server
type Script struct {
	Goal          string        `yaml:"goal"`
	StarterPrompt string        `yaml:"starter_prompt"`
	Warmup        time.Duration `yaml:"warmup"`
	ReplyDelay    time.Duration `yaml:"reply_delay"`
	ForceConfirm  bool          `yaml:"force_confirm"`
	Greeting      string        `yaml:"greeting"`
	Steps         []Step        `yaml:"steps"`
	Farewell      string        `yaml:"farewell"`
}

// Step is one scripted agent reply to a user prompt
type Step struct {
	Response string    `yaml:"response"`
	Next     string    `yaml:"next"`
	Tool     string    `yaml:"tool"`
	Args     yaml.Node `yaml:"args"`
	Result   yaml.Node `yaml:"result"`
	// Followup is the agent reply once the tool result is in.
	Followup     string `yaml:"followup"`
	FollowupNext string `yaml:"followup_next"`
}

// NeedsTool reports whether the step asks to run a tool
func (s Step) NeedsTool() bool {
	return s.Next == string(models.NextConfirm) && s.Tool != ""
}

// ArgsJSON returns the step arguments as JSON, keys in script order.
func (s Step) ArgsJSON() (json.RawMessage, error) {
	return nodeJSON(&s.Args)
}

// ResultJSON returns the tool result as JSON, keys in script order.
func (s Step) ResultJSON() (json.RawMessage, error) {
	return nodeJSON(&s.Result)
}

// DefaultScript returns the embedded event/flight/invoice script
func DefaultScript() (*Script, error) {
	return ParseScript(defaultScript)
}

// LoadScript reads a script from a YAML file
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a YAML script
func ParseScript(data []byte) (*Script, error) {
	script := &Script{
		ForceConfirm: true,
		Farewell:     "Goodbye!",
	}
	if err := yaml.Unmarshal(data, script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	if script.StarterPrompt == "" {
		return nil, fmt.Errorf("script: starter_prompt is required")
	}
	if script.Warmup < 0 || script.ReplyDelay < 0 {
		return nil, fmt.Errorf("script: durations must not be negative")
	}
	for i, step := range script.Steps {
		switch models.NextStep(step.Next) {
		case models.NextConfirm, models.NextQuestion, models.NextPickNewGoal, models.NextDone:
		default:
			return nil, fmt.Errorf("script: step %d: unknown next %q", i+1, step.Next)
		}
		if step.Next == string(models.NextConfirm) && step.Tool == "" {
			return nil, fmt.Errorf("script: step %d: confirm needs a tool", i+1)
		}
		if _, err := step.ArgsJSON(); err != nil {
			return nil, fmt.Errorf("script: step %d args: %w", i+1, err)
		}
		if _, err := step.ResultJSON(); err != nil {
			return nil, fmt.Errorf("script: step %d result: %w", i+1, err)
		}
	}
	return script, nil
}

// nodeJSON converts a YAML node to JSON. Mapping keys keep their order,
// which a round trip through map[string]any would lose.
func nodeJSON(n *yaml.Node) (json.RawMessage, error) {
	if n == nil || n.Kind == 0 {
		return json.RawMessage("{}"), nil
	}

	var buf bytes.Buffer
	if err := writeNode(&buf, n); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

func writeNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, n.Content[0])
	case yaml.AliasNode:
		return writeNode(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, child := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(data)
	default:
		return fmt.Errorf("unsupported yaml node kind %d", n.Kind)
	}
	return nil
}
