package ai

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

const (
	AgentAnalyzer = "analyzer"

	TaskAnalyzeRequirement = "analyze_requirement"
)

//go:embed definitions/agents.yaml definitions/tasks.yaml
var definitionsFS embed.FS

// AgentDefinition is the persona a stage presents to the model.
type AgentDefinition struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// TaskDefinition is a prompt template plus a description of the expected output.
type TaskDefinition struct {
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
}

type Definitions struct {
	Agents map[string]AgentDefinition
	Tasks  map[string]TaskDefinition
}

// PromptData holds every field task templates may reference.
type PromptData struct {
	InputText string
}

var loadDefinitions = sync.OnceValues(func() (*Definitions, error) {
	agents, err := definitionsFS.ReadFile("definitions/agents.yaml")
	if err != nil {
		return nil, err
	}
	tasks, err := definitionsFS.ReadFile("definitions/tasks.yaml")
	if err != nil {
		return nil, err
	}
	return ParseDefinitions(agents, tasks)
})

// LoadDefinitions returns the embedded agent and task definitions.
func LoadDefinitions() (*Definitions, error) {
	return loadDefinitions()
}

func ParseDefinitions(agentsYAML, tasksYAML []byte) (*Definitions, error) {
	defs := &Definitions{}

	if err := yaml.Unmarshal(agentsYAML, &defs.Agents); err != nil {
		return nil, fmt.Errorf("error parsing agent definitions: %w", err)
	}
	if err := yaml.Unmarshal(tasksYAML, &defs.Tasks); err != nil {
		return nil, fmt.Errorf("error parsing task definitions: %w", err)
	}

	for name, a := range defs.Agents {
		if strings.TrimSpace(a.Role) == "" {
			return nil, fmt.Errorf("agent %q has no role", name)
		}
	}
	for name, t := range defs.Tasks {
		if strings.TrimSpace(t.Description) == "" {
			return nil, fmt.Errorf("task %q has no description", name)
		}
	}

	return defs, nil
}

func (d *Definitions) Agent(name string) (AgentDefinition, error) {
	a, ok := d.Agents[name]
	if !ok {
		return AgentDefinition{}, fmt.Errorf("agent %q not defined", name)
	}
	return a, nil
}

func (d *Definitions) Task(name string) (TaskDefinition, error) {
	t, ok := d.Tasks[name]
	if !ok {
		return TaskDefinition{}, fmt.Errorf("task %q not defined", name)
	}
	return t, nil
}

const systemPromptTemplate = `You are a {{ .Role }}.

Your goal:
{{ .Goal }}
Background:
{{ .Backstory }}`

// SystemPrompt renders the persona as a system message.
func (a AgentDefinition) SystemPrompt() (string, error) {
	return RenderPrompt("system", systemPromptTemplate, a)
}

// Render fills the task description with data and appends the expected output.
func (t TaskDefinition) Render(name string, data PromptData) (string, error) {
	body, err := RenderPrompt(name, t.Description, data)
	if err != nil {
		return "", err
	}
	if t.ExpectedOutput == "" {
		return body, nil
	}
	return body + "\nExpected output: " + t.ExpectedOutput + "\n", nil
}

func RenderPrompt(name, tmplStr string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("error parsing template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error executing template %s: %w", name, err)
	}

	return buf.String(), nil
}
