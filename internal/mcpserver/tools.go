package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/crew"
)

// Runner runs one requirement through the pipeline.
type Runner interface {
	Run(ctx context.Context, input, profileName string) string
}

// RunPipelineTool handles the run_pipeline MCP tool.
type RunPipelineTool struct {
	runner Runner
}

func NewRunPipelineTool(runner Runner) *RunPipelineTool {
	return &RunPipelineTool{runner: runner}
}

// Definition returns the MCP tool definition for run_pipeline.
func (t *RunPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("run_pipeline",
		mcp.WithDescription(
			"Analyze a free-form requirement, create an Azure DevOps work item for it and publish "+
				"the requirement document to Confluence. Returns the work item id, the page id and the document.",
		),
		mcp.WithString("input_text",
			mcp.Required(),
			mcp.Description("Requirement text in any language"),
		),
		mcp.WithString("profile_name",
			mcp.Description("Model profile key, for example qwen, azure or grok. Defaults to the selected profile"),
		),
	)
}

// Handle processes the run_pipeline tool call. Pipeline failures are
// reported as tool errors, never as protocol errors.
func (t *RunPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := req.RequireString("input_text")
	if err != nil || strings.TrimSpace(input) == "" {
		return mcp.NewToolResultError("'input_text' is required"), nil
	}
	profile := req.GetString("profile_name", "")

	out := t.runner.Run(ctx, input, profile)
	if strings.HasPrefix(out, crew.ErrorPrefix) {
		return mcp.NewToolResultError(out), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ProfileLister supplies the stored model profiles.
type ProfileLister interface {
	LoadProfiles(ctx context.Context) map[string]config.ModelProfile
}

// ListProfilesTool handles the list_model_profiles MCP tool.
type ListProfilesTool struct {
	profiles ProfileLister
}

func NewListProfilesTool(profiles ProfileLister) *ListProfilesTool {
	return &ListProfilesTool{profiles: profiles}
}

func (t *ListProfilesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_model_profiles",
		mcp.WithDescription("List the model profiles that can be passed as profile_name to run_pipeline."),
	)
}

// Handle lists profiles without their API keys.
func (t *ListProfilesTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	merged := config.DefaultProfiles()
	for key, p := range t.profiles.LoadProfiles(ctx) {
		merged[key] = p
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d model profiles:\n\n", len(merged))
	for _, p := range config.SortedProfiles(merged) {
		fmt.Fprintf(&b, "- %s: %s (%s, %s)", p.Key, p.Name, p.Model, p.Provider)
		if !p.Editable {
			b.WriteString(" [built-in]")
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
