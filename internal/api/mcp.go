package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/optiscaler-linux/optiscaler-manager/internal/composer"
	"github.com/optiscaler-linux/optiscaler-manager/internal/launchopts"
	"github.com/optiscaler-linux/optiscaler-manager/internal/pipeline"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Editor *pipeline.Editor
	// Composer defaults used when a tool call omits them.
	RDNA3Workaround bool
	MangoHUD        bool
}

// NewMCPServer creates an MCP server exposing launch-option tools.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"optiscaler-manager",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Reads and edits Steam LaunchOptions so Proton games load OptiScaler. Steam must be closed before editing."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_presets",
			mcp.WithDescription("List the launch-option presets with their composed commands."),
			mcp.WithBoolean("rdna3", mcp.Description("Include RDNA3 workaround variants")),
			mcp.WithBoolean("mangohud", mcp.Description("Include MangoHUD variants")),
		),
		mcpListPresets(deps),
	)

	s.AddTool(
		mcp.NewTool("compose_launch_options",
			mcp.WithDescription("Build a LaunchOptions string from toggles without writing anything."),
			mcp.WithBoolean("rdna3", mcp.Description("Add the RDNA3 workaround")),
			mcp.WithBoolean("mangohud", mcp.Description("Wrap the game in MangoHUD")),
			mcp.WithBoolean("debug", mcp.Description("Enable Proton and Wine DLL logging")),
			mcp.WithBoolean("disable_dlss_fg", mcp.Description("Also override nvngx to disable DLSS frame generation")),
			mcp.WithArray("env", mcp.Description("Extra NAME=value environment assignments"), mcp.WithStringItems()),
			mcp.WithArray("args", mcp.Description("Arguments passed to the game after %command%"), mcp.WithStringItems()),
		),
		mcpCompose(deps),
	)

	s.AddTool(
		mcp.NewTool("get_launch_options",
			mcp.WithDescription("Read the current LaunchOptions of a Steam app."),
			mcp.WithString("app_id", mcp.Description("Numeric Steam app id"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("Steam user id (default: most recently used)")),
		),
		mcpGetLaunchOptions(deps),
	)

	s.AddTool(
		mcp.NewTool("set_launch_options",
			mcp.WithDescription("Back up localconfig.vdf and set LaunchOptions for a Steam app, from a literal value or a preset key."),
			mcp.WithString("app_id", mcp.Description("Numeric Steam app id"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Literal LaunchOptions value")),
			mcp.WithString("preset", mcp.Description("Preset key from list_presets")),
			mcp.WithString("user_id", mcp.Description("Steam user id (default: most recently used)")),
		),
		mcpSetLaunchOptions(deps),
	)

	s.AddTool(
		mcp.NewTool("clear_launch_options",
			mcp.WithDescription("Back up localconfig.vdf and remove LaunchOptions for a Steam app."),
			mcp.WithString("app_id", mcp.Description("Numeric Steam app id"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("Steam user id (default: most recently used)")),
		),
		mcpClearLaunchOptions(deps),
	)

	s.AddTool(
		mcp.NewTool("edit_history",
			mcp.WithDescription("List recent launch-option edits, newest first."),
			mcp.WithString("app_id", mcp.Description("Only edits of this app")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 20)")),
		),
		mcpEditHistory(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"optiscaler://presets",
			"Launch Option Presets",
			mcp.WithResourceDescription("Every preset, including MangoHUD and RDNA3 variants, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePresets(),
	)

	return s
}

type presetJSON struct {
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Compatibility string   `json:"compatibility"`
	Requirements  []string `json:"requirements"`
	Command       string   `json:"command"`
}

func presetsJSON(presets []composer.Preset) ([]byte, error) {
	out := make([]presetJSON, len(presets))
	for i, p := range presets {
		out[i] = presetJSON{
			Key:           p.Key,
			Name:          p.Name,
			Description:   p.Description,
			Category:      p.Category,
			Compatibility: p.Compatibility,
			Requirements:  p.Requirements,
			Command:       p.Command(),
		}
	}
	return json.Marshal(out)
}

func mcpListPresets(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rdna3 := req.GetBool("rdna3", deps.RDNA3Workaround)
		mangohud := req.GetBool("mangohud", deps.MangoHUD)

		b, err := presetsJSON(composer.Catalog(rdna3, mangohud))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal presets: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCompose(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env, err := composer.ParseEnv(req.GetStringSlice("env", nil))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		opts := composer.Options{
			RDNA3Workaround:     req.GetBool("rdna3", deps.RDNA3Workaround),
			MangoHUD:            req.GetBool("mangohud", deps.MangoHUD),
			Debug:               req.GetBool("debug", false),
			DisableDLSSFrameGen: req.GetBool("disable_dlss_fg", false),
			Env:                 env,
			GameArgs:            req.GetStringSlice("args", nil),
		}
		s, err := composer.Compose(opts)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(s), nil
	}
}

type launchOptionsJSON struct {
	AppID      string `json:"app_id"`
	ConfigPath string `json:"config_path"`
	Value      string `json:"value"`
	Found      bool   `json:"found"`
}

func mcpGetLaunchOptions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID, err := req.RequireString("app_id")
		if err != nil {
			return mcpError("app_id is required"), nil
		}
		cur, err := deps.Editor.Show(appID, req.GetString("user_id", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read launch options: %v", err)), nil
		}
		b, err := json.Marshal(launchOptionsJSON{
			AppID:      cur.AppID,
			ConfigPath: cur.ConfigPath,
			Value:      cur.Value,
			Found:      cur.Found,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

type applyJSON struct {
	AppID       string `json:"app_id"`
	ConfigPath  string `json:"config_path"`
	State       string `json:"state"`
	EditID      string `json:"edit_id,omitempty"`
	BackupPath  string `json:"backup_path"`
	Previous    string `json:"previous,omitempty"`
	HadPrevious bool   `json:"had_previous"`
	Value       string `json:"value,omitempty"`
	Warning     string `json:"warning,omitempty"`
}

func outcomeText(appID string, out pipeline.Outcome) (*mcp.CallToolResult, error) {
	r := applyJSON{
		AppID:       appID,
		ConfigPath:  out.ConfigPath,
		State:       out.State.String(),
		EditID:      out.EditID,
		BackupPath:  out.BackupPath,
		Previous:    out.Previous,
		HadPrevious: out.HadPrevious,
		Value:       out.Value,
	}
	if out.Warning != nil {
		r.Warning = out.Warning.Error()
	}
	b, err := json.Marshal(r)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func applyError(err error) *mcp.CallToolResult {
	var se *launchopts.StructureError
	switch {
	case errors.Is(err, pipeline.ErrSteamRunning):
		return mcpError(err.Error())
	case errors.As(err, &se):
		return mcpError(fmt.Sprintf("refusing to edit: %v", err))
	default:
		return mcpError(fmt.Sprintf("edit failed, config left unchanged: %v", err))
	}
}

func mcpSetLaunchOptions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID, err := req.RequireString("app_id")
		if err != nil {
			return mcpError("app_id is required"), nil
		}
		value := req.GetString("value", "")
		preset := req.GetString("preset", "")
		if value == "" && preset == "" {
			return mcpError("one of value or preset is required"), nil
		}

		out, err := deps.Editor.Set(ctx, pipeline.SetRequest{
			AppID:  appID,
			UserID: req.GetString("user_id", ""),
			Value:  value,
			Preset: preset,
		})
		if err != nil {
			return applyError(err), nil
		}
		return outcomeText(appID, out)
	}
}

func mcpClearLaunchOptions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID, err := req.RequireString("app_id")
		if err != nil {
			return mcpError("app_id is required"), nil
		}
		out, err := deps.Editor.Clear(ctx, appID, req.GetString("user_id", ""))
		if err != nil {
			return applyError(err), nil
		}
		return outcomeText(appID, out)
	}
}

func mcpEditHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 200 {
			limit = 200
		}

		edits, err := deps.Editor.History(req.GetString("app_id", ""), limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read history: %v", err)), nil
		}

		type editResult struct {
			ID         string `json:"id"`
			CreatedAt  string `json:"created_at"`
			AppID      string `json:"app_id,omitempty"`
			Action     string `json:"action"`
			Status     string `json:"status"`
			Previous   string `json:"previous,omitempty"`
			Value      string `json:"value,omitempty"`
			BackupPath string `json:"backup_path"`
			Message    string `json:"message,omitempty"`
		}

		results := make([]editResult, len(edits))
		for i, e := range edits {
			results[i] = editResult{
				ID:         e.ID,
				CreatedAt:  e.CreatedAt.Format(time.RFC3339),
				AppID:      e.AppID,
				Action:     e.Action,
				Status:     e.Status,
				Previous:   e.PreviousValue,
				Value:      e.NewValue,
				BackupPath: e.BackupPath,
				Message:    e.Message,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal history: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourcePresets() server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := presetsJSON(composer.Catalog(true, true))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal presets: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
