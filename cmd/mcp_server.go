package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mj1618/ui-harness/internal/automation"
	"github.com/mj1618/ui-harness/internal/harness"
	"github.com/mj1618/ui-harness/internal/model"
	"github.com/mj1618/ui-harness/internal/output"
	"github.com/mj1618/ui-harness/internal/retry"
	"github.com/mj1618/ui-harness/internal/version"
)

// mcpServer exposes harness operations as MCP tools. Sessions created through
// the launch tool are held in a registry keyed by session key until the
// teardown tool (or server shutdown) reclaims them.
type mcpServer struct {
	h   *harness.Harness
	mcp *mcpserver.MCPServer

	mu       sync.Mutex
	sessions map[string]*harness.Session
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Transport string
	Port      int
}

func newMCPServer() (*mcpServer, error) {
	h, err := newHarness()
	if err != nil {
		return nil, err
	}
	s := &mcpServer{
		h:        h,
		sessions: make(map[string]*harness.Session),
	}
	s.mcp = mcpserver.NewMCPServer("uiharness", version.Version)
	s.registerTools()
	return s, nil
}

// serve starts the MCP server with the configured transport.
func (s *mcpServer) serve(cfg MCPConfig) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

// close tears down every session still in the registry.
func (s *mcpServer) close() {
	s.mu.Lock()
	sessions := make([]*harness.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*harness.Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		s.h.Teardown(context.Background(), sess)
	}
	s.h.Close()
}

func (s *mcpServer) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("launch",
			mcp.WithDescription("Launch an application under test and wait for a ready main window. Returns a session key for subsequent tools."),
			mcp.WithString("executable", mcp.Description("Executable name or path"), mcp.Required()),
			mcp.WithArray("args", mcp.Description("Arguments passed to the application")),
			mcp.WithNumber("timeout", mcp.Description("Max seconds to wait for the main window (0 = default)")),
			mcp.WithBoolean("exclusive", mcp.Description("Serialize against other exclusive sessions")),
		),
		s.handleLaunch,
	)

	s.mcp.AddTool(
		mcp.NewTool("elements",
			mcp.WithDescription("Read the session's UI element tree. Returns elements with IDs, kinds, names, bounds, and children."),
			mcp.WithString("session", mcp.Description("Session key from launch"), mcp.Required()),
		),
		s.handleElements,
	)

	s.mcp.AddTool(
		mcp.NewTool("click",
			mcp.WithDescription("Wait for an element to become clickable, then click it"),
			mcp.WithString("session", mcp.Description("Session key from launch"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Match by name or value text (substring)")),
			mcp.WithString("automation_id", mcp.Description("Match by automation id")),
			mcp.WithString("kind", mcp.Description("Match by control kind (e.g. btn, input)")),
			mcp.WithNumber("timeout", mcp.Description("Max seconds to wait (0 = default)")),
		),
		s.handleClick,
	)

	s.mcp.AddTool(
		mcp.NewTool("set_value",
			mcp.WithDescription("Set an element's value directly via the automation layer"),
			mcp.WithString("session", mcp.Description("Session key from launch"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to set"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Match by name or value text (substring)")),
			mcp.WithString("automation_id", mcp.Description("Match by automation id")),
			mcp.WithString("kind", mcp.Description("Match by control kind")),
		),
		s.handleSetValue,
	)

	s.mcp.AddTool(
		mcp.NewTool("invoke",
			mcp.WithDescription("Perform an accessibility action (press, expand, collapse, ...) on an element"),
			mcp.WithString("session", mcp.Description("Session key from launch"), mcp.Required()),
			mcp.WithString("action", mcp.Description("Action to perform (default: press)")),
			mcp.WithString("text", mcp.Description("Match by name or value text (substring)")),
			mcp.WithString("automation_id", mcp.Description("Match by automation id")),
			mcp.WithString("kind", mcp.Description("Match by control kind")),
		),
		s.handleInvoke,
	)

	s.mcp.AddTool(
		mcp.NewTool("wait",
			mcp.WithDescription("Wait for an element to appear (or disappear with gone=true)"),
			mcp.WithString("session", mcp.Description("Session key from launch"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Match by name or value text (substring)")),
			mcp.WithString("automation_id", mcp.Description("Match by automation id")),
			mcp.WithString("kind", mcp.Description("Match by control kind")),
			mcp.WithBoolean("gone", mcp.Description("Wait until the condition is NO LONGER true")),
			mcp.WithNumber("timeout", mcp.Description("Max seconds to wait (default: 30)")),
			mcp.WithNumber("interval", mcp.Description("Polling interval in ms (default: 500)")),
		),
		s.handleWait,
	)

	s.mcp.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Capture a bitmap of the session's main window"),
			mcp.WithString("session", mcp.Description("Session key from launch"), mcp.Required()),
			mcp.WithNumber("scale", mcp.Description("Scale factor 0.1-1.0 (default: 0.5)")),
		),
		s.handleScreenshot,
	)

	s.mcp.AddTool(
		mcp.NewTool("teardown",
			mcp.WithDescription("Tear a session down: close its window, terminate the process, release the automation root"),
			mcp.WithString("session", mcp.Description("Session key from launch"), mcp.Required()),
		),
		s.handleTeardown,
	)
}

func (s *mcpServer) session(request mcp.CallToolRequest) (*harness.Session, *mcp.CallToolResult) {
	key, err := request.RequireString("session")
	if err != nil {
		return nil, mcp.NewToolResultError("session argument is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("no session with key %s", key))
	}
	return sess, nil
}

// queryFromRequest builds an element query from the shared matching args.
func queryFromRequest(request mcp.CallToolRequest) (model.Query, *mcp.CallToolResult) {
	args := request.GetArguments()
	text, _ := args["text"].(string)
	automationID, _ := args["automation_id"].(string)
	kind, _ := args["kind"].(string)
	q, err := buildQuery(text, automationID, kind)
	if err != nil {
		return model.Query{}, mcp.NewToolResultError(err.Error())
	}
	return q, nil
}

func optSeconds(request mcp.CallToolRequest, key string) time.Duration {
	if v, ok := request.GetArguments()[key].(float64); ok && v > 0 {
		return time.Duration(v * float64(time.Second))
	}
	return 0
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *mcpServer) handleLaunch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executable, err := request.RequireString("executable")
	if err != nil {
		return mcp.NewToolResultError("executable argument is required"), nil
	}

	args := request.GetArguments()
	var appArgs []string
	if raw, ok := args["args"].([]interface{}); ok {
		for _, a := range raw {
			if str, ok := a.(string); ok {
				appArgs = append(appArgs, str)
			}
		}
	}
	exclusive, _ := args["exclusive"].(bool)

	opts := harness.LaunchOptions{
		Executable: executable,
		Args:       appArgs,
		Exclusive:  exclusive,
	}
	if timeout := optSeconds(request, "timeout"); timeout > 0 {
		p, err := retry.NewPolicy("mcp-launch", timeout, 500*time.Millisecond)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts.Policy = p
	}

	sess, err := s.h.Launch(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("launch failed: %v", err)), nil
	}
	s.mu.Lock()
	s.sessions[sess.Key()] = sess
	s.mu.Unlock()

	win := sess.Window()
	return jsonResult(map[string]interface{}{
		"session":   sess.Key(),
		"pid":       sess.PID(),
		"window":    win.Title,
		"window_id": win.ID,
	})
}

func (s *mcpServer) handleElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	tree, err := s.h.Elements(ctx, sess)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read elements: %v", err)), nil
	}
	res := output.TreeResult{
		App:      filepath.Base(sess.Executable()),
		PID:      sess.PID(),
		TS:       time.Now().Unix(),
		Elements: tree,
	}
	if win := sess.Window(); win != nil {
		res.Window = win.Title
	}
	return jsonResult(res)
}

func (s *mcpServer) handleClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	q, errResult := queryFromRequest(request)
	if errResult != nil {
		return errResult, nil
	}
	policy := retry.Clickable
	if timeout := optSeconds(request, "timeout"); timeout > 0 {
		var err error
		if policy, err = retry.NewPolicy("mcp-click", timeout, policy.Interval); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if err := s.h.ClickElement(ctx, sess, q, policy); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("click %s: %v", q, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("clicked %s", q)), nil
}

func (s *mcpServer) handleSetValue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError("value argument is required"), nil
	}
	q, errResult := queryFromRequest(request)
	if errResult != nil {
		return errResult, nil
	}
	if err := s.h.SetElementValue(ctx, sess, q, value, retry.ElementSearch); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("set value on %s: %v", q, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("set value on %s", q)), nil
}

func (s *mcpServer) handleInvoke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	q, errResult := queryFromRequest(request)
	if errResult != nil {
		return errResult, nil
	}
	action, _ := request.GetArguments()["action"].(string)
	if action == "" {
		action = "press"
	}
	if err := s.h.InvokeElement(ctx, sess, q, action, retry.ElementSearch); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invoke %s on %s: %v", action, q, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("invoked %s on %s", action, q)), nil
}

func (s *mcpServer) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	q, errResult := queryFromRequest(request)
	if errResult != nil {
		return errResult, nil
	}
	args := request.GetArguments()
	gone, _ := args["gone"].(bool)

	timeout := 30 * time.Second
	if t := optSeconds(request, "timeout"); t > 0 {
		timeout = t
	}
	interval := 500 * time.Millisecond
	if v, ok := args["interval"].(float64); ok && v > 0 {
		interval = time.Duration(v) * time.Millisecond
	}
	policy, err := retry.NewPolicy("mcp-wait", timeout, interval)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if gone {
		_, ok, stats := retry.PollUntil(ctx, s.h.Policy(policy), func() (struct{}, bool) {
			tree, err := s.h.Elements(ctx, sess)
			if err != nil {
				return struct{}{}, false
			}
			_, found := model.FindFirst(tree, q)
			return struct{}{}, !found
		})
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("still present after %s: %s", stats.Elapsed, q)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("gone: %s (%s)", q, stats)), nil
	}

	el, ok, stats := s.h.WaitForElement(ctx, sess, q, policy)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("timed out waiting for %s: %s", q, stats)), nil
	}
	return jsonResult(el)
}

func (s *mcpServer) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	win := sess.Window()
	if win == nil {
		return mcp.NewToolResultError("session has no resolved window"), nil
	}
	scale := 0.5
	if v, ok := request.GetArguments()["scale"].(float64); ok && v > 0 {
		scale = v
	}
	data, err := sess.Root().CaptureWindow(win.ID, automation.ScreenshotOptions{Format: "png", Scale: scale})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("capture window: %v", err)), nil
	}
	return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(data)), nil
}

func (s *mcpServer) handleTeardown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.session(request)
	if errResult != nil {
		return errResult, nil
	}
	s.h.Teardown(ctx, sess)
	s.mu.Lock()
	delete(s.sessions, sess.Key())
	s.mu.Unlock()
	return mcp.NewToolResultText("session torn down"), nil
}
