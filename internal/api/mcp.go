package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/jobportal/internal/catalog"
	"github.com/kalambet/jobportal/internal/notify"
	"github.com/kalambet/jobportal/internal/responder"
)

// MCPDeps holds dependencies for the MCP server. Only public views are
// reachable through it since MCP clients carry no portal session.
type MCPDeps struct {
	Catalog   *catalog.Catalog
	Responder *responder.Responder
	Feed      *notify.Feed // optional
	Version   string
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// NewMCPServer creates an MCP server with the portal's tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"jobportal",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("jobportal: search job listings and training courses, and ask the career assistant."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_views",
			mcp.WithDescription("List the public listing views with their searchable, filterable and range fields."),
		),
		mcpListViews(),
	)

	s.AddTool(
		mcp.NewTool("search_listings",
			mcp.WithDescription("Search a listing view such as jobs or courses with free text, field filters and numeric ranges."),
			mcp.WithString("view", mcp.Description("View name, e.g. jobs or courses"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Free-text search over the view's search fields")),
			mcp.WithArray("filters", mcp.Description("Field filters as field=value, e.g. type=Full-time")),
			mcp.WithArray("min", mcp.Description("Lower bounds as field=number, e.g. rating=4.5")),
			mcp.WithArray("max", mcp.Description("Upper bounds as field=number, e.g. price=100")),
			mcp.WithString("sort", mcp.Description("Field to sort by")),
			mcp.WithBoolean("desc", mcp.Description("Sort descending")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpSearchListings(deps),
	)

	s.AddTool(
		mcp.NewTool("count_by",
			mcp.WithDescription("Count the records of a listing view per distinct value of a field."),
			mcp.WithString("view", mcp.Description("View name"), mcp.Required()),
			mcp.WithString("field", mcp.Description("Field to count; defaults to the view's count field")),
		),
		mcpCountBy(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_assistant",
			mcp.WithDescription("Ask the portal's career assistant a question and get its scripted answer."),
			mcp.WithString("message", mcp.Description("The question"), mcp.Required()),
			mcp.WithString("persona", mcp.Description("jobseeker (default) or company")),
		),
		mcpAskAssistant(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"portal://views",
			"Listing Views",
			mcp.WithResourceDescription("Public listing views as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceViews(),
	)

	if deps.Feed != nil {
		s.AddResource(
			mcp.NewResource(
				"portal://notifications",
				"Recent Notifications",
				mcp.WithResourceDescription("Toast notifications raised by recent form submissions"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceNotifications(deps),
		)
	}

	return s
}

func publicViews() []catalog.View {
	var out []catalog.View
	for _, v := range catalog.Views() {
		if v.Role == "" {
			out = append(out, v)
		}
	}
	return out
}

func publicView(name string) (catalog.View, error) {
	v, ok := catalog.LookupView(name)
	if !ok || v.Role != "" {
		return catalog.View{}, fmt.Errorf("unknown view %q", name)
	}
	return v, nil
}

// CriteriaValues turns field=value pairs into the query parameters
// ParseCriteria reads.
func CriteriaValues(query string, filters, min, max []string, sort string, desc bool) (url.Values, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	for prefix, pairs := range map[string][]string{"f.": filters, "min.": min, "max.": max} {
		for _, p := range pairs {
			k, v, ok := strings.Cut(p, "=")
			k = strings.TrimSpace(k)
			if !ok || k == "" {
				return nil, fmt.Errorf("expected field=value, got %q", p)
			}
			q.Set(prefix+k, strings.TrimSpace(v))
		}
	}
	if sort != "" {
		q.Set("sort", sort)
		q.Set("desc", strconv.FormatBool(desc))
	}
	return q, nil
}

func mcpListViews() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(publicViews())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal views: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchListings(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("view")
		if err != nil {
			return mcpError("view is required"), nil
		}
		v, err := publicView(name)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		q, err := CriteriaValues(
			req.GetString("query", ""),
			req.GetStringSlice("filters", nil),
			req.GetStringSlice("min", nil),
			req.GetStringSlice("max", nil),
			req.GetString("sort", ""),
			req.GetBool("desc", false),
		)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		criteria, err := ParseCriteria(q)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		limit := req.GetInt("limit", defaultSearchLimit)
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}

		res, err := deps.Catalog.Query(ctx, v.Name, criteria)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(res.Items) > limit {
			res.Items = res.Items[:limit]
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCountBy(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("view")
		if err != nil {
			return mcpError("view is required"), nil
		}
		v, err := publicView(name)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		counts, err := deps.Catalog.Counts(ctx, v.Name, req.GetString("field", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("count failed: %v", err)), nil
		}
		b, err := json.Marshal(counts)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal counts: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskAssistant(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		msg, err := req.RequireString("message")
		if err != nil || strings.TrimSpace(msg) == "" {
			return mcpError("message is required"), nil
		}
		p, err := responder.ParsePersona(req.GetString("persona", string(responder.JobSeeker)))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(deps.Responder.Respond(p, msg)), nil
	}
}

func mcpResourceViews() server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(publicViews())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal views: %w", err)
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

func mcpResourceNotifications(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Feed.List())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notifications: %w", err)
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
