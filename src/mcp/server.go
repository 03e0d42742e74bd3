// Package mcp serves build reports, release identifiers and deploy plans as
// MCP tools.
package mcp

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"drone-builds/src/config"
	"drone-builds/src/contracts"
	"drone-builds/src/logger"
	"drone-builds/src/manifest"
	"drone-builds/src/pipeline"
	"drone-builds/src/provider"
	"drone-builds/src/report"
)

// Server is the MCP server for drone-builds.
type Server struct {
	mcpServer   *server.MCPServer
	cfg         *config.Config
	newProvider pipeline.ProviderFactory
	log         logger.Logger
}

// NewServer creates an MCP server answering from the servers configured in cfg.
func NewServer(cfg *config.Config, newProvider pipeline.ProviderFactory) *Server {
	if newProvider == nil {
		newProvider = pipeline.DroneProvider
	}

	s := server.NewMCPServer(
		"drone-builds",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer:   s,
		cfg:         cfg,
		newProvider: newProvider,
		log:         logger.NewSilentLogger(),
	}
	srv.registerTools()

	return srv
}

func (s *Server) registerTools() {
	reportTool := mcp.NewTool("build_report",
		mcp.WithDescription("Report the latest Drone builds per environment (dev, secrets, staging, production) for every repository on a platform, or for one repository."),
		mcp.WithString("platform",
			mcp.Required(),
			mcp.Description("Repository store: github or gitlab"),
		),
		mcp.WithString("repo",
			mcp.Description("Repository full name (owner/name); all repositories when omitted"),
		),
		mcp.WithString("report_type",
			mcp.Description("summary (default) or detailed"),
		),
		mcp.WithString("report_format",
			mcp.Description("table (default) or list"),
		),
	)

	releaseTool := mcp.NewTool("release_ids",
		mcp.WithDescription("Return |repo|commit|build| lines for the newest mainline build of each repository."),
		mcp.WithString("platform",
			mcp.Required(),
			mcp.Description("Repository store: github or gitlab"),
		),
		mcp.WithString("repo",
			mcp.Description("Repository full name (owner/name); all repositories when omitted"),
		),
	)

	planTool := mcp.NewTool("deploy_plan",
		mcp.WithDescription("List the drone deploy commands the deploy action would run for a manifest, without running or publishing them."),
		mcp.WithString("platform",
			mcp.Required(),
			mcp.Description("Repository store: github or gitlab"),
		),
		mcp.WithString("deploy_to",
			mcp.Required(),
			mcp.Description("Target environment: staging or production"),
		),
		mcp.WithString("manifest",
			mcp.Description("Manifest path (default: the configured manifest)"),
		),
	)

	s.mcpServer.AddTool(reportTool, s.handleBuildReport)
	s.mcpServer.AddTool(releaseTool, s.handleReleaseIDs)
	s.mcpServer.AddTool(planTool, s.handleDeployPlan)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleBuildReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := report.Options{
		Repo:      request.GetString("repo", ""),
		Type:      config.ReportType(request.GetString("report_type", string(config.ReportSummary))),
		Format:    config.ReportFormat(request.GetString("report_format", string(config.FormatTable))),
		CellWidth: s.cfg.CellWidth,
	}
	if opts.Type != config.ReportSummary && opts.Type != config.ReportDetailed {
		return mcp.NewToolResultError(fmt.Sprintf("report_type %q must be summary or detailed", opts.Type)), nil
	}
	if opts.Format != config.FormatTable && opts.Format != config.FormatList {
		return mcp.NewToolResultError(fmt.Sprintf("report_format %q must be table or list", opts.Format)), nil
	}

	return s.runReport(ctx, request, opts)
}

func (s *Server) handleReleaseIDs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runReport(ctx, request, report.Options{
		Release: true,
		Repo:    request.GetString("repo", ""),
	})
}

func (s *Server) runReport(ctx context.Context, request mcp.CallToolRequest, opts report.Options) (*mcp.CallToolResult, error) {
	src, errResult := s.source(request)
	if errResult != nil {
		return errResult, nil
	}

	var buf bytes.Buffer
	if err := report.NewRunner(src, opts).Run(ctx, &buf); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", provider.WrapError(err))), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleDeployPlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deployTo := request.GetString("deploy_to", "")
	if deployTo != "staging" && deployTo != "production" {
		return mcp.NewToolResultError(fmt.Sprintf("deploy_to %q must be staging or production", deployTo)), nil
	}

	src, errResult := s.source(request)
	if errResult != nil {
		return errResult, nil
	}

	path := request.GetString("manifest", s.cfg.ManifestPath)
	doc, err := manifest.Load(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var commands []string
	emit := manifest.EmitterFunc(func(_ context.Context, d contracts.DeployInstruction) error {
		commands = append(commands, d.Command())
		return nil
	})
	stats := manifest.NewDeployWalker(src, deployTo, s.log, manifest.WithEmitter(emit)).Walk(ctx, doc)

	text := strings.Join(commands, "\n")
	if stats.Failed > 0 {
		text += fmt.Sprintf("\n(%d of %d entries could not be checked)", stats.Failed, stats.Leaves)
	}
	return mcp.NewToolResultText(strings.TrimPrefix(text, "\n")), nil
}

// source resolves the provider for the request's platform, or a tool error.
func (s *Server) source(request mcp.CallToolRequest) (provider.Provider, *mcp.CallToolResult) {
	p, err := provider.ParsePlatform(request.GetString("platform", ""))
	if err != nil {
		return nil, mcp.NewToolResultError(provider.WrapError(err).Error())
	}

	target, ok := s.cfg.Target(p)
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("no Drone server configured for %s: set %s and %s", p, p.ServerEnv(), p.TokenEnv()))
	}
	return s.newProvider(target, s.cfg), nil
}
