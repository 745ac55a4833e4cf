package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Files enables the file line tools when set.
	Files FileService

	// GitHub enables the repository info tool when set.
	GitHub RepoSource
}

// CreateServer creates the MCP server and registers the tools its dependencies allow.
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Files != nil {
		RegisterFileTools(s, cfg.Files)
	}
	if cfg.GitHub != nil {
		RegisterRepoInfoTool(s, cfg.GitHub)
	}

	return s
}
