package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"lcaparam/internal/store"
)

type Querier interface {
	ListGroups(ctx context.Context) ([]store.Group, error)
	ListActivityParameters(ctx context.Context, group string) ([]store.ActivityParameter, error)
	ListActivities(ctx context.Context, database string) ([]store.Activity, error)
	GetActivity(ctx context.Context, database, code string) (*store.Activity, error)
}

type Server struct {
	db  Querier
	mcp *sdk.Server
}

func NewServer(db Querier, version string) *Server {
	s := &Server{
		db: db,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "lcaparam",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
