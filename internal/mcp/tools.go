package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"lcaparam/internal/importer"
	"lcaparam/internal/store"
)

type ListGroupsInput struct{}

type ListParametersInput struct {
	Group string `json:"group,omitempty" jsonschema:"restrict to one parameter group"`
}

type GetActivityInput struct {
	Database string `json:"database" jsonschema:"database name"`
	Code     string `json:"code" jsonschema:"activity code"`
}

type ResolveCodeInput struct {
	Database string `json:"database" jsonschema:"database whose activities are scanned"`
	Name     string `json:"name" jsonschema:"parameter name"`
	Group    string `json:"group" jsonschema:"parameter group"`
}

type GroupOutput struct {
	Name    string `json:"name"`
	Fresh   bool   `json:"fresh"`
	Updated string `json:"updated,omitempty"`
}

type ListGroupsOutput struct {
	Groups []GroupOutput `json:"groups"`
}

type ParameterOutput struct {
	Group           string   `json:"group"`
	Database        string   `json:"database"`
	Name            string   `json:"name"`
	Amount          float64  `json:"amount"`
	Code            string   `json:"code,omitempty"`
	Formula         string   `json:"formula,omitempty"`
	UncertaintyType *int     `json:"uncertainty_type,omitempty"`
	Loc             *float64 `json:"loc,omitempty"`
	Scale           *float64 `json:"scale,omitempty"`
	Minimum         *float64 `json:"minimum,omitempty"`
	Maximum         *float64 `json:"maximum,omitempty"`
}

type ListParametersOutput struct {
	Parameters []ParameterOutput `json:"parameters"`
}

type ExchangeOutput struct {
	Input          string   `json:"input"`
	Type           string   `json:"type"`
	Amount         float64  `json:"amount"`
	Formula        string   `json:"formula,omitempty"`
	Group          string   `json:"group,omitempty"`
	OriginalAmount *float64 `json:"original_amount,omitempty"`
}

type ActivityOutput struct {
	Database  string           `json:"database"`
	Code      string           `json:"code"`
	Name      string           `json:"name"`
	Location  string           `json:"location,omitempty"`
	Unit      string           `json:"unit,omitempty"`
	Exchanges []ExchangeOutput `json:"exchanges"`
}

type ResolveCodeOutput struct {
	Found bool   `json:"found"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_groups",
		Description: "List parameter groups",
	}, s.handleListGroups)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_parameters",
		Description: "List activity parameters, optionally for one group",
	}, s.handleListParameters)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_activity",
		Description: "Retrieve an activity and its exchanges",
	}, s.handleGetActivity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "resolve_code",
		Description: "Find the activity code a parameter would be attached to on import",
	}, s.handleResolveCode)
}

func (s *Server) handleListGroups(ctx context.Context, req *sdk.CallToolRequest, input ListGroupsInput) (*sdk.CallToolResult, ListGroupsOutput, error) {
	groups, err := s.db.ListGroups(ctx)
	if err != nil {
		return nil, ListGroupsOutput{}, err
	}

	output := make([]GroupOutput, 0, len(groups))
	for _, g := range groups {
		out := GroupOutput{Name: g.Name, Fresh: g.Fresh}
		if !g.Updated.IsZero() {
			out.Updated = g.Updated.UTC().Format(time.RFC3339)
		}
		output = append(output, out)
	}
	return nil, ListGroupsOutput{Groups: output}, nil
}

func (s *Server) handleListParameters(ctx context.Context, req *sdk.CallToolRequest, input ListParametersInput) (*sdk.CallToolResult, ListParametersOutput, error) {
	params, err := s.db.ListActivityParameters(ctx, input.Group)
	if err != nil {
		return nil, ListParametersOutput{}, err
	}

	output := make([]ParameterOutput, 0, len(params))
	for _, p := range params {
		output = append(output, parameterOutputFromStore(p))
	}
	return nil, ListParametersOutput{Parameters: output}, nil
}

func (s *Server) handleGetActivity(ctx context.Context, req *sdk.CallToolRequest, input GetActivityInput) (*sdk.CallToolResult, ActivityOutput, error) {
	if input.Database == "" || input.Code == "" {
		return nil, ActivityOutput{}, fmt.Errorf("database and code are required")
	}
	activity, err := s.db.GetActivity(ctx, input.Database, input.Code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ActivityOutput{}, fmt.Errorf("activity not found: %s/%s", input.Database, input.Code)
	}
	if err != nil {
		return nil, ActivityOutput{}, err
	}
	return nil, activityOutputFromStore(activity), nil
}

func (s *Server) handleResolveCode(ctx context.Context, req *sdk.CallToolRequest, input ResolveCodeInput) (*sdk.CallToolResult, ResolveCodeOutput, error) {
	if input.Database == "" || input.Name == "" || input.Group == "" {
		return nil, ResolveCodeOutput{}, fmt.Errorf("database, name and group are required")
	}
	activities, err := s.db.ListActivities(ctx, input.Database)
	if err != nil {
		return nil, ResolveCodeOutput{}, err
	}
	code, found := importer.ResolveCode(activities, input.Name, input.Group)
	return nil, ResolveCodeOutput{Found: found, Code: code}, nil
}

func parameterOutputFromStore(p store.ActivityParameter) ParameterOutput {
	out := ParameterOutput{
		Group:           p.Group,
		Database:        p.Database,
		Name:            p.Name,
		Amount:          p.Amount,
		UncertaintyType: p.UncertaintyType,
		Loc:             p.Loc,
		Scale:           p.Scale,
		Minimum:         p.Minimum,
		Maximum:         p.Maximum,
	}
	if p.Code != nil {
		out.Code = *p.Code
	}
	if p.Formula != nil {
		out.Formula = *p.Formula
	}
	return out
}

func activityOutputFromStore(activity *store.Activity) ActivityOutput {
	if activity == nil {
		return ActivityOutput{}
	}
	out := ActivityOutput{
		Database:  activity.Database,
		Code:      activity.Code,
		Name:      activity.Name,
		Location:  activity.Location,
		Unit:      activity.Unit,
		Exchanges: make([]ExchangeOutput, 0, len(activity.Exchanges)),
	}
	for _, e := range activity.Exchanges {
		ex := ExchangeOutput{
			Input:          store.ActivityKey{Database: e.InputDatabase, Code: e.InputCode}.String(),
			Type:           e.Type,
			Amount:         e.Amount,
			Group:          e.Group,
			OriginalAmount: e.OriginalAmount,
		}
		if e.Formula != nil {
			ex.Formula = *e.Formula
		}
		out.Exchanges = append(out.Exchanges, ex)
	}
	return out
}
