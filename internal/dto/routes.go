package dto

import (
	"errors"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/route"
)

// RouteInfo is the serializable view of a registered route.
type RouteInfo struct {
	Group       string   `json:"group" mapstructure:"group"`
	Name        string   `json:"name" mapstructure:"name"`
	Route       string   `json:"route" mapstructure:"route"`
	Tokens      []string `json:"tokens" mapstructure:"tokens"`
	Pattern     string   `json:"pattern" mapstructure:"pattern"`
	Rating      int      `json:"rating" mapstructure:"rating"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
	Deprecated  bool     `json:"deprecated,omitempty" mapstructure:"deprecated"`
}

// NewRouteInfo describes rt.
func NewRouteInfo(rt *route.Route) RouteInfo {
	return RouteInfo{
		Group:       rt.Group(),
		Name:        rt.Name(),
		Route:       rt.String(),
		Tokens:      rt.Tokens(),
		Pattern:     rt.Pattern(),
		Rating:      rt.Rating(),
		Description: rt.Description(),
		Deprecated:  rt.Deprecated(),
	}
}

// NewRouteInfos describes every route in order.
func NewRouteInfos(routes []*route.Route) []RouteInfo {
	out := make([]RouteInfo, len(routes))
	for i, rt := range routes {
		out[i] = NewRouteInfo(rt)
	}
	return out
}

// ParameterInfo is a bound parameter and its cell values.
type ParameterInfo struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// MatchResult describes how a keyword occurrence was routed and bound.
type MatchResult struct {
	Keyword    []string        `json:"keyword"`
	Status     domain.Status   `json:"status"`
	Route      *RouteInfo      `json:"route,omitempty"`
	Parameters []ParameterInfo `json:"parameters,omitempty"`
	Unbound    []string        `json:"unbound,omitempty"`
	Candidates []RouteInfo     `json:"candidates,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// NewMatchResult describes kw after resolution. err is the resolution error, if any.
func NewMatchResult(kw *domain.Keyword, err error) MatchResult {
	res := MatchResult{
		Keyword: kw.Cells(),
		Status:  kw.Status,
	}
	if kw.Route != nil {
		info := NewRouteInfo(kw.Route)
		res.Route = &info
	}
	for _, p := range kw.Parameters {
		res.Parameters = append(res.Parameters, ParameterInfo{Name: p.Name, Values: p.Values()})
	}
	for _, d := range kw.Unbound() {
		res.Unbound = append(res.Unbound, d.Source())
	}
	if err != nil {
		res.Error = err.Error()
		var rerr *domain.RouteError
		if errors.As(err, &rerr) {
			res.Candidates = NewRouteInfos(rerr.Candidates)
		}
	}
	return res
}
