package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/stanza/pkg/route"
)

// ErrNoRouteFound is returned when no registered route matches a keyword.
var ErrNoRouteFound = errors.New("no route found")

// ErrAmbiguousRoute is returned in strict matching when several routes tie at the highest rating.
var ErrAmbiguousRoute = errors.New("ambiguous route")

// ErrBindingFailure is returned when a matched keyword leaves cells without a route item.
var ErrBindingFailure = errors.New("binding failure")

// ErrRegistryNotReady is returned by searches issued before route ratings are calculated.
var ErrRegistryNotReady = errors.New("route registry not ready")

// ErrRegistrySealed is returned when routes are registered after ratings were calculated.
var ErrRegistrySealed = errors.New("route registry sealed")

// ErrInvalidToken is returned when a route declaration cannot be compiled.
var ErrInvalidToken = route.ErrInvalidToken

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// RouteError reports a keyword that could not be routed to exactly one route.
// Kind is ErrNoRouteFound or ErrAmbiguousRoute.
type RouteError struct {
	Kind       error
	Compare    string
	Candidates []*route.Route
}

func (e *RouteError) Error() string {
	msg := fmt.Sprintf("%v for %q", e.Kind, e.Compare)
	if len(e.Candidates) > 0 {
		msg += " (candidates: " + describeRoutes(e.Candidates) + ")"
	}
	return msg
}

func (e *RouteError) Unwrap() error {
	return e.Kind
}

// BindingError is the fatal diagnostic of a route declaration that failed to
// bind a keyword it matched.
type BindingError struct {
	Route   *route.Route
	Keyword string
	Unbound []string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%v: route %q (pattern `%s`) left cells %q of keyword %q unbound",
		ErrBindingFailure, e.Route.String(), e.Route.Pattern(), e.Unbound, e.Keyword)
}

func (e *BindingError) Unwrap() error {
	return ErrBindingFailure
}

// InvocationError wraps a failure raised by the action bound to a route.
type InvocationError struct {
	Route    *route.Route
	Keyword  string
	Location string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("keyword %q at %s (route %q): %v", e.Keyword, e.Location, e.Route.String(), e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// FatalError marks an error that must abort the whole run.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err so that IsFatal reports true. A nil err stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err, or any error it wraps, is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

func describeRoutes(routes []*route.Route) string {
	names := make([]string, len(routes))
	for i, r := range routes {
		names[i] = fmt.Sprintf("%q", r.String())
	}
	return strings.Join(names, ", ")
}
