// Package graph exposes mnemo over GraphQL. The schema lives in
// schema.graphql; every field is backed by a method on a resolver type in
// this package.
package graph

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/auth"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
)

//go:embed schema.graphql
var schemaSDL string

// maxQueryDepth keeps nested selections (note -> groups -> members -> user)
// from fanning out without bound.
const maxQueryDepth = 12

// Resolver is the root of the schema.
type Resolver struct {
	db     *store.DB
	eng    *engine.Engine
	issuer *auth.Issuer
	logger *zap.Logger
}

// NewSchema parses the schema and binds it to a root resolver.
func NewSchema(eng *engine.Engine, issuer *auth.Issuer, logger *zap.Logger) (*graphql.Schema, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{db: eng.DB, eng: eng, issuer: issuer, logger: logger}
	schema, err := graphql.ParseSchema(schemaSDL, r,
		graphql.Logger(panicLogger{logger}),
		graphql.MaxDepth(maxQueryDepth),
	)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return schema, nil
}

// fail turns any error into one graphql-go can render with a code. Coded
// errors pass through; everything else is logged and hidden.
func (r *Resolver) fail(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	r.logger.Error("resolver error", zap.Error(err))
	return apperr.New(apperr.Internal, "internal server error")
}

// storeFail maps store sentinels before calling fail.
func (r *Resolver) storeFail(err error, kind, id string) error {
	return r.fail(engine.StoreError(err, kind, id))
}

type panicLogger struct {
	logger *zap.Logger
}

func (l panicLogger) LogPanic(_ context.Context, value interface{}) {
	l.logger.Error("graphql resolver panic", zap.Any("panic", value), zap.Stack("stack"))
}

func toTime(ms int64) graphql.Time {
	return graphql.Time{Time: time.UnixMilli(ms).UTC()}
}

func toTimePtr(ms *int64) *graphql.Time {
	if ms == nil {
		return nil
	}
	t := toTime(*ms)
	return &t
}

func fromTimePtr(t *graphql.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.Time.UnixMilli()
	return &ms
}

func idStrings(ids []graphql.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func optIDStrings(ids *[]graphql.ID) []string {
	if ids == nil {
		return nil
	}
	return idStrings(*ids)
}

func toIDs(ids []string) []graphql.ID {
	out := make([]graphql.ID, len(ids))
	for i, id := range ids {
		out[i] = graphql.ID(id)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
