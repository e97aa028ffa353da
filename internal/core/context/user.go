// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

type operatorKey struct{}

// WithOperator stores the name of the person acting on the request.
// Stock checks created on their behalf carry it as completedBy.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator)
}

// GetOperator returns the operator from context or empty string.
func GetOperator(ctx context.Context) string {
	if v, ok := ctx.Value(operatorKey{}).(string); ok {
		return v
	}
	return ""
}

type viewKey struct{}

// WithViewID stores the client view that issued a ledger request.
func WithViewID(ctx context.Context, viewID string) context.Context {
	return context.WithValue(ctx, viewKey{}, viewID)
}

// GetViewID returns the client view id or empty string.
func GetViewID(ctx context.Context) string {
	if v, ok := ctx.Value(viewKey{}).(string); ok {
		return v
	}
	return ""
}
