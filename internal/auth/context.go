package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxOperator ctxKey = iota
	ctxRole
)

func WithIdentity(ctx context.Context, operator, role string) context.Context {
	ctx = context.WithValue(ctx, ctxOperator, operator)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func Operator(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxOperator).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("operator not in context")
}

func Role(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxRole).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}
