package apitest

import "context"

type bodyKey struct{}

func withBody(ctx context.Context, body map[string]interface{}) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func bodyFrom(ctx context.Context) map[string]interface{} {
	if b, ok := ctx.Value(bodyKey{}).(map[string]interface{}); ok {
		return b
	}
	return nil
}
