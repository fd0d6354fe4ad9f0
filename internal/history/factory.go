package history

import "context"

// NewStore builds the report store named by backend. The "none"
// backend returns a nil Store; callers treat that as history disabled.
func NewStore(ctx context.Context, backend string, connectionString string, databaseName string) (Store, error) {
	switch backend {
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, connectionString)
	case "mysql":
		return NewMySQLStore(ctx, connectionString)
	case "mongo", "mongodb":
		return NewMongoStore(ctx, connectionString, databaseName)
	case "none", "":
		return nil, nil
	default:
		return nil, ErrUnsupportedBackend
	}
}
