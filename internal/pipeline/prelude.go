package pipeline

import "go.mongodb.org/mongo-driver/v2/bson"

// TenantScope identifies the user/file/table triple every query must be
// scoped to. The prelude match is prepended to every pipeline this package
// builds — no query ever omits it (spec.md §4.2).
type TenantScope struct {
	UserID    string
	FileID    string
	TableName string
}

// Validate ensures every field of the tenant scope is present. An empty
// scope is a programming error (missing user context), not a user-input
// error, so it maps to AuthorizationError.
func (s TenantScope) Validate() error {
	if s.UserID == "" {
		return &AuthorizationError{Reason: "missing user_id in tenant scope"}
	}
	if s.FileID == "" {
		return &AuthorizationError{Reason: "missing file_id in tenant scope"}
	}
	if s.TableName == "" {
		return &AuthorizationError{Reason: "missing table_name in tenant scope"}
	}
	return nil
}

// preludeStage builds the invariant `$match {user_id, file_id, table_name}`
// stage that begins every pipeline.
func preludeStage(scope TenantScope) bson.D {
	return PreludeStage(scope)
}

// PreludeStage is the exported form of the tenant prelude, for callers
// (internal/tools) that assemble ad-hoc stage sequences outside the
// reduction/rank/timeseries/compare builders above.
func PreludeStage(scope TenantScope) bson.D {
	return bson.D{{Key: "$match", Value: bson.D{
		{Key: "user_id", Value: scope.UserID},
		{Key: "file_id", Value: scope.FileID},
		{Key: "table_name", Value: scope.TableName},
	}}}
}
