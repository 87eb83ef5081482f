package projects

import "context"

type contextKey string

const projectCtxKey contextKey = "project"

func SetProjectInContext(ctx context.Context, project *Project) context.Context {
	return context.WithValue(ctx, projectCtxKey, project)
}

func GetProjectFromContext(ctx context.Context) *Project {
	project, _ := ctx.Value(projectCtxKey).(*Project)
	return project
}
