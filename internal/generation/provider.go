package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GeneratedArtifact is what a provider hands back for storage.
type GeneratedArtifact struct {
	StorageKey string
	MimeType   string
	SizeBytes  int64
}

// Generator produces a creative for a job. Implementations wrap external
// model providers; the worker only sees this interface.
type Generator interface {
	Generate(ctx context.Context, task Task) (*GeneratedArtifact, error)
}

// Task is the provider-facing slice of a job.
type Task struct {
	JobID     string
	ProjectID string
	Kind      Kind
	Prompt    string
}

// StubGenerator produces deterministic placeholder artifacts. It stands
// in for a real model provider in development and tests.
type StubGenerator struct{}

func NewStubGenerator() *StubGenerator {
	return &StubGenerator{}
}

func (g *StubGenerator) Generate(_ context.Context, task Task) (*GeneratedArtifact, error) {
	sum := sha256.Sum256([]byte(task.JobID + ":" + task.Prompt))
	digest := hex.EncodeToString(sum[:8])

	switch task.Kind {
	case KindImage, KindVariation:
		return &GeneratedArtifact{
			StorageKey: fmt.Sprintf("projects/%s/images/%s.png", task.ProjectID, digest),
			MimeType:   "image/png",
			SizeBytes:  int64(len(task.Prompt)) * 1024,
		}, nil
	case KindCopy:
		return &GeneratedArtifact{
			StorageKey: fmt.Sprintf("projects/%s/copy/%s.txt", task.ProjectID, digest),
			MimeType:   "text/plain",
			SizeBytes:  int64(len(task.Prompt)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown generation kind %q", task.Kind)
	}
}
