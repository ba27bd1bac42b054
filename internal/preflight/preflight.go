package preflight

import (
	"context"
	"fmt"
	"strings"

	"clmeval/internal/config"
	"clmeval/internal/deps"
	"clmeval/internal/storage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// A nil store skips the object store listing.
func RunAll(ctx context.Context, cfg *config.Config, store storage.Store) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if !cfg.Storage.IsS3() {
		results = append(results, CheckDirectoryAccess("Storage root", cfg.Storage.Root))
	}
	if store != nil {
		results = append(results, CheckStore(ctx, store))
	}

	if cfg.CLM.SelfHeal && cfg.Transcription.Backend == config.BackendAWS {
		results = append(results, CheckAccessRole(cfg.CLM.AccessRoleARN))
	}

	if cfg.TrainingData.Enabled && cfg.CLM.SelfHeal {
		results = append(results, CheckEndpoint(ctx, "Training data source", cfg.TrainingData.BaseURL, cfg.TrainingData.UserAgent))
	}

	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, binaryResult(status))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summarize joins failed checks into one line suitable for an error message.
func Summarize(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return strings.Join(parts, "; ")
}

func binaryResult(status deps.Status) Result {
	name := "Binary " + status.Name
	if status.Available {
		return Result{Name: name, Passed: true, Detail: status.Command}
	}
	detail := status.Detail
	if status.Description != "" {
		detail = fmt.Sprintf("%s (%s)", detail, status.Description)
	}
	return Result{Name: name, Passed: status.Optional, Detail: detail}
}
