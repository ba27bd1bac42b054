package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"clmeval/internal/config"
)

// Requirement defines an external binary clmeval relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured backends will execute.
// The AWS transcription backend and the diff scorer need nothing local.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	var reqs []Requirement
	if cfg.Scoring.Engine == config.EngineWER {
		reqs = append(reqs, Requirement{
			Name:        "wer",
			Command:     cfg.Scoring.WERBinary,
			Description: "Required for word error rate scoring",
		})
	}
	if cfg.Transcription.Backend == config.BackendWhisperX {
		reqs = append(reqs,
			Requirement{
				Name:        "FFmpeg",
				Command:     "ffmpeg",
				Description: "Required for audio extraction before WhisperX",
			},
			Requirement{
				Name:        "uvx",
				Command:     "uvx",
				Description: "Required for WhisperX-driven transcription",
			},
		)
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
