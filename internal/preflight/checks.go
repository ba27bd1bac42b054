package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clmeval/internal/storage"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore lists the input prefix and reports how many folders are ready.
// An empty input prefix passes; the run simply has nothing to evaluate.
func CheckStore(ctx context.Context, store storage.Store) Result {
	const name = "Object store"

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	folders, skipped, err := storage.ListFolders(checkCtx, store)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", store.URI(storage.InputPrefix), err)}
	}
	if len(folders) == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no usable input folders)", store.URI(storage.InputPrefix))}
	}
	detail := fmt.Sprintf("%s (%d folders", store.URI(storage.InputPrefix), len(folders))
	if len(skipped) > 0 {
		detail += fmt.Sprintf(", %d skipped", len(skipped))
	}
	return Result{Name: name, Passed: true, Detail: detail + ")"}
}

// CheckAccessRole verifies the data access role needed to train custom models.
func CheckAccessRole(arn string) Result {
	const name = "CLM access role"

	arn = strings.TrimSpace(arn)
	if arn == "" {
		return Result{Name: name, Detail: "missing (set clm.access_role_arn or --access-role-arn)"}
	}
	if !strings.HasPrefix(arn, "arn:") {
		return Result{Name: name, Detail: fmt.Sprintf("%q is not an ARN", arn)}
	}
	return Result{Name: name, Passed: true, Detail: arn}
}

// CheckEndpoint verifies that a reference page host answers HTTP requests.
// Any status below 500 counts as reachable.
func CheckEndpoint(ctx context.Context, name, baseURL, userAgent string) Result {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeHTTPError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (host unreachable)"
	}
	return err.Error()
}
