package preflight

import "fmt"

// MinFileDescriptors is the descriptor limit below which large trees are
// likely to exhaust handles.
const MinFileDescriptors = 1024

// getrlimit returns the current soft limit on open files. Replaced in tests.
var getrlimit = nofileLimit

// CheckFileDescriptors checks if the file descriptor limit is sufficient.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: true,
	}

	currentLimit, supported, err := getrlimit()
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}
	if !supported {
		result.Status = StatusPass
		result.Message = "not applicable on this platform"
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", currentLimit, MinFileDescriptors)
	if currentLimit < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 10240' to increase the limit"
		return result
	}

	result.Status = StatusPass
	return result
}
