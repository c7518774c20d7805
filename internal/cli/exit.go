package cli

import "github.com/scratcheverywhere/sebuild/internal/fault"

// Exit status per error category. Anything else exits with 1.
var exitCodes = map[string]int{
	"precondition":      2,
	"environment":       3,
	"process":           4,
	"network":           5,
	"cache-consistency": 6,
}

// Returns the process exit status for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := exitCodes[fault.Category(err)]; ok {
		return code
	}
	return 1
}
