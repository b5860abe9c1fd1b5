package main

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/grantcarthew/spreadfire/internal/cli"
)

// formatCobraError converts verbose Cobra errors to user-friendly messages.
func formatCobraError(err error) string {
	msg := err.Error()

	// invalid argument "5x" for "--calculation" flag: time: unknown unit "x" in duration "5x"
	if strings.HasPrefix(msg, "invalid argument") {
		re := regexp.MustCompile(`^invalid argument "([^"]*)" for "([^"]+)" flag`)
		if matches := re.FindStringSubmatch(msg); len(matches) > 2 {
			return fmt.Sprintf("invalid value %q for %s", matches[1], matches[2])
		}
	}

	return msg
}

func main() {
	if err := cli.Execute(); err != nil {
		// Print error if not already printed by command handler
		if !cli.IsPrintedError(err) {
			msg := formatCobraError(err)
			if cli.JSONOutput {
				resp := map[string]any{
					"ok":    false,
					"error": msg,
				}
				_ = json.NewEncoder(os.Stderr).Encode(resp)
			} else {
				fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
			}
		}
		os.Exit(1)
	}
}
