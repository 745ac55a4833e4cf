package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: http or stdio")
	flags.StringP("host", "H", "", "Host to listen on (http transport)")
	flags.IntP("port", "p", 0, "Port to listen on (http transport)")
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn or error")

	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")

	flags.String("github-api-url", "", "GitHub REST API base URL")
	flags.String("github-token", "", "GitHub token (defaults to $GITHUB_TOKEN)")
	flags.Duration("github-timeout", 0, "Timeout of a single GitHub request")
	flags.Int("github-max-retries", 0, "Retries of transient GitHub failures (0 disables)")
	flags.Int64("github-chunk-size", 0, "Bytes fetched per blob range request")
	flags.Int64("github-max-file-size", 0, "Largest file served by the whole-file route, in bytes")

	flags.Bool("logs-enabled", false, "Write logs to a file in a git repository and enable /logs/push")
	flags.String("logs-repo-dir", "", "Git work tree holding the log file")
	flags.String("logs-file", "", "Log file path relative to logs-repo-dir")
	flags.String("logs-remote", "", "Remote to push logs to")
	flags.String("logs-branch", "", "Branch to push logs to (defaults to the current branch)")
	flags.Duration("logs-lock-timeout", 0, "How long a log push waits for a concurrent push")
}
