// Package cli provides the shared plumbing for the ds9samp command-line
// tools: flag registration, error rendering with https://no-color.org
// aware coloring, command batch reading, and exit-code mapping.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samp-tools/ds9samp/bridge"
)

// EnvNoColor suppresses ANSI colors when set, following no-color.org.
const EnvNoColor = "NO_COLOR"

// ContinuationEscape marks a batch line that continues the previous
// command, embedding a literal newline within one call.
const ContinuationEscape = `\`

// CommonFlags holds the options shared by every ds9samp tool.
type CommonFlags struct {
	Name    string
	Timeout int
	Config  string
	HubURL  string
	Debug   bool
	Version bool
}

// RegisterCommon wires the shared flags into fs, with short and long forms
// for the options inherited from the original tools.
func RegisterCommon(fs *flag.FlagSet) *CommonFlags {
	opts := &CommonFlags{}
	fs.StringVar(&opts.Name, "n", "", "Name of the target client in the hub")
	fs.StringVar(&opts.Name, "name", "", "Name of the target client in the hub")
	fs.IntVar(&opts.Timeout, "t", -1, "Timeout in seconds (use 0 to disable)")
	fs.IntVar(&opts.Timeout, "timeout", -1, "Timeout in seconds (use 0 to disable)")
	fs.StringVar(&opts.Config, "config", "", "Path to a YAML config file")
	fs.StringVar(&opts.HubURL, "hub", "", "Hub WebSocket URL (overrides config and "+bridge.EnvHubURL+")")
	fs.BoolVar(&opts.Debug, "debug", false, "Provide debugging output")
	fs.BoolVar(&opts.Version, "version", false, "Print the version and exit")
	return opts
}

// LoadConfig builds the bridge configuration from defaults, the optional
// config file, and the command-line overrides, in that precedence order.
func (opts *CommonFlags) LoadConfig() (*bridge.Config, error) {
	var cfg *bridge.Config
	if opts.Config != "" {
		loaded, err := bridge.LoadConfig(opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := bridge.DefaultConfig()
		cfg = &def
	}

	if opts.HubURL != "" {
		cfg.HubURL = opts.HubURL
	}
	switch {
	case opts.Timeout > 0:
		cfg.TimeoutSeconds = opts.Timeout
	case opts.Timeout == 0:
		// Connect merges this config over the defaults, where a zero
		// timeout reads as unset; -1 survives the merge as a disabled
		// deadline.
		cfg.TimeoutSeconds = -1
	}
	return cfg, nil
}

// SetupLogging installs the default slog logger on stderr: debug level when
// requested, otherwise warnings only so the tools stay quiet.
func SetupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// colorAllowed follows no-color.org: color only when the stream is a
// terminal and NO_COLOR is unset.
func colorAllowed(f *os.File) bool {
	if _, suppressed := os.LookupEnv(EnvNoColor); suppressed {
		return false
	}
	return IsTerminal(f)
}

// Colorize wraps txt in bold red when coloring is allowed on f.
func Colorize(f *os.File, txt string) string {
	if !colorAllowed(f) {
		return txt
	}
	return "\033[1;31m" + txt + "\033[0;0m"
}

// ErrorMessage renders err the way the original tools do:
//
//	# ds9samp_get: ERROR no qualifying peers connected to the hub
//
// with the prefix colored when allowed on stderr.
func ErrorMessage(tool string, err error) string {
	prefix := Colorize(os.Stderr, fmt.Sprintf("# ds9samp_%s:", tool))
	return fmt.Sprintf("%s ERROR %v\n", prefix, err)
}

// Fail writes the rendered error to stderr and returns the process exit
// code: every failure maps to 1.
func Fail(tool string, err error) int {
	fmt.Fprint(os.Stderr, ErrorMessage(tool, err))
	return 1
}

// Debugf prints a debug line in the original tools' "# msg" form.
func Debugf(format string, args ...any) {
	fmt.Printf("# "+format+"\n", args...)
}

// BatchSource names where a batch command argument reads from: the file
// path after the @, or "stdin" for @-. ok is false for inline commands.
func BatchSource(arg string) (source string, ok bool) {
	rest, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return "", false
	}
	if rest == "-" {
		return "stdin", true
	}
	return rest, true
}

// ReadCommands expands a command argument into the list of commands to
// submit. An argument beginning with @ names a batch file ("@-" reads
// stdin); otherwise embedded newlines, literal or escaped as \n, split the
// argument into one command per line.
func ReadCommands(arg string, stdin io.Reader) ([]string, error) {
	if !strings.HasPrefix(arg, "@") {
		expanded := strings.ReplaceAll(arg, `\n`, "\n")
		return splitBatch(strings.Split(expanded, "\n")), nil
	}

	var data []byte
	var err error
	if arg == "@-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(arg[1:])
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read commands: %w", err)
	}

	return splitBatch(strings.Split(string(data), "\n")), nil
}

// splitBatch assembles commands from batch lines. A line beginning with the
// continuation escape extends the previous command with a literal newline.
func splitBatch(lines []string) []string {
	var commands []string
	for _, line := range lines {
		if rest, ok := strings.CutPrefix(line, ContinuationEscape); ok && len(commands) > 0 {
			commands[len(commands)-1] += "\n" + rest
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		commands = append(commands, line)
	}
	return commands
}
