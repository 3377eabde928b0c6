// Package flagx helps several config loaders share os.Args without
// tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags listed in allowed, together with their
// values. Both "-c file" and "-c=file" forms are recognized. A token that
// starts with '-' is never consumed as a value.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, ok := known[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := known[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// FilePaths are the file locations a user may point the loaders at.
type FilePaths struct {
	// Config is the JSON config file (-c / -config).
	Config string
	// Env is a dotenv file (-e / -env) loaded before the environment layer.
	Env string
}

// ConfigFileFlags extracts -c/-config and -e/-env from args, ignoring
// everything else.
func ConfigFileFlags(args []string) FilePaths {
	var p FilePaths

	fs := flag.NewFlagSet("files", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&p.Config, "config", "", "path to JSON config file")
	fs.StringVar(&p.Config, "c", "", "path to JSON config file (short)")
	fs.StringVar(&p.Env, "env", "", "path to .env file")
	fs.StringVar(&p.Env, "e", "", "path to .env file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "-e", "-env"}))

	return p
}
