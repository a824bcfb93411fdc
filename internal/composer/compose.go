// Package composer builds the literal LaunchOptions string that makes Proton
// load OptiScaler, from a small set of toggles or a named preset.
package composer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// CommandToken is the placeholder Steam replaces with the game's executable.
const CommandToken = "%command%"

const (
	baseOverrides    = "dxgi=n,b"
	noDLSSFrameGen   = "nvngx=n,b"
	rdna3Workaround  = "DXIL_SPIRV_CONFIG=wmma_rdna3_workaround"
	rdna3PerftestOpt = "nggc"
)

// reserved are variables Compose emits itself.
var reserved = map[string]bool{
	"WINEDLLOVERRIDES":    true,
	"PROTON_FSR4_UPGRADE": true,
	"DXIL_SPIRV_CONFIG":   true,
	"RADV_PERFTEST":       true,
}

var envName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var (
	ErrInvalidEnv = errors.New("invalid environment variable")
	ErrInvalidArg = errors.New("invalid game argument")
)

// EnvVar is one NAME=value assignment placed before the command.
type EnvVar struct {
	Name  string
	Value string
}

func (e EnvVar) String() string {
	return e.Name + "=" + quoteValue(e.Value)
}

// Options selects what goes into a launch string. The zero value yields the
// basic OptiScaler setup.
type Options struct {
	// RDNA3Workaround adds the DXIL wmma workaround and the nggc RADV test flag.
	RDNA3Workaround bool
	// MangoHUD wraps the game in the mangohud overlay.
	MangoHUD bool
	// Debug turns on Proton and Wine DLL logging.
	Debug bool
	// DisableDLSSFrameGen also overrides nvngx so games cannot load DLSS FG.
	DisableDLSSFrameGen bool
	// RADVPerftest lists RADV_PERFTEST options such as "rt" or "nggc".
	RADVPerftest []string
	// Env is appended after the managed variables, in order.
	Env []EnvVar
	// GameArgs follow %command%.
	GameArgs []string
}

// Compose renders opts as a Steam LaunchOptions value. The result always
// carries the dxgi override and ends with %command% plus any game arguments.
func Compose(opts Options) (string, error) {
	for _, e := range opts.Env {
		if !envName.MatchString(e.Name) {
			return "", fmt.Errorf("%w: name %q", ErrInvalidEnv, e.Name)
		}
		if reserved[e.Name] {
			return "", fmt.Errorf("%w: %s is set by the composer", ErrInvalidEnv, e.Name)
		}
		if strings.ContainsAny(e.Value, "\n\r") {
			return "", fmt.Errorf("%w: %s value contains a line break", ErrInvalidEnv, e.Name)
		}
	}
	for _, a := range opts.GameArgs {
		if a == "" || strings.ContainsAny(a, "\n\r") || strings.Contains(a, CommandToken) {
			return "", fmt.Errorf("%w: %q", ErrInvalidArg, a)
		}
	}

	var parts []string

	overrides := baseOverrides
	if opts.DisableDLSSFrameGen {
		overrides += ";" + noDLSSFrameGen
	}
	parts = append(parts, `WINEDLLOVERRIDES="`+overrides+`"`)
	if opts.RDNA3Workaround {
		parts = append(parts, rdna3Workaround)
	}
	parts = append(parts, "PROTON_FSR4_UPGRADE=1")

	if perftest := radvPerftest(opts); perftest != "" {
		parts = append(parts, "RADV_PERFTEST="+perftest)
	}
	if opts.Debug {
		parts = append(parts, "PROTON_LOG=+all", "WINEDEBUG=+dll")
	}
	for _, e := range opts.Env {
		parts = append(parts, e.String())
	}
	if opts.MangoHUD {
		parts = append(parts, "mangohud")
	}
	parts = append(parts, CommandToken)
	for _, a := range opts.GameArgs {
		parts = append(parts, quoteValue(a))
	}
	return strings.Join(parts, " "), nil
}

// radvPerftest merges the RDNA3 flag with the requested options, keeping the
// first occurrence of each.
func radvPerftest(opts Options) string {
	var flags []string
	seen := make(map[string]bool)
	add := func(f string) {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			return
		}
		seen[f] = true
		flags = append(flags, f)
	}
	if opts.RDNA3Workaround {
		add(rdna3PerftestOpt)
	}
	for _, f := range opts.RADVPerftest {
		for _, part := range strings.Split(f, ",") {
			add(part)
		}
	}
	return strings.Join(flags, ",")
}

// ParseEnv turns NAME=value strings into EnvVars.
func ParseEnv(assignments []string) ([]EnvVar, error) {
	out := make([]EnvVar, 0, len(assignments))
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		if !ok || !envName.MatchString(name) {
			return nil, fmt.Errorf("%w: %q (want NAME=value)", ErrInvalidEnv, a)
		}
		out = append(out, EnvVar{Name: name, Value: value})
	}
	return out, nil
}

const shellSpecial = " \t\"'\\$`;&|<>()*?[]{}#~!"

// quoteValue double-quotes s when the shell Steam hands it to would split or
// expand it.
func quoteValue(s string) string {
	if s != "" && !strings.ContainsAny(s, shellSpecial) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")
	return `"` + r.Replace(s) + `"`
}
