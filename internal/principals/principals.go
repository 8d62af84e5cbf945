package principals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"winprep/internal/config"
	"winprep/internal/logging"
	"winprep/internal/ops"
	"winprep/internal/regstore"
)

const (
	profileImageValue = "ProfileImagePath"
	hiveFileName      = "NTUSER.DAT"
)

// Principal is a user profile whose NTUSER.DAT can be mounted and edited.
type Principal struct {
	ID string
	// MountName is the key name the hive appears under in the mount root.
	// Real profiles mount under their SID; the default profile uses a
	// dedicated name so it cannot shadow HKU\.DEFAULT.
	MountName string
	HivePath  string
	// Synthetic marks the template profile for accounts not yet created.
	Synthetic bool
}

func (p Principal) String() string {
	return p.ID
}

// Options configures enumeration.
type Options struct {
	ProfileListKey   regstore.Key
	Pattern          string
	DefaultID        string
	DefaultMountName string
	DefaultHivePath  string
	// Getenv resolves %VAR% tokens in profile paths; nil means os.Getenv.
	Getenv func(string) string
}

// OptionsFromConfig maps the [registry] section onto enumeration options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ProfileListKey:   regstore.Key{Root: regstore.LocalMachine, Path: cfg.Registry.ProfileListKey},
		Pattern:          cfg.Registry.PrincipalPattern,
		DefaultID:        cfg.Registry.DefaultPrincipalID,
		DefaultMountName: cfg.Registry.DefaultMountName,
		DefaultHivePath:  cfg.Registry.DefaultHivePath,
	}
}

// Enumerator lists principals from the machine's ProfileList.
type Enumerator struct {
	store   regstore.Store
	opts    Options
	pattern *regexp.Regexp
	logger  *slog.Logger
}

// NewEnumerator compiles the principal pattern and returns an Enumerator.
func NewEnumerator(store regstore.Store, opts Options, logger *slog.Logger) (*Enumerator, error) {
	if store == nil {
		return nil, errors.New("principals: store is required")
	}
	pattern, err := regexp.Compile(opts.Pattern)
	if err != nil {
		return nil, ops.Wrap(ops.ErrConfiguration, "principals", "compile pattern", opts.Pattern, err)
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	return &Enumerator{
		store:   store,
		opts:    opts,
		pattern: pattern,
		logger:  logging.NewComponentLogger(logger, "principals"),
	}, nil
}

// Default returns the synthetic template principal.
func (e *Enumerator) Default() Principal {
	return Principal{
		ID:        e.opts.DefaultID,
		MountName: e.opts.DefaultMountName,
		HivePath:  e.opts.DefaultHivePath,
		Synthetic: true,
	}
}

// List enumerates real profiles and appends the default principal. The
// default principal is present even when enumeration fails; the error is
// returned alongside so callers can log it.
func (e *Enumerator) List(ctx context.Context) ([]Principal, error) {
	logger := logging.WithContext(ctx, e.logger)
	names, err := e.store.SubKeys(e.opts.ProfileListKey)
	if err != nil {
		return []Principal{e.Default()}, ops.Wrap(ops.ErrStore, "principals", "enumerate profiles", e.opts.ProfileListKey.String(), err)
	}
	sort.Strings(names)

	result := make([]Principal, 0, len(names)+1)
	for _, name := range names {
		if !e.pattern.MatchString(name) {
			logger.Debug("skipping non-user profile", logging.String("sid", name))
			continue
		}
		profileKey := e.opts.ProfileListKey.Join(name)
		value, err := e.store.GetValue(profileKey, profileImageValue)
		if err != nil {
			logger.Warn("profile has no image path; skipping",
				logging.String("sid", name),
				logging.Error(err),
			)
			continue
		}
		if value.Type != regstore.String && value.Type != regstore.ExpandString {
			logger.Warn("profile image path is not a string; skipping",
				logging.String("sid", name),
				logging.String("type", string(value.Type)),
			)
			continue
		}
		dir := strings.TrimSpace(ExpandEnv(value.Str, e.opts.Getenv))
		if dir == "" {
			logger.Warn("profile image path is empty; skipping", logging.String("sid", name))
			continue
		}
		result = append(result, Principal{
			ID:        name,
			MountName: name,
			HivePath:  HivePath(dir),
		})
	}
	result = append(result, e.Default())
	logger.Debug("principals enumerated", logging.Int("count", len(result)))
	return result, nil
}

// HivePath returns the NTUSER.DAT location inside a profile directory.
func HivePath(profileDir string) string {
	return strings.TrimRight(profileDir, `\/`) + `\` + hiveFileName
}

var envToken = regexp.MustCompile(`%([^%\s]+)%`)

// ExpandEnv resolves %VAR% tokens the way REG_EXPAND_SZ values are
// expanded. Unknown variables are left untouched.
func ExpandEnv(value string, getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	return envToken.ReplaceAllStringFunc(value, func(token string) string {
		name := token[1 : len(token)-1]
		if resolved := getenv(name); resolved != "" {
			return resolved
		}
		return token
	})
}

// Describe renders a principal for table output.
func Describe(p Principal) string {
	if p.Synthetic {
		return fmt.Sprintf("%s (template, mounted as %s)", p.ID, p.MountName)
	}
	return p.ID
}
