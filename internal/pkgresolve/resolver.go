package pkgresolve

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Euclidae/khrowno-sub000/internal/config"
	"github.com/Euclidae/khrowno-sub000/internal/errors"
	"github.com/Euclidae/khrowno-sub000/internal/log"
)

// PackageVerifier confirms that a candidate package name actually exists in
// a distro's own package-manager metadata. It backs the identity-fallback
// step of Translate: an unresolved name is never accepted on faith.
type PackageVerifier interface {
	Exists(distro Distro, name string) bool
}

// execPackageVerifier runs the distro's native metadata-query command and
// treats a zero exit status as "exists".
type execPackageVerifier struct{}

func (execPackageVerifier) Exists(distro Distro, name string) bool {
	pm, ok := packageManagers[distro]
	if !ok || len(pm.query) == 0 {
		return false
	}
	argv := append(append([]string{}, pm.query...), name)
	cmd := exec.Command(argv[0], argv[1:]...)
	return cmd.Run() == nil
}

// Resolver holds the in-memory canonical→Mapping table and performs the
// strictly-ordered translate pipeline: exact, fuzzy, online, identity.
// Not safe for concurrent mutation — callers serialise access themselves.
type Resolver struct {
	Online bool
	Logger log.Logger

	http     HTTPClient
	verifier PackageVerifier

	fuzzyThreshold float64
	rateLimiter    *rate.Limiter
	probeDelay     time.Duration

	mu       sync.Mutex
	mappings map[string]Mapping
}

// New creates a Resolver seeded with builtin mappings and spec-documented
// defaults. online controls whether step 3 (online discovery) is attempted
// at all.
func New(online bool, httpClient HTTPClient, logger log.Logger) *Resolver {
	cfg := config.Defaults()
	cfg.OnlineDiscoveryEnabled = online
	return NewWithConfig(cfg, httpClient, logger)
}

// NewWithConfig creates a Resolver whose fuzzy-match threshold and
// online-discovery pacing come from cfg instead of the spec defaults.
func NewWithConfig(cfg config.Config, httpClient HTTPClient, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	if httpClient == nil {
		httpClient = NewDefaultHTTPClient()
	}
	r := &Resolver{
		Online:         cfg.OnlineDiscoveryEnabled,
		Logger:         logger,
		http:           httpClient,
		verifier:       execPackageVerifier{},
		fuzzyThreshold: cfg.FuzzyMatchThreshold,
		rateLimiter:    newDefaultRateLimiter(cfg.ProbeMinGap),
		probeDelay:     cfg.ProbeDelay,
		mappings:       make(map[string]Mapping),
	}
	for canonical, m := range builtinSeed() {
		r.mappings[canonical] = m
	}
	return r
}

// Translate resolves pkg's name on distro, trying in strict order: exact
// lookup, fuzzy match, online discovery (if enabled), identity fallback.
// Any successful step caches the result and stamps LastVerified. The
// identity fallback only succeeds if the Resolver's PackageVerifier
// confirms pkg actually exists under that name on distro.
func (r *Resolver) Translate(ctx context.Context, pkg string, distro Distro) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.mappings[pkg]; ok {
		if name, ok := m.PerDistro[distro]; ok {
			return name, true
		}
	}

	if name, ok := r.fuzzyTranslate(pkg, distro); ok {
		r.cache(pkg, distro, name)
		return name, true
	}

	if r.Online {
		// discoverOnline's probe order starts with pkg itself, so a
		// successful first probe also satisfies the identity-fallback
		// step: no separate verification call is needed.
		if name, ok := discoverOnline(ctx, r.http, pkg, distro, r.rateLimiter, r.probeDelay); ok {
			r.cache(pkg, distro, name)
			return name, true
		}
	}

	// Last resort: assume the name is identical across distros, but only
	// accept it once the verifier confirms it actually exists there.
	if !r.verifier.Exists(distro, pkg) {
		return "", false
	}
	r.cache(pkg, distro, pkg)
	return pkg, true
}

func (r *Resolver) fuzzyTranslate(pkg string, distro Distro) (string, bool) {
	var candidates []string
	seen := make(map[string]bool)
	for canonical, m := range r.mappings {
		if !seen[canonical] {
			candidates = append(candidates, canonical)
			seen[canonical] = true
		}
		for _, name := range m.PerDistro {
			if !seen[name] {
				candidates = append(candidates, name)
				seen[name] = true
			}
		}
	}

	match, ok := bestFuzzyMatch(pkg, candidates, r.fuzzyThreshold)
	if !ok {
		return "", false
	}

	if m, ok := r.mappings[match]; ok {
		if name, ok := m.PerDistro[distro]; ok {
			return name, true
		}
	}
	return match, true
}

func (r *Resolver) cache(pkg string, distro Distro, name string) {
	m, ok := r.mappings[pkg]
	if !ok {
		m = Mapping{Canonical: pkg, PerDistro: make(map[Distro]string)}
	} else {
		m = cloneMapping(m)
	}
	m.PerDistro[distro] = name
	m.LastVerified = time.Now()
	r.mappings[pkg] = m
}

var packageManagers = map[Distro]struct {
	install []string
	list    []string
	query   []string
}{
	DistroFedora:   {install: []string{"dnf", "install", "-y"}, list: []string{"rpm", "-qa"}, query: []string{"dnf", "info"}},
	DistroOpenSUSE: {install: []string{"zypper", "install", "-y"}, list: []string{"rpm", "-qa"}, query: []string{"zypper", "info"}},
	DistroUbuntu:   {install: []string{"apt-get", "install", "-y"}, list: []string{"dpkg-query", "-W", "-f=${Package}\n"}, query: []string{"apt-cache", "show"}},
	DistroDebian:   {install: []string{"apt-get", "install", "-y"}, list: []string{"dpkg-query", "-W", "-f=${Package}\n"}, query: []string{"apt-cache", "show"}},
	DistroArch:     {install: []string{"pacman", "-S", "--noconfirm"}, list: []string{"pacman", "-Qqe"}, query: []string{"pacman", "-Si"}},
}

var validPackageName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var archSuffix = regexp.MustCompile(`\.(x86_64|noarch|i686|aarch64)$`)

// Install dispatches to the concrete package manager for distro via a
// process spawn with inherited stdio. A non-zero exit is PackageNotFound.
func (r *Resolver) Install(distro Distro, name string) error {
	pm, ok := packageManagers[distro]
	if !ok {
		return errors.NewPackageError("install", name, errors.ErrUnsupportedDistribution)
	}
	argv := append(append([]string{}, pm.install...), name)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.NewPackageError("install", name, errors.ErrPackageNotFound)
	}
	return nil
}

// InstalledPackages invokes the native list command for distro and parses
// one package name per line, filtering to [A-Za-z0-9._-]+ and stripping
// rpm's trailing .<arch> suffix.
func (r *Resolver) InstalledPackages(distro Distro) ([]string, error) {
	pm, ok := packageManagers[distro]
	if !ok {
		return nil, errors.NewPackageError("list", string(distro), errors.ErrUnsupportedDistribution)
	}
	cmd := exec.Command(pm.list[0], pm.list[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.NewPackageError("list", string(distro), errors.ErrPackageManagerNotFound)
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if distro == DistroFedora || distro == DistroOpenSUSE {
			line = archSuffix.ReplaceAllString(line, "")
		}
		if validPackageName.MatchString(line) {
			names = append(names, line)
		}
	}
	return names, nil
}
