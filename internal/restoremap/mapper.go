package restoremap

import (
	"context"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Euclidae/khrowno-sub000/internal/log"
	"github.com/Euclidae/khrowno-sub000/internal/pkgresolve"
	"github.com/Euclidae/khrowno-sub000/internal/util"
)

// ProgressFunc reports restore-mapping progress as (operation, done, total),
// matching the convention used by internal/archive.
type ProgressFunc func(operation string, done, total int)

// SandboxedAppInstaller spawns the platform's sandboxed-application
// installer (e.g. flatpak) for one application identifier. The default
// implementation runs `install -y <source> <id>` with inherited stdio,
// matching the injected collaborator contract.
type SandboxedAppInstaller interface {
	Install(source, id string) error
}

type execSandboxedInstaller struct {
	command string
}

// NewExecSandboxedInstaller returns a SandboxedAppInstaller that spawns
// command with `install -y <source> <id>`.
func NewExecSandboxedInstaller(command string) SandboxedAppInstaller {
	return execSandboxedInstaller{command: command}
}

func (e execSandboxedInstaller) Install(source, id string) error {
	cmd := exec.Command(e.command, "install", "-y", source, id)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}

// StepResult captures the best-effort outcome of one restore step.
type StepResult struct {
	Step string
	Err  error
}

// Mapper drives the restore-mapping sequence over an already-extracted
// archive tree. A failing step is recorded in the returned results and the
// later steps still run, except that Map stops early when no source user
// can be determined or the target home cannot be resolved. Individual
// package and sandboxed-app install failures are counted and logged; the
// "install-packages" and "install-flatpaks" results always carry a nil Err.
type Mapper struct {
	Logger    log.Logger
	Resolver  *pkgresolve.Resolver
	Installer SandboxedAppInstaller
	Privilege PrivilegeOp
	Distro    pkgresolve.Distro
}

// NewMapper returns a Mapper with sane defaults for any unset collaborator.
func NewMapper(resolver *pkgresolve.Resolver, distro pkgresolve.Distro, logger log.Logger) *Mapper {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Mapper{
		Logger:    logger,
		Resolver:  resolver,
		Installer: NewExecSandboxedInstaller("flatpak"),
		Privilege: NewDirectPrivilege(),
		Distro:    distro,
	}
}

// Map runs the restore-mapping sequence (spec.md §4.I steps 1–8) over
// restoreDir. targetUsername, if non-empty, pins the destination home and
// triggers the ownership-change step; otherwise the destination home is the
// current process's own home and ownership is left untouched.
func (m *Mapper) Map(ctx context.Context, restoreDir, targetUsername string, progress ProgressFunc) []StepResult {
	start := time.Now()
	var results []StepResult
	report := func(step string, err error) {
		results = append(results, StepResult{Step: step, Err: err})
		if err != nil {
			m.Logger.Warn("restore step failed", log.Field{Key: "step", Value: step}, log.Field{Key: "error", Value: err.Error()})
		} else {
			m.Logger.Debug("restore step ok", log.Field{Key: "step", Value: step})
		}
	}

	meta, hasMeta, err := loadMetadata(restoreDir)
	sourceUser := ""
	if hasMeta {
		sourceUser = meta.Username
	} else {
		sourceUser, err = firstHomeSubdir(restoreDir)
	}
	report("locate-sidecar", err)
	if sourceUser == "" {
		return results // nothing to map without a source user
	}

	targetHome, err := m.resolveTargetHome(targetUsername)
	report("resolve-target-home", err)
	if err != nil {
		return results
	}

	srcHome := filepath.Join(restoreDir, "home", sourceUser)
	err = copyHomeTree(ctx, srcHome, targetHome, copyTreeFunc(progress))
	report("copy-home", err)

	pkgNames, err := scanPackageSidecars(restoreDir)
	report("scan-packages", err)
	var pkgFailures int
	for i, name := range pkgNames {
		resolved, ok := m.Resolver.Translate(ctx, name, m.Distro)
		if !ok || m.Resolver.Install(m.Distro, resolved) != nil {
			pkgFailures++
		}
		if progress != nil {
			progress("install-packages", i+1, len(pkgNames))
		}
	}
	if pkgFailures > 0 {
		m.Logger.Warn("some packages failed to install", log.Field{Key: "failures", Value: pkgFailures}, log.Field{Key: "total", Value: len(pkgNames)})
	}
	results = append(results, StepResult{Step: "install-packages"})

	flatpakIDs, err := scanFlatpakSidecars(restoreDir)
	report("scan-flatpaks", err)
	var flatpakFailures int
	for i, id := range flatpakIDs {
		if err := m.Installer.Install("flathub", id); err != nil {
			flatpakFailures++
		}
		if progress != nil {
			progress("install-flatpaks", i+1, len(flatpakIDs))
		}
	}
	if flatpakFailures > 0 {
		m.Logger.Warn("some sandboxed apps failed to install", log.Field{Key: "failures", Value: flatpakFailures}, log.Field{Key: "total", Value: len(flatpakIDs)})
	}
	results = append(results, StepResult{Step: "install-flatpaks"})

	if targetUsername != "" {
		uid, gid, err := lookupUser(targetUsername)
		if err == nil {
			err = m.Privilege.ChownRecursive(targetHome, uid, gid)
		}
		report("chown-home", err)
	}

	if hasMeta && meta.Hostname != "" {
		err := m.Privilege.SetHostname(meta.Hostname)
		report("set-hostname", err)
	}

	m.Logger.Debug("restore mapping finished", log.Field{Key: "elapsed", Value: util.Timeify(int(time.Since(start).Seconds()))})
	return results
}

func (m *Mapper) resolveTargetHome(targetUsername string) (string, error) {
	if targetUsername != "" {
		return filepath.Join("/home", targetUsername), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

func lookupUser(username string) (uid, gid int, err error) {
	u, err := user.Lookup(username)
	if err != nil {
		return 0, 0, err
	}
	uid, err = strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, err
	}
	gid, err = strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, err
	}
	return uid, gid, nil
}
