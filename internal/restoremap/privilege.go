package restoremap

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// PrivilegeOp abstracts the "change ownership of many files" requirement
// behind two implementations: a direct os.Chown walk for a privileged
// caller, and an exec-helper path (e.g. sudo chown -R) for an unprivileged
// one. Restore callers choose the implementation that matches their
// execution context.
type PrivilegeOp interface {
	ChownRecursive(root string, uid, gid int) error
	SetHostname(name string) error
}

// directPrivilege changes ownership in-process via os.Chown and changes the
// hostname by running hostnamectl without any escalation helper. Requires
// the caller to already hold the necessary capabilities (CAP_CHOWN,
// CAP_SYS_ADMIN).
type directPrivilege struct{}

// NewDirectPrivilege returns a PrivilegeOp that calls os.Chown directly and
// runs hostnamectl as the current process, for callers already running
// with sufficient privilege.
func NewDirectPrivilege() PrivilegeOp { return directPrivilege{} }

func (directPrivilege) ChownRecursive(root string, uid, gid int) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: one unreadable entry doesn't abort the walk
		}
		_ = os.Chown(path, uid, gid)
		return nil
	})
}

func (directPrivilege) SetHostname(name string) error {
	cmd := exec.Command("hostnamectl", "set-hostname", name)
	return cmd.Run()
}

// helperPrivilege shells out to an external privilege-escalation helper
// (sudo, pkexec, ...) for callers that do not hold the capability
// themselves.
type helperPrivilege struct {
	helper string // e.g. "sudo"
}

// NewHelperPrivilege returns a PrivilegeOp that spawns helper (typically
// "sudo" or "pkexec") to perform the privileged operation out-of-process.
func NewHelperPrivilege(helper string) PrivilegeOp {
	return helperPrivilege{helper: helper}
}

func (h helperPrivilege) ChownRecursive(root string, uid, gid int) error {
	owner := strconv.Itoa(uid) + ":" + strconv.Itoa(gid)
	cmd := exec.Command(h.helper, "chown", "-R", owner, root)
	return cmd.Run()
}

func (h helperPrivilege) SetHostname(name string) error {
	cmd := exec.Command(h.helper, "hostnamectl", "set-hostname", name)
	return cmd.Run()
}
