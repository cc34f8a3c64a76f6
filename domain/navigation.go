package domain

import "time"

// Target is a symbolic navigation destination.
type Target string

const (
	TargetAdminDashboard Target = "admin-dashboard"
	TargetAdminSetup     Target = "admin-setup"
	TargetTenantSetup    Target = "tenant-setup"
	TargetHome           Target = "home"
	TargetPresignupSetup Target = "presignup-setup"
	TargetRedirect       Target = "redirect"
)

var targetPaths = map[Target]string{
	TargetAdminDashboard: "/admin/dashboard",
	TargetAdminSetup:     "/admin/setup",
	TargetTenantSetup:    "/tenant/setup",
	TargetHome:           "/home",
	TargetPresignupSetup: "/admin/presignup-setup",
}

// Path returns the client route for a symbolic target. TargetRedirect has no
// fixed path.
func (t Target) Path() string {
	return targetPaths[t]
}

// Navigation is a one-shot navigation instruction for the client.
type Navigation struct {
	Target  Target `json:"target"`
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
	DelayMS int64  `json:"delay_ms,omitempty"`
}

// NavigateTo builds a history-replacing navigation to a symbolic target.
func NavigateTo(target Target) Navigation {
	return Navigation{Target: target, Path: target.Path(), Replace: true}
}

// RedirectTo builds a history-replacing navigation to a caller supplied path.
func RedirectTo(path string) Navigation {
	return Navigation{Target: TargetRedirect, Path: path, Replace: true}
}

// WithDelay returns a copy that the client should execute after d.
func (n Navigation) WithDelay(d time.Duration) Navigation {
	if d > 0 {
		n.DelayMS = d.Milliseconds()
	}
	return n
}

// Pushed returns a copy that adds a history entry instead of replacing one.
func (n Navigation) Pushed() Navigation {
	n.Replace = false
	return n
}

func (n Navigation) Delay() time.Duration {
	return time.Duration(n.DelayMS) * time.Millisecond
}
