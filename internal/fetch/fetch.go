// Package fetch acquires the third-party sources: the depot_tools helper
// checkout and the WebRTC tree itself, pinned to the configured revision.
// Everything here is a shell-out to git or gclient; this package only
// decides which commands run and turns their failures into errors.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"webrtcbuild/internal/buildenv"
	"webrtcbuild/internal/config"
	"webrtcbuild/internal/logging"
	"webrtcbuild/internal/shell"
	"webrtcbuild/internal/target"
)

// Fetcher runs acquisition commands against one workspace.
type Fetcher struct {
	cfg    *config.Config
	runner shell.Runner
}

// New creates a Fetcher.
func New(cfg *config.Config, runner shell.Runner) *Fetcher {
	return &Fetcher{cfg: cfg, runner: runner}
}

// run executes a command in the checkout environment and folds both
// infrastructure failures and non-zero exits into errors.
func (f *Fetcher) run(ctx context.Context, what string, cmd shell.Command) (*shell.Result, error) {
	if cmd.Env == nil {
		cmd.Env = buildenv.ForCheckout(f.cfg)
	}
	if cmd.TimeoutMs == 0 {
		cmd.TimeoutMs = f.cfg.Execution.CommandTimeoutDuration().Milliseconds()
	}

	res, err := f.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%s: %s", what, res.Error)
	}
	if res.Killed {
		return nil, fmt.Errorf("%s: %s", what, res.KillReason)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%s: exit %d: %s", what, res.ExitCode, trimOutput(res))
	}
	return res, nil
}

// DepotTools clones or updates the depot_tools checkout. With a configured
// pin the checkout lands on it; otherwise it tracks origin/main.
func (f *Fetcher) DepotTools(ctx context.Context) error {
	dir := f.cfg.DepotToolsDir()

	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		logging.Fetch("Cloning depot_tools into %s", dir)
		if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
			return fmt.Errorf("creating work directory: %w", err)
		}
		if _, err := f.run(ctx, "clone depot_tools", shell.Command{
			Binary:    "git",
			Arguments: []string{"clone", f.cfg.Checkout.DepotToolsURL, dir},
			Tags:      map[string]string{"stage": "fetch"},
		}); err != nil {
			return err
		}
	} else {
		logging.Fetch("Updating depot_tools in %s", dir)
		if _, err := f.run(ctx, "fetch depot_tools", shell.Command{
			Binary:    "git",
			Arguments: []string{"fetch", "origin"},
			Dir:       dir,
			Tags:      map[string]string{"stage": "fetch"},
		}); err != nil {
			return err
		}
	}

	rev := f.cfg.Checkout.DepotToolsCommit
	if rev == "" {
		rev = "origin/main"
	}
	logging.FetchDebug("Checking out depot_tools revision %s", rev)
	_, err := f.run(ctx, "checkout depot_tools", shell.Command{
		Binary:    "git",
		Arguments: []string{"checkout", rev},
		Dir:       dir,
		Tags:      map[string]string{"stage": "fetch"},
	})
	return err
}

// Source synchronizes the WebRTC tree to the pinned revision. The first run
// writes the gclient solutions file; every run syncs with the pin so the
// DEPS snapshot matches the commit.
func (f *Fetcher) Source(ctx context.Context, targetOSes ...target.OS) error {
	workDir := f.cfg.Paths.WorkDir
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}

	gclientFile := filepath.Join(workDir, ".gclient")
	if _, err := os.Stat(gclientFile); os.IsNotExist(err) {
		logging.Sync("Writing gclient solutions file for %v", targetOSes)
		if err := os.WriteFile(gclientFile, []byte(f.solutions(targetOSes)), 0644); err != nil {
			return fmt.Errorf("writing .gclient: %w", err)
		}
	}

	logging.Sync("Syncing source to %s", f.cfg.Checkout.ShortCommit())
	_, err := f.run(ctx, "gclient sync", shell.Command{
		Binary: "gclient",
		Arguments: []string{
			"sync",
			"--revision", "src@" + f.cfg.Checkout.Commit,
			"-D",
		},
		Dir:       workDir,
		TimeoutMs: f.cfg.Ninja.TimeoutDuration().Milliseconds(), // first sync downloads gigabytes
		Tags:      map[string]string{"stage": "sync"},
	})
	return err
}

// solutions renders the gclient configuration for the WebRTC solution,
// with the extra target_os entries cross-OS checkouts need.
func (f *Fetcher) solutions(targetOSes []target.OS) string {
	var b strings.Builder
	b.WriteString("solutions = [\n")
	b.WriteString("  {\n")
	b.WriteString("    \"name\": \"src\",\n")
	fmt.Fprintf(&b, "    %q: %q,\n", "url", f.cfg.Checkout.URL)
	b.WriteString("    \"deps_file\": \"DEPS\",\n")
	b.WriteString("    \"managed\": False,\n")
	b.WriteString("    \"custom_deps\": {},\n")
	b.WriteString("  },\n")
	b.WriteString("]\n")

	var extras []string
	seen := make(map[target.OS]bool)
	for _, o := range targetOSes {
		if (o == target.Android || o == target.IOS) && !seen[o] {
			extras = append(extras, fmt.Sprintf("%q", string(o)))
			seen[o] = true
		}
	}
	if len(extras) > 0 {
		fmt.Fprintf(&b, "target_os = [%s]\n", strings.Join(extras, ", "))
	}
	return b.String()
}

// Pin forces the src checkout onto the pinned commit and re-syncs DEPS.
func (f *Fetcher) Pin(ctx context.Context) error {
	logging.Sync("Pinning src to %s", f.cfg.Checkout.ShortCommit())

	if _, err := f.run(ctx, "checkout pin", shell.Command{
		Binary:    "git",
		Arguments: []string{"checkout", f.cfg.Checkout.Commit},
		Dir:       f.cfg.SrcDir(),
		Tags:      map[string]string{"stage": "sync"},
	}); err != nil {
		return err
	}

	_, err := f.run(ctx, "gclient sync after pin", shell.Command{
		Binary:    "gclient",
		Arguments: []string{"sync", "-D"},
		Dir:       f.cfg.Paths.WorkDir,
		TimeoutMs: f.cfg.Ninja.TimeoutDuration().Milliseconds(),
		Tags:      map[string]string{"stage": "sync"},
	})
	return err
}

// Clean drops local modifications and untracked files from the src tree so
// every build starts from the exact pinned snapshot.
func (f *Fetcher) Clean(ctx context.Context) error {
	logging.Sync("Cleaning src tree")

	if _, err := f.run(ctx, "git clean", shell.Command{
		Binary:    "git",
		Arguments: []string{"clean", "-ffd"},
		Dir:       f.cfg.SrcDir(),
		Tags:      map[string]string{"stage": "sync"},
	}); err != nil {
		return err
	}

	_, err := f.run(ctx, "git checkout files", shell.Command{
		Binary:    "git",
		Arguments: []string{"checkout", "--", "."},
		Dir:       f.cfg.SrcDir(),
		Tags:      map[string]string{"stage": "sync"},
	})
	return err
}

// InstallTargetDeps runs the platform-specific installer the checkout
// ships for the given target. Most targets need nothing.
func (f *Fetcher) InstallTargetDeps(ctx context.Context, t target.Target) error {
	switch {
	case t.OS == target.Android:
		logging.Fetch("Installing Android build deps")
		_, err := f.run(ctx, "install android deps", shell.Command{
			Binary: filepath.Join("build", "install-build-deps-android.sh"),
			Dir:    f.cfg.SrcDir(),
			Tags:   map[string]string{"stage": "deps"},
		})
		return err

	case t.OS == target.Linux && (t.CPU == target.Arm || t.CPU == target.Arm64):
		logging.Fetch("Installing %s sysroot", t.CPU)
		_, err := f.run(ctx, "install sysroot", shell.Command{
			Binary: "python3",
			Arguments: []string{
				filepath.Join("build", "linux", "sysroot_scripts", "install-sysroot.py"),
				"--arch=" + string(t.CPU),
			},
			Dir:  f.cfg.SrcDir(),
			Tags: map[string]string{"stage": "deps"},
		})
		return err
	}

	logging.FetchDebug("No extra deps for %s", t)
	return nil
}

// trimOutput condenses command output for error messages: stderr first,
// last lines only.
func trimOutput(res *shell.Result) string {
	out := strings.TrimSpace(res.Stderr)
	if out == "" {
		out = strings.TrimSpace(res.Stdout)
	}
	lines := strings.Split(out, "\n")
	if len(lines) > 10 {
		lines = lines[len(lines)-10:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
