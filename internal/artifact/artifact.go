// Package artifact post-processes a finished build into the flattened
// output layout downstream projects consume: a single include/ tree with
// the public headers and one combined static library per target.
package artifact

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"webrtcbuild/internal/logging"
	"webrtcbuild/internal/shell"
	"webrtcbuild/internal/target"
)

// headerRoots is the public surface of the WebRTC tree. Headers outside
// these directories are internal to the build and not harvested.
var headerRoots = []string{
	"api",
	"audio",
	"call",
	"common_audio",
	"common_video",
	"logging",
	"media",
	"modules",
	"p2p",
	"pc",
	"rtc_base",
	"rtc_tools",
	"system_wrappers",
	"video",
	filepath.Join("third_party", "abseil-cpp"),
}

// skipDirs are pruned during the header walk wherever they appear.
var skipDirs = map[string]bool{
	"test":    true,
	"testing": true,
	"out":     true,
}

// Headers copies every public header under srcDir into destInclude,
// preserving the relative layout. Returns the number of headers copied.
func Headers(srcDir, destInclude string) (int, error) {
	logging.Artifact("Harvesting headers from %s into %s", srcDir, destInclude)

	copied := 0
	for _, root := range headerRoots {
		rootPath := filepath.Join(srcDir, root)
		if _, err := os.Stat(rootPath); os.IsNotExist(err) {
			logging.ArtifactDebug("Header root %s absent, skipping", root)
			continue
		}

		err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if skipDirs[name] || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(name, ".h") {
				return nil
			}

			rel, err := filepath.Rel(srcDir, path)
			if err != nil {
				return err
			}
			dest := filepath.Join(destInclude, rel)
			if err := copyFile(path, dest); err != nil {
				return fmt.Errorf("copying %s: %w", rel, err)
			}
			copied++
			return nil
		})
		if err != nil {
			return copied, fmt.Errorf("harvesting headers under %s: %w", root, err)
		}
	}

	if copied == 0 {
		return 0, fmt.Errorf("no headers found under %s", srcDir)
	}
	logging.Artifact("Harvested %d headers", copied)
	return copied, nil
}

// StaticLibrary combines the build's object files into one archive named
// for the target, written into destDir. On windows the toolchain already
// links a single webrtc.lib, which is copied instead of re-archived.
// Returns the destination path and the number of objects archived.
func StaticLibrary(ctx context.Context, runner shell.Runner, env []string, outDir, destDir string, t target.Target) (string, int, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", 0, fmt.Errorf("creating lib directory: %w", err)
	}
	dest := filepath.Join(destDir, t.LibraryName())

	if t.OS == target.Windows {
		src := filepath.Join(outDir, "obj", "webrtc.lib")
		if _, err := os.Stat(src); err != nil {
			return "", 0, fmt.Errorf("windows archive %s not found: %w", src, err)
		}
		if err := copyFile(src, dest); err != nil {
			return "", 0, fmt.Errorf("copying %s: %w", src, err)
		}
		logging.Artifact("Copied %s", dest)
		return dest, 0, nil
	}

	objects, err := collectObjects(filepath.Join(outDir, "obj"))
	if err != nil {
		return "", 0, err
	}
	if len(objects) == 0 {
		return "", 0, fmt.Errorf("no object files under %s", outDir)
	}
	logging.Artifact("Archiving %d objects into %s", len(objects), dest)

	// ar and libtool both choke on huge argv; feed objects via a file.
	rsp := filepath.Join(outDir, "webrtcbuild-objects.rsp")
	if err := os.WriteFile(rsp, []byte(strings.Join(objects, "\n")+"\n"), 0644); err != nil {
		return "", 0, fmt.Errorf("writing response file: %w", err)
	}
	defer os.Remove(rsp)

	cmd := shell.Command{
		Binary:    "ar",
		Arguments: []string{"crs", dest, "@" + rsp},
		Tags:      map[string]string{"stage": "artifact", "target": t.String()},
		Env:       env,
	}
	if t.OS == target.Mac || t.OS == target.IOS {
		cmd = shell.Command{
			Binary:    "libtool",
			Arguments: []string{"-static", "-o", dest, "-filelist", rsp},
			Tags:      cmd.Tags,
			Env:       env,
		}
	}

	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return "", 0, removePartial(dest, fmt.Errorf("archiving %s: %w", t, err))
	}
	if res.IsError() {
		return "", 0, removePartial(dest, fmt.Errorf("archiving %s: %s", t, res.Error))
	}
	if res.Killed {
		return "", 0, removePartial(dest, fmt.Errorf("archiving %s: %s", t, res.KillReason))
	}
	if res.ExitCode != 0 {
		return "", 0, removePartial(dest, fmt.Errorf("archiving %s: exit %d: %s",
			t, res.ExitCode, strings.TrimSpace(res.Output())))
	}

	logging.Artifact("Wrote %s", dest)
	return dest, len(objects), nil
}

// collectObjects gathers every .o under objDir in sorted order so archive
// contents are reproducible.
func collectObjects(objDir string) ([]string, error) {
	var objects []string
	err := filepath.WalkDir(objDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".o") {
			objects = append(objects, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning %s: %w", objDir, err)
	}
	sort.Strings(objects)
	return objects, nil
}

// removePartial deletes a half-written archive, folding any removal error
// into the original one.
func removePartial(path string, err error) error {
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return multierr.Append(err, rmErr)
	}
	return err
}

func copyFile(src, dest string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, in.Close())
	}()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()

	_, err = io.Copy(out, in)
	return err
}
