package hosteval

import (
	"bytes"
	"log"
	"os/exec"
	"sync/atomic"
)

// Runtime holds the result of detecting a tsx-capable Node.js runtime,
// generalized from the teacher's internal/runtime.NodeRuntimeInfo /
// ProbeNodeRuntime: a synchronous PATH check for both binaries, with a
// background `npm install -g tsx` kicked off when node is present but tsx
// is missing.
type Runtime struct {
	NodeAvailable bool
	TsxAvailable  bool
	tsxReady      *atomic.Bool
}

// IsTsxReady reports whether ts_eval can currently run: tsx was already on
// PATH, or a background install that was triggered at Probe time has since
// completed.
func (r *Runtime) IsTsxReady() bool {
	if r.TsxAvailable {
		return true
	}
	if r.tsxReady != nil {
		return r.tsxReady.Load()
	}
	return false
}

// Probe detects node/tsx availability synchronously and, if node is present
// but tsx is absent, installs tsx globally in the background.
func Probe() *Runtime {
	r := &Runtime{}

	if _, err := exec.LookPath("node"); err == nil {
		r.NodeAvailable = true
	}
	if _, err := exec.LookPath("tsx"); err == nil {
		r.TsxAvailable = true
		return r
	}

	if r.NodeAvailable {
		ready := &atomic.Bool{}
		r.tsxReady = ready
		go func() {
			cmd := exec.Command("npm", "install", "-g", "tsx")
			var buf bytes.Buffer
			cmd.Stdout = &buf
			cmd.Stderr = &buf
			if err := cmd.Run(); err != nil {
				log.Printf("hosteval: background tsx install failed: %v\noutput: %s", err, buf.String())
				return
			}
			ready.Store(true)
		}()
	}

	return r
}
