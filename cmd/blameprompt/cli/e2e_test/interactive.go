//go:build e2e

package e2e

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/creack/pty"
)

// RunInteractive runs args under a pty so respond can answer huh prompts
// (init's telemetry-consent question in particular) the way a real
// terminal user would, rather than failing over to --accessible stdin.
func (env *TestEnv) RunInteractive(args []string, respond func(ptyFile *os.File) string) (string, error) {
	env.T.Helper()

	cmd := env.command(args...)
	cmd.Env = append(os.Environ(), "TERM=xterm")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("start pty: %w", err)
	}
	defer ptmx.Close()

	var respondOutput string
	done := make(chan struct{})
	go func() {
		defer close(done)
		respondOutput = respond(ptmx)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		env.T.Log("respond function timed out")
	}

	var remaining bytes.Buffer
	remainingDone := make(chan struct{})
	go func() {
		defer close(remainingDone)
		_, _ = io.Copy(&remaining, ptmx)
	}()

	cmdDone := make(chan error, 1)
	go func() { cmdDone <- cmd.Wait() }()

	var cmdErr error
	select {
	case cmdErr = <-cmdDone:
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		cmdErr = fmt.Errorf("process timed out")
	}

	select {
	case <-remainingDone:
	case <-time.After(time.Second):
	}

	return respondOutput + remaining.String(), cmdErr
}

// WaitForPromptAndRespond reads ptyFile until it sees promptSubstring, then
// writes response.
func WaitForPromptAndRespond(ptyFile *os.File, promptSubstring, response string, timeout time.Duration) (string, error) {
	var output bytes.Buffer
	buf := make([]byte, 1024)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		_ = ptyFile.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := ptyFile.Read(buf)
		if n > 0 {
			output.Write(buf[:n])
			if strings.Contains(output.String(), promptSubstring) {
				_, _ = ptyFile.WriteString(response)
				return output.String(), nil
			}
		}
		if err != nil && !os.IsTimeout(err) {
			return output.String(), err
		}
	}
	return output.String(), fmt.Errorf("timeout waiting for prompt containing %q", promptSubstring)
}
