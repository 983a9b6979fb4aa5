// Package jit materializes a lowered Kaleidoscope function into
// native code and invokes it. github.com/llir/llvm is a pure IR
// builder with no execution engine of its own, unlike the C++
// bindings this module's architecture is otherwise modeled on, so
// materialization here means shelling out to the real LLVM
// interpreter, lli, the same externally-invoked-toolchain shape this
// module's teacher lineage already uses to turn generated IR into a
// native artifact via clang.
package jit

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/ztrue/tracerr"
)

// Engine owns no long-lived process state between turns beyond the
// LLIPath it was configured with: every Run is a fresh lli
// invocation, consistent with this module's single-threaded,
// synchronous resource model — there is no background JIT thread or
// cache to invalidate.
type Engine struct {
	LLIPath string
}

// New constructs an Engine that will exec lliPath for every
// materialization. It does not check that lliPath resolves to an
// executable; that surfaces as an error from the first Run.
func New(lliPath string) *Engine {
	return &Engine{LLIPath: lliPath}
}

// Run renders module's IR, appends a synthetic entry point that calls
// fn with no arguments (every top-level expression in this language
// is nullary) and prints its result, then executes that program under
// lli and parses the printed value back out.
func (e *Engine) Run(module *ir.Module, fn *ir.Func) (float64, error) {
	irText := module.String()
	wrapped := irText + "\n" + mainWrapper(fn.Name(), strings.Contains(irText, "@printf"))

	tmpFile, err := ioutil.TempFile("", "kale-*.ll")
	if err != nil {
		return 0, tracerr.Wrap(fmt.Errorf("jit: creating temp IR file: %w", err))
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(wrapped); err != nil {
		tmpFile.Close()
		return 0, tracerr.Wrap(fmt.Errorf("jit: writing temp IR file: %w", err))
	}
	if err := tmpFile.Close(); err != nil {
		return 0, tracerr.Wrap(fmt.Errorf("jit: closing temp IR file: %w", err))
	}

	cmd := exec.Command(e.LLIPath, tmpFile.Name())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, tracerr.Wrap(fmt.Errorf("jit: lli failed: %w: %s", err, stderr.String()))
	}

	return parseResult(stdout.String())
}

// mainWrapper emits a `main` that calls name with zero arguments and
// prints the returned double exactly as §4.J of this module's
// specification requires: a bare %f, newline-terminated. printfDeclared
// is true when the accumulated module already declares libc printf
// (because printd was codegen'd earlier in the session) — LLVM
// rejects a second, duplicate declaration of the same global.
func mainWrapper(name string, printfDeclared bool) string {
	declare := ""
	if !printfDeclared {
		declare = "declare i32 @printf(i8*, ...)\n"
	}

	return fmt.Sprintf(`
@.kale.fmt = private unnamed_addr constant [4 x i8] c"%%f\0A\00"
%sdefine i32 @main() {
entry:
  %%result = call double @%s()
  %%fmt = getelementptr [4 x i8], [4 x i8]* @.kale.fmt, i32 0, i32 0
  call i32 (i8*, ...) @printf(i8* %%fmt, double %%result)
  ret i32 0
}
`, declare, name)
}

func parseResult(stdout string) (float64, error) {
	line := strings.TrimSpace(stdout)
	if line == "" {
		return 0, tracerr.Wrap(fmt.Errorf("jit: lli produced no output"))
	}

	var value float64
	if _, err := fmt.Sscanf(line, "%g", &value); err != nil {
		return 0, tracerr.Wrap(fmt.Errorf("jit: could not parse lli output %q: %w", line, err))
	}
	return value, nil
}
