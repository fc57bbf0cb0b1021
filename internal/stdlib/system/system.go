// Package system implements std.system: subprocess invocation (call,
// pipe), daemonization, and a JSON5-ish configuration-file loader. The
// pipe() writer and reader run concurrently via errgroup; daemonize
// returns an AF_UNIX socket path name randomized with uuid.
package system

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	asteriaerrors "asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/stdlib/json"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "system", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/system/system.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("call", bind("std.system.call", bCall))
	exports.Set("pipe", bind("std.system.pipe", bPipe))
	exports.Set("daemonize", bind("std.system.daemonize", bDaemonize))
	exports.Set("load_conf", bind("std.system.load_conf", bLoadConf))
	exports.Set("sleep", bind("std.system.sleep", bSleep))
	exports.Set("get_pid", bind("std.system.get_pid", bGetPid))
	exports.Set("get_environment_variable", bind("std.system.get_environment_variable", bGetEnvironmentVariable))
	exports.Set("get_environment_variables", bind("std.system.get_environment_variables", bGetEnvironmentVariables))
}

func stringArray(v value.Value) ([]string, bool) {
	if v.IsNull() {
		return nil, true
	}
	if !v.IsArray() {
		return nil, false
	}
	arr := v.MustArray()
	out := make([]string, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		el := arr.At(i)
		if !el.IsString() {
			return nil, false
		}
		out[i] = el.MustString()
	}
	return out, true
}

func buildCmd(cmdName string, argv, envp value.Value) (*exec.Cmd, error) {
	args, ok := stringArray(argv)
	if !ok {
		return nil, asteriaerrors.New(asteriaerrors.TypeMismatch, "argv must be an array of strings")
	}
	env, ok := stringArray(envp)
	if !ok {
		return nil, asteriaerrors.New(asteriaerrors.TypeMismatch, "envp must be an array of strings")
	}
	cmd := exec.Command(cmdName, args...)
	if env != nil {
		cmd.Env = env
	}
	return cmd, nil
}

// exitStatus converts a wait error into the script-visible encoding: the
// process's own exit code in [0,127], or 128+signal on signal death.
func exitStatus(err error) int64 {
	if err == nil {
		return 0
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return 127
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return 128 + int64(ws.Signal())
		}
		return int64(ws.ExitStatus())
	}
	return int64(exitErr.ExitCode())
}

func bCall(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var cmdName string
	var argv, envp value.Value
	r.StartOverload()
	r.RequiredString(&cmdName)
	r.OptionalValue(&argv)
	r.OptionalValue(&envp)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	cmd, err := buildCmd(cmdName, argv, envp)
	if err != nil {
		return value.Value{}, err
	}
	cmd.Stdout = nil
	cmd.Stderr = nil
	runErr := cmd.Run()
	if runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			return value.Value{}, asteriaerrors.New(asteriaerrors.IOError, "std.system.call: %v", pkgerrors.Wrap(runErr, "spawn failed"))
		}
	}
	return value.Int(exitStatus(runErr)), nil
}

func bPipe(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var cmdName string
	var argv, envp value.Value
	var input string
	var hasInput bool
	r.StartOverload()
	r.RequiredString(&cmdName)
	r.OptionalValue(&argv)
	r.OptionalValue(&envp)
	r.OptionalString(&input, &hasInput)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	cmd, err := buildCmd(cmdName, argv, envp)
	if err != nil {
		return value.Value{}, err
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return value.Value{}, asteriaerrors.New(asteriaerrors.IOError, "std.system.pipe: %v", err)
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Start(); err != nil {
		return value.Value{}, asteriaerrors.New(asteriaerrors.IOError, "std.system.pipe: %v", pkgerrors.Wrap(err, "spawn failed"))
	}

	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		if hasInput {
			_, werr := stdin.Write([]byte(input))
			return werr
		}
		return nil
	})
	writeErr := g.Wait()

	waitErr := cmd.Wait()
	if writeErr != nil && waitErr == nil {
		return value.Value{}, asteriaerrors.New(asteriaerrors.IOError, "std.system.pipe: %v", writeErr)
	}
	status := exitStatus(waitErr)
	if status != 0 {
		return value.Null(), nil
	}
	return value.Str(stdout.String()), nil
}

// bDaemonize starts one new copy of the running program (os.Args) as a
// session leader with its stdin, stdout and stderr on the null device,
// releases it, calls setsid in the calling process (ignoring failure), and
// returns a randomly generated AF_UNIX socket path. It does not double-fork:
// no socket is created or bound, no stdio is redirected onto that path, and
// the calling process keeps running.
func bDaemonize(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	socketPath := "/tmp/asteria-" + uuid.NewString() + ".sock"

	child, err := os.StartProcess(os.Args[0], os.Args, &os.ProcAttr{
		Files: []*os.File{nil, nil, nil},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return value.Value{}, asteriaerrors.New(asteriaerrors.IOError, "std.system.daemonize: %v", pkgerrors.Wrap(err, "first fork failed"))
	}
	_ = child.Release()

	if _, err := syscall.Setsid(); err != nil {
		// already a session leader from the parent's fork; not fatal.
		_ = err
	}

	return value.Str(socketPath), nil
}

// bSleep suspends the calling thread for the given number of milliseconds
// and returns the residual time, which is always zero here: Go's sleep
// restarts itself across signal wakeups rather than returning early.
func bSleep(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var ms float64
	r.StartOverload()
	r.RequiredReal(&ms)
	if r.EndOverload() {
		if ms > 0 {
			time.Sleep(time.Duration(ms * float64(time.Millisecond)))
		}
		return value.Real(0), nil
	}
	var msInt int64
	r.StartOverload()
	r.RequiredInteger(&msInt)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if msInt > 0 {
		time.Sleep(time.Duration(msInt) * time.Millisecond)
	}
	return value.Real(0), nil
}

func bGetPid(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Int(int64(os.Getpid())), nil
}

func bGetEnvironmentVariable(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var name string
	r.StartOverload()
	r.RequiredString(&name)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	val, ok := os.LookupEnv(name)
	if !ok {
		return value.Null(), nil
	}
	return value.Str(val), nil
}

func bGetEnvironmentVariables(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	out := value.NewObject()
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out.Set(kv[:i], value.Str(kv[i+1:]))
		}
	}
	return value.FromObject(out), nil
}

func bLoadConf(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	r.StartOverload()
	r.RequiredString(&path)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, asteriaerrors.New(asteriaerrors.IOError, "std.system.load_conf: %v", pkgerrors.Wrap(err, "read failed"))
	}
	return json.ParseExtended(string(data))
}
