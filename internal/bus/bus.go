package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	AppName        = "listenin"
	SockName       = "control.sock"
	EventsSockName = "events.sock"
	PidName        = "listenin.pid"
	ProtoVer       = "0.2"
)

// RuntimeEnv overrides the directory holding the sockets and the PID file.
const RuntimeEnv = "LISTENIN_RUNTIME_DIR"

const dialTimeout = 2 * time.Second

// ~/.cache/listenin
func RuntimeDir() (string, error) {
	if dir := os.Getenv(RuntimeEnv); dir != "" {
		return dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

func runtimePath(name string) (string, error) {
	dir, err := RuntimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ~/.cache/listenin/control.sock
func SockPath() (string, error) { return runtimePath(SockName) }

// ~/.cache/listenin/events.sock
func EventsSockPath() (string, error) { return runtimePath(EventsSockName) }

// ~/.cache/listenin/listenin.pid
func PidPath() (string, error) { return runtimePath(PidName) }

func Listen() (net.Listener, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	return listenUnix(sp)
}

func ListenEvents() (net.Listener, error) {
	sp, err := EventsSockPath()
	if err != nil {
		return nil, err
	}
	return listenUnix(sp)
}

func listenUnix(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(path) // stale socket from last run
	return net.Listen("unix", path)
}

func Dial() (net.Conn, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	return net.DialTimeout("unix", sp, dialTimeout)
}

// SendCommand writes one command line, optionally followed by a space and
// arg, and returns the daemon's one-line reply.
func SendCommand(cmd byte, arg string) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	line := string(cmd)
	if arg != "" {
		line += " " + arg
	}
	if _, err := c.Write([]byte(line + "\n")); err != nil {
		return "", err
	}

	return bufio.NewReader(c).ReadString('\n')
}

// ParseCommand splits a request line into its command byte and argument.
func ParseCommand(line string) (byte, string, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return 0, "", fmt.Errorf("empty command")
	}
	return line[0], strings.TrimSpace(line[1:]), nil
}

// ReplyError returns the message of an "ERR ..." reply, or "" for any other reply.
func ReplyError(reply string) string {
	if msg, ok := strings.CutPrefix(strings.TrimSpace(reply), "ERR "); ok {
		return msg
	}
	return ""
}

func CheckExistingDaemon() error {
	pidPath, err := PidPath()
	if err != nil {
		return err
	}

	pidData, err := os.ReadFile(pidPath)
	if os.IsNotExist(err) {
		return nil // no existing daemon
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return nil // invalid pid file, assume stale
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}

	// signal 0 only checks that the process is alive
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func CreatePidFile() error {
	pidPath, err := PidPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(pidPath), 0o700); err != nil {
		return err
	}

	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func RemovePidFile() error {
	pidPath, err := PidPath()
	if err != nil {
		return err
	}
	return os.Remove(pidPath)
}
