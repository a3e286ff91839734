package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
}

func (f *fakeExec) record(name string) error { f.calls = append(f.calls, name); return nil }

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Signup(ctx context.Context) error { return f.record("signup") }
func (f *fakeExec) WhoAmI(ctx context.Context) error { return f.record("whoami") }
func (f *fakeExec) Refresh(ctx context.Context) error { return f.record("refresh") }
func (f *fakeExec) Update(ctx context.Context) error { return f.record("update") }
func (f *fakeExec) Count(ctx context.Context) error { return f.record("count") }
func (f *fakeExec) Login(ctx context.Context) error { f.loggedIn = true; return f.record("login") }
func (f *fakeExec) Logout(ctx context.Context) error { f.loggedIn = false; return f.record("logout") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = v.(string)
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := captureOutput(t)
	input := strings.Join([]string{
		"help",
		"register",
		"login",
		"",
		"help",
		"whoami",
		"check",
		"refresh",
		"update",
		"count",
		"logout",
		"bogus",
		"exit",
		"count",
	}, "\n") + "\n"

	f := &fakeExec{}
	runREPL(context.Background(), f, func() string { return "" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{"signup", "login", "whoami", "whoami", "refresh", "update", "count", "logout"}, f.calls)
	assert.Contains(t, *out, "Available commands: signup, login, whoami, refresh, exit")
	assert.Contains(t, *out, "Available commands: whoami, refresh, update, count, logout, exit")
	assert.Contains(t, *out, "Unknown command: bogus")
	assert.Contains(t, *out, "Bye!")
}

func TestRunREPL_StopsAtEOF(t *testing.T) {
	captureOutput(t)

	f := &fakeExec{}
	runREPL(context.Background(), f, func() string { return "" }, bufio.NewReader(strings.NewReader("login")))

	assert.Equal(t, []string{"login"}, f.calls)
}
