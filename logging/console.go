package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hupe1980/wrapmesh/core"
	"github.com/mitchellh/colorstring"
)

// ConsoleLogger prints a chat transcript for humans: one line per message,
// role prefixed and coloured. It is not a structured Logger.
type ConsoleLogger struct {
	mu    sync.Mutex
	out   io.Writer
	color colorstring.Colorize
}

// NewConsoleLogger creates a ConsoleLogger writing to out.
func NewConsoleLogger(out io.Writer, noColor bool) *ConsoleLogger {
	return &ConsoleLogger{
		out: out,
		color: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: noColor,
		},
	}
}

// Info prints a plain line.
func (c *ConsoleLogger) Info(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// Message prints "Role: content" with the content in blue. Function calls
// selected by an assistant message are printed as Action lines.
func (c *ConsoleLogger) Message(msg core.Message) {
	role := titleRole(msg.Role)
	if msg.Content != "" || !msg.HasFunctionCalls() {
		c.Info(fmt.Sprintf("%s: %s", role, c.paint("blue", msg.Content)))
	}
	for _, fc := range msg.FunctionCalls {
		c.Action(role, fc)
	}
}

// Action prints a function call selected by the model.
func (c *ConsoleLogger) Action(role string, fc core.FunctionCall) {
	c.Info(fmt.Sprintf("%s: %s", role, c.paint("cyan", fmt.Sprintf("%s(%s)", fc.Name, fc.Arguments))))
}

// Notice prints a yellow line.
func (c *ConsoleLogger) Notice(line string) { c.Info(c.paint("yellow", line)) }

// Success prints a green line.
func (c *ConsoleLogger) Success(line string) { c.Info(c.paint("green", line)) }

// Error prints a red line.
func (c *ConsoleLogger) Error(line string) { c.Info(c.paint("red", line)) }

// paint colours s without passing it through colorstring, so text that
// happens to contain [codes] is printed verbatim.
func (c *ConsoleLogger) paint(code, s string) string {
	return c.color.Color("["+code+"]") + s + c.color.Color("[reset]")
}

func titleRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
