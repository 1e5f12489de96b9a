package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/wrapmesh/agent"
	"github.com/hupe1980/wrapmesh/core"
	"github.com/hupe1980/wrapmesh/internal/container"
	"github.com/hupe1980/wrapmesh/logging"
)

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

type chatOptions struct {
	message string
	save    string
}

func newChatCommand(global *globalOptions) *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the model; it may load and invoke wraps on your behalf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadContainer(cmd, global)
			if err != nil {
				return err
			}
			return runChat(cmd, c, opts, global.noColor)
		},
	}

	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Send a single message and exit")
	cmd.Flags().StringVar(&opts.save, "save", "", "Write the transcript as JSON to this file inside the workspace")

	return cmd
}

func runChat(cmd *cobra.Command, c *container.Container, opts *chatOptions, noColor bool) error {
	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	console := logging.NewConsoleLogger(cmd.OutOrStdout(), noColor)

	if lib := c.FileLibrary(); lib != nil && c.Config().Library.Watch {
		schemas := c.Bridge().Schemas()
		go func() {
			err := lib.Watch(ctx, func(names []string) {
				for _, name := range names {
					schemas.Invalidate(name)
				}
				console.Notice(fmt.Sprintf("Library reloaded: %d wraps", len(lib.Names())))
			})
			if err != nil {
				c.Logger().Warn("cli.library.watch_failed", "error", err.Error())
			}
		}()
	}

	a := c.NewAgent(func(o *agent.Options) {
		o.OnMessage = console.Message
	})

	s := &chatSession{agent: a, console: console}

	if opts.message != "" {
		err := s.send(ctx, opts.message)
		if saveErr := s.save(c, opts.save); saveErr != nil {
			return saveErr
		}
		return err
	}

	console.Notice(fmt.Sprintf("%s is ready. Type 'exit' or press Ctrl+C to quit.", a.Name()))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(cmd.OutOrStdout(), "User: ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout())
			console.Notice("Goodbye!")
			return s.save(c, opts.save)
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout())
			console.Notice("Goodbye!")
			return s.save(c, opts.save)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			console.Notice("Goodbye!")
			return s.save(c, opts.save)
		}

		if err := s.send(ctx, line); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			console.Error(err.Error())
		}
	}
}

// chatSession carries the history across turns of one chat command.
type chatSession struct {
	agent      *agent.Agent
	console    *logging.ConsoleLogger
	history    []core.Message
	transcript *agent.Transcript
}

// send runs one user turn. Partial progress is kept even when the run fails.
func (s *chatSession) send(ctx context.Context, text string) error {
	history := append(append([]core.Message(nil), s.history...), core.UserMessage(text))

	tr, err := s.agent.Run(ctx, history)
	if tr != nil {
		s.transcript = tr
		s.history = tr.Messages
	}
	if errors.Is(err, agent.ErrMaxSteps) {
		s.console.Notice(err.Error())
		return nil
	}
	return err
}

func (s *chatSession) save(c *container.Container, file string) error {
	if file == "" || s.transcript == nil {
		return nil
	}
	data, err := json.MarshalIndent(s.transcript, "", "  ")
	if err != nil {
		return err
	}
	if err := c.Workspace().WriteFile(file, string(data)); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	s.console.Success(fmt.Sprintf("Transcript saved to %s", file))
	return nil
}
