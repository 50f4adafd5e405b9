package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pavelanni/examgen/internal/chatsync"
	"github.com/pavelanni/examgen/internal/export"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
)

const (
	maxSources     = 3
	maxSourceRunes = 150
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE:  runChat,
	}
	addClientFlags(cmd.Flags())
	return cmd
}

type repl struct {
	env      *clientEnv
	ctrl     *chatsync.Controller
	exporter *export.Exporter
	out      io.Writer
	sess     *chatsync.Session
}

func runChat(cmd *cobra.Command, _ []string) error {
	env, v, err := newClientEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cache.Close()

	ctx, stop := signal.NotifyContext(env.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	env.ctx = ctx

	subject, err := env.resolveSubject(v.GetInt64("subject"))
	if err != nil {
		return err
	}

	r := &repl{
		env:      env,
		exporter: export.New(env.client),
		out:      cmd.OutOrStdout(),
	}
	r.ctrl = chatsync.New(env.client, chatsync.Config{
		PollInterval: env.cfg.PollInterval,
		MaxAttempts:  env.cfg.MaxAttempts,
		Cache:        env.cache,
		Notices: chatsync.Notices{
			Greeting: func(s model.Subject) string {
				return appI18n.Td(ctx, "Greeting", map[string]any{"Subject": s.Name})
			},
			SyncFailed: appI18n.T(ctx, "SyncFailed"),
		},
		OnState: r.onState,
	})
	defer r.ctrl.Close()

	r.open(subject)
	fmt.Fprintln(r.out, appI18n.T(ctx, "Help"))
	return r.loop(cmd.InOrStdin())
}

func (r *repl) loop(in io.Reader) error {
	ctx := r.env.ctx
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := r.command(line); quit {
				return nil
			}
			continue
		}
		r.send(line)
	}
}

// command runs a slash command and reports whether the session should end.
func (r *repl) command(line string) bool {
	ctx := r.env.ctx
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, appI18n.T(ctx, "Help"))
	case "/refresh":
		r.open(r.sess.Subject())
	case "/subjects":
		subjects, err := r.env.client.ListSubjects(ctx)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return false
		}
		for _, s := range subjects {
			fmt.Fprintf(r.out, "  %d  %s\n", s.ID, s.Name)
		}
	case "/switch":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, appI18n.T(ctx, "Help"))
			return false
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			fmt.Fprintf(r.out, "invalid subject ID %q\n", fields[1])
			return false
		}
		subject, err := r.env.resolveSubject(id)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return false
		}
		r.open(subject)
	case "/export":
		r.export()
	default:
		fmt.Fprintln(r.out, appI18n.T(ctx, "Help"))
	}
	return false
}

func (r *repl) open(subject model.Subject) {
	ctx := r.env.ctx
	r.sess = r.ctrl.Open(ctx, subject)
	if err := r.env.cache.SetLastSubject(subject); err != nil {
		slog.Warn("failed to remember subject", "error", err)
	}

	fmt.Fprintln(r.out, appI18n.Td(ctx, "ActiveSubject", map[string]any{"Name": subject.Name, "ID": subject.ID}))
	for _, m := range r.sess.Transcript() {
		r.print(m)
	}
}

func (r *repl) send(text string) {
	ctx := r.env.ctx
	subject := r.sess.Subject()

	fmt.Fprintln(r.out, appI18n.T(ctx, "Thinking"))
	reply, err := r.ctrl.SendTurn(ctx, subject.ID, text)
	switch {
	case err == nil:
		r.print(reply)
	case errors.Is(err, chatsync.ErrSyncTimeout):
		r.printLast()
	case errors.Is(err, chatsync.ErrTurnInFlight):
		fmt.Fprintln(r.out, appI18n.T(ctx, "TurnInFlight"))
	case errors.Is(err, context.Canceled), errors.Is(err, chatsync.ErrStaleSession):
		slog.Debug("turn abandoned", "subject_id", subject.ID, "error", err)
	default:
		fmt.Fprintln(r.out, err)
	}
}

func (r *repl) export() {
	ctx := r.env.ctx
	subject := r.sess.Subject()

	data, err := r.exporter.Export(ctx, subject.ID, r.sess.Transcript())
	if err != nil {
		slog.Error("export failed", "subject_id", subject.ID, "error", err)
		r.sess.AppendNotice(appI18n.T(ctx, "ExportFailed"))
		r.printLast()
		return
	}

	path := export.FileName(subject.Name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("failed to save exam paper", "path", path, "error", err)
		r.sess.AppendNotice(appI18n.T(ctx, "ExportFailed"))
		r.printLast()
		return
	}
	fmt.Fprintln(r.out, appI18n.Td(ctx, "ExportSaved", map[string]any{"Path": path}))
}

func (r *repl) onState(subject model.Subject, st chatsync.State) {
	slog.Debug("turn state", "subject_id", subject.ID, "state", string(st))
	if st == chatsync.StateDegraded {
		fmt.Fprintln(r.out, appI18n.T(r.env.ctx, "Syncing"))
	}
}

func (r *repl) printLast() {
	tr := r.sess.Transcript()
	if len(tr) > 0 {
		r.print(tr[len(tr)-1])
	}
}

func (r *repl) print(m model.ChatMessage) {
	printMessage(r.env.ctx, r.out, m)
}

func printMessage(ctx context.Context, w io.Writer, m model.ChatMessage) {
	prefix := "you"
	if m.Role == model.RoleAssistant {
		prefix = "assistant"
	}
	fmt.Fprintf(w, "%s> %s\n", prefix, m.Content)

	sources := sourceSnippets(m.Context)
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, "  "+appI18n.T(ctx, "Sources"))
	for _, s := range sources {
		fmt.Fprintln(w, "  - "+s)
	}
}

// sourceSnippets shortens the context passages shown under a reply.
func sourceSnippets(passages []string) []string {
	var out []string
	for _, p := range passages {
		if len(out) == maxSources {
			break
		}
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) > maxSourceRunes {
			p = string([]rune(p)[:maxSourceRunes]) + "..."
		}
		out = append(out, p)
	}
	return out
}
