package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavelanni/examgen/internal/export"
	"github.com/pavelanni/examgen/internal/extract"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the latest questions of a subject as a PDF exam paper",
		RunE:  runExport,
	}
	f := cmd.Flags()
	addClientFlags(f)
	f.StringP("output", "o", "", "Output file path (default Exam_<subject>.pdf)")
	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Print the exam draft found in a text file (or stdin) as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExtract,
	}
	addLogFlags(cmd.Flags())
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the chat history of a subject",
		RunE:  runHistory,
	}
	f := cmd.Flags()
	addClientFlags(f)
	f.Bool("offline", false, "Print the locally cached transcript without contacting the backend")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	env, v, err := newClientEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cache.Close()

	subject, err := env.resolveSubject(v.GetInt64("subject"))
	if err != nil {
		return err
	}

	transcript, err := env.client.History(env.ctx, subject.ID)
	if err != nil {
		slog.Warn("failed to fetch history, using cached transcript", "subject_id", subject.ID, "error", err)
		transcript, err = env.cache.CachedTranscript(subject.ID)
		if err != nil {
			return fmt.Errorf("read cached transcript: %w", err)
		}
	} else if err := env.cache.ReplaceTranscript(subject.ID, transcript); err != nil {
		slog.Warn("failed to cache transcript", "subject_id", subject.ID, "error", err)
	}

	data, err := export.New(env.client).Export(env.ctx, subject.ID, transcript)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), appI18n.T(env.ctx, "ExportFailed"))
		return err
	}

	path := v.GetString("output")
	if path == "" {
		path = export.FileName(subject.Name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), appI18n.Td(env.ctx, "ExportSaved", map[string]any{"Path": path}))
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)

	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	draft := extract.Extract(string(text))
	if draft == nil {
		return errors.New("no exam questions found")
	}

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func runHistory(cmd *cobra.Command, _ []string) error {
	env, v, err := newClientEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cache.Close()

	var transcript []model.ChatMessage
	if v.GetBool("offline") {
		subject, ok, err := env.cache.LastSubject()
		if err != nil {
			return fmt.Errorf("read last subject: %w", err)
		}
		id := v.GetInt64("subject")
		if id == 0 {
			if !ok {
				return errors.New("no cached subject: pass --subject")
			}
			id = subject.ID
		}
		transcript, err = env.cache.CachedTranscript(id)
		if err != nil {
			return fmt.Errorf("read cached transcript: %w", err)
		}
	} else {
		subject, err := env.resolveSubject(v.GetInt64("subject"))
		if err != nil {
			return err
		}
		transcript, err = env.client.History(env.ctx, subject.ID)
		if err != nil {
			return err
		}
		if err := env.cache.ReplaceTranscript(subject.ID, transcript); err != nil {
			slog.Warn("failed to cache transcript", "subject_id", subject.ID, "error", err)
		}
	}

	out := cmd.OutOrStdout()
	for _, m := range transcript {
		printMessage(env.ctx, out, m)
	}
	fmt.Fprintln(out, appI18n.Tp(env.ctx, "MessageCount", len(transcript)))
	return nil
}
