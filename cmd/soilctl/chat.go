package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/soil-advisor/internal/apiclient"
	"github.com/ashureev/soil-advisor/internal/chat"
	"github.com/ashureev/soil-advisor/internal/speech"
	"github.com/spf13/cobra"
)

const chatHelp = `Type a question and press enter.
  /listen  start speech capture into the input buffer
  /stop    stop speech capture and show what was heard
  /send    send the input buffer
  /quit    leave`

func chatCmd(get func() *app) *cobra.Command {
	var speechURL, transcriptPath string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the soil assistant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.requireLogin(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("speech-url") {
				speechURL = a.cfg.SpeechURL
			}
			if !cmd.Flags().Changed("transcript-log") {
				transcriptPath = a.cfg.TranscriptLog.Path
			}

			opts := []chat.Option{chat.WithLogger(a.logger)}
			if transcriptPath != "" {
				tl, err := chat.NewFileTranscriptLog(transcriptPath, a.cfg.TranscriptLog.QueueSize, a.logger)
				if err != nil {
					return err
				}
				defer func() {
					if err := tl.Close(); err != nil {
						a.logger.Warn("Failed to close transcript log", "error", err)
					}
				}()
				opts = append(opts, chat.WithTranscriptLog(tl))
			}

			var src speech.Source
			if speechURL != "" {
				src = speech.NewWebSocketSource(speechURL, a.logger)
			}
			r := &repl{
				pipeline: chat.New(a.client, opts...),
				speech:   src,
				out:      cmd.OutOrStdout(),
				errOut:   cmd.ErrOrStderr(),
			}
			return r.run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&speechURL, "speech-url", "", "WebSocket transcript feed (overrides SOIL_SPEECH_URL)")
	cmd.Flags().StringVar(&transcriptPath, "transcript-log", "", "NDJSON transcript log path (overrides SOIL_TRANSCRIPT_LOG)")
	cmd.AddCommand(chatHistoryCmd(get))
	return cmd
}

func chatHistoryCmd(get func() *app) *cobra.Command {
	var page, perPage int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past conversations, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.requireLogin(); err != nil {
				return err
			}
			result, err := chat.New(a.client).History(cmd.Context(), page, perPage)
			if err != nil {
				return err
			}
			renderChatHistory(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "Exchanges per page")
	return cmd
}

// repl drives a chat pipeline from line-oriented input.
type repl struct {
	pipeline *chat.Pipeline
	speech   speech.Source
	out      io.Writer
	errOut   io.Writer
}

var errQuit = errors.New("quit")

func (r *repl) run(ctx context.Context, in io.Reader) error {
	defer r.pipeline.StopListening()

	msgs := r.pipeline.Messages()
	renderMessage(r.out, msgs[0])
	fmt.Fprintln(r.out, chatHelp)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		err := r.handle(ctx, strings.TrimSpace(scanner.Text()))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (r *repl) handle(ctx context.Context, line string) error {
	switch line {
	case "":
		return nil
	case "/quit":
		return errQuit
	case "/listen":
		if r.speech == nil {
			fmt.Fprintln(r.errOut, "speech input is not configured (set SOIL_SPEECH_URL)")
			return nil
		}
		if err := r.pipeline.StartListening(ctx, r.speech); err != nil {
			fmt.Fprintf(r.errOut, "cannot start listening: %v\n", err)
			return nil
		}
		fmt.Fprintln(r.out, "Listening... type /stop when done.")
		return nil
	case "/stop":
		r.pipeline.StopListening()
		fmt.Fprintf(r.out, "Heard: %s\n", r.pipeline.Pending())
		return nil
	case "/send":
		if strings.TrimSpace(r.pipeline.Pending()) == "" {
			fmt.Fprintln(r.errOut, "nothing to send")
			return nil
		}
		return r.reply(r.pipeline.SendPending(ctx))
	default:
		return r.reply(r.pipeline.Send(ctx, line))
	}
}

// reply prints the newest transcript entry. A rejected session ends the
// conversation; other failures have already been answered with the fallback.
func (r *repl) reply(err error) error {
	msgs := r.pipeline.Messages()
	renderMessage(r.out, msgs[len(msgs)-1])
	if err == nil {
		return nil
	}
	if apiclient.IsUnauthorized(err) {
		return errors.New("session expired, log in again")
	}
	fmt.Fprintf(r.errOut, "error: %s\n", r.pipeline.LastError())
	return nil
}
