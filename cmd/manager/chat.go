package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/neuralninjas/wellness/pkg/companionclient"
	"github.com/spf13/cobra"
)

var (
	chatUser    string
	chatSession string
	chatExtra   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the companion from a terminal",
	Long: `Run a dialogue session from a terminal.

Every line is sent as one turn. The loop ends when the companion marks
the session final or concluded, or on EOF. A line "/audio <file>" sends
the file as a voice note.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if chatSession == "" {
			chatSession = uuid.NewString()
		}
		c := companionclient.New(companionURL)
		return chatLoop(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout(), companionclient.Turn{
			SessionID:  chatSession,
			Username:   chatUser,
			ExtraPhase: chatExtra,
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List session dates of a user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dates, err := companionclient.New(companionURL).History(cmd.Context(), chatUser)
		if err != nil {
			return err
		}
		for _, d := range dates {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{chatCmd, historyCmd} {
		c.Flags().StringVarP(&chatUser, "user", "u", "Guest", "username")
	}
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session id, random when empty")
	chatCmd.Flags().BoolVar(&chatExtra, "extra", false, "run the extra phase")
}

type chatter interface {
	Chat(ctx context.Context, t companionclient.Turn) (*companionclient.Reply, error)
}

// chatLoop шлет строки из in как ходы, пока сессия не завершится.
func chatLoop(ctx context.Context, c chatter, in io.Reader, out io.Writer, base companionclient.Turn) error {
	fmt.Fprintf(out, "session %s\n", base.SessionID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		turn := base
		line := strings.TrimSpace(scanner.Text())
		if path, ok := strings.CutPrefix(line, "/audio "); ok {
			path = strings.TrimSpace(path)
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			turn.Audio, turn.AudioName = data, filepath.Base(path)
		} else if line == "" {
			continue
		} else {
			turn.Text = line
		}

		reply, err := c.Chat(ctx, turn)
		if err != nil {
			return err
		}

		if reply.TranscribedText != "" && turn.Text == "" {
			fmt.Fprintf(out, "(you said: %s)\n", reply.TranscribedText)
		}
		fmt.Fprintln(out, reply.Response)
		if reply.Emotion != "" {
			fmt.Fprintf(out, "[turn %d, %s]\n", reply.CurrentTurn, reply.Emotion)
		}
		if reply.IsFinal || reply.Concluded {
			return nil
		}
	}
}
