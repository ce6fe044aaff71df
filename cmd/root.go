package cmd

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stackpad/stackpad/pkg/config"
	"github.com/stackpad/stackpad/pkg/controllers"
	"github.com/stackpad/stackpad/pkg/events"
	"github.com/stackpad/stackpad/pkg/logger"
	"github.com/stackpad/stackpad/pkg/render"
	"github.com/stackpad/stackpad/pkg/socket"
	"github.com/stackpad/stackpad/pkg/uploads"
)

var (
	cfgFile   string
	sessionID string
)

var rootCmd = &cobra.Command{
	Use:   "stackpad",
	Short: "Terminal client for a remote build/chat service",
	Long: `Connects to a remote build/chat session, streams the assistant
transcript as it arrives, and renders file edits inline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return err
		}
		if err := logger.Init(); err != nil {
			return err
		}
		defer logger.Close()

		return runSession(cmd.Context(), sessionID)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.stackpad/settings.yaml)")
	rootCmd.Flags().StringVar(&sessionID, "session", controllers.NewSessionID, "session id to attach to")
	rootCmd.Flags().String("server", "", "service base URL")
	rootCmd.Flags().String("token", "", "session token")
	viper.BindPFlag("server.url", rootCmd.Flags().Lookup("server"))
	viper.BindPFlag("server.token", rootCmd.Flags().Lookup("token"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSession(ctx context.Context, sessionID string) error {
	settings := config.Get()

	manager := socket.NewManager(settings.Server.URL, settings.Server.Token,
		socket.WithOpenTimeout(settings.Socket.OpenTimeout),
		socket.WithPingInterval(settings.Socket.PingInterval))
	uploader := uploads.NewClient(settings.Server.URL, settings.Server.Token,
		uploads.WithConcurrency(settings.Uploads.Concurrency),
		uploads.WithTimeout(settings.Uploads.Timeout))
	bus := events.NewBus()
	controller := controllers.NewSessionController(manager, uploader, bus)
	renderer := render.NewRenderer()

	bus.Subscribe(events.EventStatusChanged, func(event events.Event) {
		if _, ok := event.Payload.(events.StatusPayload); ok {
			fmt.Println(renderer.StatusLine(controller.Status()))
		}
	})
	bus.Subscribe(events.EventTranscriptUpdated, func(event events.Event) {
		snapshot, ok := event.Payload.(controllers.Snapshot)
		if !ok || len(snapshot.Messages) == 0 {
			return
		}
		last := snapshot.Messages[len(snapshot.Messages)-1]
		fmt.Println(renderer.Message(last.Role, last.Rendered))
		if suggestions := renderer.FollowUps(snapshot.FollowUps); suggestions != "" {
			fmt.Println(suggestions)
		}
	})

	if err := controller.OpenSession(ctx, sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v (use /reconnect to retry)\n", err)
	}
	defer controller.CloseSession()

	return inputLoop(ctx, controller)
}

// inputLoop reads user input until EOF. Lines starting with "/" are
// commands; everything else is sent as a message.
func inputLoop(ctx context.Context, controller *controllers.SessionController) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, controller, line); quit {
				return nil
			}
			continue
		}

		if err := controller.Send(line); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		}
	}
}

func runCommand(ctx context.Context, controller *controllers.SessionController, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/reconnect":
		if err := controller.Reconnect(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "reconnect failed: %v\n", err)
		}
	case "/attach":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "usage: /attach <file>")
			break
		}
		if err := attachFile(ctx, controller, fields[1]); err != nil {
			fmt.Fprintf(os.Stderr, "attach failed: %v\n", err)
		}
	case "/detach":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "usage: /detach <index>")
			break
		}
		index, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid index %q\n", fields[1])
			break
		}
		if err := controller.RemoveAttachment(index); err != nil {
			fmt.Fprintf(os.Stderr, "detach failed: %v\n", err)
		}
	case "/attachments":
		for i, url := range controller.Attachments() {
			fmt.Printf("  %d: %s\n", i, url)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", fields[0])
	}
	return false
}

func attachFile(ctx context.Context, controller *controllers.SessionController, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return controller.Attach(ctx, []uploads.Attachment{{Data: data, ContentType: contentType}})
}
