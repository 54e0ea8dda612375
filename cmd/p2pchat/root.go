package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/p2pchat/internal/client"
	"github.com/vovakirdan/p2pchat/internal/config"
	logpkg "github.com/vovakirdan/p2pchat/internal/log"
	"github.com/vovakirdan/p2pchat/internal/peerlink"
)

type globalFlags struct {
	configPath string
	serverURL  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "p2pchat",
		Short:         "Peer-to-peer chat rooms over WebRTC data channels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "client config file")
	root.PersistentFlags().StringVar(&flags.serverURL, "server", "", "signaling server websocket url")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level for diagnostics on stderr")

	root.AddCommand(newChatCmd(&flags), newRoomsCmd(&flags))
	return root
}

// loadClient resolves configuration and flag overrides.
func loadClient(flags *globalFlags) (config.ClientConfig, *zerolog.Logger, error) {
	cfg, err := config.LoadClient(flags.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if flags.serverURL != "" {
		cfg.ServerURL = flags.serverURL
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, logpkg.NewTo(os.Stderr, cfg.LogLevel, "console"), nil
}

// newSession builds a session backed by WebSocket signaling and pion links.
func newSession(cfg config.ClientConfig, logger *zerolog.Logger) (*client.Session, error) {
	links := peerlink.NewFactory(peerlink.Config{
		STUNServers: cfg.STUNServers,
		Logger:      logger,
	})

	return client.New(client.Options{
		ServerURL: cfg.ServerURL,
		Dialer:    &client.WSDialer{Logger: logger},
		Links: func(remoteUID string, initiator bool, h client.LinkHandler) (client.PeerLink, error) {
			link, err := links.New(remoteUID, initiator, h)
			if err != nil {
				return nil, err
			}
			return link, nil
		},
		JoinRetryDelay:    cfg.JoinRetryDelay,
		ListRoomsInterval: cfg.ListRoomsInterval,
		SignalStrategy:    client.SignalStrategy(cfg.SignalStrategy),
		ChatRelay:         cfg.ChatRelay,
		PublicRoom:        cfg.PublicRoom,
		Logger:            logger,
	})
}
