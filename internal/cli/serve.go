package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/donna/internal/assistant"
	"github.com/amirbrooks/donna/internal/dateparse"
	"github.com/amirbrooks/donna/internal/speech"
	"github.com/amirbrooks/donna/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  exactArgs(0, "serve [--addr :8000]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(addr) == "" {
				addr = a.cfg.Addr
			}
			srv, closeFn, err := a.newServer()
			if err != nil {
				return err
			}
			defer closeFn()
			return srv.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

// newServer wires the store, assistant, history and speech adapters.
func (a *app) newServer() (*web.Server, func(), error) {
	if err := a.ws.Init(); err != nil {
		return nil, nil, err
	}
	if err := a.ensureUsers(); err != nil {
		return nil, nil, err
	}
	hist, err := a.openHistory()
	if err != nil {
		return nil, nil, err
	}

	llm := a.newLLM()
	deps := web.Deps{
		Store:       a.ws,
		Assistant:   assistant.New(a.ws, llm, a.log),
		History:     hist,
		Logger:      a.log,
		DefaultUser: a.cfg.DefaultUser,
	}
	if a.gf.Today != "" {
		ref := a.ref
		deps.Today = func() dateparse.Date { return ref }
	}
	if a.cfg.Speech.STTURL != "" {
		deps.Transcriber = speech.NewHTTPTranscriber(a.cfg.Speech.STTURL, 0)
	}
	if a.cfg.Speech.TTSURL != "" {
		deps.Synthesizer = speech.NewHTTPSynthesizer(a.cfg.Speech.TTSURL, 0)
	}
	a.log.Info("server configured",
		"root", a.ws.Root,
		"default_user", a.cfg.DefaultUser,
		"model", llm.Model(),
		"history", hist.Enabled(),
		"stt", deps.Transcriber != nil,
		"tts", deps.Synthesizer != nil,
	)
	return web.NewServer(deps), func() { hist.Close() }, nil
}
